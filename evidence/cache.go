package evidence

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheConfig configures the Redis-backed check-result cache.
type CacheConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	TTL      time.Duration
}

// Cache memoizes behavioral check outcomes in Redis. Safe because the
// checks are read-only, parameterized corpus queries; a stale entry only
// delays a flag by the TTL window.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheFromEnv creates a check cache using REDIS_ADDR, REDIS_PASS and
// EVIDENCE_CACHE_TTL_SECONDS.
func NewCacheFromEnv() (*Cache, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	ttl := time.Hour
	if t := os.Getenv("EVIDENCE_CACHE_TTL_SECONDS"); t != "" {
		if secs, err := strconv.Atoi(t); err == nil && secs > 0 {
			ttl = time.Duration(secs) * time.Second
		}
	}
	return NewCache(CacheConfig{Addr: addr, Password: os.Getenv("REDIS_PASS"), TTL: ttl})
}

// NewCache creates a Cache and verifies connectivity.
func NewCache(cfg CacheConfig) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{client: client, ttl: ttl}, nil
}

func (c *Cache) Close() error { return c.client.Close() }

func cacheKey(check, comment, username string) string {
	h := sha256.Sum256([]byte(check + "|" + comment + "|" + username))
	return "evidence:" + hex.EncodeToString(h[:])
}

// Get reports a cached check outcome. ok is false on miss or Redis error;
// cache failures never block a check from running.
func (c *Cache) Get(ctx context.Context, check, comment, username string) (fired, ok bool) {
	val, err := c.client.Get(ctx, cacheKey(check, comment, username)).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

// Set stores a check outcome with a sliding TTL.
func (c *Cache) Set(ctx context.Context, check, comment, username string, fired bool) {
	val := "0"
	if fired {
		val = "1"
	}
	// Best effort; errors are ignored, the source of truth is the store.
	c.client.Set(ctx, cacheKey(check, comment, username), val, c.ttl)
}
