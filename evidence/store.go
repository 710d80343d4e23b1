package evidence

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reviewguard/types"
)

// Store is the read-mostly query surface over the review corpus. Every
// lookup is parameterized; comment and username values are never
// interpolated into query text.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed initializes) the review corpus database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open review database: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS product_reviews (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		comment TEXT NOT NULL,
		username TEXT,
		rating REAL,
		source TEXT,
		product TEXT,
		page_timestamp TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// DistinctUsersForComment counts distinct usernames that posted this exact
// comment text.
func (s *Store) DistinctUsersForComment(ctx context.Context, comment string) (int, error) {
	return s.countQuery(ctx,
		"SELECT COUNT(DISTINCT username) FROM product_reviews WHERE comment = ?", comment)
}

// UserCommentCount counts rows where this username posted this exact
// comment text.
func (s *Store) UserCommentCount(ctx context.Context, username, comment string) (int, error) {
	return s.countQuery(ctx,
		"SELECT COUNT(*) FROM product_reviews WHERE username = ? AND comment = ?", username, comment)
}

// DistinctProductsForComment counts distinct products carrying this exact
// comment text.
func (s *Store) DistinctProductsForComment(ctx context.Context, comment string) (int, error) {
	return s.countQuery(ctx,
		"SELECT COUNT(DISTINCT product) FROM product_reviews WHERE comment = ?", comment)
}

func (s *Store) countQuery(ctx context.Context, query string, args ...interface{}) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

var timestampRe = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}\s\d{2}:\d{2})`)

// CleanTimestamp extracts a YYYY-MM-DD HH:MM timestamp from a raw page
// string. Returns "" when no valid timestamp can be found.
func CleanTimestamp(raw string) string {
	match := timestampRe.FindString(raw)
	if match == "" {
		return ""
	}
	if _, err := time.Parse("2006-01-02 15:04", match); err != nil {
		return ""
	}
	return match
}

// InsertReviews stores scraped review metadata in the corpus. Rows without
// a recoverable timestamp are skipped. Returns the number of rows stored.
func (s *Store) InsertReviews(ctx context.Context, reviews []types.ReviewMetadata) (int, error) {
	if len(reviews) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO product_reviews (comment, username, rating, source, product, page_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	stored := 0
	for _, r := range reviews {
		ts := CleanTimestamp(r.Timestamp)
		if ts == "" {
			log.Printf("Warning: skipping review with invalid timestamp %q", r.Timestamp)
			continue
		}
		if strings.TrimSpace(r.Comment) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, r.Comment, r.Username, r.Rating, r.Source, r.Product, ts); err != nil {
			return stored, fmt.Errorf("failed to insert review: %w", err)
		}
		stored++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return stored, nil
}

// CleanCorpus removes rows with empty comments and collapses exact
// duplicate rows, keeping the oldest.
func (s *Store) CleanCorpus(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM product_reviews WHERE comment IS NULL OR TRIM(comment) = ''"); err != nil {
		return fmt.Errorf("failed to remove empty comments: %w", err)
	}

	dedupe := `DELETE FROM product_reviews WHERE id NOT IN (
		SELECT MIN(id) FROM product_reviews
		GROUP BY comment, username, rating, source, product, page_timestamp
	)`
	if _, err := s.db.ExecContext(ctx, dedupe); err != nil {
		return fmt.Errorf("failed to remove duplicated rows: %w", err)
	}
	return nil
}

// Count returns the total number of stored reviews.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.countQuery(ctx, "SELECT COUNT(*) FROM product_reviews")
}
