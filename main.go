package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"reviewguard/api"
	"reviewguard/evidence"
	"reviewguard/llm"
	"reviewguard/messaging"
	"reviewguard/pipeline"
	"reviewguard/similarity"
	"reviewguard/storage"
)

func main() {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	gateway, err := initializeGateway()
	if err != nil {
		log.Fatalf("Failed to initialize LLM gateway: %v", err)
	}

	store := initializeStore()
	if store != nil {
		defer store.Close()
	}

	index := initializeIndex()
	cache := initializeCache()
	if cache != nil {
		defer cache.Close()
	}

	var aggregator *evidence.Aggregator
	if index != nil || store != nil {
		var querier evidence.Querier
		if store != nil {
			querier = store
		}
		var simIndex similarity.Index
		if index != nil {
			simIndex = index
		}
		aggregator = evidence.NewAggregator(simIndex, querier, cache)
	} else {
		log.Println("No evidence backends configured; deep dive runs on triage signals only")
	}

	orchestrator := pipeline.NewOrchestrator(gateway, aggregator)

	recorders := initializeRecorders()
	startIngestConsumer(store, index)

	var sink api.ReviewSink
	if store != nil {
		sink = store
	}
	var indexer api.Indexer
	if index != nil {
		indexer = index
	}
	server := api.NewServer(orchestrator, sink, indexer, recorders...)

	addr := ":" + GetEnvOrDefault("PORT", DefaultPort)
	log.Printf("Starting API server on %s", addr)
	log.Println("API endpoints available:")
	log.Println("  GET  /health")
	log.Println("  POST /analyze")
	log.Println("  POST /comments")
	log.Println("  GET  /comments/count")

	if err := http.ListenAndServe(addr, server.Router()); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// initializeGateway builds the provider chain in fallback order from
// whatever credentials are present. At least one provider is required.
func initializeGateway() (*llm.Gateway, error) {
	model := os.Getenv("LLM_MODEL")

	var providers []llm.Provider
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		providers = append(providers, llm.NewGemini(key, os.Getenv("GEMINI_MODEL")))
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		providers = append(providers, llm.NewOllama(url, GetEnvOrDefault("LLM_MODEL", DefaultOllamaModel)))
	}
	if key := os.Getenv("COHERE_API_KEY"); key != "" {
		providers = append(providers, llm.NewCohere(key, model))
	}

	return llm.NewGateway(llm.DefaultCallTimeout, providers...)
}

func initializeStore() *evidence.Store {
	path := GetEnvOrDefault("REVIEW_DB", DefaultReviewDB)
	store, err := evidence.Open(path)
	if err != nil {
		log.Printf("Warning: failed to open review store %s: %v (behavioral checks disabled)", path, err)
		return nil
	}
	log.Printf("Review store ready: %s", path)
	return store
}

func initializeIndex() *similarity.Chroma {
	embedder := similarity.NewDefaultEmbeddingsProvider(os.Getenv("EMBEDDING_MODEL"))
	if embedder == nil {
		log.Println("No embeddings provider configured; similarity lookups disabled")
		return nil
	}

	cfg := similarity.ChromaConfig{
		Host:           GetEnvOrDefault("CHROMA_HOST", DefaultChromaHost),
		Port:           GetEnvInt("CHROMA_PORT", DefaultChromaPort),
		CollectionName: GetEnvOrDefault("CHROMA_COLLECTION", DefaultChromaCollection),
	}
	index, err := similarity.NewChroma(cfg, embedder)
	if err != nil {
		log.Printf("Warning: failed to connect to Chroma: %v (similarity lookups disabled)", err)
		return nil
	}
	return index
}

func initializeCache() *evidence.Cache {
	if os.Getenv("REDIS_ADDR") == "" {
		return nil
	}
	cache, err := evidence.NewCacheFromEnv()
	if err != nil {
		log.Printf("Warning: failed to connect to Redis: %v (check cache disabled)", err)
		return nil
	}
	log.Println("Evidence check cache ready")
	return cache
}

// initializeRecorders wires the optional out-of-band destinations for
// completed analyses: a Kafka audit topic and an S3 report archive.
func initializeRecorders() []api.Recorder {
	var recorders []api.Recorder

	if GetEnvBool("KAFKA_AUDIT_ENABLED") {
		publisher, err := messaging.NewAuditPublisher(messaging.GetKafkaBrokers(), messaging.GetAuditTopic())
		if err != nil {
			log.Printf("Warning: failed to init audit publisher: %v (audit disabled)", err)
		} else {
			log.Printf("Audit publisher ready: topic %s", messaging.GetAuditTopic())
			recorders = append(recorders, publisher)
		}
	}

	if bucket := os.Getenv("S3_BUCKET"); bucket != "" {
		s3c, err := storage.NewS3(context.Background(), storage.S3Config{
			Region:       os.Getenv("S3_REGION"),
			Profile:      os.Getenv("S3_PROFILE"),
			UsePathStyle: GetEnvBool("S3_USE_PATH_STYLE"),
		})
		if err != nil {
			log.Printf("Warning: failed to init S3 client: %v (report archival disabled)", err)
		} else {
			log.Printf("Report archiver ready: bucket %s", bucket)
			recorders = append(recorders, storage.NewArchiver(s3c, bucket, os.Getenv("S3_PREFIX")))
		}
	}

	return recorders
}

// startIngestConsumer runs the Kafka ingest consumer in the background
// when enabled and a store is available.
func startIngestConsumer(store *evidence.Store, index *similarity.Chroma) {
	if !GetEnvBool("KAFKA_INGEST_ENABLED") {
		return
	}
	if store == nil {
		log.Println("Warning: ingest consumer requires a review store; skipping")
		return
	}

	cfg := messaging.IngestConfig{
		Brokers: messaging.GetKafkaBrokers(),
		Topic:   messaging.GetIngestTopic(),
		GroupID: messaging.GetIngestGroupID(),
		Store:   store,
	}
	if index != nil {
		cfg.Index = index
	}

	consumer, err := messaging.NewIngestConsumer(cfg)
	if err != nil {
		log.Printf("Warning: failed to init ingest consumer: %v (ingest disabled)", err)
		return
	}
	if err := consumer.Start(context.Background()); err != nil {
		log.Printf("Warning: failed to start ingest consumer: %v (ingest disabled)", err)
	}
}
