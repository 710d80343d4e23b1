package messaging

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"reviewguard/types"
)

// ReviewWriter persists review metadata into the corpus.
type ReviewWriter interface {
	InsertReviews(ctx context.Context, reviews []types.ReviewMetadata) (int, error)
}

// DocumentIndexer mirrors stored reviews into the similarity index.
type DocumentIndexer interface {
	AddDocuments(ctx context.Context, reviews []types.ReviewMetadata) error
}

// IngestMessage is one scraped batch published by upstream collectors.
type IngestMessage struct {
	Source  string                 `json:"source,omitempty"`
	Reviews []types.ReviewMetadata `json:"reviews"`
}

// IngestConfig holds the ingest consumer configuration.
type IngestConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Store   ReviewWriter
	Index   DocumentIndexer
}

// NewIngestConsumer creates a consumer that lands scraped review batches
// in the corpus and, when an index is configured, the similarity index.
func NewIngestConsumer(config IngestConfig) (*Consumer, error) {
	return NewConsumer(ConsumerConfig{
		Brokers: config.Brokers,
		Topic:   config.Topic,
		GroupID: config.GroupID,
		Handler: newIngestHandler(config),
	})
}

func newIngestHandler(config IngestConfig) *TypedMessageHandler[IngestMessage] {
	return &TypedMessageHandler[IngestMessage]{
		Validate: func(msg *IngestMessage) bool {
			if len(msg.Reviews) == 0 {
				log.Printf("Skipping ingest message with no reviews (source: %s)", msg.Source)
				return false
			}
			return true
		},
		Process: func(ctx context.Context, msg *IngestMessage) error {
			stored, err := config.Store.InsertReviews(ctx, msg.Reviews)
			if err != nil {
				log.Printf("Failed to store ingest batch: %v", err)
				return err // retry
			}
			log.Printf("Stored %d/%d reviews from ingest batch (source: %s)",
				stored, len(msg.Reviews), msg.Source)

			if config.Index != nil {
				if err := config.Index.AddDocuments(ctx, msg.Reviews); err != nil {
					// Store succeeded; do not replay the batch for index lag.
					log.Printf("Warning: similarity index update failed: %v", err)
				}
			}
			return nil
		},
		AlwaysMark: true, // mark validation failures, but not storage failures
	}
}

// StartIngestWithGracefulShutdown runs the ingest consumer until SIGINT or
// SIGTERM.
func StartIngestWithGracefulShutdown(config IngestConfig) error {
	consumer, err := NewIngestConsumer(config)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		return err
	}

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigterm:
		log.Println("Received termination signal")
	case <-ctx.Done():
		log.Println("Context canceled")
	}

	cancel()

	// Give in-flight batches a moment to land.
	time.Sleep(2 * time.Second)

	return consumer.Close()
}

// GetKafkaBrokers parses the broker list from the environment.
func GetKafkaBrokers() []string {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		brokers = "localhost:9092"
	}
	return strings.Split(brokers, ",")
}

// GetIngestTopic returns the review ingest topic name.
func GetIngestTopic() string {
	topic := os.Getenv("KAFKA_TOPIC_REVIEW_INGEST")
	if topic == "" {
		topic = "review-ingest"
	}
	return topic
}

// GetIngestGroupID returns the ingest consumer group id.
func GetIngestGroupID() string {
	groupID := os.Getenv("KAFKA_INGEST_GROUP_ID")
	if groupID == "" {
		groupID = "reviewguard-ingest"
	}
	return groupID
}
