package messaging

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/IBM/sarama"

	"reviewguard/pipeline"
	"reviewguard/types"
)

// AuditEvent is the record emitted for every completed analysis.
type AuditEvent struct {
	Timestamp       time.Time             `json:"timestamp"`
	Product         string                `json:"product,omitempty"`
	CommentCount    int                   `json:"comment_count"`
	SuspiciousCount int                   `json:"suspicious_count"`
	Results         []types.TriageResult  `json:"results"`
	Verdicts        []types.VerdictResult `json:"verdicts"`
}

// AuditPublisher emits analysis outcomes to a Kafka topic so downstream
// systems can act on verdicts without polling the API.
type AuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// GetAuditTopic returns the audit topic name.
func GetAuditTopic() string {
	topic := os.Getenv("KAFKA_TOPIC_ANALYSIS_AUDIT")
	if topic == "" {
		topic = "review-analysis-audit"
	}
	return topic
}

// NewAuditPublisher creates a synchronous publisher for audit events.
func NewAuditPublisher(brokers []string, topic string) (*AuditPublisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_6_0_0
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, err
	}
	return &AuditPublisher{producer: producer, topic: topic}, nil
}

// Record publishes the outcome of one analysis. Publishing is best effort;
// failures are logged, never surfaced to the caller.
func (p *AuditPublisher) Record(ctx context.Context, req pipeline.Request, resp *pipeline.Response) {
	event := AuditEvent{
		Timestamp:       time.Now().UTC(),
		Product:         req.Product,
		CommentCount:    len(req.Comments),
		SuspiciousCount: len(resp.SuspiciousComments),
		Results:         resp.Results,
		Verdicts:        resp.SuspiciousCommentsResult,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("Warning: failed to marshal audit event: %v", err)
		return
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(req.Product),
		Value: sarama.ByteEncoder(payload),
	})
	if err != nil {
		log.Printf("Warning: failed to publish audit event: %v", err)
		return
	}
	log.Printf("Published audit event: partition=%d, offset=%d", partition, offset)
}

// Close shuts down the producer.
func (p *AuditPublisher) Close() error {
	return p.producer.Close()
}
