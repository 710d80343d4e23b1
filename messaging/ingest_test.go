package messaging

import (
	"context"
	"errors"
	"testing"

	"reviewguard/types"
)

type fakeWriter struct {
	inserted [][]types.ReviewMetadata
	err      error
}

func (f *fakeWriter) InsertReviews(ctx context.Context, reviews []types.ReviewMetadata) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.inserted = append(f.inserted, reviews)
	return len(reviews), nil
}

type fakeDocIndexer struct {
	added int
	err   error
}

func (f *fakeDocIndexer) AddDocuments(ctx context.Context, reviews []types.ReviewMetadata) error {
	if f.err != nil {
		return f.err
	}
	f.added += len(reviews)
	return nil
}

func TestIngestHandlerStoresBatch(t *testing.T) {
	writer := &fakeWriter{}
	indexer := &fakeDocIndexer{}
	handler := newIngestHandler(IngestConfig{Store: writer, Index: indexer})

	payload := []byte(`{"source": "scraper-1", "reviews": [
		{"comment": "good quality", "username": "a", "timestamp": "2024-03-15 10:30"},
		{"comment": "fits well", "username": "b", "timestamp": "2024-03-15 10:31"}]}`)

	shouldMark, err := handler.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("handler errored: %v", err)
	}
	if !shouldMark {
		t.Fatalf("expected successful batch to be marked")
	}
	if len(writer.inserted) != 1 || len(writer.inserted[0]) != 2 {
		t.Fatalf("unexpected inserts: %v", writer.inserted)
	}
	if indexer.added != 2 {
		t.Fatalf("expected 2 indexed documents, got %d", indexer.added)
	}
}

func TestIngestHandlerMarksEmptyBatch(t *testing.T) {
	writer := &fakeWriter{}
	handler := newIngestHandler(IngestConfig{Store: writer})

	shouldMark, err := handler.HandleMessage(context.Background(), []byte(`{"reviews": []}`))
	if err != nil {
		t.Fatalf("handler errored: %v", err)
	}
	if !shouldMark {
		t.Fatalf("empty batches must be marked, not retried")
	}
	if len(writer.inserted) != 0 {
		t.Fatalf("empty batch should not reach the store")
	}
}

func TestIngestHandlerMarksPoisonMessage(t *testing.T) {
	handler := newIngestHandler(IngestConfig{Store: &fakeWriter{}})

	shouldMark, err := handler.HandleMessage(context.Background(), []byte(`not json`))
	if err != nil {
		t.Fatalf("handler errored: %v", err)
	}
	if !shouldMark {
		t.Fatalf("poison messages must be marked to unwedge the partition")
	}
}

func TestIngestHandlerRetriesOnStoreFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("disk full")}
	handler := newIngestHandler(IngestConfig{Store: writer})

	payload := []byte(`{"reviews": [{"comment": "x", "timestamp": "2024-03-15 10:30"}]}`)
	shouldMark, err := handler.HandleMessage(context.Background(), payload)
	if err == nil {
		t.Fatalf("expected store failure to surface")
	}
	if shouldMark {
		t.Fatalf("failed batches must stay unmarked for retry")
	}
}

func TestIngestHandlerIndexFailureStillMarks(t *testing.T) {
	writer := &fakeWriter{}
	indexer := &fakeDocIndexer{err: errors.New("chroma down")}
	handler := newIngestHandler(IngestConfig{Store: writer, Index: indexer})

	payload := []byte(`{"reviews": [{"comment": "x", "timestamp": "2024-03-15 10:30"}]}`)
	shouldMark, err := handler.HandleMessage(context.Background(), payload)
	if err != nil {
		t.Fatalf("index failure must not surface: %v", err)
	}
	if !shouldMark {
		t.Fatalf("stored batches must be marked even when indexing lags")
	}
}
