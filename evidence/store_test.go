package evidence

import (
	"context"
	"path/filepath"
	"testing"

	"reviewguard/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "reviews.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seed(t *testing.T, store *Store, reviews []types.ReviewMetadata) {
	t.Helper()

	if _, err := store.InsertReviews(context.Background(), reviews); err != nil {
		t.Fatalf("failed to seed reviews: %v", err)
	}
}

func TestCleanTimestamp(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-03-15 10:30", "2024-03-15 10:30"},
		{"posted at 2024-03-15 10:30 | variant: red", "2024-03-15 10:30"},
		{"yesterday", ""},
		{"", ""},
		{"2024-13-99 10:30", ""},
	}

	for _, tc := range cases {
		if got := CleanTimestamp(tc.in); got != tc.want {
			t.Errorf("CleanTimestamp(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestInsertSkipsInvalidTimestamps(t *testing.T) {
	store := openTestStore(t)

	stored, err := store.InsertReviews(context.Background(), []types.ReviewMetadata{
		{Comment: "good quality", Username: "a", Timestamp: "2024-03-15 10:30"},
		{Comment: "no timestamp here", Username: "b", Timestamp: "last week"},
	})
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if stored != 1 {
		t.Fatalf("expected 1 stored row, got %d", stored)
	}
}

func TestBehavioralCountQueries(t *testing.T) {
	store := openTestStore(t)
	seed(t, store, []types.ReviewMetadata{
		{Comment: "Great product, fast shipping!", Username: "alice", Product: "shirt", Timestamp: "2024-03-15 10:30"},
		{Comment: "Great product, fast shipping!", Username: "bob", Product: "mug", Timestamp: "2024-03-15 10:31"},
		{Comment: "Great product, fast shipping!", Username: "bob", Product: "mug", Timestamp: "2024-03-15 10:32"},
		{Comment: "unique and detailed thoughts", Username: "carol", Product: "shirt", Timestamp: "2024-03-15 10:33"},
	})

	ctx := context.Background()

	users, err := store.DistinctUsersForComment(ctx, "Great product, fast shipping!")
	if err != nil {
		t.Fatalf("distinct users query failed: %v", err)
	}
	if users != 2 {
		t.Fatalf("expected 2 distinct users, got %d", users)
	}

	count, err := store.UserCommentCount(ctx, "bob", "Great product, fast shipping!")
	if err != nil {
		t.Fatalf("user comment count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected bob to have 2 rows, got %d", count)
	}

	products, err := store.DistinctProductsForComment(ctx, "Great product, fast shipping!")
	if err != nil {
		t.Fatalf("distinct products query failed: %v", err)
	}
	if products != 2 {
		t.Fatalf("expected 2 distinct products, got %d", products)
	}
}

func TestCleanCorpusRemovesEmptyAndDuplicateRows(t *testing.T) {
	store := openTestStore(t)
	seed(t, store, []types.ReviewMetadata{
		{Comment: "solid purchase", Username: "a", Product: "shirt", Timestamp: "2024-03-15 10:30"},
		{Comment: "solid purchase", Username: "a", Product: "shirt", Timestamp: "2024-03-15 10:30"},
		{Comment: "different words entirely", Username: "b", Product: "mug", Timestamp: "2024-03-15 10:31"},
	})

	ctx := context.Background()
	if err := store.CleanCorpus(ctx); err != nil {
		t.Fatalf("clean corpus failed: %v", err)
	}

	total, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if total != 2 {
		t.Fatalf("expected 2 rows after dedupe, got %d", total)
	}
}
