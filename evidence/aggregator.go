package evidence

import (
	"context"
	"log"
	"sync"

	"reviewguard/similarity"
	"reviewguard/triage"
	"reviewguard/types"
)

// NeighborCount is the fixed number of nearest neighbors consulted per
// suspicious comment.
const NeighborCount = 4

// Aggregator gathers the evidence bundle for suspicious reviews:
// nearest-neighbor similarity scores plus behavioral flags from the
// corpus. Every sub-step degrades to an empty result instead of failing
// the batch.
type Aggregator struct {
	index similarity.Index
	store Querier
	cache *Cache
}

// NewAggregator creates an aggregator. index, store and cache may each be
// nil; missing capabilities shrink the bundle, they never error.
func NewAggregator(index similarity.Index, store Querier, cache *Cache) *Aggregator {
	return &Aggregator{index: index, store: store, cache: cache}
}

// Collect builds the evidence bundle for one suspicious review. The full
// review text drives the queries; the bundle carries the display form.
func (a *Aggregator) Collect(ctx context.Context, item types.ReviewItem) types.EvidenceBundle {
	bundle := types.EvidenceBundle{
		ID:               item.ID,
		Comment:          triage.DisplayComment(item.Text),
		Username:         item.Username,
		SimilarityScores: []float64{},
		BehavioralFlags:  []string{},
	}

	var wg sync.WaitGroup
	var scores []float64

	wg.Add(1)
	go func() {
		defer wg.Done()
		scores = a.similarityScores(ctx, item.Text)
	}()

	// Every behavioral check needs a username; without one the whole
	// sub-step is skipped.
	flags := make([]bool, len(behavioralChecks))
	if item.Username != "" && a.store != nil {
		for i := range behavioralChecks {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				flags[i] = a.runCheck(ctx, behavioralChecks[i], item.Text, item.Username)
			}(i)
		}
	}

	wg.Wait()

	bundle.SimilarityScores = scores
	for i, check := range behavioralChecks {
		if flags[i] {
			bundle.BehavioralFlags = append(bundle.BehavioralFlags, check.flag)
		}
	}
	return bundle
}

// CollectAll gathers bundles for all items concurrently, preserving input
// order.
func (a *Aggregator) CollectAll(ctx context.Context, items []types.ReviewItem) []types.EvidenceBundle {
	bundles := make([]types.EvidenceBundle, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item types.ReviewItem) {
			defer wg.Done()
			bundles[i] = a.Collect(ctx, item)
		}(i, item)
	}
	wg.Wait()

	return bundles
}

func (a *Aggregator) similarityScores(ctx context.Context, text string) []float64 {
	if a.index == nil {
		return []float64{}
	}

	neighbors, err := a.index.NearestNeighbors(ctx, text, NeighborCount)
	if err != nil {
		log.Printf("Warning: similarity lookup failed: %v", err)
		return []float64{}
	}

	scores := make([]float64, 0, len(neighbors))
	for _, n := range neighbors {
		scores = append(scores, n.Similarity)
	}
	return scores
}

func (a *Aggregator) runCheck(ctx context.Context, check behavioralCheck, comment, username string) bool {
	if a.cache != nil {
		if fired, ok := a.cache.Get(ctx, check.name, comment, username); ok {
			return fired
		}
	}

	fired, err := check.run(ctx, a.store, comment, username)
	if err != nil {
		log.Printf("Warning: behavioral check %s failed: %v", check.name, err)
		return false
	}

	if a.cache != nil {
		a.cache.Set(ctx, check.name, comment, username, fired)
	}
	return fired
}
