package pipeline

import (
	"context"
	"log"

	"reviewguard/evidence"
	"reviewguard/triage"
	"reviewguard/types"
)

// State tracks how far a request has progressed through the pipeline.
type State string

const (
	StateReceived         State = "Received"
	StateTriaged          State = "Triaged"
	StateFiltered         State = "Filtered"
	StateEvidenceGathered State = "EvidenceGathered"
	StateFused            State = "Fused"
	StateMerged           State = "Merged"
	StateDone             State = "Done"
)

// Request is one analysis job: a batch of raw comments plus an optional
// metadata list matched to the comments by position.
type Request struct {
	Comments []string               `json:"comments"`
	Metadata []types.ReviewMetadata `json:"metadata,omitempty"`
	Product  string                 `json:"product,omitempty"`
	Prompt   string                 `json:"prompt,omitempty"`
}

// Response carries the full triage results plus the deep-dive output for
// the suspicious subset.
type Response struct {
	Results                  []types.TriageResult   `json:"results"`
	SuspiciousComments       []types.EvidenceBundle `json:"suspicious_comments"`
	SuspiciousCommentsResult []types.VerdictResult  `json:"suspicious_comments_result"`
}

// Orchestrator drives a request through triage, evidence gathering,
// verdict fusion and the final merge.
type Orchestrator struct {
	triage     *triage.Stage
	aggregator *evidence.Aggregator
	fusion     *Fusion
}

// NewOrchestrator wires the pipeline over one gateway. aggregator may be
// nil when no evidence backends are configured.
func NewOrchestrator(gen Generator, aggregator *evidence.Aggregator) *Orchestrator {
	return &Orchestrator{
		triage:     triage.NewStage(gen),
		aggregator: aggregator,
		fusion:     NewFusion(gen),
	}
}

// Analyze runs the full pipeline on one request. It always produces a
// complete response; stage failures degrade per-item fields instead of
// aborting the run.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) *Response {
	state := StateReceived
	logState(state, len(req.Comments))

	items := o.ingest(req)
	if len(items) == 0 {
		return &Response{
			Results:                  []types.TriageResult{},
			SuspiciousComments:       []types.EvidenceBundle{},
			SuspiciousCommentsResult: []types.VerdictResult{},
		}
	}

	results := o.triage.Classify(ctx, items, req.Product, req.Prompt)
	state = StateTriaged
	logState(state, len(results))

	suspicious := filterSuspicious(items, results)
	state = StateFiltered
	logState(state, len(suspicious))

	bundles := o.gatherEvidence(ctx, suspicious)
	state = StateEvidenceGathered
	logState(state, len(bundles))

	verdicts := o.fusion.Determine(ctx, bundles)
	state = StateFused
	logState(state, len(verdicts))

	mergeVerdicts(results, bundles, verdicts)
	state = StateMerged
	logState(state, len(verdicts))

	state = StateDone
	logState(state, len(results))

	return &Response{
		Results:                  results,
		SuspiciousComments:       bundles,
		SuspiciousCommentsResult: verdicts,
	}
}

// ingest assigns correlation ids and attaches positional metadata. Inputs
// beyond the batch limit are dropped, matching the triage stage's bound.
func (o *Orchestrator) ingest(req Request) []types.ReviewItem {
	comments := req.Comments
	if len(comments) > triage.MaxBatchSize {
		log.Printf("Warning: truncating request from %d to %d comments", len(comments), triage.MaxBatchSize)
		comments = comments[:triage.MaxBatchSize]
	}

	items := make([]types.ReviewItem, 0, len(comments))
	for i, text := range comments {
		item := types.ReviewItem{
			ID:      types.NewItemID(),
			Text:    text,
			Product: req.Product,
		}
		if i < len(req.Metadata) {
			item.Username = req.Metadata[i].Username
			if item.Product == "" {
				item.Product = req.Metadata[i].Product
			}
		}
		items = append(items, item)
	}
	return items
}

// filterSuspicious selects the items whose triage label is Suspicious,
// carrying usernames into the results along the way.
func filterSuspicious(items []types.ReviewItem, results []types.TriageResult) []types.ReviewItem {
	byID := make(map[string]types.ReviewItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	var suspicious []types.ReviewItem
	for i := range results {
		item, ok := byID[results[i].ID]
		if !ok {
			continue
		}
		results[i].Username = item.Username
		if results[i].Label == types.LabelSuspicious {
			suspicious = append(suspicious, item)
		}
	}
	return suspicious
}

func (o *Orchestrator) gatherEvidence(ctx context.Context, items []types.ReviewItem) []types.EvidenceBundle {
	if o.aggregator == nil {
		bundles := make([]types.EvidenceBundle, 0, len(items))
		for _, item := range items {
			bundles = append(bundles, types.EvidenceBundle{
				ID:               item.ID,
				Comment:          triage.DisplayComment(item.Text),
				Username:         item.Username,
				SimilarityScores: []float64{},
				BehavioralFlags:  []string{},
			})
		}
		return bundles
	}
	return o.aggregator.CollectAll(ctx, items)
}

// mergeVerdicts overlays fusion output onto the triage results and
// evidence bundles, keyed by correlation id so duplicate review text
// cannot cross-contaminate.
func mergeVerdicts(results []types.TriageResult, bundles []types.EvidenceBundle, verdicts []types.VerdictResult) {
	byID := make(map[string]types.VerdictResult, len(verdicts))
	for _, v := range verdicts {
		byID[v.ID] = v
	}

	for i := range results {
		if v, ok := byID[results[i].ID]; ok {
			results[i].Verdict = v.Verdict
			results[i].Explanation = v.Explanation
		}
	}
	for i := range bundles {
		if v, ok := byID[bundles[i].ID]; ok {
			bundles[i].Verdict = v.Verdict
			bundles[i].Explanation = v.Explanation
		}
	}
}

func logState(state State, count int) {
	log.Printf("pipeline state=%s items=%d", state, count)
}
