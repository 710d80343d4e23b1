package triage

import (
	"context"
	"fmt"
	"log"
	"strings"

	"reviewguard/types"
)

// MaxBatchSize bounds one triage call. Larger inputs must be pre-chunked
// by the caller to respect downstream token and rate limits.
const MaxBatchSize = 6

const systemPrompt = "You are a fake review evaluator for e-commerce.\n\n" +
	"Given a product and several reviews, classify each review as:\n" +
	"- Genuine: Relevant, product-specific, likely from a real user.\n" +
	"- Suspicious: Repetitive, vague, overly positive, or possibly AI-generated.\n" +
	"- Not Relevant: Unrelated to the product.\n\n" +
	"Respond with a numbered list using this format:\n" +
	"1. <Verdict> <Short reason>\n" +
	"Keep reasons under 15 words. Do not repeat review text.\n" +
	"Do not flag a review as suspicious just because it used another language.\n" +
	"Do not use parentheses in the response."

// Generator is the slice of the classifier gateway the triage stage needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Stage performs batched first-pass classification of raw review text.
type Stage struct {
	gen Generator
}

// NewStage creates a triage stage over the given generator.
func NewStage(gen Generator) *Stage {
	return &Stage{gen: gen}
}

// Classify issues one gateway call for the whole batch and parses the
// response into one TriageResult per input item, in input order. A failed
// gateway call degrades the entire batch to Unknown; it never errors out.
func (s *Stage) Classify(ctx context.Context, items []types.ReviewItem, product, promptPrefix string) []types.TriageResult {
	if len(items) == 0 {
		return []types.TriageResult{}
	}
	if len(items) > MaxBatchSize {
		items = items[:MaxBatchSize]
	}

	userPrompt := buildPrompt(items, product, promptPrefix)

	raw, err := s.gen.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		log.Printf("Warning: triage gateway call failed: %v", err)
		return degradeBatch(items, err)
	}

	return parseResponse(raw, items)
}

func buildPrompt(items []types.ReviewItem, product, promptPrefix string) string {
	var sb strings.Builder
	if promptPrefix != "" {
		sb.WriteString(promptPrefix)
	}
	if product != "" {
		sb.WriteString(fmt.Sprintf("Product: %s\n", product))
	}
	for i, item := range items {
		sb.WriteString(fmt.Sprintf("%d. Review: '%s'\n", i+1, item.Text))
	}
	return sb.String()
}

func degradeBatch(items []types.ReviewItem, cause error) []types.TriageResult {
	results := make([]types.TriageResult, 0, len(items))
	for _, item := range items {
		results = append(results, types.TriageResult{
			ID:        item.ID,
			Comment:   DisplayComment(item.Text),
			Label:     types.LabelUnknown,
			Rationale: fmt.Sprintf("Batch analysis error: %s", cause),
		})
	}
	return results
}

// DisplayComment truncates a comment to 50 characters for display.
func DisplayComment(text string) string {
	runes := []rune(text)
	if len(runes) > 50 {
		return string(runes[:50]) + "..."
	}
	return text
}
