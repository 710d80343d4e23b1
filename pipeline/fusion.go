package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"reviewguard/types"
)

const fusionSystemPrompt = "You are a strict output generator. Follow the output format exactly and avoid unnecessary text."

// ParseError reports that model output did not match the expected
// bracketed-list format.
type ParseError struct {
	Msg string
}

func (e *ParseError) Error() string { return e.Msg }

// Generator is the slice of the classifier gateway the fusion stage needs.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Fusion turns evidence bundles into decisive verdicts with one gateway
// call for the whole set.
type Fusion struct {
	gen Generator
}

// NewFusion creates a fusion stage over the given generator.
func NewFusion(gen Generator) *Fusion {
	return &Fusion{gen: gen}
}

// Determine classifies every bundle as Genuine or Fake with an
// explanation. A gateway or parse failure degrades the whole call to
// Unknown; it never errors out, and it never drops a bundle.
func (f *Fusion) Determine(ctx context.Context, bundles []types.EvidenceBundle) []types.VerdictResult {
	if len(bundles) == 0 {
		return []types.VerdictResult{}
	}

	raw, err := f.gen.Generate(ctx, fusionSystemPrompt, buildFusionPrompt(bundles))
	if err != nil {
		log.Printf("Warning: fusion gateway call failed: %v", err)
		return degradeFusion(bundles, err)
	}

	verdicts, explanations, err := parseFusionResponse(raw)
	if err != nil {
		log.Printf("Warning: fusion response unusable: %v", err)
		return degradeFusion(bundles, err)
	}

	results := make([]types.VerdictResult, 0, len(bundles))
	for i, bundle := range bundles {
		result := types.VerdictResult{
			ID:      bundle.ID,
			Comment: bundle.Comment,
			Verdict: types.VerdictUnknown,
		}
		if i < len(verdicts) {
			result.Verdict = normalizeVerdict(verdicts[i])
		}
		if i < len(explanations) {
			result.Explanation = explanations[i]
		}
		results = append(results, result)
	}
	return results
}

func buildFusionPrompt(bundles []types.EvidenceBundle) string {
	scores := make([][]float64, 0, len(bundles))
	flags := make([][]string, 0, len(bundles))
	for _, b := range bundles {
		scores = append(scores, b.SimilarityScores)
		flags = append(flags, b.BehavioralFlags)
	}

	semantic, _ := json.Marshal(scores)
	behavioral, _ := json.Marshal(flags)

	var sb strings.Builder
	sb.WriteString("You are a fake review evaluator. Your task is to classify reviews as either 'Genuine' or 'Fake' ")
	sb.WriteString("based on the semantic similarity scores and behavioral signals provided below.\n\n")
	sb.WriteString(fmt.Sprintf("Semantic: %s\n", semantic))
	sb.WriteString(fmt.Sprintf("Behavioral: %s\n\n", behavioral))
	sb.WriteString("Classify a review as Fake if its behavioral signals are non-empty OR its similarity scores indicate templated or promotional content. ")
	sb.WriteString("Classify it as Genuine only if both signal classes are clean. Always give a decisive verdict, never hedge.\n\n")
	sb.WriteString("Respond strictly with:\n")
	sb.WriteString("1. A list of classifications in this exact format:\n")
	sb.WriteString("   ['Genuine', 'Fake', 'Genuine']\n")
	sb.WriteString("2. A list of single sentence explanations for each review, matching the order above.\n\n")
	sb.WriteString("Do NOT add any introductions or explanations before the lists.\n")
	sb.WriteString("Begin your response immediately with the classification list, then the explanation list.\n")
	sb.WriteString("Example response:\n")
	sb.WriteString("['Genuine', 'Fake']\n")
	sb.WriteString("['Relevant and product-specific.', 'Behavioral anomalies detected.']")
	return sb.String()
}

// parseFusionResponse scans lines top to bottom: the first bracketed line
// that parses as a quoted list is the verdict list, the next one the
// explanation list; everything else is ignored.
func parseFusionResponse(raw string) (verdicts, explanations []string, err error) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}

		parsed, parseErr := parseQuotedList(line)
		if parseErr != nil {
			log.Printf("Warning: skipping unparsable list line: %v | line: %s", parseErr, line)
			continue
		}

		if verdicts == nil {
			verdicts = parsed
		} else if explanations == nil {
			explanations = parsed
		}
	}

	if verdicts == nil {
		return nil, nil, &ParseError{Msg: "no verdict list found in response"}
	}
	return verdicts, explanations, nil
}

func parseQuotedList(line string) ([]string, error) {
	normalized := strings.ReplaceAll(line, "'", `"`)
	var out []string
	if err := json.Unmarshal([]byte(normalized), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeVerdict(raw string) types.Verdict {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "GENUINE":
		return types.VerdictGenuine
	case "FAKE":
		return types.VerdictFake
	default:
		return types.VerdictUnknown
	}
}

func degradeFusion(bundles []types.EvidenceBundle, cause error) []types.VerdictResult {
	results := make([]types.VerdictResult, 0, len(bundles))
	for _, bundle := range bundles {
		results = append(results, types.VerdictResult{
			ID:          bundle.ID,
			Comment:     bundle.Comment,
			Verdict:     types.VerdictUnknown,
			Explanation: fmt.Sprintf("Error: %s", cause),
		})
	}
	return results
}
