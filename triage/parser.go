package triage

import (
	"fmt"
	"regexp"
	"strings"

	"reviewguard/types"
)

const noResultRationale = "No analysis result returned for this comment"

var numberPrefixRe = regexp.MustCompile(`^\d+\.\s*`)

// parseResponse turns loosely formatted model output into one result per
// input item. The contract, in order of preference per item i:
//  1. the first line prefixed with "{i+1}."
//  2. the line at position i, if the response has that many lines
//  3. Unknown with a fixed rationale
//
// A line marks the item Suspicious when it mentions "fake" or "suspicious"
// in any casing; everything else is treated as not suspicious. This is a
// total function: no input raises past this boundary.
func parseResponse(raw string, items []types.ReviewItem) []types.TriageResult {
	lines := splitLines(raw)

	lineFor := make(map[int]string, len(items))
	for i := range items {
		matched := false
		prefix := fmt.Sprintf("%d.", i+1)
		for _, line := range lines {
			if strings.HasPrefix(line, prefix) {
				lineFor[i] = line
				matched = true
				break
			}
		}
		if !matched && i < len(lines) {
			lineFor[i] = lines[i]
		}
	}

	results := make([]types.TriageResult, 0, len(items))
	for i, item := range items {
		result := types.TriageResult{
			ID:       item.ID,
			Comment:  DisplayComment(item.Text),
			Username: item.Username,
		}

		line, ok := lineFor[i]
		if !ok {
			result.Label = types.LabelUnknown
			result.Rationale = noResultRationale
			results = append(results, result)
			continue
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "fake") || strings.Contains(lower, "suspicious") {
			result.Label = types.LabelSuspicious
		} else {
			result.Label = types.LabelGenuine
		}
		result.Rationale = strings.TrimSpace(numberPrefixRe.ReplaceAllString(line, ""))
		results = append(results, result)
	}
	return results
}

func splitLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
