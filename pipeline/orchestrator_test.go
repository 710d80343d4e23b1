package pipeline

import (
	"context"
	"strings"
	"testing"

	"reviewguard/types"
)

func TestAnalyzeEmptyRequestMakesNoGatewayCalls(t *testing.T) {
	gen := &fakeGenerator{}
	orch := NewOrchestrator(gen, nil)

	resp := orch.Analyze(context.Background(), Request{})

	if len(resp.Results) != 0 || len(resp.SuspiciousComments) != 0 || len(resp.SuspiciousCommentsResult) != 0 {
		t.Fatalf("expected empty response, got %+v", resp)
	}
	if gen.calls != 0 {
		t.Fatalf("expected 0 gateway calls, got %d", gen.calls)
	}
}

func TestAnalyzeGenuineOnlySkipsFusion(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"1. Genuine - detailed and product specific\n2. Genuine - mentions sizing",
	}}
	orch := NewOrchestrator(gen, nil)

	resp := orch.Analyze(context.Background(), Request{
		Comments: []string{
			"The fabric held up after ten washes, fits true to size.",
			"Runs a bit small, order one size up.",
		},
	})

	if gen.calls != 1 {
		t.Fatalf("expected exactly the triage call, got %d calls", gen.calls)
	}
	if len(resp.SuspiciousComments) != 0 {
		t.Fatalf("expected no suspicious comments, got %v", resp.SuspiciousComments)
	}
	for _, r := range resp.Results {
		if r.Label != types.LabelGenuine {
			t.Fatalf("expected Genuine label, got %s", r.Label)
		}
		if r.Verdict != "" {
			t.Fatalf("verdict should stay empty for non-suspicious items, got %s", r.Verdict)
		}
	}
}

func TestAnalyzeDuplicateTextGetsIndependentVerdicts(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"1. Suspicious - generic praise\n2. Suspicious - generic praise",
		"['Fake', 'Fake']\n['Reused template.', 'Reused template.']",
	}}
	orch := NewOrchestrator(gen, nil)

	duplicate := "Great product, fast shipping!"
	resp := orch.Analyze(context.Background(), Request{
		Comments: []string{duplicate, duplicate},
		Metadata: []types.ReviewMetadata{
			{Username: "alice"},
			{Username: "bob"},
		},
	})

	if len(resp.Results) != 2 || len(resp.SuspiciousComments) != 2 || len(resp.SuspiciousCommentsResult) != 2 {
		t.Fatalf("expected both duplicates everywhere, got %d/%d/%d",
			len(resp.Results), len(resp.SuspiciousComments), len(resp.SuspiciousCommentsResult))
	}
	if resp.Results[0].ID == resp.Results[1].ID {
		t.Fatalf("duplicate comments must keep distinct correlation ids")
	}
	for i, r := range resp.Results {
		if r.Verdict != types.VerdictFake {
			t.Fatalf("result %d: expected Fake, got %s", i, r.Verdict)
		}
		if r.Explanation != "Reused template." {
			t.Fatalf("result %d: explanation not merged: %q", i, r.Explanation)
		}
	}
	if resp.Results[0].Username != "alice" || resp.Results[1].Username != "bob" {
		t.Fatalf("usernames not carried through: %+v", resp.Results)
	}
	for i, b := range resp.SuspiciousComments {
		if b.Verdict != types.VerdictFake {
			t.Fatalf("bundle %d: verdict not merged", i)
		}
	}
}

func TestAnalyzeMergesOnlySuspiciousItems(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"1. Genuine - specific\n2. Suspicious - vague praise\n3. Not Relevant - about delivery company",
		"['Fake']\n['Vague and templated.']",
	}}
	orch := NewOrchestrator(gen, nil)

	resp := orch.Analyze(context.Background(), Request{
		Comments: []string{
			"Zipper broke after a month, disappointed with stitching.",
			"Amazing! Best ever! Highly recommend!",
			"The courier left the package at the wrong door.",
		},
	})

	if len(resp.SuspiciousComments) != 1 {
		t.Fatalf("expected 1 suspicious comment, got %d", len(resp.SuspiciousComments))
	}
	if resp.Results[0].Verdict != "" || resp.Results[2].Verdict != "" {
		t.Fatalf("non-suspicious items must not receive verdicts: %+v", resp.Results)
	}
	if resp.Results[1].Verdict != types.VerdictFake {
		t.Fatalf("suspicious item missing merged verdict: %+v", resp.Results[1])
	}
	if resp.SuspiciousComments[0].ID != resp.Results[1].ID {
		t.Fatalf("bundle id does not match suspicious result id")
	}
}

func TestAnalyzeTruncatesOversizedBatch(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"1. Genuine - a\n2. Genuine - b\n3. Genuine - c\n4. Genuine - d\n5. Genuine - e\n6. Genuine - f",
	}}
	orch := NewOrchestrator(gen, nil)

	comments := make([]string, 8)
	for i := range comments {
		comments[i] = "a sufficiently long review about the product quality"
	}
	resp := orch.Analyze(context.Background(), Request{Comments: comments})

	if len(resp.Results) != 6 {
		t.Fatalf("expected batch truncated to 6, got %d results", len(resp.Results))
	}
	if strings.Contains(gen.userPrompts[0], "7. Review:") {
		t.Fatalf("truncated items leaked into the prompt")
	}
}

func TestAnalyzeTriageFailureStillProducesFullResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{}}
	orch := NewOrchestrator(gen, nil)

	resp := orch.Analyze(context.Background(), Request{
		Comments: []string{"some review text"},
	})

	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 degraded result, got %d", len(resp.Results))
	}
	r := resp.Results[0]
	if r.Label != types.LabelUnknown {
		t.Fatalf("expected Unknown label, got %s", r.Label)
	}
	if !strings.HasPrefix(r.Rationale, "Batch analysis error: ") {
		t.Fatalf("expected batch error rationale, got %q", r.Rationale)
	}
	if len(resp.SuspiciousComments) != 0 {
		t.Fatalf("unknown items must not enter the deep dive")
	}
}

func TestAnalyzeIsIdempotentPerRequest(t *testing.T) {
	script := []string{
		"1. Suspicious - vague",
		"['Fake']\n['Templated.']",
	}

	run := func() *Response {
		gen := &fakeGenerator{responses: append([]string{}, script...)}
		orch := NewOrchestrator(gen, nil)
		return orch.Analyze(context.Background(), Request{
			Comments: []string{"Amazing! Best ever!"},
			Metadata: []types.ReviewMetadata{{Username: "alice"}},
		})
	}

	first, second := run(), run()
	if first.Results[0].Label != second.Results[0].Label ||
		first.Results[0].Verdict != second.Results[0].Verdict ||
		first.Results[0].Explanation != second.Results[0].Explanation {
		t.Fatalf("same input produced different outcomes: %+v vs %+v", first.Results[0], second.Results[0])
	}
}
