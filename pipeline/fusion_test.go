package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reviewguard/types"
)

type fakeGenerator struct {
	responses []string
	err       error

	calls       int
	userPrompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.userPrompts = append(f.userPrompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func bundle(id, comment string, flags ...string) types.EvidenceBundle {
	if flags == nil {
		flags = []string{}
	}
	return types.EvidenceBundle{
		ID:               id,
		Comment:          comment,
		SimilarityScores: []float64{},
		BehavioralFlags:  flags,
	}
}

func TestDetermineParsesVerdictsAndExplanations(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"['Fake', 'Genuine']\n['Reused across users.', 'Specific and detailed.']",
	}}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{
		bundle("a", "first", "Comment is short."),
		bundle("b", "second"),
	})

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Verdict != types.VerdictFake || results[0].Explanation != "Reused across users." {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].Verdict != types.VerdictGenuine || results[1].Explanation != "Specific and detailed." {
		t.Fatalf("unexpected second result: %+v", results[1])
	}
	if results[0].ID != "a" || results[1].ID != "b" {
		t.Fatalf("ids not preserved: %+v", results)
	}
}

func TestDetermineNormalizesVerdictTokens(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"['FAKE', 'genuine', 'maybe']\n['x', 'y', 'z']",
	}}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{
		bundle("a", "1"), bundle("b", "2"), bundle("c", "3"),
	})

	want := []types.Verdict{types.VerdictFake, types.VerdictGenuine, types.VerdictUnknown}
	for i, w := range want {
		if results[i].Verdict != w {
			t.Errorf("result %d: got %s want %s", i, results[i].Verdict, w)
		}
	}
}

func TestDetermineShortVerdictListLeavesTailUnknown(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"['Fake']\n['Only one explanation.']",
	}}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{
		bundle("a", "1"), bundle("b", "2"),
	})

	if results[1].Verdict != types.VerdictUnknown || results[1].Explanation != "" {
		t.Fatalf("expected unknown tail, got %+v", results[1])
	}
}

func TestDetermineSkipsPreambleLines(t *testing.T) {
	gen := &fakeGenerator{responses: []string{
		"Here are my classifications:\n['Genuine']\n['Looks fine.']",
	}}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{bundle("a", "1")})

	if results[0].Verdict != types.VerdictGenuine {
		t.Fatalf("expected Genuine despite preamble, got %+v", results[0])
	}
}

func TestDetermineDegradesWholeCallOnGatewayError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("all providers exhausted")}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{
		bundle("a", "1"), bundle("b", "2"),
	})

	for _, r := range results {
		if r.Verdict != types.VerdictUnknown {
			t.Fatalf("expected Unknown, got %s", r.Verdict)
		}
		if !strings.HasPrefix(r.Explanation, "Error: ") {
			t.Fatalf("expected error explanation, got %q", r.Explanation)
		}
	}
}

func TestDetermineDegradesOnUnparsableResponse(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"I cannot classify these reviews."}}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{bundle("a", "1")})

	if results[0].Verdict != types.VerdictUnknown {
		t.Fatalf("expected Unknown on parse failure, got %s", results[0].Verdict)
	}
	if !strings.HasPrefix(results[0].Explanation, "Error: ") {
		t.Fatalf("expected error explanation, got %q", results[0].Explanation)
	}
}

func TestDetermineEmptyInputSkipsGateway(t *testing.T) {
	gen := &fakeGenerator{}
	fusion := NewFusion(gen)

	results := fusion.Determine(context.Background(), []types.EvidenceBundle{})

	if len(results) != 0 {
		t.Fatalf("expected empty results, got %v", results)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no gateway calls, got %d", gen.calls)
	}
}

func TestFusionPromptCarriesSignals(t *testing.T) {
	gen := &fakeGenerator{responses: []string{"['Fake']\n['flagged']"}}
	fusion := NewFusion(gen)

	b := bundle("a", "copied text", "Same comment used by multiple users.")
	b.SimilarityScores = []float64{0.97, 0.91}
	fusion.Determine(context.Background(), []types.EvidenceBundle{b})

	prompt := gen.userPrompts[0]
	if !strings.Contains(prompt, "[[0.97,0.91]]") {
		t.Errorf("similarity scores missing from prompt:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Same comment used by multiple users.") {
		t.Errorf("behavioral flags missing from prompt:\n%s", prompt)
	}
}
