package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/discovery"
	"go.uber.org/zap"
)

type fakeGenerator struct {
	payload  string
	err      error
	metadata *GenerateMetadata
	calls    int
	prompts  []string
}

func (f *fakeGenerator) GenerateJSON(_ context.Context, prompt string, _ ModelPreset, dest any, _ *GenerateOptions) (*GenerateMetadata, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return nil, f.err
	}
	if err := json.Unmarshal([]byte(f.payload), dest); err != nil {
		return nil, err
	}
	if f.metadata != nil {
		return f.metadata, nil
	}
	return &GenerateMetadata{Provider: "Gemini", Model: "test-model"}, nil
}

func scoredCandidates(bases ...float64) []discovery.ScoredCandidate {
	candidates := make([]discovery.ScoredCandidate, 0, len(bases))
	for i, base := range bases {
		candidates = append(candidates, discovery.ScoredCandidate{
			Candidate: domain.Candidate{
				ID:       fmt.Sprintf("cand-%02d", i),
				Username: fmt.Sprintf("creator-%02d", i),
			},
			BaseScore:  base,
			FinalScore: base,
		})
	}
	return candidates
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRerankBlendsScores(t *testing.T) {
	generator := &fakeGenerator{
		payload: `[
			{"index": 0, "ai_score": 90, "reason": "on-brand content"},
			{"index": 1, "ai_score": 50, "reason": "adjacent audience"}
		]`,
	}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(80, 60), domain.Criteria{Niche: "tech"})

	if generator.calls != 1 {
		t.Fatalf("expected exactly one batched request, got %d", generator.calls)
	}
	if !almostEqual(out[0].FinalScore, 80*0.4+90*0.6) {
		t.Fatalf("expected blended score 86, got %v", out[0].FinalScore)
	}
	if !almostEqual(out[1].FinalScore, 60*0.4+50*0.6) {
		t.Fatalf("expected blended score 54, got %v", out[1].FinalScore)
	}
	if out[0].AIReason != "on-brand content" {
		t.Fatalf("expected reason carried over, got %q", out[0].AIReason)
	}
}

func TestRerankFailureKeepsBaseScores(t *testing.T) {
	generator := &fakeGenerator{err: fmt.Errorf("deadline exceeded")}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(80, 60), domain.Criteria{})

	if generator.calls != 1 {
		t.Fatalf("expected one attempt, got %d", generator.calls)
	}
	for i, sc := range out {
		if sc.FinalScore != sc.BaseScore {
			t.Fatalf("expected base score kept at %d, got final=%v base=%v", i, sc.FinalScore, sc.BaseScore)
		}
		if sc.AIReason != "" {
			t.Fatalf("expected no analysis after failure, got %q", sc.AIReason)
		}
	}
}

func TestRerankMalformedResponseKeepsBaseScores(t *testing.T) {
	// The fake feeds the raw payload through json.Unmarshal exactly like
	// ModelManager.GenerateJSON, so non-JSON text surfaces as an error.
	generator := &fakeGenerator{payload: "I think candidate 0 is best!"}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(40), domain.Criteria{})

	if out[0].FinalScore != out[0].BaseScore {
		t.Fatalf("expected base score kept, got %v", out[0].FinalScore)
	}
}

func TestRerankSkipsOutOfRangeIndexes(t *testing.T) {
	generator := &fakeGenerator{
		payload: `[
			{"index": -1, "ai_score": 90, "reason": "negative"},
			{"index": 7, "ai_score": 90, "reason": "too high"},
			{"index": 1, "ai_score": 100, "reason": "valid"}
		]`,
	}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(80, 60), domain.Criteria{})

	if out[0].FinalScore != 80 {
		t.Fatalf("expected candidate 0 untouched, got %v", out[0].FinalScore)
	}
	if !almostEqual(out[1].FinalScore, 60*0.4+100*0.6) {
		t.Fatalf("expected candidate 1 blended, got %v", out[1].FinalScore)
	}
}

func TestRerankUnmentionedCandidatesKeepBase(t *testing.T) {
	generator := &fakeGenerator{
		payload: `[{"index": 0, "ai_score": 70, "reason": "fits"}]`,
	}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(80, 60, 40), domain.Criteria{})

	if !almostEqual(out[0].FinalScore, 80*0.4+70*0.6) {
		t.Fatalf("expected blended score for mentioned candidate, got %v", out[0].FinalScore)
	}
	if out[1].FinalScore != 60 || out[2].FinalScore != 40 {
		t.Fatalf("expected unmentioned candidates to keep base scores, got %v and %v",
			out[1].FinalScore, out[2].FinalScore)
	}
	if out[1].AIReason != "" || out[2].AIReason != "" {
		t.Fatalf("expected no analysis on unmentioned candidates")
	}
}

func TestRerankClampsAIScores(t *testing.T) {
	generator := &fakeGenerator{
		payload: `[
			{"index": 0, "ai_score": 250, "reason": "over"},
			{"index": 1, "ai_score": -30, "reason": "under"}
		]`,
	}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), scoredCandidates(50, 50), domain.Criteria{})

	if !almostEqual(out[0].FinalScore, 50*0.4+100*0.6) {
		t.Fatalf("expected ai score clamped to 100, got final %v", out[0].FinalScore)
	}
	if !almostEqual(out[1].FinalScore, 50*0.4) {
		t.Fatalf("expected ai score clamped to 0, got final %v", out[1].FinalScore)
	}
}

func TestRerankSendsTopTenOnly(t *testing.T) {
	generator := &fakeGenerator{
		payload: `[{"index": 10, "ai_score": 99, "reason": "beyond the batch"}]`,
	}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	bases := make([]float64, 12)
	for i := range bases {
		bases[i] = float64(90 - i)
	}
	out := svc.Rerank(context.Background(), scoredCandidates(bases...), domain.Criteria{})

	if len(generator.prompts) != 1 {
		t.Fatalf("expected one prompt, got %d", len(generator.prompts))
	}
	prompt := generator.prompts[0]
	if !strings.Contains(prompt, "9. creator-09") {
		t.Fatalf("expected tenth candidate in prompt:\n%s", prompt)
	}
	if strings.Contains(prompt, "creator-10") || strings.Contains(prompt, "creator-11") {
		t.Fatalf("expected candidates beyond the top 10 to stay out of the prompt:\n%s", prompt)
	}

	// Index 10 refers past the batch that was sent, so it must be ignored
	// even though the input slice is longer.
	if out[10].FinalScore != out[10].BaseScore {
		t.Fatalf("expected candidate outside the batch untouched, got %v", out[10].FinalScore)
	}
}

func TestRerankEmptyInput(t *testing.T) {
	generator := &fakeGenerator{}
	svc := NewRerankService(generator, time.Second, zap.NewNop())

	out := svc.Rerank(context.Background(), nil, domain.Criteria{})
	if len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
	if generator.calls != 0 {
		t.Fatalf("expected no model call for empty input, got %d", generator.calls)
	}
}

func TestNewRerankServiceDefaultTimeout(t *testing.T) {
	svc := NewRerankService(&fakeGenerator{}, 0, zap.NewNop())
	if svc.timeout != 20*time.Second {
		t.Fatalf("expected 20s default timeout, got %v", svc.timeout)
	}
}
