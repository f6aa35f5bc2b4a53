package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

type stubProvider struct {
	name     string
	text     string
	err      error
	calls    int
	lastOpts *GenerateOptions
}

func (s *stubProvider) Name() string {
	return s.name
}

func (s *stubProvider) Generate(_ context.Context, _ string, _ ModelPreset, opts *GenerateOptions) (ProviderResult, error) {
	s.calls++
	s.lastOpts = opts
	if s.err != nil {
		return ProviderResult{}, s.err
	}
	return ProviderResult{Text: s.text, Model: "stub-model"}, nil
}

func (s *stubProvider) Ping(_ context.Context) bool {
	return false
}

func newTestManager(primary, fallback JSONProvider, enableFallback bool) *ModelManager {
	return &ModelManager{
		primary:        primary,
		fallback:       fallback,
		enableFallback: enableFallback,
		logger:         zap.NewNop(),
		circuitBreaker: util.NewCircuitBreaker(3, 30*time.Second, 10*time.Minute, nil, zap.NewNop()),
	}
}

func TestGenerateJSONParsesPrimaryResponse(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: `{"score": 42}`}
	mm := newTestManager(primary, nil, false)

	var dest map[string]int
	metadata, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if dest["score"] != 42 {
		t.Fatalf("expected decoded payload, got %v", dest)
	}
	if metadata.Provider != "Gemini" || metadata.UsedFallback {
		t.Fatalf("unexpected metadata: %+v", metadata)
	}
	if primary.lastOpts == nil || !primary.lastOpts.JSONMode {
		t.Fatalf("expected JSON mode forced on, got %+v", primary.lastOpts)
	}
}

func TestGenerateJSONStripsCodeFences(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"json fence", "```json\n[{\"index\": 0}]\n```"},
		{"bare fence", "```\n[{\"index\": 0}]\n```"},
		{"no fence", "[{\"index\": 0}]"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			primary := &stubProvider{name: "Gemini", text: tc.text}
			mm := newTestManager(primary, nil, false)

			var dest []map[string]int
			if _, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil); err != nil {
				t.Fatalf("expected fences stripped, got %v", err)
			}
			if len(dest) != 1 {
				t.Fatalf("expected one entry, got %d", len(dest))
			}
		})
	}
}

func TestGenerateJSONUsesFallbackProvider(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: fmt.Errorf("503 service unavailable")}
	fallback := &stubProvider{name: "OpenAI", text: `{"ok": true}`}
	mm := newTestManager(primary, fallback, true)

	var dest map[string]bool
	metadata, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if metadata.Provider != "OpenAI" || !metadata.UsedFallback {
		t.Fatalf("expected fallback metadata, got %+v", metadata)
	}
	if primary.calls != 1 || fallback.calls != 1 {
		t.Fatalf("expected one call each, got primary=%d fallback=%d", primary.calls, fallback.calls)
	}
}

func TestGenerateJSONBothProvidersFail(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: fmt.Errorf("timeout while generating")}
	fallback := &stubProvider{name: "OpenAI", err: fmt.Errorf("502 bad gateway")}
	mm := newTestManager(primary, fallback, true)

	var dest map[string]bool
	if _, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil); err == nil {
		t.Fatalf("expected error when both providers fail")
	}
}

func TestGenerateJSONOpensCircuitAfterRepeatedServiceFailures(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: fmt.Errorf("timeout while generating")}
	mm := newTestManager(primary, nil, false)

	var dest map[string]bool
	for i := 0; i < 3; i++ {
		if _, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil); err == nil {
			t.Fatalf("expected failure on attempt %d", i+1)
		}
	}

	if primary.calls != 3 {
		t.Fatalf("expected 3 provider calls before the circuit opened, got %d", primary.calls)
	}

	_, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil)
	if err == nil || !strings.Contains(err.Error(), "circuit open") {
		t.Fatalf("expected circuit open error, got %v", err)
	}
	if primary.calls != 3 {
		t.Fatalf("expected no provider call while open, got %d", primary.calls)
	}

	mm.ResetCircuit()
	if !mm.circuitBreaker.CanExecute() {
		t.Fatalf("expected circuit closed after manual reset")
	}
}

func TestGenerateJSONClientErrorsDoNotTripCircuit(t *testing.T) {
	primary := &stubProvider{name: "Gemini", err: fmt.Errorf("400 invalid request")}
	mm := newTestManager(primary, nil, false)

	var dest map[string]bool
	for i := 0; i < 5; i++ {
		if _, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil); err == nil {
			t.Fatalf("expected failure on attempt %d", i+1)
		}
	}

	if !mm.circuitBreaker.CanExecute() {
		t.Fatalf("expected circuit to stay closed on client errors")
	}
	if primary.calls != 5 {
		t.Fatalf("expected every attempt to reach the provider, got %d", primary.calls)
	}
}

func TestGenerateJSONEmptyResponse(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: "   "}
	mm := newTestManager(primary, nil, false)

	var dest map[string]bool
	if _, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestGenerateJSONInvalidPayload(t *testing.T) {
	primary := &stubProvider{name: "Gemini", text: "certainly, here are the scores"}
	mm := newTestManager(primary, nil, false)

	var dest []map[string]int
	_, err := mm.GenerateJSON(context.Background(), "prompt", PresetPrecise, &dest, nil)
	if err == nil || !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected invalid JSON error, got %v", err)
	}
}
