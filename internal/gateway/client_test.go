package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castora/creatormatch-go/internal/domain"
	"go.uber.org/zap"
)

func TestSendResultPostsJSON(t *testing.T) {
	var got DiscoverResult
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	err := client.SendResult(context.Background(), &DiscoverResult{
		RequestID: "req-1",
		WorkerID:  "worker-1",
		Matches: []domain.ScoredMatch{
			{CandidateID: "cand-01", RelevanceScore: 88, Status: domain.MatchStatusSuggested},
		},
		ElapsedMs: 42,
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected 1 request, got %d", requests)
	}
	if got.RequestID != "req-1" || got.WorkerID != "worker-1" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if len(got.Matches) != 1 || got.Matches[0].CandidateID != "cand-01" {
		t.Errorf("unexpected matches: %+v", got.Matches)
	}
	if got.ElapsedMs != 42 {
		t.Errorf("expected elapsed_ms 42, got %d", got.ElapsedMs)
	}
}

func TestSendResultRetriesServerErrors(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if requests == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	err := client.SendResult(context.Background(), &DiscoverResult{RequestID: "req-2"})

	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected 2 requests, got %d", requests)
	}
}

func TestSendResultClientErrorDoesNotRetry(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	err := client.SendResult(context.Background(), &DiscoverResult{RequestID: "req-3"})

	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if !strings.Contains(err.Error(), "gateway API error") {
		t.Errorf("unexpected error: %v", err)
	}
	if requests != 1 {
		t.Fatalf("expected no retry on client error, got %d requests", requests)
	}
}

func TestSendFailurePostsErrorReport(t *testing.T) {
	var got DiscoverResult
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, zap.NewNop())
	err := client.SendFailure(context.Background(), "req-4", "worker-1", context.DeadlineExceeded)

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if got.RequestID != "req-4" || got.WorkerID != "worker-1" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if got.Error == "" {
		t.Error("expected error string in failure report")
	}
	if got.Matches == nil || len(got.Matches) != 0 {
		t.Errorf("expected empty match list, got %+v", got.Matches)
	}
}
