package directory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/castora/creatormatch-go/internal/domain"
	"go.uber.org/zap"
)

type fakePoolSource struct {
	pool      []domain.Candidate
	err       error
	calls     int
	findCalls int
}

func (f *fakePoolSource) GetPool(_ context.Context) ([]domain.Candidate, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.pool, nil
}

func (f *fakePoolSource) FindByID(_ context.Context, id string) (*domain.Candidate, error) {
	f.findCalls++
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.pool {
		if f.pool[i].ID == id {
			return &f.pool[i], nil
		}
	}
	return nil, nil
}

func TestGetPoolServesFromMemory(t *testing.T) {
	source := &fakePoolSource{
		pool: []domain.Candidate{
			{ID: "cand-1", Username: "first"},
			{ID: "cand-2", Username: "second"},
		},
	}
	svc := NewService(source, nil, zap.NewNop())

	pool, err := svc.GetPool(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(pool) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(pool))
	}

	if _, err := svc.GetPool(context.Background()); err != nil {
		t.Fatalf("expected no error on cached read, got %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected directory hit once, got %d", source.calls)
	}
}

func TestGetPoolCachesEmptyPool(t *testing.T) {
	source := &fakePoolSource{pool: []domain.Candidate{}}
	svc := NewService(source, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		pool, err := svc.GetPool(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(pool) != 0 {
			t.Fatalf("expected empty pool, got %d", len(pool))
		}
	}
	if source.calls != 1 {
		t.Fatalf("expected empty pool to be cached too, got %d directory hits", source.calls)
	}
}

func TestGetPoolReloadsAfterTTL(t *testing.T) {
	source := &fakePoolSource{
		pool: []domain.Candidate{{ID: "cand-1"}},
	}
	svc := NewService(source, nil, zap.NewNop())
	svc.ttl = time.Nanosecond

	if _, err := svc.GetPool(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, err := svc.GetPool(context.Background()); err != nil {
		t.Fatalf("expected no error on stale read, got %v", err)
	}

	if source.calls != 2 {
		t.Fatalf("expected stale pool to reload, got %d directory hits", source.calls)
	}
}

func TestGetPoolPropagatesError(t *testing.T) {
	source := &fakePoolSource{err: fmt.Errorf("connection refused")}
	svc := NewService(source, nil, zap.NewNop())

	if _, err := svc.GetPool(context.Background()); err == nil {
		t.Fatalf("expected directory error to propagate")
	}
}

func TestGetCandidateLooksUpByID(t *testing.T) {
	source := &fakePoolSource{
		pool: []domain.Candidate{
			{ID: "cand-1", Username: "first"},
			{ID: "cand-2", Username: "second"},
		},
	}
	svc := NewService(source, nil, zap.NewNop())

	candidate, err := svc.GetCandidate(context.Background(), "cand-2")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if candidate == nil || candidate.Username != "second" {
		t.Fatalf("expected cand-2, got %+v", candidate)
	}
	if source.findCalls != 1 {
		t.Fatalf("expected one lookup, got %d", source.findCalls)
	}
}

func TestGetCandidateUnknownID(t *testing.T) {
	source := &fakePoolSource{}
	svc := NewService(source, nil, zap.NewNop())

	candidate, err := svc.GetCandidate(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if candidate != nil {
		t.Fatalf("expected nil for unknown ID, got %+v", candidate)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	source := &fakePoolSource{
		pool: []domain.Candidate{{ID: "cand-1"}},
	}
	svc := NewService(source, nil, zap.NewNop())

	if _, err := svc.GetPool(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	svc.Invalidate(context.Background())

	if _, err := svc.GetPool(context.Background()); err != nil {
		t.Fatalf("expected no error after invalidation, got %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected reload after invalidation, got %d directory hits", source.calls)
	}
}
