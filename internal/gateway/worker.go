package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/castora/creatormatch-go/internal/domain"
	"go.uber.org/zap"
)

// PoolProvider supplies the discoverable candidate pool for a job.
type PoolProvider interface {
	GetPool(ctx context.Context) ([]domain.Candidate, error)
}

// Matcher runs one discovery pass over a candidate pool.
type Matcher interface {
	Discover(ctx context.Context, criteria domain.Criteria, candidates []domain.Candidate, limit int) []domain.ScoredMatch
}

// ResultSender delivers finished jobs back to the platform.
type ResultSender interface {
	SendResult(ctx context.Context, result *DiscoverResult) error
	SendFailure(ctx context.Context, requestID, workerID string, jobErr error) error
}

// Worker consumes discovery jobs from the gateway WebSocket and posts
// ranked matches back over HTTP. Jobs run concurrently so a slow AI pass
// on one campaign never blocks the read loop.
type Worker struct {
	ws           *WebSocket
	sender       ResultSender
	directory    PoolProvider
	matcher      Matcher
	workerID     string
	defaultLimit int
	logger       *zap.Logger
	unsubscribe  func()
	jobs         sync.WaitGroup
}

type WorkerDeps struct {
	WebSocket    *WebSocket
	Sender       ResultSender
	Directory    PoolProvider
	Matcher      Matcher
	WorkerID     string
	DefaultLimit int
	Logger       *zap.Logger
}

func NewWorker(deps *WorkerDeps) *Worker {
	return &Worker{
		ws:           deps.WebSocket,
		sender:       deps.Sender,
		directory:    deps.Directory,
		matcher:      deps.Matcher,
		workerID:     deps.WorkerID,
		defaultLimit: deps.DefaultLimit,
		logger:       deps.Logger,
	}
}

func (w *Worker) Start(ctx context.Context) error {
	w.unsubscribe = w.ws.OnJob(func(job *Job) {
		w.handleJob(ctx, job)
	})

	return w.ws.Connect(ctx)
}

func (w *Worker) handleJob(ctx context.Context, job *Job) {
	if job == nil || job.Type != JobTypeDiscover {
		return
	}

	if job.Discover == nil {
		w.logger.Warn("Discover job without payload",
			zap.String("request_id", job.RequestID),
		)
		return
	}

	w.jobs.Add(1)
	go func() {
		defer w.jobs.Done()
		w.process(ctx, job)
	}()
}

func (w *Worker) process(ctx context.Context, job *Job) {
	start := time.Now()
	req := job.Discover

	criteria := domain.Criteria{
		Niche:       req.Niche,
		Keywords:    req.Keywords,
		Description: req.Description,
		BudgetMin:   req.BudgetMin,
		BudgetMax:   req.BudgetMax,
	}

	limit := req.Limit
	if limit <= 0 {
		limit = w.defaultLimit
	}

	pool, err := w.directory.GetPool(ctx)
	if err != nil {
		w.logger.Error("Failed to load candidate pool",
			zap.Error(err),
			zap.String("request_id", job.RequestID),
		)
		_ = w.sender.SendFailure(ctx, job.RequestID, w.workerID, err)
		return
	}

	matches := w.matcher.Discover(ctx, criteria, pool, limit)

	result := &DiscoverResult{
		RequestID: job.RequestID,
		WorkerID:  w.workerID,
		Matches:   matches,
		ElapsedMs: time.Since(start).Milliseconds(),
	}

	if err := w.sender.SendResult(ctx, result); err != nil {
		return
	}

	w.logger.Info("Discovery job completed",
		zap.String("request_id", job.RequestID),
		zap.Int("matches", len(matches)),
		zap.Int64("elapsed_ms", result.ElapsedMs),
	)
}

// Shutdown waits for in-flight jobs before tearing down the connection so
// results already computed still reach the platform.
func (w *Worker) Shutdown(ctx context.Context) error {
	if w.unsubscribe != nil {
		w.unsubscribe()
	}

	done := make(chan struct{})
	go func() {
		w.jobs.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		w.logger.Warn("Timeout waiting for in-flight jobs")
	}

	return w.ws.Disconnect()
}
