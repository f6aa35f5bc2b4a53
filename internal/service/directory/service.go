package directory

import (
	"context"
	"sync"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"go.uber.org/zap"
)

const (
	poolCacheKey         = "directory:pool"
	candidateCachePrefix = "directory:candidate:"
)

// poolSource is the repository-side read surface the service caches.
type poolSource interface {
	GetPool(ctx context.Context) ([]domain.Candidate, error)
	FindByID(ctx context.Context, id string) (*domain.Candidate, error)
}

// Service serves the candidate pool with two cache tiers in front of the
// directory database: a per-process snapshot and, when Redis is available,
// a shared entry so sibling workers skip the directory query too.
type Service struct {
	repo   poolSource
	redis  *cache.CacheService
	logger *zap.Logger
	ttl    time.Duration

	mu        sync.RWMutex
	pool      []domain.Candidate
	fetchedAt time.Time
}

func NewService(repo poolSource, redis *cache.CacheService, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		redis:  redis,
		logger: logger,
		ttl:    constants.CacheTTL.CandidatePool,
	}
}

// GetPool returns the discoverable candidate pool, serving from cache while
// fresh. The returned slice is shared; callers must not mutate it.
func (s *Service) GetPool(ctx context.Context) ([]domain.Candidate, error) {
	s.mu.RLock()
	if s.pool != nil && time.Since(s.fetchedAt) < s.ttl {
		pool := s.pool
		s.mu.RUnlock()
		return pool, nil
	}
	s.mu.RUnlock()

	if s.redis != nil {
		if pool, found := s.redis.GetCandidatePool(ctx, poolCacheKey); found {
			s.store(pool)
			s.logger.Debug("Candidate pool served from Redis", zap.Int("candidates", len(pool)))
			return pool, nil
		}
	}

	pool, err := s.repo.GetPool(ctx)
	if err != nil {
		return nil, err
	}

	s.store(pool)
	if s.redis != nil {
		s.redis.SetCandidatePool(ctx, poolCacheKey, pool, s.ttl)
	}

	s.logger.Info("Candidate pool loaded from directory",
		zap.Int("candidates", len(pool)),
	)

	return pool, nil
}

// GetCandidate returns one influencer with channels, or nil when the ID is
// unknown. Entries are cached per ID with their own TTL, separate from the
// pool cache, and may lag a stats sync by up to that TTL.
func (s *Service) GetCandidate(ctx context.Context, id string) (*domain.Candidate, error) {
	key := candidateCachePrefix + id

	if s.redis != nil {
		if candidate, found := s.redis.GetCandidateEntry(ctx, key); found {
			return candidate, nil
		}
	}

	candidate, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if candidate == nil {
		return nil, nil
	}

	if s.redis != nil {
		s.redis.SetCandidateEntry(ctx, key, candidate, constants.CacheTTL.DirectoryEntry)
	}

	return candidate, nil
}

// Invalidate drops both cache tiers, forcing the next read to hit the
// directory. The stats sync calls this after updating channel rows.
func (s *Service) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.pool = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()

	if s.redis != nil {
		if err := s.redis.Del(ctx, poolCacheKey); err != nil {
			s.logger.Warn("Failed to invalidate pool cache", zap.Error(err))
		}
	}

	s.logger.Info("Candidate pool cache invalidated")
}

func (s *Service) store(pool []domain.Candidate) {
	s.mu.Lock()
	s.pool = pool
	s.fetchedAt = time.Now()
	s.mu.Unlock()
}
