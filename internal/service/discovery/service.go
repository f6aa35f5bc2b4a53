package discovery

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

// Reranker is the optional AI enhancement pass. Candidates arrive sorted
// descending by base score; implementations blend AI scores into FinalScore
// for the candidates they cover and must degrade to base scores on any
// failure instead of returning an error.
type Reranker interface {
	Rerank(ctx context.Context, candidates []ScoredCandidate, criteria domain.Criteria) []ScoredCandidate
}

// Service runs the full discovery pipeline: keyword scoring over the pool,
// the optional AI pass over the top slice, ranking, and result shaping.
// It holds no per-request state; every call gets a fresh result.
type Service struct {
	scorer       *KeywordScorer
	reranker     Reranker
	redis        *cache.CacheService
	cacheResults bool
	logger       *zap.Logger
}

func NewService(scorer *KeywordScorer, reranker Reranker, redis *cache.CacheService, cacheResults bool, logger *zap.Logger) *Service {
	return &Service{
		scorer:       scorer,
		reranker:     reranker,
		redis:        redis,
		cacheResults: cacheResults,
		logger:       logger,
	}
}

// Discover ranks the candidate pool against the campaign criteria and
// returns at most limit matches, best first. An empty pool yields an empty
// result, and AI unavailability silently degrades to keyword-only scores;
// neither is an error, so there is no error to return.
func (s *Service) Discover(ctx context.Context, criteria domain.Criteria, candidates []domain.Candidate, limit int) []domain.ScoredMatch {
	limit = normalizeLimit(limit)

	if len(candidates) == 0 {
		return []domain.ScoredMatch{}
	}

	keywords := util.UniqueFold(criteria.Keywords)

	cacheKey := ""
	if s.cacheResults && s.redis != nil {
		cacheKey = discoveryCacheKey(criteria, keywords, limit)
		if matches, found := s.redis.GetMatches(ctx, cacheKey); found {
			s.logger.Debug("Discovery served from cache", zap.String("key", cacheKey))
			return matches
		}
	}

	scored := s.scorer.ScorePool(candidates, keywords, criteria.Niche)
	if len(scored) == 0 {
		return []domain.ScoredMatch{}
	}

	// The AI pass wants the top of the base ranking, so order by base
	// score first. Stable: equal scores keep pool iteration order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].BaseScore > scored[j].BaseScore
	})

	if s.reranker != nil {
		scored = s.reranker.Rerank(ctx, scored, criteria)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].FinalScore > scored[j].FinalScore
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	matches := make([]domain.ScoredMatch, 0, len(scored))
	for i := range scored {
		matches = append(matches, assembleMatch(&scored[i], keywords))
	}

	s.logger.Info("Discovery complete",
		zap.String("niche", criteria.Niche),
		zap.Int("pool", len(candidates)),
		zap.Int("matches", len(matches)),
		zap.Bool("ai_pass", s.reranker != nil),
	)

	if cacheKey != "" {
		s.redis.SetMatches(ctx, cacheKey, matches, constants.CacheTTL.DiscoveryResult)
	}

	return matches
}

func assembleMatch(sc *ScoredCandidate, keywords []string) domain.ScoredMatch {
	matched := MatchingKeywords(&sc.Candidate, keywords)
	if len(matched) > constants.DiscoveryLimits.MaxDisplayKeywords {
		matched = matched[:constants.DiscoveryLimits.MaxDisplayKeywords]
	}

	match := domain.ScoredMatch{
		CandidateID:      sc.Candidate.ID,
		Username:         sc.Candidate.Username,
		FullName:         sc.Candidate.FullName,
		RelevanceScore:   util.Clamp(0, sc.FinalScore, constants.Score.Max),
		MatchingKeywords: matched,
		AIAnalysis:       sc.AIReason,
		Status:           domain.MatchStatusSuggested,
	}

	if sc.Candidate.HasChannels() {
		match.ChannelStats = aggregateChannels(sc.Candidate.Channels)
	}

	return match
}

// aggregateChannels sums statistics across ALL channels while listing at
// most the first three as representatives.
func aggregateChannels(channels []domain.ChannelSummary) *domain.ChannelStats {
	stats := &domain.ChannelStats{
		TotalChannels: len(channels),
	}

	var totalVideos int64
	for i := range channels {
		stats.TotalSubscribers += channels[i].SubscriberCount
		stats.TotalViews += channels[i].ViewCount
		totalVideos += channels[i].VideoCount
	}

	stats.AverageVideos = totalVideos / int64(len(channels))

	display := channels
	if len(display) > constants.DiscoveryLimits.MaxDisplayChannels {
		display = display[:constants.DiscoveryLimits.MaxDisplayChannels]
	}
	stats.Channels = append([]domain.ChannelSummary(nil), display...)

	return stats
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return constants.DiscoveryLimits.DefaultLimit
	}
	return limit
}

func discoveryCacheKey(criteria domain.Criteria, keywords []string, limit int) string {
	normalized := make([]string, len(keywords))
	for i, keyword := range keywords {
		normalized[i] = util.Normalize(keyword)
	}

	h := fnv.New32a()
	h.Write([]byte(criteria.Description))

	return fmt.Sprintf("discovery:%s:%s:%d:%x",
		util.Normalize(criteria.Niche),
		strings.Join(normalized, ","),
		limit,
		h.Sum32(),
	)
}
