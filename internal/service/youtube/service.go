package youtube

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"github.com/castora/creatormatch-go/internal/util"
	"github.com/castora/creatormatch-go/pkg/errors"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const quotaCacheKey = "youtube:quota:daily"

// StatsService fetches channel statistics from the YouTube Data API.
// Quota is the scarce resource here: channels.list is cheap (1 unit per
// call, up to 50 channels) but the daily budget is shared with every other
// worker, so usage is tracked in Redis and gated behind a safety margin.
type StatsService struct {
	services   []*youtube.Service
	currentKey int
	keyMu      sync.Mutex
	redis      *cache.CacheService
	logger     *zap.Logger
	quotaUsed  int
	quotaMu    sync.Mutex
	quotaReset time.Time
}

// NewStatsService builds one API client per key so rotation never needs a
// rebuild. The redis service may be nil; quota accounting then stays local
// to this process.
func NewStatsService(ctx context.Context, apiKeys []string, redis *cache.CacheService, logger *zap.Logger) (*StatsService, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one YouTube API key is required")
	}

	services := make([]*youtube.Service, 0, len(apiKeys))
	for _, key := range apiKeys {
		service, err := youtube.NewService(ctx, option.WithAPIKey(key))
		if err != nil {
			return nil, fmt.Errorf("failed to create YouTube service: %w", err)
		}
		services = append(services, service)
	}

	ss := &StatsService{
		services:   services,
		redis:      redis,
		logger:     logger,
		quotaUsed:  0,
		quotaReset: util.NextMidnightPacific(),
	}

	logger.Info("YouTube stats service initialized",
		zap.Int("api_keys", len(apiKeys)),
		zap.Time("quota_reset", ss.quotaReset))

	return ss, nil
}

// nextService returns the next API client in rotation.
func (ss *StatsService) nextService() *youtube.Service {
	ss.keyMu.Lock()
	defer ss.keyMu.Unlock()

	service := ss.services[ss.currentKey]
	ss.currentKey = (ss.currentKey + 1) % len(ss.services)
	return service
}

// checkQuota verifies the daily budget can absorb the operation. The Redis
// counter is authoritative when reachable because several workers share the
// same API project.
func (ss *StatsService) checkQuota(ctx context.Context, cost int) error {
	ss.quotaMu.Lock()
	defer ss.quotaMu.Unlock()

	now := time.Now()
	if now.After(ss.quotaReset) {
		ss.quotaUsed = 0
		ss.quotaReset = util.NextMidnightPacific()
		ss.logger.Info("YouTube API quota auto-reset",
			zap.Time("next_reset", ss.quotaReset))
	}

	used := ss.quotaUsed
	if ss.redis != nil {
		if shared, err := ss.redis.GetQuotaUsage(ctx, quotaCacheKey); err == nil && shared > used {
			used = shared
		}
	}

	if used+cost > constants.YouTubeQuota.DailyLimit-constants.YouTubeQuota.SafetyMargin {
		return errors.NewQuotaError("YouTube API daily quota exhausted", "youtube", used, constants.YouTubeQuota.DailyLimit)
	}

	return nil
}

// consumeQuota records quota spent after a successful API call.
func (ss *StatsService) consumeQuota(ctx context.Context, cost int) {
	ss.quotaMu.Lock()
	ss.quotaUsed += cost
	used := ss.quotaUsed
	reset := ss.quotaReset
	ss.quotaMu.Unlock()

	if ss.redis != nil {
		if total, err := ss.redis.AddQuotaUsage(ctx, quotaCacheKey, cost, reset); err == nil {
			used = total
		}
	}

	remaining := constants.YouTubeQuota.DailyLimit - used

	ss.logger.Debug("YouTube API quota consumed",
		zap.Int("cost", cost),
		zap.Int("used", used),
		zap.Int("remaining", remaining))

	if remaining < constants.YouTubeQuota.SafetyMargin {
		ss.logger.Warn("YouTube API quota running low",
			zap.Int("remaining", remaining),
			zap.Time("reset_time", reset))
	}
}

// FetchChannelStats retrieves current statistics for the given channels,
// batched up to 50 IDs per channels.list call. A batch that fails on one
// key is retried on the remaining keys; other failures skip the batch and
// keep going so one bad request never sinks a whole sync run.
func (ss *StatsService) FetchChannelStats(ctx context.Context, channelIDs []string) (map[string]*domain.ChannelSnapshot, error) {
	result := make(map[string]*domain.ChannelSnapshot)
	if len(channelIDs) == 0 {
		return result, nil
	}

	batchSize := constants.YouTubeQuota.MaxChannelsPerCall
	batches := (len(channelIDs) + batchSize - 1) / batchSize
	cost := batches * constants.YouTubeQuota.ChannelsListCost

	if err := ss.checkQuota(ctx, cost); err != nil {
		return nil, err
	}

	callsMade := 0
	for i := 0; i < len(channelIDs); i += batchSize {
		end := util.Min(i+batchSize, len(channelIDs))
		batch := channelIDs[i:end]

		response, err := ss.listChannels(ctx, batch)
		if err != nil {
			ss.logger.Error("Failed to fetch channel statistics",
				zap.Int("batch_size", len(batch)),
				zap.Error(err))
			continue
		}
		callsMade++

		now := time.Now()
		for _, channel := range response.Items {
			if channel.Statistics == nil {
				continue
			}

			snapshot := &domain.ChannelSnapshot{
				ChannelID:       channel.Id,
				SubscriberCount: channel.Statistics.SubscriberCount,
				VideoCount:      channel.Statistics.VideoCount,
				ViewCount:       channel.Statistics.ViewCount,
				Source:          domain.StatsSourceAPI,
				FetchedAt:       now,
			}
			if channel.Snippet != nil {
				snapshot.ChannelTitle = channel.Snippet.Title
			}
			result[channel.Id] = snapshot
		}
	}

	if callsMade > 0 {
		ss.consumeQuota(ctx, callsMade*constants.YouTubeQuota.ChannelsListCost)
	}

	ss.logger.Info("Channel statistics fetched",
		zap.Int("channels", len(channelIDs)),
		zap.Int("results", len(result)),
		zap.Int("quota_used", callsMade*constants.YouTubeQuota.ChannelsListCost))

	return result, nil
}

// listChannels performs one channels.list call, rotating across keys when
// a key comes back quota-limited.
func (ss *StatsService) listChannels(ctx context.Context, batch []string) (*youtube.ChannelListResponse, error) {
	var lastErr error

	for attempt := 0; attempt < len(ss.services); attempt++ {
		call := ss.nextService().Channels.List([]string{"statistics", "snippet"}).Id(batch...)

		response, err := call.Context(ctx).Do()
		if err == nil {
			return response, nil
		}
		lastErr = err

		if apiErr, ok := err.(*googleapi.Error); ok && (apiErr.Code == 403 || apiErr.Code == 429) {
			ss.logger.Warn("API key quota-limited, rotating",
				zap.Int("status", apiErr.Code),
				zap.Int("attempt", attempt+1))
			continue
		}

		return nil, err
	}

	return nil, errors.NewKeyRotationError("all YouTube API keys quota-limited", 403, map[string]any{
		"batch_size": len(batch),
	}).WithCause(lastErr)
}

// IsQuotaAvailable reports whether a sync over the given number of
// channels fits the remaining budget.
func (ss *StatsService) IsQuotaAvailable(ctx context.Context, channelCount int) bool {
	batchSize := constants.YouTubeQuota.MaxChannelsPerCall
	batches := (channelCount + batchSize - 1) / batchSize
	return ss.checkQuota(ctx, batches*constants.YouTubeQuota.ChannelsListCost) == nil
}

// GetQuotaStatus returns current usage for operator visibility.
func (ss *StatsService) GetQuotaStatus(ctx context.Context) (used int, remaining int, resetTime time.Time) {
	ss.quotaMu.Lock()
	used = ss.quotaUsed
	resetTime = ss.quotaReset
	ss.quotaMu.Unlock()

	if time.Now().After(resetTime) {
		return 0, constants.YouTubeQuota.DailyLimit, util.NextMidnightPacific()
	}

	if ss.redis != nil {
		if shared, err := ss.redis.GetQuotaUsage(ctx, quotaCacheKey); err == nil && shared > used {
			used = shared
		}
	}

	return used, constants.YouTubeQuota.DailyLimit - used, resetTime
}
