package youtube

import (
	"context"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"github.com/castora/creatormatch-go/pkg/errors"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

const syncedSetKey = "youtube:synced:channels"

// channelSource provides the channel IDs to refresh and receives the new
// numbers back. The directory repository implements it.
type channelSource interface {
	GetChannelIDs(ctx context.Context) ([]string, error)
	UpdateChannelStats(ctx context.Context, snapshot domain.ChannelSnapshot) error
}

// poolInvalidator drops cached candidate pools once fresher stats land.
type poolInvalidator interface {
	Invalidate(ctx context.Context)
}

// StatsSyncer periodically refreshes linked channel statistics. Each run
// takes one batch of not-yet-synced channels, so large directories roll
// through over several ticks without breaching the API quota. When the
// quota is exhausted the run falls back to the scraper.
type StatsSyncer struct {
	stats      *StatsService
	scraper    *Scraper
	repo       *StatsRepository
	channels   channelSource
	dirCache   poolInvalidator
	redis      *cache.CacheService
	interval   time.Duration
	batchSize  int
	overrideID []string
	logger     *zap.Logger
	ticker     *time.Ticker
	stopCh     chan struct{}
}

type SyncerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ChannelIDs []string // overrides the directory lookup when set
}

type SyncerDeps struct {
	Stats    *StatsService
	Scraper  *Scraper // optional
	Repo     *StatsRepository
	Channels channelSource
	DirCache poolInvalidator // optional
	Redis    *cache.CacheService
	Logger   *zap.Logger
}

func NewStatsSyncer(deps *SyncerDeps, cfg SyncerConfig) *StatsSyncer {
	return &StatsSyncer{
		stats:      deps.Stats,
		scraper:    deps.Scraper,
		repo:       deps.Repo,
		channels:   deps.Channels,
		dirCache:   deps.DirCache,
		redis:      deps.Redis,
		interval:   cfg.Interval,
		batchSize:  cfg.BatchSize,
		overrideID: cfg.ChannelIDs,
		logger:     deps.Logger,
		stopCh:     make(chan struct{}),
	}
}

func (ss *StatsSyncer) Start(ctx context.Context) {
	ss.ticker = time.NewTicker(ss.interval)

	ss.logger.Info("Channel stats syncer started",
		zap.Duration("interval", ss.interval),
		zap.Int("batch_size", ss.batchSize))

	go ss.RunOnce(ctx)

	go func() {
		for {
			select {
			case <-ss.ticker.C:
				ss.RunOnce(ctx)
			case <-ss.stopCh:
				ss.logger.Info("Stats syncer stopped")
				return
			case <-ctx.Done():
				ss.logger.Info("Stats syncer context cancelled")
				return
			}
		}
	}()
}

func (ss *StatsSyncer) Stop() {
	if ss.ticker != nil {
		ss.ticker.Stop()
	}
	close(ss.stopCh)
}

// RunOnce syncs one batch of pending channels. Safe to call directly; the
// syncstats command uses it for manual runs.
func (ss *StatsSyncer) RunOnce(ctx context.Context) {
	channelIDs, err := ss.pendingChannels(ctx)
	if err != nil {
		ss.logger.Error("Failed to list channels for sync", zap.Error(err))
		return
	}

	if len(channelIDs) == 0 {
		ss.logger.Debug("No channels pending sync")
		return
	}

	if len(channelIDs) > ss.batchSize {
		channelIDs = channelIDs[:ss.batchSize]
	}

	ss.logger.Info("Running channel stats sync",
		zap.Int("channels", len(channelIDs)))

	// Skip the API entirely when the remaining budget cannot cover the
	// batch. The QuotaError fallback below still catches the race where
	// a sibling worker drains the shared counter in between.
	var snapshots map[string]*domain.ChannelSnapshot
	if ss.scraper != nil && !ss.stats.IsQuotaAvailable(ctx, len(channelIDs)) {
		ss.logger.Warn("API quota too low for this batch, using scraper",
			zap.Int("channels", len(channelIDs)))
		snapshots = ss.scrapeBatch(ctx, channelIDs)
	} else {
		snapshots, err = ss.stats.FetchChannelStats(ctx, channelIDs)
		if err != nil {
			if _, ok := err.(*errors.QuotaError); ok && ss.scraper != nil {
				ss.logger.Warn("API quota exhausted, falling back to scraper",
					zap.Int("channels", len(channelIDs)))
				snapshots = ss.scrapeBatch(ctx, channelIDs)
			} else {
				ss.logger.Error("Stats fetch failed", zap.Error(err))
				return
			}
		}
	}

	// Channels the API response skipped (deleted, terminated, or ID typos)
	// still get a scraper attempt before being counted as missing.
	if ss.scraper != nil && len(snapshots) < len(channelIDs) {
		missing := make([]string, 0, len(channelIDs)-len(snapshots))
		for _, id := range channelIDs {
			if _, ok := snapshots[id]; !ok {
				missing = append(missing, id)
			}
		}

		for id, snapshot := range ss.scrapeBatch(ctx, missing) {
			snapshots[id] = snapshot
		}
	}

	saved := 0
	for _, snapshot := range snapshots {
		if err := ss.repo.SaveSnapshot(ctx, snapshot); err != nil {
			ss.logger.Error("Failed to save snapshot",
				zap.String("channel", snapshot.ChannelID),
				zap.Error(err))
			continue
		}

		if err := ss.channels.UpdateChannelStats(ctx, *snapshot); err != nil {
			ss.logger.Error("Failed to update channel stats",
				zap.String("channel", snapshot.ChannelID),
				zap.Error(err))
			continue
		}

		if ss.redis != nil {
			if err := ss.redis.MarkChannelSynced(ctx, syncedSetKey, snapshot.ChannelID, ss.interval); err != nil {
				ss.logger.Warn("Failed to mark channel synced",
					zap.String("channel", snapshot.ChannelID))
			}
		}

		saved++
	}

	if saved > 0 && ss.dirCache != nil {
		ss.dirCache.Invalidate(ctx)
	}

	ss.logger.Info("Channel stats sync completed",
		zap.Int("requested", len(channelIDs)),
		zap.Int("synced", saved),
		zap.Int("missing", len(channelIDs)-len(snapshots)))
}

// pendingChannels returns the channels due for a sync. A channel is skipped
// while its latest stored snapshot is younger than the stats TTL and, when
// Redis is available, while it sits in the current interval's synced set.
func (ss *StatsSyncer) pendingChannels(ctx context.Context) ([]string, error) {
	channelIDs := ss.overrideID
	if len(channelIDs) == 0 {
		ids, err := ss.channels.GetChannelIDs(ctx)
		if err != nil {
			return nil, err
		}
		channelIDs = ids
	}

	channelIDs = ss.filterFresh(ctx, channelIDs)

	if ss.redis == nil {
		return channelIDs, nil
	}

	pending := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		synced, err := ss.redis.IsChannelSynced(ctx, syncedSetKey, id)
		if err != nil {
			pending = append(pending, id)
			continue
		}
		if !synced {
			pending = append(pending, id)
		}
	}

	return pending, nil
}

// filterFresh drops channels whose latest snapshot is younger than the
// stats TTL. A failed history lookup must not stop a sync, so the list
// comes back unfiltered on error.
func (ss *StatsSyncer) filterFresh(ctx context.Context, channelIDs []string) []string {
	lastFetch, err := ss.repo.GetLastFetchTimes(ctx, channelIDs)
	if err != nil {
		ss.logger.Warn("Failed to load snapshot ages, syncing all", zap.Error(err))
		return channelIDs
	}

	cutoff := time.Now().Add(-constants.CacheTTL.ChannelStats)
	pending := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		if fetchedAt, ok := lastFetch[id]; ok && fetchedAt.After(cutoff) {
			continue
		}
		pending = append(pending, id)
	}

	return pending
}

// scrapeBatch fetches snapshots over the fallback scraper with bounded
// parallelism. Failures are logged and dropped; the next run retries them.
func (ss *StatsSyncer) scrapeBatch(ctx context.Context, channelIDs []string) map[string]*domain.ChannelSnapshot {
	results := make([]*domain.ChannelSnapshot, len(channelIDs))

	p := pool.New().WithMaxGoroutines(constants.YouTubeQuota.SnapshotParallelism)
	for i := range channelIDs {
		idx := i
		p.Go(func() {
			snapshot, err := ss.scraper.FetchChannelStats(ctx, channelIDs[idx])
			if err != nil {
				// A structure error means the page layout drifted and every
				// channel will fail the same way; transient errors stay Warn.
				if IsStructureError(err) {
					ss.logger.Error("Scraper selectors no longer match channel page",
						zap.String("channel", channelIDs[idx]),
						zap.Error(err))
				} else {
					ss.logger.Warn("Scraper fallback failed",
						zap.String("channel", channelIDs[idx]),
						zap.Error(err))
				}
				return
			}
			results[idx] = snapshot
		})
	}
	p.Wait()

	snapshots := make(map[string]*domain.ChannelSnapshot)
	for _, snapshot := range results {
		if snapshot != nil {
			snapshots[snapshot.ChannelID] = snapshot
		}
	}

	return snapshots
}
