package youtube

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// StatsRepository persists snapshot history so sponsors can see channel
// growth, not just the latest numbers.
type StatsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewStatsRepository(db *sql.DB, logger *zap.Logger) *StatsRepository {
	return &StatsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *StatsRepository) SaveSnapshot(ctx context.Context, snapshot *domain.ChannelSnapshot) error {
	query := `
		INSERT INTO channel_stats_snapshots
			(channel_id, channel_title, subscriber_count, video_count, view_count, source, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ChannelID,
		snapshot.ChannelTitle,
		int64(snapshot.SubscriberCount),
		int64(snapshot.VideoCount),
		int64(snapshot.ViewCount),
		string(snapshot.Source),
		snapshot.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot returns the most recent snapshot for a channel, or nil
// when the channel has never been synced.
func (r *StatsRepository) GetLatestSnapshot(ctx context.Context, channelID string) (*domain.ChannelSnapshot, error) {
	query := `
		SELECT channel_id, channel_title, subscriber_count, video_count, view_count, source, fetched_at
		FROM channel_stats_snapshots
		WHERE channel_id = $1
		ORDER BY fetched_at DESC
		LIMIT 1
	`

	var (
		id              string
		title           sql.NullString
		subscriberCount int64
		videoCount      int64
		viewCount       int64
		source          sql.NullString
		fetchedAt       time.Time
	)

	err := r.db.QueryRowContext(ctx, query, channelID).Scan(
		&id, &title, &subscriberCount, &videoCount, &viewCount, &source, &fetchedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest snapshot: %w", err)
	}

	return &domain.ChannelSnapshot{
		ChannelID:       id,
		ChannelTitle:    title.String,
		SubscriberCount: uint64(subscriberCount),
		VideoCount:      uint64(videoCount),
		ViewCount:       uint64(viewCount),
		Source:          domain.StatsSource(source.String),
		FetchedAt:       fetchedAt,
	}, nil
}

// GetLastFetchTimes returns the most recent snapshot time per channel.
// Channels that were never synced are absent from the map.
func (r *StatsRepository) GetLastFetchTimes(ctx context.Context, channelIDs []string) (map[string]time.Time, error) {
	times := make(map[string]time.Time, len(channelIDs))
	if len(channelIDs) == 0 {
		return times, nil
	}

	query := `
		SELECT channel_id, MAX(fetched_at)
		FROM channel_stats_snapshots
		WHERE channel_id = ANY($1)
		GROUP BY channel_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(channelIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch times: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			channelID string
			fetchedAt time.Time
		)
		if err := rows.Scan(&channelID, &fetchedAt); err != nil {
			r.logger.Warn("Failed to scan fetch time row", zap.Error(err))
			continue
		}
		times[channelID] = fetchedAt
	}

	return times, rows.Err()
}

// GetSnapshotsSince returns a channel's snapshot history from the given
// time onward, oldest first.
func (r *StatsRepository) GetSnapshotsSince(ctx context.Context, channelID string, since time.Time) ([]*domain.ChannelSnapshot, error) {
	query := `
		SELECT channel_id, channel_title, subscriber_count, video_count, view_count, source, fetched_at
		FROM channel_stats_snapshots
		WHERE channel_id = $1 AND fetched_at >= $2
		ORDER BY fetched_at
	`

	rows, err := r.db.QueryContext(ctx, query, channelID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.ChannelSnapshot
	for rows.Next() {
		var (
			id              string
			title           sql.NullString
			subscriberCount int64
			videoCount      int64
			viewCount       int64
			source          sql.NullString
			fetchedAt       time.Time
		)

		if err := rows.Scan(&id, &title, &subscriberCount, &videoCount, &viewCount, &source, &fetchedAt); err != nil {
			r.logger.Warn("Failed to scan snapshot row", zap.Error(err))
			continue
		}

		snapshots = append(snapshots, &domain.ChannelSnapshot{
			ChannelID:       id,
			ChannelTitle:    title.String,
			SubscriberCount: uint64(subscriberCount),
			VideoCount:      uint64(videoCount),
			ViewCount:       uint64(viewCount),
			Source:          domain.StatsSource(source.String),
			FetchedAt:       fetchedAt,
		})
	}

	return snapshots, rows.Err()
}
