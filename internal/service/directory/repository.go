package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// CandidateRepository reads influencer profiles and their linked channels
// out of the platform directory. Rows with NULL optional columns scan into
// the zero value; a candidate is never dropped for missing fields.
type CandidateRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewCandidateRepository(db *sql.DB, logger *zap.Logger) *CandidateRepository {
	return &CandidateRepository{
		db:     db,
		logger: logger,
	}
}

// GetPool returns every discoverable influencer with their channels, in a
// stable order. The pool order matters: ranking ties preserve it.
func (r *CandidateRepository) GetPool(ctx context.Context) ([]domain.Candidate, error) {
	query := `
		SELECT id, username, full_name
		FROM influencers
		WHERE discoverable = TRUE
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query influencers: %w", err)
	}
	defer rows.Close()

	candidates := make([]domain.Candidate, 0)
	index := make(map[string]int)

	for rows.Next() {
		var (
			id       string
			username sql.NullString
			fullName sql.NullString
		)

		if err := rows.Scan(&id, &username, &fullName); err != nil {
			r.logger.Warn("Failed to scan influencer row", zap.Error(err))
			continue
		}

		index[id] = len(candidates)
		candidates = append(candidates, domain.Candidate{
			ID:       id,
			Username: username.String,
			FullName: fullName.String,
			Channels: nil,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate influencers: %w", err)
	}

	if len(candidates) == 0 {
		return candidates, nil
	}

	if err := r.attachChannels(ctx, candidates, index); err != nil {
		return nil, err
	}

	return candidates, nil
}

// FindByID returns a single influencer with channels, or nil when absent.
func (r *CandidateRepository) FindByID(ctx context.Context, id string) (*domain.Candidate, error) {
	query := `
		SELECT id, username, full_name
		FROM influencers
		WHERE id = $1
		LIMIT 1
	`

	var (
		candidateID string
		username    sql.NullString
		fullName    sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(&candidateID, &username, &fullName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query influencer by id: %w", err)
	}

	candidate := domain.Candidate{
		ID:       candidateID,
		Username: username.String,
		FullName: fullName.String,
	}

	pool := []domain.Candidate{candidate}
	if err := r.attachChannels(ctx, pool, map[string]int{candidateID: 0}); err != nil {
		return nil, err
	}

	return &pool[0], nil
}

// GetChannelIDs returns the YouTube channel IDs of every linked channel,
// for the statistics sync.
func (r *CandidateRepository) GetChannelIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT youtube_channel_id
		FROM influencer_channels
		WHERE youtube_channel_id IS NOT NULL AND youtube_channel_id <> ''
		ORDER BY youtube_channel_id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query channel ids: %w", err)
	}
	defer rows.Close()

	var channelIDs []string
	for rows.Next() {
		var channelID string
		if err := rows.Scan(&channelID); err != nil {
			r.logger.Warn("Failed to scan channel ID", zap.Error(err))
			continue
		}
		channelIDs = append(channelIDs, channelID)
	}

	return channelIDs, rows.Err()
}

// UpdateChannelStats writes freshly synced statistics onto the linked
// channel row so future discoveries score against current numbers.
func (r *CandidateRepository) UpdateChannelStats(ctx context.Context, snapshot domain.ChannelSnapshot) error {
	query := `
		UPDATE influencer_channels
		SET subscriber_count = $2, view_count = $3, video_count = $4, stats_synced_at = $5
		WHERE youtube_channel_id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.ChannelID,
		int64(snapshot.SubscriberCount),
		int64(snapshot.ViewCount),
		int64(snapshot.VideoCount),
		snapshot.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel stats: %w", err)
	}

	return nil
}

// attachChannels loads the channels of the given candidates and appends
// them in insertion order.
func (r *CandidateRepository) attachChannels(ctx context.Context, candidates []domain.Candidate, index map[string]int) error {
	ids := make([]string, 0, len(index))
	for id := range index {
		ids = append(ids, id)
	}

	query := `
		SELECT influencer_id, title, description, niche,
		       subscriber_count, view_count, video_count
		FROM influencer_channels
		WHERE influencer_id = ANY($1)
		ORDER BY influencer_id, position, id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query influencer channels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			influencerID    string
			title           sql.NullString
			description     sql.NullString
			niche           sql.NullString
			subscriberCount sql.NullInt64
			viewCount       sql.NullInt64
			videoCount      sql.NullInt64
		)

		if err := rows.Scan(&influencerID, &title, &description, &niche,
			&subscriberCount, &viewCount, &videoCount); err != nil {
			r.logger.Warn("Failed to scan channel row", zap.Error(err))
			continue
		}

		pos, ok := index[influencerID]
		if !ok {
			continue
		}

		candidates[pos].Channels = append(candidates[pos].Channels, domain.ChannelSummary{
			Title:           title.String,
			Description:     description.String,
			Niche:           niche.String,
			SubscriberCount: subscriberCount.Int64,
			ViewCount:       viewCount.Int64,
			VideoCount:      videoCount.Int64,
		})
	}

	return rows.Err()
}
