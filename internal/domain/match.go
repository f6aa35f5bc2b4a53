package domain

// MatchStatusSuggested marks a freshly discovered match that no one has
// acted on yet. Later lifecycle states (accepted, declined) belong to the
// platform backend, not to this worker.
const MatchStatusSuggested = "suggested"

// ScoredMatch is one ranked discovery result.
type ScoredMatch struct {
	CandidateID      string        `json:"candidate_id"`
	Username         string        `json:"username"`
	FullName         string        `json:"full_name"`
	RelevanceScore   float64       `json:"relevance_score"`
	MatchingKeywords []string      `json:"matching_keywords"`
	ChannelStats     *ChannelStats `json:"channel_stats,omitempty"`
	AIAnalysis       string        `json:"ai_analysis,omitempty"`
	Status           string        `json:"status"`
}

// ChannelStats aggregates a candidate's channels for display. Totals cover
// ALL of the candidate's channels even though Channels lists at most the
// first three representatives.
type ChannelStats struct {
	TotalSubscribers int64            `json:"total_subscribers"`
	TotalViews       int64            `json:"total_views"`
	TotalChannels    int              `json:"total_channels"`
	AverageVideos    int64            `json:"average_videos"`
	Channels         []ChannelSummary `json:"channels"`
}
