package domain

import "time"

// ChannelSnapshot is one point-in-time statistics reading for a linked
// channel, as fetched from the YouTube Data API or the scraper fallback.
type ChannelSnapshot struct {
	ChannelID       string      `json:"channel_id"`
	ChannelTitle    string      `json:"channel_title"`
	SubscriberCount uint64      `json:"subscriber_count"`
	VideoCount      uint64      `json:"video_count"`
	ViewCount       uint64      `json:"view_count"`
	Source          StatsSource `json:"source"`
	FetchedAt       time.Time   `json:"fetched_at"`
}

// StatsSource identifies where a snapshot came from.
type StatsSource string

const (
	StatsSourceAPI     StatsSource = "api"
	StatsSourceScraper StatsSource = "scraper"
)
