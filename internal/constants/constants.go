package constants

import "time"

// Score holds the point values of the deterministic keyword scorer. These
// mirror the platform's ranking rules exactly and are not configurable.
var Score = struct {
	KeywordInUsername     float64
	KeywordInFullName     float64
	NicheInUsername       float64
	NicheInFullName       float64
	NicheInChannelTag     float64
	NicheInChannelTitle   float64
	NicheInChannelDesc    float64
	KeywordInChannelTitle float64
	KeywordInChannelDesc  float64
	SubscriberTierHigh    float64
	SubscriberTierMid     float64
	SubscriberTierLow     float64
	ActivityBonus         float64
	Max                   float64
}{
	KeywordInUsername:     15,
	KeywordInFullName:     10,
	NicheInUsername:       20,
	NicheInFullName:       15,
	NicheInChannelTag:     25,
	NicheInChannelTitle:   20,
	NicheInChannelDesc:    10,
	KeywordInChannelTitle: 15,
	KeywordInChannelDesc:  5,
	SubscriberTierHigh:    15,
	SubscriberTierMid:     10,
	SubscriberTierLow:     5,
	ActivityBonus:         5,
	Max:                   100,
}

// SubscriberTiers holds the thresholds for the subscriber-count bonus.
// Exactly one tier applies per channel, highest threshold first.
var SubscriberTiers = struct {
	High int64
	Mid  int64
	Low  int64
}{
	High: 1_000_000,
	Mid:  100_000,
	Low:  10_000,
}

// Blend holds the fixed weights for combining the keyword base score with
// the AI relevance score. Hard-coded, never configuration.
var Blend = struct {
	Base float64
	AI   float64
}{
	Base: 0.4,
	AI:   0.6,
}

var DiscoveryLimits = struct {
	MaxRerankCandidates int // candidates sent to the AI pass
	MaxDisplayKeywords  int // matching_keywords entries per match
	MaxDisplayChannels  int // representative channels per match
	MaxSummaryChannels  int // channels rendered into the rerank prompt
	DefaultLimit        int
	MaxScoreWorkers     int
}{
	MaxRerankCandidates: 10,
	MaxDisplayKeywords:  5,
	MaxDisplayChannels:  3,
	MaxSummaryChannels:  3,
	DefaultLimit:        10,
	MaxScoreWorkers:     8,
}

var CacheTTL = struct {
	DiscoveryResult time.Duration
	CandidatePool   time.Duration
	ChannelStats    time.Duration
	DirectoryEntry  time.Duration
}{
	DiscoveryResult: 10 * time.Minute,
	CandidatePool:   5 * time.Minute,
	ChannelStats:    2 * time.Hour,
	DirectoryEntry:  15 * time.Minute,
}

var WebSocketConfig = struct {
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	PingInterval         time.Duration
	WriteTimeout         time.Duration
}{
	MaxReconnectAttempts: 5,
	ReconnectDelay:       5 * time.Second,
	PingInterval:         30 * time.Second,
	WriteTimeout:         10 * time.Second,
}

var RedisConfig = struct {
	ReadyTimeout time.Duration
}{
	ReadyTimeout: 5 * time.Second,
}

var AIInputLimits = struct {
	MaxDescriptionLength int
	MaxNicheLength       int
	MaxKeywords          int
}{
	MaxDescriptionLength: 500,
	MaxNicheLength:       100,
	MaxKeywords:          20,
}

var RetryConfig = struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      time.Duration
}{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	Jitter:      250 * time.Millisecond,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
}{
	FailureThreshold:    3,
	ResetTimeout:        30 * time.Second,
	RateLimitTimeout:    1 * time.Hour, // dedicated timeout for 429 rate limits
	HealthCheckInterval: 10 * time.Minute,
	HealthCheckTimeout:  10 * time.Second,
}

var YouTubeQuota = struct {
	DailyLimit          int
	SafetyMargin        int
	ChannelsListCost    int
	MaxChannelsPerCall  int
	ScraperFallbackTTL  time.Duration
	SnapshotParallelism int
}{
	DailyLimit:          10_000,
	SafetyMargin:        2_000,
	ChannelsListCost:    1,
	MaxChannelsPerCall:  50,
	ScraperFallbackTTL:  30 * time.Minute,
	SnapshotParallelism: 3,
}
