package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Gateway   GatewayConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	YouTube   YouTubeConfig
	Gemini    GeminiConfig
	OpenAI    OpenAIConfig
	Discovery DiscoveryConfig
	Sync      SyncConfig
	Logging   LoggingConfig
}

type GatewayConfig struct {
	WSURL    string
	ReplyURL string
	WorkerID string
}

type PostgresConfig struct {
	DSN string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type YouTubeConfig struct {
	APIKeys        []string
	OAuthCredFile  string
	OAuthTokenFile string
	EnableScraper  bool
	ScraperBaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenAIConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type DiscoveryConfig struct {
	AITimeout    time.Duration
	DefaultLimit int
	ScoreWorkers int
	CacheResults bool
}

type SyncConfig struct {
	Interval   time.Duration
	BatchSize  int
	ChannelIDs []string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Gateway: GatewayConfig{
			WSURL:    getEnv("GATEWAY_WS_URL", "ws://localhost:4000/ws/workers"),
			ReplyURL: getEnv("GATEWAY_REPLY_URL", "http://localhost:4000/internal/discovery/results"),
			WorkerID: getEnv("GATEWAY_WORKER_ID", "match-worker-1"),
		},
		Postgres: PostgresConfig{
			DSN: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		YouTube: YouTubeConfig{
			APIKeys:        collectAPIKeys("YOUTUBE_API_KEY"),
			OAuthCredFile:  getEnv("YOUTUBE_OAUTH_CREDENTIALS", "credentials.json"),
			OAuthTokenFile: getEnv("YOUTUBE_OAUTH_TOKEN", "token.json"),
			EnableScraper:  getEnvBool("YOUTUBE_ENABLE_SCRAPER", true),
			ScraperBaseURL: getEnv("YOUTUBE_SCRAPER_BASE_URL", "https://www.youtube.com"),
		},
		Gemini: GeminiConfig{
			APIKey: getEnv("GEMINI_API_KEY", ""),
			Model:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			EnableFallback: getEnvBool("OPENAI_ENABLE_FALLBACK", true),
		},
		Discovery: DiscoveryConfig{
			AITimeout:    time.Duration(getEnvInt("DISCOVERY_AI_TIMEOUT_SECONDS", 20)) * time.Second,
			DefaultLimit: getEnvInt("DISCOVERY_DEFAULT_LIMIT", 10),
			ScoreWorkers: getEnvInt("DISCOVERY_SCORE_WORKERS", 8),
			CacheResults: getEnvBool("DISCOVERY_CACHE_RESULTS", true),
		},
		Sync: SyncConfig{
			Interval:   time.Duration(getEnvInt("SYNC_INTERVAL_MINUTES", 360)) * time.Minute,
			BatchSize:  getEnvInt("SYNC_BATCH_SIZE", 200),
			ChannelIDs: parseCommaSeparated(getEnv("SYNC_CHANNEL_IDS", "")),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings every binary needs. AI keys are deliberately
// not required: without them discovery degrades to keyword-only scoring.
func (c *Config) Validate() error {
	if c.Gateway.WSURL == "" {
		return fmt.Errorf("GATEWAY_WS_URL is required")
	}
	if c.Gateway.ReplyURL == "" {
		return fmt.Errorf("GATEWAY_REPLY_URL is required")
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Discovery.AITimeout < 5*time.Second {
		return fmt.Errorf("DISCOVERY_AI_TIMEOUT_SECONDS must be at least 5")
	}
	if c.Discovery.DefaultLimit <= 0 {
		return fmt.Errorf("DISCOVERY_DEFAULT_LIMIT must be positive")
	}
	return nil
}

// HasAIProvider reports whether at least one LLM provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.Gemini.APIKey != "" || c.OpenAI.APIKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// collectAPIKeys gathers PREFIX plus PREFIX_1..PREFIX_5 so operators can
// rotate across several keys without changing the variable name.
func collectAPIKeys(prefix string) []string {
	keys := make([]string, 0)
	if value := os.Getenv(prefix); value != "" {
		keys = append(keys, value)
	}
	for i := 1; i <= 5; i++ {
		envKey := fmt.Sprintf("%s_%d", prefix, i)
		if value := os.Getenv(envKey); value != "" {
			keys = append(keys, value)
		}
	}
	return keys
}
