package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type CacheService struct {
	client *redis.Client
	logger *zap.Logger
}

type CacheConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewCacheService(cfg CacheConfig, logger *zap.Logger) (*CacheService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.RedisConfig.ReadyTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return &CacheService{
		client: client,
		logger: logger,
	}, nil
}

func (c *CacheService) Get(ctx context.Context, key string, dest any) error {
	value, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // Key doesn't exist - not an error
	}
	if err != nil {
		c.logger.Error("Cache get failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("get failed", "get", key, err)
	}

	if dest != nil {
		if err := json.Unmarshal([]byte(value), dest); err != nil {
			c.logger.Error("Cache unmarshal failed", zap.String("key", key), zap.Error(err))
			return errors.NewCacheError("unmarshal failed", "get", key, err)
		}
	}

	return nil
}

func (c *CacheService) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	jsonData, err := json.Marshal(value)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, key, jsonData, ttl).Err(); err != nil {
		c.logger.Error("Cache set failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("set failed", "set", key, err)
	}

	return nil
}

func (c *CacheService) Del(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Error("Cache delete failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("delete failed", "del", key, err)
	}
	return nil
}

// GetMatches returns a cached discovery result, or (nil, false) on miss.
// Cache failures count as misses so discovery never depends on Redis.
func (c *CacheService) GetMatches(ctx context.Context, key string) ([]domain.ScoredMatch, bool) {
	var matches []domain.ScoredMatch
	if err := c.Get(ctx, key, &matches); err != nil {
		c.logger.Debug("Match cache miss or error", zap.String("key", key))
		return nil, false
	}

	if matches == nil {
		return nil, false
	}

	return matches, true
}

func (c *CacheService) SetMatches(ctx context.Context, key string, matches []domain.ScoredMatch, ttl time.Duration) {
	if err := c.Set(ctx, key, matches, ttl); err != nil {
		c.logger.Error("Failed to cache matches", zap.String("key", key), zap.Error(err))
	}
}

// GetCandidatePool returns a cached directory pool, or (nil, false) on miss.
func (c *CacheService) GetCandidatePool(ctx context.Context, key string) ([]domain.Candidate, bool) {
	var pool []domain.Candidate
	if err := c.Get(ctx, key, &pool); err != nil {
		c.logger.Debug("Pool cache miss or error", zap.String("key", key))
		return nil, false
	}

	if pool == nil {
		return nil, false
	}

	return pool, true
}

func (c *CacheService) SetCandidatePool(ctx context.Context, key string, pool []domain.Candidate, ttl time.Duration) {
	if err := c.Set(ctx, key, pool, ttl); err != nil {
		c.logger.Error("Failed to cache candidate pool", zap.String("key", key), zap.Error(err))
	}
}

// GetCandidateEntry returns one cached directory record, or (nil, false) on
// miss.
func (c *CacheService) GetCandidateEntry(ctx context.Context, key string) (*domain.Candidate, bool) {
	var candidate *domain.Candidate
	if err := c.Get(ctx, key, &candidate); err != nil {
		c.logger.Debug("Candidate cache miss or error", zap.String("key", key))
		return nil, false
	}

	if candidate == nil {
		return nil, false
	}

	return candidate, true
}

func (c *CacheService) SetCandidateEntry(ctx context.Context, key string, candidate *domain.Candidate, ttl time.Duration) {
	if err := c.Set(ctx, key, candidate, ttl); err != nil {
		c.logger.Error("Failed to cache candidate", zap.String("key", key), zap.Error(err))
	}
}

// AddQuotaUsage adds units to the shared daily YouTube quota counter and
// returns the new total. The counter expires at the quota reset time so a
// fresh day always starts from zero.
func (c *CacheService) AddQuotaUsage(ctx context.Context, key string, units int, resetAt time.Time) (int, error) {
	total, err := c.client.IncrBy(ctx, key, int64(units)).Result()
	if err != nil {
		c.logger.Error("Quota incr failed", zap.String("key", key), zap.Error(err))
		return 0, errors.NewCacheError("incrby failed", "incrby", key, err)
	}

	if total == int64(units) {
		if err := c.client.ExpireAt(ctx, key, resetAt).Err(); err != nil {
			c.logger.Warn("Quota expire failed", zap.String("key", key), zap.Error(err))
		}
	}

	return int(total), nil
}

func (c *CacheService) GetQuotaUsage(ctx context.Context, key string) (int, error) {
	value, err := c.client.Get(ctx, key).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewCacheError("get failed", "get", key, err)
	}
	return value, nil
}

// MarkChannelSynced records a channel in the day's synced set so a restarted
// sync run can skip it.
func (c *CacheService) MarkChannelSynced(ctx context.Context, key, channelID string, ttl time.Duration) error {
	added, err := c.client.SAdd(ctx, key, channelID).Result()
	if err != nil {
		c.logger.Error("Cache sadd failed", zap.String("key", key), zap.Error(err))
		return errors.NewCacheError("sadd failed", "sadd", key, err)
	}

	if added > 0 {
		if err := c.client.Expire(ctx, key, ttl).Err(); err != nil {
			c.logger.Warn("Cache expire failed", zap.String("key", key), zap.Error(err))
		}
	}

	return nil
}

func (c *CacheService) IsChannelSynced(ctx context.Context, key, channelID string) (bool, error) {
	exists, err := c.client.SIsMember(ctx, key, channelID).Result()
	if err != nil {
		c.logger.Error("Cache sismember failed", zap.String("key", key), zap.Error(err))
		return false, errors.NewCacheError("sismember failed", "sismember", key, err)
	}
	return exists, nil
}

func (c *CacheService) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
