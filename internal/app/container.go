package app

import (
	"context"
	"fmt"

	"github.com/castora/creatormatch-go/internal/config"
	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/gateway"
	"github.com/castora/creatormatch-go/internal/service/ai"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"github.com/castora/creatormatch-go/internal/service/database"
	"github.com/castora/creatormatch-go/internal/service/directory"
	"github.com/castora/creatormatch-go/internal/service/discovery"
	"github.com/castora/creatormatch-go/internal/service/youtube"
	"go.uber.org/zap"
)

// Container bundles assembled services for constructing runtime components
// like the gateway worker.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Directory *directory.Service
	Discovery *discovery.Service

	// StatsRepo reads snapshot history; it only needs Postgres and is
	// always set.
	StatsRepo *youtube.StatsRepository

	// Stats and Syncer are nil when no YouTube API key is configured.
	Stats  *youtube.StatsService
	Syncer *youtube.StatsSyncer

	workerDeps *gateway.WorkerDeps
	closers    []func()
}

// NewWorker instantiates a gateway worker using the pre-built dependency graph.
func (c *Container) NewWorker() (*gateway.Worker, error) {
	if c == nil || c.workerDeps == nil {
		return nil, fmt.Errorf("worker dependencies not initialized")
	}
	return gateway.NewWorker(c.workerDeps), nil
}

// Close releases infrastructure resources in reverse construction order.
func (c *Container) Close() {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all infrastructure services and returns a container capable
// of creating fully-wired workers. All heavy-weight initialization
// (DB/cache/AI) is performed here so the worker stays focused on job handling.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	// Cache and database
	var cacheSvc *cache.CacheService
	if cfg.Redis.Enabled {
		cacheSvc, err = cache.NewCacheService(cache.CacheConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache service: %w", err)
		}
		closers = append(closers, func() {
			_ = cacheSvc.Close()
		})
	} else {
		logger.Info("Redis disabled, pool caching and shared quota accounting off")
	}

	postgresSvc, err := database.NewPostgresService(cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres service: %w", err)
	}
	closers = append(closers, func() {
		_ = postgresSvc.Close()
	})

	// Candidate directory and snapshot history
	candidateRepo := directory.NewCandidateRepository(postgresSvc.GetDB(), logger)
	directorySvc := directory.NewService(candidateRepo, cacheSvc, logger)
	statsRepo := youtube.NewStatsRepository(postgresSvc.GetDB(), logger)

	// Ranking stack
	scorer := discovery.NewKeywordScorer(cfg.Discovery.ScoreWorkers, logger)

	var reranker discovery.Reranker
	if cfg.HasAIProvider() {
		modelManager, mmErr := ai.NewModelManager(ctx, ai.ModelManagerConfig{
			GeminiAPIKey:       cfg.Gemini.APIKey,
			OpenAIAPIKey:       cfg.OpenAI.APIKey,
			DefaultGeminiModel: cfg.Gemini.Model,
			DefaultOpenAIModel: cfg.OpenAI.Model,
			EnableFallback:     cfg.OpenAI.EnableFallback,
		}, logger)
		if mmErr != nil {
			return nil, fmt.Errorf("failed to create model manager: %w", mmErr)
		}
		reranker = ai.NewRerankService(modelManager, cfg.Discovery.AITimeout, logger)
	} else {
		logger.Info("No AI provider configured, discovery will use keyword scores only")
	}

	discoverySvc := discovery.NewService(scorer, reranker, cacheSvc, cfg.Discovery.CacheResults, logger)

	// Gateway primitives
	gatewayClient := gateway.NewClient(cfg.Gateway.ReplyURL, logger)
	gatewayWS := gateway.NewWebSocket(
		cfg.Gateway.WSURL,
		cfg.Gateway.WorkerID,
		constants.WebSocketConfig.MaxReconnectAttempts,
		constants.WebSocketConfig.ReconnectDelay,
		logger,
	)

	// Stats refresh (optional, needs at least one API key)
	var statsSvc *youtube.StatsService
	var syncer *youtube.StatsSyncer
	if len(cfg.YouTube.APIKeys) > 0 {
		svc, ytErr := youtube.NewStatsService(ctx, cfg.YouTube.APIKeys, cacheSvc, logger)
		if ytErr != nil {
			logger.Warn("Failed to initialize YouTube stats service (optional feature)", zap.Error(ytErr))
		} else {
			statsSvc = svc
			var scraper *youtube.Scraper
			if cfg.YouTube.EnableScraper {
				scraper = youtube.NewScraper(cfg.YouTube.ScraperBaseURL, cacheSvc, logger)
			}
			syncer = youtube.NewStatsSyncer(&youtube.SyncerDeps{
				Stats:    statsSvc,
				Scraper:  scraper,
				Repo:     statsRepo,
				Channels: candidateRepo,
				DirCache: directorySvc,
				Redis:    cacheSvc,
				Logger:   logger,
			}, youtube.SyncerConfig{
				Interval:   cfg.Sync.Interval,
				BatchSize:  cfg.Sync.BatchSize,
				ChannelIDs: cfg.Sync.ChannelIDs,
			})
			logger.Info("YouTube stats refresh enabled",
				zap.Int("api_keys", len(cfg.YouTube.APIKeys)),
				zap.Bool("scraper_fallback", cfg.YouTube.EnableScraper))
		}
	}

	deps := &gateway.WorkerDeps{
		WebSocket:    gatewayWS,
		Sender:       gatewayClient,
		Directory:    directorySvc,
		Matcher:      discoverySvc,
		WorkerID:     cfg.Gateway.WorkerID,
		DefaultLimit: cfg.Discovery.DefaultLimit,
		Logger:       logger,
	}

	return &Container{
		Config:     cfg,
		Logger:     logger,
		Directory:  directorySvc,
		Discovery:  discoverySvc,
		StatsRepo:  statsRepo,
		Stats:      statsSvc,
		Syncer:     syncer,
		workerDeps: deps,
		closers:    closers,
	}, nil
}
