package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/castora/creatormatch-go/internal/app"
	"github.com/castora/creatormatch-go/internal/config"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

// CLI flags
var (
	once    = flag.Bool("once", true, "Run a single sync pass and exit (false = run on the configured interval)")
	timeout = flag.Duration("timeout", 10*time.Minute, "Timeout for a single pass")
	history = flag.String("history", "", "Print the stored snapshot history for a YouTube channel ID and exit")
	window  = flag.Duration("window", 30*24*time.Hour, "History window for -history")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := util.NewLogger(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	buildCtx, buildCancel := context.WithTimeout(context.Background(), 30*time.Second)
	container, err := app.Build(buildCtx, cfg, logger)
	buildCancel()
	if err != nil {
		logger.Error("Failed to assemble application services", zap.Error(err))
		os.Exit(1)
	}
	defer container.Close()

	if *history != "" {
		printHistory(container, *history, *window, logger)
		return
	}

	if container.Syncer == nil {
		logger.Error("Stats sync requires at least one YouTube API key (YOUTUBE_API_KEY)")
		os.Exit(1)
	}

	if *once {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		container.Syncer.RunOnce(ctx)

		used, remaining, resetAt := container.Stats.GetQuotaStatus(ctx)
		logger.Info("Sync pass finished",
			zap.Int("quota_used", used),
			zap.Int("quota_remaining", remaining),
			zap.Time("quota_reset", resetAt),
		)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go container.Syncer.Start(ctx)
	logger.Info("Stats syncer started, waiting for signals...",
		zap.Duration("interval", cfg.Sync.Interval),
	)

	sig := <-sigCh
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	cancel()
	container.Syncer.Stop()
	logger.Info("Shutdown complete")
}

// printHistory dumps the stored snapshots for one channel as JSON. Works
// without API keys since it only reads the database.
func printHistory(container *app.Container, channelID string, window time.Duration, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	latest, err := container.StatsRepo.GetLatestSnapshot(ctx, channelID)
	if err != nil {
		logger.Fatal("Failed to load latest snapshot", zap.Error(err))
	}
	if latest == nil {
		fmt.Fprintf(os.Stderr, "no snapshots stored for channel %s\n", channelID)
		os.Exit(1)
	}

	snapshots, err := container.StatsRepo.GetSnapshotsSince(ctx, channelID, time.Now().Add(-window))
	if err != nil {
		logger.Fatal("Failed to load snapshot history", zap.Error(err))
	}

	out := struct {
		ChannelID string                    `json:"channel_id"`
		Latest    *domain.ChannelSnapshot   `json:"latest"`
		History   []*domain.ChannelSnapshot `json:"history"`
	}{channelID, latest, snapshots}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode history", zap.Error(err))
	}

	fmt.Println(string(data))
}
