package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/castora/creatormatch-go/internal/config"
	"github.com/castora/creatormatch-go/internal/service/youtube"
	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

// CLI flags
var (
	channelID = flag.String("channel", "", "YouTube channel ID to verify (required)")
	timeout   = flag.Duration("timeout", 5*time.Minute, "Overall timeout, including the consent flow")
)

// Influencer onboarding requires proof that the person linking a channel
// actually owns it. This tool runs the OAuth consent flow and checks the
// channel against the authorized account's own channels.
func main() {
	flag.Parse()

	if *channelID == "" {
		fmt.Fprintln(os.Stderr, "-channel is required")
		flag.Usage()
		os.Exit(2)
	}

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

	oauthSvc, err := youtube.NewOAuthService(cfg.YouTube.OAuthCredFile, cfg.YouTube.OAuthTokenFile, logger)
	if err != nil {
		logger.Fatal("Failed to initialize OAuth service", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if !oauthSvc.IsAuthorized() {
		if err := oauthSvc.Authorize(ctx); err != nil {
			logger.Fatal("Authorization failed", zap.Error(err))
		}
	}

	owned, err := oauthSvc.VerifyChannelOwnership(ctx, *channelID)
	if err != nil {
		logger.Fatal("Verification failed", zap.Error(err))
	}

	if !owned {
		fmt.Printf("channel %s is NOT owned by the authorized account\n", *channelID)
		os.Exit(1)
	}

	fmt.Printf("channel %s ownership verified\n", *channelID)
}
