package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/castora/creatormatch-go/internal/app"
	"github.com/castora/creatormatch-go/internal/config"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

// CLI flags
var (
	niche       = flag.String("niche", "", "Campaign niche, e.g. gaming")
	keywords    = flag.String("keywords", "", "Comma-separated campaign keywords")
	description = flag.String("description", "", "Free-form campaign description for the AI pass")
	limit       = flag.Int("limit", 0, "Maximum matches to return (0 = configured default)")
	candidateID = flag.String("candidate", "", "Print one directory record by influencer ID instead of running a discovery")
	timeout     = flag.Duration("timeout", 2*time.Minute, "Overall run timeout")
	pretty      = flag.Bool("pretty", true, "Indent JSON output")
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

	criteria := domain.Criteria{
		Niche:       strings.TrimSpace(*niche),
		Keywords:    parseKeywords(*keywords),
		Description: strings.TrimSpace(*description),
	}
	if *candidateID == "" && criteria.Niche == "" && len(criteria.Keywords) == 0 {
		fmt.Fprintln(os.Stderr, "at least one of -niche, -keywords or -candidate is required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	container, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble application services", zap.Error(err))
	}
	defer container.Close()

	if *candidateID != "" {
		candidate, err := container.Directory.GetCandidate(ctx, *candidateID)
		if err != nil {
			logger.Fatal("Failed to load candidate", zap.Error(err))
		}
		if candidate == nil {
			fmt.Fprintf(os.Stderr, "no influencer with ID %s\n", *candidateID)
			os.Exit(1)
		}
		printJSON(logger, candidate)
		return
	}

	pool, err := container.Directory.GetPool(ctx)
	if err != nil {
		logger.Fatal("Failed to load candidate pool", zap.Error(err))
	}

	resultLimit := *limit
	if resultLimit <= 0 {
		resultLimit = cfg.Discovery.DefaultLimit
	}

	matches := container.Discovery.Discover(ctx, criteria, pool, resultLimit)
	printJSON(logger, matches)
}

func printJSON(logger *zap.Logger, v any) {
	var (
		data []byte
		err  error
	)
	if *pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		logger.Fatal("Failed to encode output", zap.Error(err))
	}

	fmt.Println(string(data))
}

func parseKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
