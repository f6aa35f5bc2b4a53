//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/castora/creatormatch-go/internal/config"
	"github.com/castora/creatormatch-go/internal/service/youtube"
	"go.uber.org/zap"
)

// Manual probe for the channel scraper. Run with:
//
//	go run test_scraper.go [channelID]
//
// Compares the scraped numbers against the Data API when a key is set.
func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Google Developers channel, stable and public.
	channelID := "UC_x5XG1OV2P6uZZ5FSM9Ttw"
	if len(os.Args) > 1 {
		channelID = os.Args[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scraper := youtube.NewScraper(cfg.YouTube.ScraperBaseURL, nil, logger)

	fmt.Println("\n=== Test 1: Scraping channel about page ===")
	snapshot, err := scraper.FetchChannelStats(ctx, channelID)
	if err != nil {
		logger.Error("❌ Scrape failed", zap.Error(err))
	} else {
		fmt.Printf("✅ Scraped %s\n", channelID)
		fmt.Printf("  Title: %s\n", snapshot.ChannelTitle)
		fmt.Printf("  Subscribers: %d\n", snapshot.SubscriberCount)
		fmt.Printf("  Videos: %d\n", snapshot.VideoCount)
		fmt.Printf("  Views: %d\n", snapshot.ViewCount)
		fmt.Printf("  Source: %s\n", snapshot.Source)
	}

	if len(cfg.YouTube.APIKeys) == 0 {
		fmt.Println("\nNo YOUTUBE_API_KEY set, skipping API comparison")
		return
	}

	fmt.Println("\n=== Test 2: Comparing against Data API ===")
	stats, err := youtube.NewStatsService(ctx, cfg.YouTube.APIKeys, nil, logger)
	if err != nil {
		logger.Fatal("Failed to create stats service", zap.Error(err))
	}

	apiSnapshots, err := stats.FetchChannelStats(ctx, []string{channelID})
	if err != nil {
		logger.Error("❌ API fetch failed", zap.Error(err))
	} else if apiSnapshot, ok := apiSnapshots[channelID]; ok {
		fmt.Printf("✅ API reports %d subscribers, %d videos, %d views\n",
			apiSnapshot.SubscriberCount, apiSnapshot.VideoCount, apiSnapshot.ViewCount)
		if snapshot != nil {
			fmt.Printf("  Scraper/API subscriber delta: %d\n",
				int64(snapshot.SubscriberCount)-int64(apiSnapshot.SubscriberCount))
		}
	}

	fmt.Println("\n=== All tests completed ===")
}
