package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/service/cache"
	"go.uber.org/zap"
)

const scraperTimeout = 15 * time.Second

var (
	subscriberPattern = regexp.MustCompile(`"subscriberCountText"\s*:\s*\{[^}]*"simpleText"\s*:\s*"([^"]+)"`)
	videoCountPattern = regexp.MustCompile(`"videosCountText"\s*:\s*\{"runs"\s*:\s*\[\{"text"\s*:\s*"([\d,]+)"`)
	viewCountPattern  = regexp.MustCompile(`"viewCountText"\s*:\s*\{"simpleText"\s*:\s*"([\d,]+) views"`)
)

// Scraper pulls channel statistics off the public channel page when the
// Data API has no quota left. The numbers are abbreviated ("1.2M
// subscribers") so they are approximations, cached briefly, and only used
// to keep syncs moving until the quota resets.
type Scraper struct {
	httpClient *http.Client
	redis      *cache.CacheService
	logger     *zap.Logger
	baseURL    string
}

func NewScraper(baseURL string, redis *cache.CacheService, logger *zap.Logger) *Scraper {
	return &Scraper{
		httpClient: &http.Client{
			Timeout: scraperTimeout,
		},
		redis:   redis,
		logger:  logger,
		baseURL: baseURL,
	}
}

// FetchChannelStats scrapes the channel's about page for one snapshot.
func (s *Scraper) FetchChannelStats(ctx context.Context, channelID string) (*domain.ChannelSnapshot, error) {
	cacheKey := fmt.Sprintf("scraper:channel:%s", channelID)
	if s.redis != nil {
		var cached domain.ChannelSnapshot
		if err := s.redis.Get(ctx, cacheKey, &cached); err == nil && cached.ChannelID != "" {
			s.logger.Debug("Scraper cache hit", zap.String("channel", channelID))
			return &cached, nil
		}
	}

	s.logger.Info("Fetching channel page (FALLBACK MODE)",
		zap.String("channel", channelID))

	snapshot, err := s.scrapeAboutPage(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("scraper failed: %w", err)
	}

	if s.redis != nil {
		if err := s.redis.Set(ctx, cacheKey, snapshot, constants.YouTubeQuota.ScraperFallbackTTL); err != nil {
			s.logger.Warn("Failed to cache scraped snapshot", zap.Error(err))
		}
	}

	s.logger.Info("Scraper completed",
		zap.String("channel", channelID),
		zap.Uint64("subscribers", snapshot.SubscriberCount))

	return snapshot, nil
}

func (s *Scraper) scrapeAboutPage(ctx context.Context, channelID string) (*domain.ChannelSnapshot, error) {
	pageURL := fmt.Sprintf("%s/channel/%s/about", s.baseURL, channelID)

	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; CreatorMatchBot/1.0)")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("HTML parse failed: %w", err)
	}

	snapshot := &domain.ChannelSnapshot{
		ChannelID: channelID,
		Source:    domain.StatsSourceScraper,
		FetchedAt: time.Now(),
	}

	if title, exists := doc.Find(`meta[property="og:title"]`).Attr("content"); exists {
		snapshot.ChannelTitle = strings.TrimSpace(title)
	}

	found := false
	doc.Find("script").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		text := sel.Text()

		if match := subscriberPattern.FindStringSubmatch(text); match != nil {
			if count, err := parseAbbreviatedCount(match[1]); err == nil {
				snapshot.SubscriberCount = count
				found = true
			}
		}

		if match := videoCountPattern.FindStringSubmatch(text); match != nil {
			if count, err := parseGroupedCount(match[1]); err == nil {
				snapshot.VideoCount = count
			}
		}

		if match := viewCountPattern.FindStringSubmatch(text); match != nil {
			if count, err := parseGroupedCount(match[1]); err == nil {
				snapshot.ViewCount = count
			}
		}

		return !found
	})

	if !found {
		return nil, &StructureChangedError{
			ChannelID: channelID,
			Message:   "no subscriber count found - page structure may have changed",
		}
	}

	return snapshot, nil
}

// parseAbbreviatedCount converts display strings like "1.23M subscribers"
// or "524K subscribers" into an approximate count.
func parseAbbreviatedCount(text string) (uint64, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	text = strings.TrimSuffix(text, " SUBSCRIBERS")
	text = strings.TrimSuffix(text, " SUBSCRIBER")
	text = strings.TrimSpace(text)

	multiplier := float64(1)
	switch {
	case strings.HasSuffix(text, "K"):
		multiplier = 1_000
		text = strings.TrimSuffix(text, "K")
	case strings.HasSuffix(text, "M"):
		multiplier = 1_000_000
		text = strings.TrimSuffix(text, "M")
	case strings.HasSuffix(text, "B"):
		multiplier = 1_000_000_000
		text = strings.TrimSuffix(text, "B")
	}

	text = strings.ReplaceAll(text, ",", "")
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("could not parse count %q: %w", text, err)
	}
	if value < 0 {
		return 0, fmt.Errorf("negative count %q", text)
	}

	return uint64(value * multiplier), nil
}

// parseGroupedCount converts comma-grouped integers like "1,234".
func parseGroupedCount(text string) (uint64, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", "")
	return strconv.ParseUint(text, 10, 64)
}

// StructureChangedError signals that the channel page no longer matches
// the selectors the scraper knows about.
type StructureChangedError struct {
	ChannelID string
	Message   string
}

func (e *StructureChangedError) Error() string {
	return fmt.Sprintf("%s (channel: %s)", e.Message, e.ChannelID)
}

// IsStructureError reports whether err is a StructureChangedError anywhere
// in its chain.
func IsStructureError(err error) bool {
	var structureErr *StructureChangedError
	return errors.As(err, &structureErr)
}
