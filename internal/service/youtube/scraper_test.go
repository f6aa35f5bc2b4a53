package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/castora/creatormatch-go/internal/domain"
	"go.uber.org/zap"
)

func TestParseAbbreviatedCount(t *testing.T) {
	cases := []struct {
		input string
		want  uint64
	}{
		{"1.5M subscribers", 1_500_000},
		{"524K subscribers", 524_000},
		{"2.5K", 2_500},
		{"1B subscribers", 1_000_000_000},
		{"987 subscribers", 987},
		{"1 subscriber", 1},
		{"12,345", 12_345},
		{"1.5m subscribers", 1_500_000},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := parseAbbreviatedCount(tc.input)
			if err != nil {
				t.Fatalf("expected no error for %q, got %v", tc.input, err)
			}
			if got != tc.want {
				t.Fatalf("expected %d for %q, got %d", tc.want, tc.input, got)
			}
		})
	}
}

func TestParseAbbreviatedCountRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "unknown", "-5 subscribers"} {
		if _, err := parseAbbreviatedCount(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

func TestParseGroupedCount(t *testing.T) {
	cases := []struct {
		input string
		want  uint64
	}{
		{"1,234", 1_234},
		{"987654", 987_654},
		{"12,345,678", 12_345_678},
	}

	for _, tc := range cases {
		got, err := parseGroupedCount(tc.input)
		if err != nil {
			t.Fatalf("expected no error for %q, got %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("expected %d for %q, got %d", tc.want, tc.input, got)
		}
	}

	for _, input := range []string{"", "1.5", "many"} {
		if _, err := parseGroupedCount(input); err == nil {
			t.Fatalf("expected error for %q", input)
		}
	}
}

const aboutPage = `<!DOCTYPE html>
<html><head><meta property="og:title" content="Tech Reviews"></head>
<body><script>var ytInitialData = {"header":{"subscriberCountText":{"simpleText":"1.5M subscribers"},"videosCountText":{"runs":[{"text":"1,042"}]},"viewCountText":{"simpleText":"987,654,321 views"}}};</script></body></html>`

func TestFetchChannelStatsScrapesAboutPage(t *testing.T) {
	var gotPath, gotAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAgent = r.Header.Get("User-Agent")
		fmt.Fprint(w, aboutPage)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL, nil, zap.NewNop())

	snapshot, err := scraper.FetchChannelStats(context.Background(), "UC123")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotPath != "/channel/UC123/about" {
		t.Fatalf("expected about page path, got %s", gotPath)
	}
	if !strings.Contains(gotAgent, "CreatorMatchBot") {
		t.Fatalf("expected identifying user agent, got %q", gotAgent)
	}

	if snapshot.ChannelID != "UC123" {
		t.Fatalf("expected channel id carried over, got %s", snapshot.ChannelID)
	}
	if snapshot.ChannelTitle != "Tech Reviews" {
		t.Fatalf("expected title from og:title, got %q", snapshot.ChannelTitle)
	}
	if snapshot.SubscriberCount != 1_500_000 {
		t.Fatalf("expected 1.5M subscribers, got %d", snapshot.SubscriberCount)
	}
	if snapshot.VideoCount != 1_042 {
		t.Fatalf("expected 1042 videos, got %d", snapshot.VideoCount)
	}
	if snapshot.ViewCount != 987_654_321 {
		t.Fatalf("expected grouped view count, got %d", snapshot.ViewCount)
	}
	if snapshot.Source != domain.StatsSourceScraper {
		t.Fatalf("expected scraper source, got %s", snapshot.Source)
	}
}

func TestScrapeAboutPageStructureChange(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><script>var ytInitialData = {};</script></body></html>`)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL, nil, zap.NewNop())

	_, err := scraper.scrapeAboutPage(context.Background(), "UC123")
	if err == nil {
		t.Fatalf("expected error when subscriber count is missing")
	}
	if !IsStructureError(err) {
		t.Fatalf("expected structure change error, got %v", err)
	}
	if !IsStructureError(fmt.Errorf("scraper failed: %w", err)) {
		t.Fatalf("expected wrapped structure error to match")
	}
}

func TestScrapeAboutPageRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	scraper := NewScraper(server.URL, nil, zap.NewNop())

	_, err := scraper.scrapeAboutPage(context.Background(), "UC404")
	if err == nil || !strings.Contains(err.Error(), "unexpected status code") {
		t.Fatalf("expected status error, got %v", err)
	}
}
