package discovery

import (
	"testing"

	"github.com/castora/creatormatch-go/internal/domain"
	"go.uber.org/zap"
)

func newTestScorer() *KeywordScorer {
	return NewKeywordScorer(4, zap.NewNop())
}

func technerd() domain.Candidate {
	return domain.Candidate{
		ID:       "cand-1",
		Username: "technerd",
		Channels: []domain.ChannelSummary{
			{
				Title:           "Tech Reviews",
				Niche:           "Technology",
				SubscriberCount: 150_000,
			},
		},
	}
}

func TestScoreAdditiveSignals(t *testing.T) {
	scorer := newTestScorer()

	cases := []struct {
		name      string
		candidate domain.Candidate
		keywords  []string
		niche     string
		want      float64
	}{
		{
			// 15 username + 25 channel niche tag + 15 keyword in title +
			// 10 subscriber tier + 5 activity
			name:      "keyword and niche hits stack",
			candidate: technerd(),
			keywords:  []string{"tech"},
			niche:     "Technology",
			want:      70,
		},
		{
			// only the subscriber tier and activity bonus remain
			name:      "no keywords no niche",
			candidate: technerd(),
			keywords:  nil,
			niche:     "",
			want:      15,
		},
		{
			name: "no signals at all",
			candidate: domain.Candidate{
				Username: "quietperson",
				FullName: "Quiet Person",
			},
			keywords: []string{"gaming"},
			niche:    "travel",
			want:     0,
		},
		{
			name: "substring matching is case-insensitive",
			candidate: domain.Candidate{
				Username: "unrelated",
				FullName: "The BIOTECH Review",
			},
			keywords: []string{"TeCh"},
			niche:    "",
			want:     10,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := scorer.Score(&tc.candidate, tc.keywords, tc.niche)
			if got != tc.want {
				t.Fatalf("expected score %v, got %v", tc.want, got)
			}
		})
	}
}

func TestScoreCapsAtMax(t *testing.T) {
	scorer := newTestScorer()

	candidate := domain.Candidate{
		Username: "gaming guru",
		FullName: "gaming guru",
		Channels: []domain.ChannelSummary{
			{Title: "gaming one", Description: "gaming daily", Niche: "gaming", SubscriberCount: 2_000_000},
			{Title: "gaming two", Description: "gaming weekly", Niche: "gaming", SubscriberCount: 2_000_000},
			{Title: "gaming three", Description: "gaming monthly", Niche: "gaming", SubscriberCount: 2_000_000},
		},
	}

	got := scorer.Score(&candidate, []string{"gaming"}, "gaming")
	if got != 100 {
		t.Fatalf("expected score capped at 100, got %v", got)
	}
}

func TestScoreNicheChannelBonusIsExclusive(t *testing.T) {
	scorer := newTestScorer()

	// Niche appears in title AND description but not in the niche tag:
	// only the title bonus (20) applies, not 20+10.
	candidate := domain.Candidate{
		Username: "host",
		Channels: []domain.ChannelSummary{
			{
				Title:       "travel vlog",
				Description: "travel stories every week",
				Niche:       "lifestyle",
			},
		},
	}

	got := scorer.Score(&candidate, nil, "travel")
	want := 20.0 + 5.0 // title bonus + activity
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// With the niche tag set the tag bonus (25) wins over title and
	// description hits.
	candidate.Channels[0].Niche = "travel"
	got = scorer.Score(&candidate, nil, "travel")
	want = 25.0 + 5.0
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScoreSubscriberTierIsExclusive(t *testing.T) {
	scorer := newTestScorer()

	// Thresholds are strict: exactly 10k/100k/1M stays in the lower tier.
	// Expected values include the +5 activity bonus.
	cases := []struct {
		name        string
		subscribers int64
		want        float64
	}{
		{"below low threshold", 10_000, 5},
		{"just above low", 10_001, 10},
		{"at mid threshold", 100_000, 10},
		{"above mid", 100_001, 15},
		{"at high threshold", 1_000_000, 15},
		{"above high", 1_000_001, 20},
		{"far above high", 50_000_000, 20},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			candidate := domain.Candidate{
				Username: "host",
				Channels: []domain.ChannelSummary{
					{Title: "plain", SubscriberCount: tc.subscribers},
				},
			}
			got := scorer.Score(&candidate, nil, "")
			if got != tc.want {
				t.Fatalf("expected %v for %d subscribers, got %v", tc.want, tc.subscribers, got)
			}
		})
	}
}

func TestScoreKeywordTitleAndDescriptionStack(t *testing.T) {
	scorer := newTestScorer()

	// Unlike the niche bonus, keyword hits in title and description are
	// independent: 15 + 5 for the same keyword.
	candidate := domain.Candidate{
		Username: "host",
		Channels: []domain.ChannelSummary{
			{
				Title:       "fitness first",
				Description: "fitness routines for beginners",
			},
		},
	}

	got := scorer.Score(&candidate, []string{"fitness"}, "")
	want := 15.0 + 5.0 + 5.0 // title + description + activity
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScorePoolDropsZeroScores(t *testing.T) {
	scorer := newTestScorer()

	candidates := []domain.Candidate{
		technerd(),
		{ID: "cand-2", Username: "cookingfan"},
		{ID: "cand-3", Username: "techie", Channels: []domain.ChannelSummary{{Title: "stream"}}},
	}

	scored := scorer.ScorePool(candidates, []string{"tech"}, "")
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(scored))
	}

	// Index-addressed fan-out keeps input order.
	if scored[0].Candidate.ID != "cand-1" || scored[1].Candidate.ID != "cand-3" {
		t.Fatalf("expected pool order preserved, got %s then %s",
			scored[0].Candidate.ID, scored[1].Candidate.ID)
	}

	for _, sc := range scored {
		if sc.BaseScore != sc.FinalScore {
			t.Fatalf("expected FinalScore to start at BaseScore, got base=%v final=%v",
				sc.BaseScore, sc.FinalScore)
		}
		if sc.BaseScore <= 0 || sc.BaseScore > 100 {
			t.Fatalf("score out of range: %v", sc.BaseScore)
		}
	}
}

func TestScorePoolEmptyInput(t *testing.T) {
	scorer := newTestScorer()

	scored := scorer.ScorePool(nil, []string{"tech"}, "tech")
	if len(scored) != 0 {
		t.Fatalf("expected empty result for empty pool, got %d", len(scored))
	}
}

func TestMatchingKeywordsPreservesOrder(t *testing.T) {
	candidate := technerd()
	candidate.FullName = "Gadget Geek"

	matched := MatchingKeywords(&candidate, []string{"reviews", "tech", "travel", "gadget", ""})
	want := []string{"reviews", "tech", "gadget"}
	if len(matched) != len(want) {
		t.Fatalf("expected %v, got %v", want, matched)
	}
	for i := range want {
		if matched[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, matched)
		}
	}
}
