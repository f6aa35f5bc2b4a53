package discovery

import (
	"strings"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/util"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ScoredCandidate carries a candidate through the ranking pipeline. Until
// the AI pass runs (or when it is skipped), FinalScore equals BaseScore.
type ScoredCandidate struct {
	Candidate  domain.Candidate
	BaseScore  float64
	FinalScore float64
	AIReason   string
}

// KeywordScorer ranks candidates by textual and subscriber signals so that
// only a small top slice needs the expensive AI pass. Matching is
// case-insensitive substring containment throughout ("tech" matches
// "biotech"); that is deliberate and must not be tightened to word
// boundaries.
type KeywordScorer struct {
	workers int
	logger  *zap.Logger
}

func NewKeywordScorer(workers int, logger *zap.Logger) *KeywordScorer {
	if workers <= 0 {
		workers = constants.DiscoveryLimits.MaxScoreWorkers
	}
	return &KeywordScorer{
		workers: workers,
		logger:  logger,
	}
}

// Score computes the additive keyword score for one candidate, in [0, 100].
//
// Points per keyword: +15 in the username, +10 in the full name. A non-empty
// niche adds +20/+15 the same way. Each channel then contributes a niche
// bonus (mutually exclusive, highest priority first: +25 niche tag, +20
// title, +10 description), keyword hits (+15 title and +5 description,
// independently), and exactly one subscriber-tier bonus. Candidates with at
// least one channel get a flat +5. The raw sum is capped at 100, never
// normalized.
func (s *KeywordScorer) Score(candidate *domain.Candidate, keywords []string, niche string) float64 {
	var total float64

	username := util.Normalize(candidate.Username)
	fullName := util.Normalize(candidate.FullName)
	nicheTerm := util.Normalize(niche)
	terms := normalizeTerms(keywords)

	for _, term := range terms {
		if strings.Contains(username, term) {
			total += constants.Score.KeywordInUsername
		}
		if strings.Contains(fullName, term) {
			total += constants.Score.KeywordInFullName
		}
	}

	if nicheTerm != "" {
		if strings.Contains(username, nicheTerm) {
			total += constants.Score.NicheInUsername
		}
		if strings.Contains(fullName, nicheTerm) {
			total += constants.Score.NicheInFullName
		}
	}

	for i := range candidate.Channels {
		total += scoreChannel(&candidate.Channels[i], terms, nicheTerm)
	}

	if candidate.HasChannels() {
		total += constants.Score.ActivityBonus
	}

	if total > constants.Score.Max {
		total = constants.Score.Max
	}

	return total
}

func scoreChannel(channel *domain.ChannelSummary, terms []string, nicheTerm string) float64 {
	var total float64

	title := util.Normalize(channel.Title)
	description := util.Normalize(channel.Description)
	nicheTag := util.Normalize(channel.Niche)

	// One niche bonus per channel, highest priority first
	if nicheTerm != "" {
		switch {
		case strings.Contains(nicheTag, nicheTerm):
			total += constants.Score.NicheInChannelTag
		case strings.Contains(title, nicheTerm):
			total += constants.Score.NicheInChannelTitle
		case strings.Contains(description, nicheTerm):
			total += constants.Score.NicheInChannelDesc
		}
	}

	for _, term := range terms {
		if strings.Contains(title, term) {
			total += constants.Score.KeywordInChannelTitle
		}
		if strings.Contains(description, term) {
			total += constants.Score.KeywordInChannelDesc
		}
	}

	// One subscriber tier per channel
	switch {
	case channel.SubscriberCount > constants.SubscriberTiers.High:
		total += constants.Score.SubscriberTierHigh
	case channel.SubscriberCount > constants.SubscriberTiers.Mid:
		total += constants.Score.SubscriberTierMid
	case channel.SubscriberCount > constants.SubscriberTiers.Low:
		total += constants.Score.SubscriberTierLow
	}

	return total
}

// ScorePool scores every candidate and drops non-matches (score 0). Scoring
// fans out over a bounded goroutine pool; results land in an index-addressed
// slice, so the output order tracks the input order no matter which
// goroutine finishes first.
func (s *KeywordScorer) ScorePool(candidates []domain.Candidate, keywords []string, niche string) []ScoredCandidate {
	if len(candidates) == 0 {
		return []ScoredCandidate{}
	}

	scores := make([]float64, len(candidates))

	p := pool.New().WithMaxGoroutines(s.workers)
	for i := range candidates {
		idx := i
		p.Go(func() {
			scores[idx] = s.Score(&candidates[idx], keywords, niche)
		})
	}
	p.Wait()

	scored := make([]ScoredCandidate, 0, len(candidates))
	for i, score := range scores {
		if score <= 0 {
			continue
		}
		scored = append(scored, ScoredCandidate{
			Candidate:  candidates[i],
			BaseScore:  score,
			FinalScore: score,
		})
	}

	s.logger.Debug("Pool scored",
		zap.Int("candidates", len(candidates)),
		zap.Int("matched", len(scored)),
	)

	return scored
}

// MatchingKeywords returns the keywords that hit any of the candidate's
// text fields, preserving the input order. Truncation for display happens
// at result assembly, not here.
func MatchingKeywords(candidate *domain.Candidate, keywords []string) []string {
	matched := make([]string, 0, len(keywords))

	username := util.Normalize(candidate.Username)
	fullName := util.Normalize(candidate.FullName)

	for _, keyword := range keywords {
		term := util.Normalize(keyword)
		if term == "" {
			continue
		}

		if strings.Contains(username, term) || strings.Contains(fullName, term) {
			matched = append(matched, keyword)
			continue
		}

		for i := range candidate.Channels {
			title := util.Normalize(candidate.Channels[i].Title)
			description := util.Normalize(candidate.Channels[i].Description)
			if strings.Contains(title, term) || strings.Contains(description, term) {
				matched = append(matched, keyword)
				break
			}
		}
	}

	return matched
}

func normalizeTerms(keywords []string) []string {
	terms := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if term := util.Normalize(keyword); term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}
