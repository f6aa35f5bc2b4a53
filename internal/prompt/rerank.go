package prompt

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
)

// Control character pattern (compiled once)
var controlCharsPattern = regexp.MustCompile(`[\x00-\x1F\x7F]`)

// Whitespace pattern (compiled once)
var whitespacePattern = regexp.MustCompile(`\s+`)

// BuildRerankPrompt builds the batched re-ranking prompt. Every candidate
// appears as one numbered summary line; the model must answer with a strict
// JSON array of {index, ai_score, reason} objects referring back to those
// numbers.
func BuildRerankPrompt(candidates []domain.Candidate, criteria domain.Criteria) string {
	summaries := make([]string, len(candidates))
	for i := range candidates {
		summaries[i] = fmt.Sprintf("%d. %s", i, CandidateSummary(&candidates[i]))
	}

	keywordList := criteria.Keywords
	if len(keywordList) > constants.AIInputLimits.MaxKeywords {
		keywordList = keywordList[:constants.AIInputLimits.MaxKeywords]
	}
	cleaned := make([]string, 0, len(keywordList))
	for _, keyword := range keywordList {
		if kw := sanitizeField(keyword, constants.AIInputLimits.MaxNicheLength); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}

	keywords := "none"
	if len(cleaned) > 0 {
		keywords = strings.Join(cleaned, ", ")
	}

	niche := sanitizeField(criteria.Niche, constants.AIInputLimits.MaxNicheLength)
	if niche == "" {
		niche = "unspecified"
	}

	description := sanitizeField(criteria.Description, constants.AIInputLimits.MaxDescriptionLength)
	if description == "" {
		description = "not provided"
	}

	return fmt.Sprintf(`You are an influencer marketing analyst matching creators to a sponsorship campaign.

**Campaign Niche:** %s
**Campaign Keywords:** %s
**Campaign Description:** %s

**Candidate Influencers:**
%s

**Task:** Rate how relevant each candidate is to this campaign, 0-100.

**Output JSON Format:**
[
  {"index": <number, 0-based position in the candidate list>, "ai_score": <number, 0 to 100>, "reason": "<one short sentence>"}
]

Return ONLY the JSON array, one entry per candidate. Do not invent indexes that are not in the list.`,
		niche,
		keywords,
		description,
		strings.Join(summaries, "\n"),
	)
}

// CandidateSummary renders the compact per-candidate line sent to the
// model: username, full name, and up to three channels as
// "<title> (<subscriber_count> subs)" joined by commas.
func CandidateSummary(candidate *domain.Candidate) string {
	parts := make([]string, 0, 3)

	if candidate.Username != "" {
		parts = append(parts, candidate.Username)
	}
	if candidate.FullName != "" {
		parts = append(parts, candidate.FullName)
	}

	channels := candidate.Channels
	if len(channels) > constants.DiscoveryLimits.MaxSummaryChannels {
		channels = channels[:constants.DiscoveryLimits.MaxSummaryChannels]
	}

	if len(channels) > 0 {
		lines := make([]string, len(channels))
		for i := range channels {
			lines[i] = fmt.Sprintf("%s (%d subs)", channels[i].Title, channels[i].SubscriberCount)
		}
		parts = append(parts, "channels: "+strings.Join(lines, ", "))
	}

	if len(parts) == 0 {
		return "(unnamed candidate)"
	}

	return strings.Join(parts, " / ")
}

// sanitizeField strips control characters, collapses whitespace, and caps
// the length of free-text campaign fields before they reach the prompt.
func sanitizeField(input string, maxLen int) string {
	withoutControl := controlCharsPattern.ReplaceAllString(input, " ")

	normalized := whitespacePattern.ReplaceAllString(withoutControl, " ")
	trimmed := strings.TrimSpace(normalized)

	if trimmed == "" {
		return ""
	}

	if len(trimmed) > maxLen {
		return trimmed[:maxLen]
	}

	return trimmed
}
