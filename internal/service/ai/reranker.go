package ai

import (
	"context"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/internal/prompt"
	"github.com/castora/creatormatch-go/internal/service/discovery"
	"github.com/castora/creatormatch-go/internal/util"
	"go.uber.org/zap"
)

// jsonGenerator is the slice of ModelManager the reranker needs.
type jsonGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, preset ModelPreset, dest any, opts *GenerateOptions) (*GenerateMetadata, error)
}

// rerankEntry is one element of the model's response array.
type rerankEntry struct {
	Index   int     `json:"index"`
	AIScore float64 `json:"ai_score"`
	Reason  string  `json:"reason"`
}

// RerankService is the semantic re-ranking pass over the top keyword-scored
// candidates. It issues exactly one batched request per discovery and blends
// the returned scores into the final ranking. Every failure mode keeps the
// base scores: this pass enhances, it never blocks.
type RerankService struct {
	models  jsonGenerator
	timeout time.Duration
	logger  *zap.Logger
}

var _ discovery.Reranker = (*RerankService)(nil)

func NewRerankService(models jsonGenerator, timeout time.Duration, logger *zap.Logger) *RerankService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &RerankService{
		models:  models,
		timeout: timeout,
		logger:  logger,
	}
}

// Rerank sends the top candidates (already sorted descending by base score)
// to the model and blends each returned ai_score into the candidate's final
// score with the fixed base/AI weights. Candidates the model does not
// mention, and every candidate when the call or parse fails, keep their
// base score and carry no analysis text.
func (rs *RerankService) Rerank(ctx context.Context, candidates []discovery.ScoredCandidate, criteria domain.Criteria) []discovery.ScoredCandidate {
	if len(candidates) == 0 {
		return candidates
	}

	topLen := util.Min(len(candidates), constants.DiscoveryLimits.MaxRerankCandidates)
	top := make([]domain.Candidate, topLen)
	for i := 0; i < topLen; i++ {
		top[i] = candidates[i].Candidate
	}

	promptText := prompt.BuildRerankPrompt(top, criteria)

	ctx, cancel := context.WithTimeout(ctx, rs.timeout)
	defer cancel()

	var entries []rerankEntry
	metadata, err := rs.models.GenerateJSON(ctx, promptText, PresetPrecise, &entries, nil)
	if err != nil {
		rs.logger.Warn("AI rerank unavailable, keeping keyword scores", zap.Error(err))
		return candidates
	}

	applied := 0
	for _, entry := range entries {
		if entry.Index < 0 || entry.Index >= topLen {
			rs.logger.Warn("Rerank entry index out of range",
				zap.Int("index", entry.Index),
				zap.Int("candidates", topLen),
			)
			continue
		}

		aiScore := util.Clamp(0, entry.AIScore, constants.Score.Max)
		sc := &candidates[entry.Index]
		sc.FinalScore = sc.BaseScore*constants.Blend.Base + aiScore*constants.Blend.AI
		sc.AIReason = entry.Reason
		applied++
	}

	rs.logger.Info("AI rerank applied",
		zap.String("provider", metadata.Provider),
		zap.Bool("used_fallback", metadata.UsedFallback),
		zap.Int("scored", applied),
		zap.Int("sent", topLen),
	)

	return candidates
}
