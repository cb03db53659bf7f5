package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/prompts"
)

// GenerationStrategy is the synthesis procedure for one complexity tier.
// The set of strategies is closed: EasyStrategy, NonNestedStrategy and
// NestedStrategy.
type GenerationStrategy interface {
	Tier() models.ComplexityTier
	BuildPrompt(in prompts.GenerationInput) string
	strategy()
}

// EasyStrategy generates single-entity filters against the linked tables.
type EasyStrategy struct{}

func (EasyStrategy) Tier() models.ComplexityTier { return models.TierEasy }
func (EasyStrategy) BuildPrompt(in prompts.GenerationInput) string {
	return prompts.BuildEasyPrompt(in)
}
func (EasyStrategy) strategy() {}

// NonNestedStrategy generates joins, traversals and flat aggregations.
type NonNestedStrategy struct{}

func (NonNestedStrategy) Tier() models.ComplexityTier { return models.TierNonNested }
func (NonNestedStrategy) BuildPrompt(in prompts.GenerationInput) string {
	return prompts.BuildNonNestedPrompt(in)
}
func (NonNestedStrategy) strategy() {}

// NestedStrategy plans the inner sub-result before the outer query.
type NestedStrategy struct{}

func (NestedStrategy) Tier() models.ComplexityTier { return models.TierNested }
func (NestedStrategy) BuildPrompt(in prompts.GenerationInput) string {
	return prompts.BuildNestedPrompt(in)
}
func (NestedStrategy) strategy() {}

var strategies = map[models.ComplexityTier]GenerationStrategy{
	models.TierEasy:      EasyStrategy{},
	models.TierNonNested: NonNestedStrategy{},
	models.TierNested:    NestedStrategy{},
}

// StrategyFor returns the strategy of a tier.
func StrategyFor(tier models.ComplexityTier) (GenerationStrategy, error) {
	s, ok := strategies[tier]
	if !ok {
		return nil, fmt.Errorf("no generation strategy for tier %q", tier)
	}
	return s, nil
}

// QueryGenerator produces the first candidate of a session.
type QueryGenerator interface {
	// Generate always returns a candidate with Iteration 0. When the
	// provider fails or its answer holds no code block the candidate is a
	// sentinel carrying the failure. The error is non-nil only when ctx is
	// done.
	Generate(ctx context.Context, question models.Question, links models.SchemaLinkSet, tier models.ComplexityTier, d *models.SchemaDescriptor) (models.CandidateQuery, error)
}

type queryGenerator struct {
	provider llm.Provider
	cfg      models.ResolverConfig
	logger   *zap.Logger
}

func NewQueryGenerator(provider llm.Provider, cfg models.ResolverConfig, logger *zap.Logger) QueryGenerator {
	return &queryGenerator{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Named("generator"),
	}
}

var _ QueryGenerator = (*queryGenerator)(nil)

func (g *queryGenerator) Generate(ctx context.Context, question models.Question, links models.SchemaLinkSet, tier models.ComplexityTier, d *models.SchemaDescriptor) (models.CandidateQuery, error) {
	strategy, err := StrategyFor(tier)
	if err != nil {
		strategy = NestedStrategy{}
	}

	pc := llm.PromptContext{
		Component: llm.ComponentGenerator,
		System:    prompts.GeneratorSystem(d.Dialect),
		Prompt: strategy.BuildPrompt(prompts.GenerationInput{
			Question:   question,
			Links:      links,
			Descriptor: d,
		}),
	}
	return produceCandidate(ctx, g.provider, g.cfg, g.logger, pc, 0, d.Dialect, strategy.Tier())
}

// produceCandidate makes one generation call and extracts the last fenced
// block of the answer as the candidate text.
func produceCandidate(ctx context.Context, provider llm.Provider, cfg models.ResolverConfig, logger *zap.Logger, pc llm.PromptContext, iteration int, dialect models.Dialect, tier models.ComplexityTier) (models.CandidateQuery, error) {
	text, err := complete(ctx, provider, cfg, pc)
	if err != nil {
		if ctx.Err() != nil {
			return models.CandidateQuery{}, err
		}
		kind := apperrors.KindOf(err)
		logger.Warn("Generation call failed",
			zap.Int("iteration", iteration),
			zap.String("error_class", string(kind)),
			zap.String("error", logging.SanitizeError(err)))
		return models.SentinelCandidate(iteration, dialect, tier, kind, err.Error()), nil
	}

	block, ok := llm.LastCodeBlock(text)
	if !ok {
		logger.Info("Generation answer has no usable code block",
			zap.Int("iteration", iteration))
		return models.SentinelCandidate(iteration, dialect, tier, apperrors.KindNoQueryProduced,
			"answer ended without a non-empty fenced query block"), nil
	}

	return models.CandidateQuery{
		Iteration: iteration,
		Dialect:   dialect,
		Text:      block.Body,
		Tier:      tier,
		CreatedAt: time.Now().UTC(),
	}, nil
}
