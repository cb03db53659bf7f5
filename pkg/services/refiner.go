package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/prompts"
)

// Refiner revises a failing candidate using execution feedback.
type Refiner interface {
	// Repair increments rc.IterationCount by one and returns the candidate
	// for that iteration. Like generation, a failed call or an answer with
	// no code block yields a sentinel; the error is non-nil only when ctx
	// is done.
	Repair(ctx context.Context, rc *models.RepairContext) (models.CandidateQuery, error)
}

type refiner struct {
	provider llm.Provider
	cfg      models.ResolverConfig
	logger   *zap.Logger
}

func NewRefiner(provider llm.Provider, cfg models.ResolverConfig, logger *zap.Logger) Refiner {
	return &refiner{
		provider: provider,
		cfg:      cfg,
		logger:   logger.Named("refiner"),
	}
}

var _ Refiner = (*refiner)(nil)

func (r *refiner) Repair(ctx context.Context, rc *models.RepairContext) (models.CandidateQuery, error) {
	if err := ctx.Err(); err != nil {
		return models.CandidateQuery{}, err
	}
	rc.IterationCount++

	pc := llm.PromptContext{
		Component: llm.ComponentRefiner,
		System:    prompts.GeneratorSystem(rc.Descriptor.Dialect),
		Prompt:    prompts.BuildRepairPrompt(rc),
	}
	return produceCandidate(ctx, r.provider, r.cfg, r.logger, pc, rc.IterationCount, rc.Descriptor.Dialect, rc.Tier)
}
