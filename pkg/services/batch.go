package services

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// DefaultBatchConcurrency is used when the runner is given no limit.
const DefaultBatchConcurrency = 8

// ProgressCallback reports batch progress after each finished item.
type ProgressCallback func(current, total int, message string)

// BatchItem is one question of a batch. Partition uses the key syntax
// accepted by models.ParsePartitionKey.
type BatchItem struct {
	ID        string          `json:"id"`
	Question  models.Question `json:"question"`
	Partition string          `json:"partition"`
}

// BatchResult pairs an item with its outcome. Error is set when the
// session could not start or failed fatally.
type BatchResult struct {
	ID         string             `json:"id"`
	Resolution *models.Resolution `json:"resolution,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// BatchSummary counts results by outcome.
type BatchSummary struct {
	Total     int `json:"total"`
	Resolved  int `json:"resolved"`
	Exhausted int `json:"exhausted"`
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

// BatchRunner runs independent sessions on a bounded pool.
type BatchRunner struct {
	resolver    Resolver
	concurrency int
	logger      *zap.Logger
}

func NewBatchRunner(resolver Resolver, concurrency int, logger *zap.Logger) *BatchRunner {
	if concurrency <= 0 {
		concurrency = DefaultBatchConcurrency
	}
	return &BatchRunner{
		resolver:    resolver,
		concurrency: concurrency,
		logger:      logger.Named("batch"),
	}
}

// Run resolves every item and returns results in input order. One item's
// failure never stops the others; cancelling ctx ends the remaining
// sessions as CANCELLED.
func (b *BatchRunner) Run(ctx context.Context, items []BatchItem, cfg models.ResolverConfig, progress ProgressCallback) []BatchResult {
	results := make([]BatchResult, len(items))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = b.runOne(ctx, item, cfg)
			n := done.Add(1)
			if progress != nil {
				progress(int(n), len(items), item.ID)
			}
			return nil
		})
	}
	_ = g.Wait()

	s := Summarize(results)
	b.logger.Info("Batch finished",
		zap.Int("total", s.Total),
		zap.Int("resolved", s.Resolved),
		zap.Int("exhausted", s.Exhausted),
		zap.Int("cancelled", s.Cancelled),
		zap.Int("failed", s.Failed))
	return results
}

func (b *BatchRunner) runOne(ctx context.Context, item BatchItem, cfg models.ResolverConfig) BatchResult {
	result := BatchResult{ID: item.ID}

	key, err := models.ParsePartitionKey(item.Partition)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	res, err := b.resolver.Resolve(ctx, item.Question, key, cfg)
	if err != nil {
		b.logger.Warn("Batch item failed",
			zap.String("id", item.ID),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}
	result.Resolution = res
	return result
}

// Summarize counts results by terminal status.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		if r.Resolution == nil {
			s.Failed++
			continue
		}
		switch r.Resolution.Status {
		case models.StateResolved:
			s.Resolved++
		case models.StateExhausted:
			s.Exhausted++
		case models.StateCancelled:
			s.Cancelled++
		}
	}
	return s
}
