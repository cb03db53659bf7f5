package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
)

// Executor runs one candidate against one partition. It never retries.
type Executor interface {
	// Run returns the classified outcome. A sentinel candidate fails with
	// its own kind without reaching the store. The error is non-nil only
	// for an unknown partition or when ctx is done.
	Run(ctx context.Context, candidate models.CandidateQuery, key models.PartitionKey) (models.ExecutionResult, error)
}

type executor struct {
	store  partition.Store
	opts   partition.ExecuteOptions
	logger *zap.Logger
}

func NewExecutor(store partition.Store, cfg models.ResolverConfig, logger *zap.Logger) Executor {
	return &executor{
		store: store,
		opts: partition.ExecuteOptions{
			Timeout: cfg.ExecuteTimeout,
			MaxRows: cfg.MaxRows,
		},
		logger: logger.Named("executor"),
	}
}

var _ Executor = (*executor)(nil)

func (e *executor) Run(ctx context.Context, candidate models.CandidateQuery, key models.PartitionKey) (models.ExecutionResult, error) {
	if err := ctx.Err(); err != nil {
		return models.ExecutionResult{}, err
	}
	if candidate.Sentinel {
		return models.FailedResult(candidate.SentinelKind, candidate.SentinelDetail), nil
	}

	result, err := e.store.Execute(ctx, key, candidate.Dialect, candidate.Text, e.opts)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	if result.Succeeded {
		e.logger.Debug("Candidate executed",
			zap.Int("iteration", candidate.Iteration),
			zap.Int("rows", result.RowCount),
			zap.Duration("duration", result.Duration))
	} else {
		e.logger.Debug("Candidate failed",
			zap.Int("iteration", candidate.Iteration),
			zap.String("error_class", string(result.ErrorClass)))
	}
	return result, nil
}
