package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-eda/pkg/cypher"
	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/logging"
	"github.com/ekaya-inc/ekaya-eda/pkg/models"
	"github.com/ekaya-inc/ekaya-eda/pkg/observability"
	"github.com/ekaya-inc/ekaya-eda/pkg/partition"
	sqlcheck "github.com/ekaya-inc/ekaya-eda/pkg/sql"
)

// statusFailed labels sessions that ended with a fatal error.
const statusFailed = "FAILED"

// Resolver answers questions against one partition at a time.
type Resolver interface {
	// Resolve runs one session to a terminal state. RESOLVED, EXHAUSTED
	// and CANCELLED all return a Resolution with the full history and a
	// nil error. An unknown partition, an invalid config or a linker
	// provider failure is fatal and returns a nil Resolution with an
	// *apperrors.Error (or a config error).
	Resolve(ctx context.Context, question models.Question, key models.PartitionKey, cfg models.ResolverConfig) (*models.Resolution, error)
}

type resolver struct {
	store    partition.Store
	provider llm.Provider
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewResolver creates a resolver. metrics may be nil.
func NewResolver(store partition.Store, provider llm.Provider, metrics *observability.Metrics, logger *zap.Logger) Resolver {
	return &resolver{
		store:    store,
		provider: provider,
		metrics:  metrics,
		logger:   logger.Named("resolver"),
	}
}

var _ Resolver = (*resolver)(nil)

func (r *resolver) Resolve(ctx context.Context, question models.Question, key models.PartitionKey, cfg models.ResolverConfig) (*models.Resolution, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid resolver config: %w", err)
	}
	descriptor, err := r.store.GetDescriptor(key)
	if err != nil {
		return nil, err
	}

	sessionID := uuid.New()
	logger := r.logger.With(
		zap.String("session_id", sessionID.String()),
		zap.String("partition", key.String()))
	recorder := llm.NewRecordingProvider(r.provider)

	ctx = llm.WithSessionContext(ctx, sessionID, key.String())
	ctx, span := observability.StartSpan(ctx, "session",
		attribute.String("session_id", sessionID.String()),
		attribute.String("partition", key.String()),
		attribute.Int("max_refine_iterations", cfg.MaxRefineIterations))

	s := &session{
		cfg:        cfg,
		key:        key,
		descriptor: descriptor,
		linker:     NewSchemaLinker(recorder, cfg, logger),
		classifier: NewComplexityClassifier(recorder, cfg, logger),
		generator:  NewQueryGenerator(recorder, cfg, logger),
		executor:   NewExecutor(r.store, cfg, logger),
		refiner:    NewRefiner(recorder, cfg, logger),
		recorder:   recorder,
		metrics:    r.metrics,
		logger:     logger,
		res: &models.Resolution{
			SessionID: sessionID,
			Question:  question,
			Partition: key,
			History:   []models.Attempt{},
			StartedAt: time.Now().UTC(),
		},
		rc: &models.RepairContext{
			Question:   question,
			Partition:  key,
			Descriptor: descriptor,
		},
	}

	r.metrics.SessionStarted()
	res, err := s.run(ctx)

	status := statusFailed
	if res != nil {
		status = string(res.Status)
		span.SetAttributes(
			attribute.String("status", status),
			attribute.Int("iteration_count", res.IterationCount))
	}
	r.metrics.SessionFinished(string(key.View), status, s.rc.IterationCount, time.Since(s.res.StartedAt))
	observability.EndSpan(span, err)
	return res, err
}

// session is the state of one resolution. It is owned by one goroutine
// and discarded when Resolve returns.
type session struct {
	cfg        models.ResolverConfig
	key        models.PartitionKey
	descriptor *models.SchemaDescriptor

	linker     SchemaLinker
	classifier ComplexityClassifier
	generator  QueryGenerator
	executor   Executor
	refiner    Refiner
	recorder   *llm.RecordingProvider

	metrics *observability.Metrics
	logger  *zap.Logger

	res        *models.Resolution
	rc         *models.RepairContext
	state      models.SessionState
	stateStart time.Time
}

func (s *session) run(ctx context.Context) (*models.Resolution, error) {
	s.enter(models.StateLinking)
	links, err := s.link(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return s.cancel(), nil
		}
		return nil, s.fail(err)
	}
	s.res.LinkSet = links
	s.rc.LinkSet = links

	s.enter(models.StateClassifying)
	tier, err := s.classify(ctx, links)
	if err != nil && ctx.Err() != nil {
		return s.cancel(), nil
	}
	s.res.Tier = tier
	s.rc.Tier = tier

	s.enter(models.StateGenerating)
	candidate, err := s.generate(ctx, links, tier)
	if err != nil {
		return s.cancel(), nil
	}

	for {
		s.enter(models.StateExecuting)
		result, err := s.execute(ctx, candidate)
		if err != nil {
			if ctx.Err() != nil {
				return s.cancel(), nil
			}
			return nil, s.fail(err)
		}
		s.rc.Append(models.Attempt{Candidate: candidate, Result: result})
		s.res.History = s.rc.Attempts

		if result.Succeeded {
			return s.resolve(candidate, result), nil
		}
		if s.rc.IterationCount == s.cfg.MaxRefineIterations {
			return s.exhaust(result), nil
		}

		s.enter(models.StateRepairing)
		candidate, err = s.repair(ctx)
		if err != nil {
			return s.cancel(), nil
		}
	}
}

func (s *session) link(ctx context.Context) (models.SchemaLinkSet, error) {
	ctx, span := observability.StartSpan(ctx, "link")
	links, err := s.linker.Link(ctx, s.res.Question, s.descriptor)
	if err == nil {
		span.SetAttributes(
			attribute.Int("elements", len(links.Elements)),
			attribute.Int("literals", len(links.Literals)))
	}
	observability.EndSpan(span, err)
	return links, err
}

// classify falls back to the most general tier on any failure other than
// cancellation.
func (s *session) classify(ctx context.Context, links models.SchemaLinkSet) (models.ComplexityTier, error) {
	ctx, span := observability.StartSpan(ctx, "classify")
	tier, err := s.classifier.Classify(ctx, s.res.Question, links, s.descriptor.Dialect)
	observability.EndSpan(span, err)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		s.logger.Info("Classification failed, defaulting to NESTED",
			zap.String("error_class", string(apperrors.KindOf(err))))
		s.res.TierDefaulted = true
		tier = models.TierNested
	}
	s.metrics.ObserveTier(string(tier), s.res.TierDefaulted)
	return tier, nil
}

func (s *session) generate(ctx context.Context, links models.SchemaLinkSet, tier models.ComplexityTier) (models.CandidateQuery, error) {
	ctx, span := observability.StartSpan(ctx, "generate", attribute.String("tier", string(tier)))
	candidate, err := s.generator.Generate(ctx, s.res.Question, links, tier, s.descriptor)
	observability.EndSpan(span, err)
	return candidate, err
}

func (s *session) execute(ctx context.Context, candidate models.CandidateQuery) (models.ExecutionResult, error) {
	ctx, span := observability.StartSpan(ctx, "execute",
		attribute.Int("iteration", candidate.Iteration),
		attribute.Bool("sentinel", candidate.Sentinel))
	result, err := s.executor.Run(ctx, candidate, s.key)
	if err == nil && !result.Succeeded {
		span.SetAttributes(attribute.String("error_class", string(result.ErrorClass)))
	}
	observability.EndSpan(span, err)
	if err == nil {
		s.metrics.ObserveExecution(string(s.key.View), string(result.ErrorClass))
	}
	return result, err
}

func (s *session) repair(ctx context.Context) (models.CandidateQuery, error) {
	ctx, span := observability.StartSpan(ctx, "repair", attribute.Int("iteration", s.rc.IterationCount+1))
	candidate, err := s.refiner.Repair(ctx, s.rc)
	observability.EndSpan(span, err)
	s.res.IterationCount = s.rc.IterationCount
	return candidate, err
}

// enter records a transition and closes the timing of the previous state.
func (s *session) enter(state models.SessionState) {
	now := time.Now()
	if s.state != "" && !s.state.IsTerminal() {
		s.metrics.ObserveStage(string(s.state), now.Sub(s.stateStart))
	}
	s.state = state
	s.stateStart = now
	s.res.Transitions = append(s.res.Transitions, state)
}

func (s *session) finish(status models.SessionState) *models.Resolution {
	s.enter(status)
	s.res.Status = status
	s.res.IterationCount = s.rc.IterationCount
	s.res.History = s.rc.Attempts
	if s.res.History == nil {
		s.res.History = []models.Attempt{}
	}
	s.res.Exchanges = s.recorder.Exchanges()
	s.res.Duration = time.Since(s.res.StartedAt)
	return s.res
}

func (s *session) resolve(candidate models.CandidateQuery, result models.ExecutionResult) *models.Resolution {
	winner := candidate
	s.res.FinalQuery = &winner
	s.res.Columns = result.Columns
	s.res.Rows = result.Rows
	s.res.ObservedTier = observedTier(candidate)
	s.finish(models.StateResolved)

	s.logger.Info("Question resolved",
		zap.Int("iteration_count", s.res.IterationCount),
		zap.String("tier", string(s.res.Tier)),
		zap.String("observed_tier", string(s.res.ObservedTier)),
		zap.Int("rows", result.RowCount),
		zap.String("query", logging.SanitizeQuery(candidate.Text)))
	return s.res
}

func (s *session) exhaust(result models.ExecutionResult) *models.Resolution {
	s.res.LastError = result.Err()
	s.finish(models.StateExhausted)

	s.logger.Info("Repair budget exhausted",
		zap.Int("iteration_count", s.res.IterationCount),
		zap.String("error_class", string(result.ErrorClass)))
	return s.res
}

// cancel keeps everything gathered so far. The last failure, if any, is
// surfaced for diagnostics.
func (s *session) cancel() *models.Resolution {
	if latest, ok := s.rc.Latest(); ok {
		s.res.LastError = latest.Result.Err()
	}
	s.finish(models.StateCancelled)

	s.logger.Info("Session cancelled",
		zap.String("during", string(s.res.Transitions[len(s.res.Transitions)-2])),
		zap.Int("executions", len(s.res.History)))
	return s.res
}

func (s *session) fail(err error) error {
	s.logger.Error("Session failed",
		zap.String("state", string(s.state)),
		zap.String("error_class", string(apperrors.KindOf(err))),
		zap.String("error", logging.SanitizeError(err)))

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.KindOf(err), "resolution failed", err)
}

// observedTier is the shape of the query as written, for audit next to
// the classifier's tier.
func observedTier(c models.CandidateQuery) models.ComplexityTier {
	if c.Dialect == models.DialectCypher {
		return cypher.AnalyzeShape(c.Text)
	}
	return sqlcheck.AnalyzeShape(c.Text)
}
