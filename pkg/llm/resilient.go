package llm

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/retry"
)

// ResilientProvider guards an inner provider with a shared circuit breaker
// and retries transient failures with backoff.
type ResilientProvider struct {
	inner   Provider
	breaker *CircuitBreaker
	retry   *retry.Config
	logger  *zap.Logger
}

// NewResilientProvider wraps inner. A nil breaker never trips; a nil retry
// config uses retry.ProviderConfig(2).
func NewResilientProvider(inner Provider, breaker *CircuitBreaker, retryCfg *retry.Config, logger *zap.Logger) *ResilientProvider {
	if breaker == nil {
		breaker = NewCircuitBreaker(CircuitBreakerConfig{})
	}
	if retryCfg == nil {
		retryCfg = retry.ProviderConfig(2)
	}
	return &ResilientProvider{
		inner:   inner,
		breaker: breaker,
		retry:   retryCfg,
		logger:  logger.Named("resilient"),
	}
}

// Complete refuses immediately while the circuit is open. Cancellation by
// the caller only counts against the provider when it aborts a probe.
func (p *ResilientProvider) Complete(ctx context.Context, pc PromptContext) (string, error) {
	if allowed, err := p.breaker.Allow(); !allowed {
		return "", NewError(ErrorTypeUnavailable, "provider unavailable", false, err)
	}

	attempt := 0
	text, err := retry.DoWithResultIfRetryable(ctx, p.retry, func() (string, error) {
		attempt++
		if attempt > 1 {
			p.logger.Debug("retrying generation call",
				zap.String("component", pc.Component),
				zap.Int("attempt", attempt),
				zap.Any("session", GetContext(ctx)["session_id"]))
		}
		return p.inner.Complete(ctx, pc)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			// An aborted probe would leave the breaker half-open forever.
			if p.breaker.State() == CircuitHalfOpen {
				p.breaker.RecordFailure()
			}
			return "", ClassifyError(err)
		}
		p.breaker.RecordFailure()
		return "", ClassifyError(err)
	}

	p.breaker.RecordSuccess()
	return text, nil
}

// Model returns the inner provider's model.
func (p *ResilientProvider) Model() string {
	return p.inner.Model()
}

// Breaker exposes the shared breaker for health reporting.
func (p *ResilientProvider) Breaker() *CircuitBreaker {
	return p.breaker
}

var _ Provider = (*ResilientProvider)(nil)
