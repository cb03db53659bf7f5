package llm

import (
	"context"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-eda/pkg/models"
)

// RecordingProvider wraps a Provider and keeps every exchange made through
// it. One recorder serves exactly one resolution session.
type RecordingProvider struct {
	inner Provider

	mu        sync.Mutex
	exchanges []models.ProviderExchange
}

// NewRecordingProvider creates a new recording wrapper around a Provider.
func NewRecordingProvider(inner Provider) *RecordingProvider {
	return &RecordingProvider{inner: inner}
}

// Complete calls the inner provider and records prompt, response, error
// and duration.
func (p *RecordingProvider) Complete(ctx context.Context, pc PromptContext) (string, error) {
	start := time.Now()
	text, err := p.inner.Complete(ctx, pc)

	exchange := models.ProviderExchange{
		Component: pc.Component,
		Prompt:    pc.Prompt,
		Response:  text,
		Duration:  time.Since(start),
	}
	if err != nil {
		exchange.Error = err.Error()
	}

	p.mu.Lock()
	p.exchanges = append(p.exchanges, exchange)
	p.mu.Unlock()

	return text, err
}

// Exchanges returns a copy of everything recorded so far, in call order.
func (p *RecordingProvider) Exchanges() []models.ProviderExchange {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.ProviderExchange, len(p.exchanges))
	copy(out, p.exchanges)
	return out
}

// Model returns the inner provider's model.
func (p *RecordingProvider) Model() string {
	return p.inner.Model()
}

var _ Provider = (*RecordingProvider)(nil)
