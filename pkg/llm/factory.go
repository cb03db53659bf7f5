package llm

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-eda/pkg/retry"
)

// Provider kinds accepted by NewProvider.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds configuration for creating a provider.
type Config struct {
	Provider       string        // "openai" or "anthropic"
	Endpoint       string        // Base URL, e.g. "https://api.openai.com/v1"
	Model          string        // Model name, e.g. "gpt-4o"
	APIKey         string        // Optional for local OpenAI-compatible endpoints
	MaxTokens      int           // Default completion limit
	RequestTimeout time.Duration // HTTP client timeout; 0 leaves it to the caller's context
	MaxRetries     int
	CircuitBreaker CircuitBreakerConfig
}

// NewProvider builds the configured client wrapped with retry and a circuit
// breaker. The breaker is owned by the returned provider and shared by every
// session that uses it.
func NewProvider(cfg *Config, logger *zap.Logger) (*ResilientProvider, error) {
	var (
		inner Provider
		err   error
	)

	switch cfg.Provider {
	case ProviderOpenAI, "":
		inner, err = NewOpenAIProvider(cfg, logger)
	case ProviderAnthropic:
		inner, err = NewAnthropicProvider(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(cfg.CircuitBreaker)
	breaker.OnStateChange(func(from, to CircuitState) {
		logger.Warn("LLM circuit breaker state changed",
			zap.String("model", cfg.Model),
			zap.String("from", from.String()),
			zap.String("to", to.String()))
	})

	return NewResilientProvider(inner, breaker, retry.ProviderConfig(cfg.MaxRetries), logger), nil
}
