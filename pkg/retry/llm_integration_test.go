package retry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ekaya-inc/ekaya-eda/pkg/llm"
	"github.com/ekaya-inc/ekaya-eda/pkg/retry"
)

// Provider errors declare their own retryability; the retry package must
// honour that over its string patterns.
func TestIsRetryable_ClassifiedProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      error
		expected bool
	}{
		{"overloaded", errors.New("anthropic api error type: overloaded_error, message: Overloaded"), true},
		{"rate limited", errors.New("error, status code: 429, message: Rate limit reached"), true},
		{"bad key", errors.New("error, status code: 401, message: Incorrect API key provided"), false},
		{"missing model", errors.New("model `eda-large` does not exist"), false},
		{"deadline", fmt.Errorf("post completions: %w", context.DeadlineExceeded), true},
		{"cancelled", fmt.Errorf("post completions: %w", context.Canceled), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := llm.ClassifyError(tt.raw)
			if got := retry.IsRetryable(classified); got != tt.expected {
				t.Errorf("IsRetryable(%v) = %v, expected %v", classified, got, tt.expected)
			}
			wrapped := fmt.Errorf("generator: %w", classified)
			if got := retry.IsRetryable(wrapped); got != tt.expected {
				t.Errorf("IsRetryable(wrapped %v) = %v, expected %v", classified, got, tt.expected)
			}
		})
	}
}

func TestDoWithResultIfRetryable_ProviderErrors(t *testing.T) {
	cfg := &retry.Config{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2}

	t.Run("recovers from a transient endpoint failure", func(t *testing.T) {
		calls := 0
		text, err := retry.DoWithResultIfRetryable(context.Background(), cfg, func() (string, error) {
			calls++
			if calls < 3 {
				return "", llm.NewError(llm.ErrorTypeEndpoint, "server error", true, errors.New("HTTP 503"))
			}
			return "SELECT 1", nil
		})
		if err != nil {
			t.Fatalf("expected success after retries, got %v", err)
		}
		if text != "SELECT 1" || calls != 3 {
			t.Errorf("got %q after %d calls", text, calls)
		}
	})

	t.Run("stops on an auth failure", func(t *testing.T) {
		calls := 0
		authErr := llm.NewError(llm.ErrorTypeAuth, "authentication failed", false, errors.New("HTTP 401"))
		_, err := retry.DoWithResultIfRetryable(context.Background(), cfg, func() (string, error) {
			calls++
			return "", authErr
		})
		if !errors.Is(err, authErr) {
			t.Errorf("expected %v, got %v", authErr, err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})
}
