package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ekaya-inc/ekaya-eda/pkg/apperrors"
)

func TestError_Error(t *testing.T) {
	err := &Error{
		Type:       ErrorTypeEndpoint,
		Message:    "server error",
		StatusCode: 503,
		Model:      "gpt-4o",
		Cause:      errors.New("upstream"),
	}

	result := err.Error()
	for _, want := range []string{"endpoint", "HTTP 503", "model=gpt-4o", "server error", "upstream"} {
		if !strings.Contains(result, want) {
			t.Errorf("expected %q in %q", want, result)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
		status    int
	}{
		{"openai auth", errors.New("error, status code: 401, status: 401 Unauthorized, message: Incorrect API key provided"), ErrorTypeAuth, false, 401},
		{"anthropic auth", errors.New("anthropic api error type: authentication_error, message: invalid x-api-key"), ErrorTypeAuth, false, 0},
		{"model missing", errors.New("The model `gpt-9` does not exist"), ErrorTypeModel, false, 0},
		{"wrong path", errors.New("error, status code: 404, message: not found"), ErrorTypeEndpoint, false, 404},
		{"refused", errors.New("dial tcp 127.0.0.1:8000: connect: connection refused"), ErrorTypeEndpoint, true, 0},
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeTimeout, true, 0},
		{"cancelled", fmt.Errorf("post: %w", context.Canceled), ErrorTypeCancelled, false, 0},
		{"rate limited", errors.New("error, status code: 429, message: Rate limit reached"), ErrorTypeRateLimit, true, 429},
		{"anthropic rate limited", errors.New("anthropic api error type: rate_limit_error, message: slow down"), ErrorTypeRateLimit, true, 0},
		{"overloaded", errors.New("anthropic api error type: overloaded_error, message: Overloaded"), ErrorTypeUnavailable, true, 0},
		{"server error", errors.New("error, status code: 502, message: bad gateway"), ErrorTypeEndpoint, true, 502},
		{"unknown", errors.New("something odd"), ErrorTypeUnknown, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("expected type %s, got %s", tt.wantType, got.Type)
			}
			if got.Retryable != tt.retryable {
				t.Errorf("expected retryable=%v, got %v", tt.retryable, got.Retryable)
			}
			if got.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, got.StatusCode)
			}
			if !errors.Is(got, tt.err) {
				t.Error("expected classified error to wrap the cause")
			}
		})
	}
}

func TestClassifyError_KeepsClassified(t *testing.T) {
	original := NewError(ErrorTypeAuth, "bad key", false, nil)
	wrapped := fmt.Errorf("linker: %w", original)

	if got := ClassifyError(wrapped); got != original {
		t.Errorf("expected the existing *Error, got %v", got)
	}
	if ClassifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
	if GetErrorType(wrapped) != ErrorTypeAuth {
		t.Errorf("expected auth type, got %s", GetErrorType(wrapped))
	}
	if IsRetryable(wrapped) {
		t.Error("expected auth error to be permanent")
	}
}

func TestToAppError(t *testing.T) {
	if ToAppError(nil) != nil {
		t.Error("expected nil")
	}

	timeout := ToAppError(NewError(ErrorTypeTimeout, "request timeout", true, nil))
	if timeout.Kind != apperrors.KindTimeout {
		t.Errorf("expected Timeout, got %s", timeout.Kind)
	}

	deadline := ToAppError(context.DeadlineExceeded)
	if deadline.Kind != apperrors.KindTimeout {
		t.Errorf("expected Timeout, got %s", deadline.Kind)
	}

	auth := ToAppError(NewError(ErrorTypeAuth, "bad key", false, nil))
	if auth.Kind != apperrors.KindProviderError {
		t.Errorf("expected ProviderError, got %s", auth.Kind)
	}
	if !errors.Is(auth, apperrors.ErrProviderError) {
		t.Error("expected errors.Is to match on kind")
	}
}
