package llm

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	llmContextKey contextKey = "llm_context"
)

// WithContext returns a context carrying values attached to every log line
// and recording of generation calls made under it. Values are merged with
// any already present.
func WithContext(ctx context.Context, values map[string]any) context.Context {
	existing := GetContext(ctx)
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range values {
		existing[k] = v
	}
	return context.WithValue(ctx, llmContextKey, existing)
}

// GetContext returns a copy of the attached values, or nil.
func GetContext(ctx context.Context) map[string]any {
	if c, ok := ctx.Value(llmContextKey).(map[string]any); ok {
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = v
		}
		return out
	}
	return nil
}

// WithSessionContext tags generation calls with the resolution session and
// partition they serve.
func WithSessionContext(ctx context.Context, sessionID uuid.UUID, partition string) context.Context {
	return WithContext(ctx, map[string]any{
		"session_id": sessionID.String(),
		"partition":  partition,
	})
}
