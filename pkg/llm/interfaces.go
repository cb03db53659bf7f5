// Package llm provides the generation provider used by every resolution
// stage: OpenAI-compatible and Anthropic clients, retry and circuit
// breaking, per-session exchange recording, and a scripted mock.
package llm

import (
	"context"
)

// Components that issue generation calls. They tag every PromptContext so
// recordings and mocks can tell the calls of one session apart.
const (
	ComponentLinker     = "linker"
	ComponentClassifier = "classifier"
	ComponentGenerator  = "generator"
	ComponentRefiner    = "refiner"
)

// PromptContext is one generation request.
type PromptContext struct {
	Component   string
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int // 0 uses the provider default
}

// Provider turns a prompt into text. Output is free-form and not assumed
// deterministic; callers must tolerate malformed output. Failures are returned as
// *Error.
type Provider interface {
	Complete(ctx context.Context, pc PromptContext) (string, error)

	// Model returns the configured model name.
	Model() string
}
