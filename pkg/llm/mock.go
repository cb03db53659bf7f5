package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockResponse is one scripted reply.
type MockResponse struct {
	Text string
	Err  error
}

// MockProvider is a scripted Provider for tests. Responses are queued per
// component and consumed in order; the last one repeats once the queue
// runs dry. CompleteFunc, when set, overrides the script.
type MockProvider struct {
	// CompleteFunc is called when Complete is invoked, if non-nil.
	CompleteFunc func(ctx context.Context, pc PromptContext) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu        sync.Mutex
	responses map[string][]MockResponse
	calls     []PromptContext
}

// NewMockProvider creates a new mock with no scripted responses.
func NewMockProvider() *MockProvider {
	return &MockProvider{responses: make(map[string][]MockResponse)}
}

// On queues text responses for a component.
func (m *MockProvider) On(component string, texts ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range texts {
		m.responses[component] = append(m.responses[component], MockResponse{Text: t})
	}
	return m
}

// OnError queues a failure for a component.
func (m *MockProvider) OnError(component string, err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[component] = append(m.responses[component], MockResponse{Err: err})
	return m
}

// Complete implements Provider. A cancelled context fails before the
// script is consulted.
func (m *MockProvider) Complete(ctx context.Context, pc PromptContext) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, pc)
	fn := m.CompleteFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", ClassifyError(err)
	}
	if fn != nil {
		return fn(ctx, pc)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	queue := m.responses[pc.Component]
	if len(queue) == 0 {
		return "", NewError(ErrorTypeUnknown, fmt.Sprintf("no scripted response for %q", pc.Component), false, nil)
	}
	next := queue[0]
	if len(queue) > 1 {
		m.responses[pc.Component] = queue[1:]
	}
	return next.Text, next.Err
}

// Model implements Provider.
func (m *MockProvider) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Calls returns every request received, in order.
func (m *MockProvider) Calls() []PromptContext {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PromptContext, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsFor counts requests made by one component.
func (m *MockProvider) CallsFor(component string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Component == component {
			n++
		}
	}
	return n
}

var _ Provider = (*MockProvider)(nil)
