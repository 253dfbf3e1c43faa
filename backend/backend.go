// Package backend contains core.Backend implementations for external
// generation providers. The orchestrator only ever sees the narrow
// Complete(prompt) contract; provider specifics (message shapes, auth,
// model ids) stay inside the adapters under backend/openai and
// backend/anthropic. The Mock in this package serves tests and examples.
package backend

import (
	"context"
	"sync"
)

// Mock is a lightweight in-memory core.Backend useful for tests & examples.
// It returns canned completions for exact prompts and can be scripted to fail
// for a number of calls to exercise the resilience layer.
type Mock struct {
	mu        sync.Mutex
	responses map[string]string
	fallback  string
	failWith  error
	failCalls int
	calls     int
}

// NewMock constructs a Mock with a default fallback response.
func NewMock() *Mock {
	return &Mock{
		responses: make(map[string]string),
		fallback:  "This is a mock response.",
	}
}

// AddResponse registers a deterministic canned completion for an exact prompt.
func (m *Mock) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// SetFallback sets the completion returned for prompts without a canned response.
func (m *Mock) SetFallback(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallback = response
}

// FailNext makes the next n Complete calls return err.
func (m *Mock) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCalls = n
	m.failWith = err
}

// Calls returns how many times Complete was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements core.Backend.
func (m *Mock) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if m.failCalls > 0 {
		m.failCalls--
		return "", m.failWith
	}
	if resp, ok := m.responses[prompt]; ok {
		return resp, nil
	}
	return m.fallback, nil
}

// ModelID implements core.Backend.
func (m *Mock) ModelID() string { return "mock" }
