package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/convopilot/core"
)

// summaryPrompt frames the summarization request sent to a generation backend.
const summaryPrompt = "Summarize the following conversation in at most three sentences, keeping facts the user stated about themselves:\n\n%s"

// StubSummarizer is the default core.Summarizer: a heuristic that condenses
// the window into truncated "User/Assistant" lines without calling any
// external dependency. Suitable for tests and setups without a backend.
type StubSummarizer struct {
	// MaxLineChars truncates each rendered line; zero means 80.
	MaxLineChars int
}

// Summarize implements core.Summarizer.
func (s StubSummarizer) Summarize(_ context.Context, window []core.Interaction) (string, error) {
	limit := s.MaxLineChars
	if limit <= 0 {
		limit = 80
	}
	var b strings.Builder
	for _, in := range window {
		b.WriteString("User: " + truncate(in.Input, limit) + "\n")
		b.WriteString("Assistant: " + truncate(in.Response, limit) + "\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

// BackendSummarizer delegates summarization to a generation backend, normally
// the same breaker-guarded backend the orchestrator uses for completions.
type BackendSummarizer struct {
	Backend core.Backend
}

// Summarize implements core.Summarizer by prompting the backend with the
// rendered window.
func (s BackendSummarizer) Summarize(ctx context.Context, window []core.Interaction) (string, error) {
	var b strings.Builder
	for _, in := range window {
		b.WriteString("User: " + in.Input + "\n")
		b.WriteString("Assistant: " + in.Response + "\n")
	}
	summary, err := s.Backend.Complete(ctx, fmt.Sprintf(summaryPrompt, b.String()))
	if err != nil {
		return "", fmt.Errorf("summarize via backend: %w", err)
	}
	return strings.TrimSpace(summary), nil
}
