package core

import "context"

// Backend is the opaque generation dependency: a single prompt-in, text-out
// completion call. Implementations live under the backend package; callers
// should always reach a Backend through the resilience layer.
type Backend interface {
	// Complete produces a completion for the prompt. It may fail with
	// timeouts, quota errors or malformed-context rejections.
	Complete(ctx context.Context, prompt string) (string, error)

	// ModelID identifies the underlying model for telemetry and governance
	// records.
	ModelID() string
}

// StateStore persists per-session application state. Implementations must be
// safe for concurrent use and must create state lazily on first access.
type StateStore interface {
	// Get returns the session's state, or an empty state when the session has
	// not been seen. The returned map is a copy callers may mutate freely.
	Get(sessionID string) (ApplicationState, error)

	// Update shallow-merges partial into the session's state, creating it if
	// absent. Existing keys not present in partial are retained.
	Update(sessionID string, partial ApplicationState) error
}

// MemoryManager combines short-term turn history and long-term importance
// scored memory into budget-constrained prompt context.
type MemoryManager interface {
	// GetContext returns the session's context bundle sized to the query:
	// recent history, relevance-ranked memory contents and the current
	// summary, if any.
	GetContext(sessionID, query string) (ContextBundle, error)

	// StoreInteraction records a completed turn: appends to short-term
	// history (FIFO capped), derives long-term entries (importance capped)
	// and regenerates the session summary on the configured cadence.
	StoreInteraction(sessionID string, interaction Interaction) error

	// OptimizeContext degrades the bundle until its token estimate fits
	// maxTokens, or fails with a ContextWindowExceeded error.
	OptimizeContext(bundle ContextBundle, maxTokens int) (ContextBundle, error)

	// ClearMemory drops all history, memories and the summary for a session.
	ClearMemory(sessionID string)

	// ExportMemory hands the session's memory to an external persistence
	// collaborator.
	ExportMemory(sessionID string) (MemorySnapshot, error)

	// ImportMemory restores a previously exported snapshot into the session,
	// replacing its current contents.
	ImportMemory(sessionID string, snapshot MemorySnapshot) error
}

// Summarizer condenses a window of recent interactions into a short rolling
// summary. Failures are non-fatal: callers log and keep the previous summary.
type Summarizer interface {
	Summarize(ctx context.Context, window []Interaction) (string, error)
}

// DecisionSink receives decision records after a turn completes. Sinks are
// purely observational: they never block or alter the pipeline's result, so
// implementations should return quickly and swallow their own failures.
type DecisionSink interface {
	Record(record DecisionRecord)
}
