package core

import (
	"time"

	"github.com/google/uuid"
)

// Interaction is a single completed conversational turn. It is created by the
// orchestrator after a response has been produced and must be treated as
// immutable once recorded.
type Interaction struct {
	Input     string    `json:"input"`
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryEntry is an importance-scored item in a session's long-term memory.
//
// Importance starts at 1.0 and is boosted heuristically when the entry is
// derived from an interaction (question marks, long inputs, long responses).
// Retrieval never mutates Importance; it only bumps AccessCount and
// LastAccessed on entries that were actually returned.
type MemoryEntry struct {
	ID           string     `json:"id"`
	Content      string     `json:"content"`
	Timestamp    time.Time  `json:"timestamp"`
	Tags         []string   `json:"tags,omitempty"`
	Source       string     `json:"source"`
	Importance   float64    `json:"importance"`
	AccessCount  int        `json:"access_count"`
	LastAccessed *time.Time `json:"last_accessed,omitempty"`
}

// ApplicationState is the open key/value application state scoped to a single
// session. Updates are shallow merges; the map is never replaced wholesale.
type ApplicationState map[string]any

// Clone returns a shallow copy safe for handing to callers.
func (s ApplicationState) Clone() ApplicationState {
	out := make(ApplicationState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ContextBundle is the prompt context assembled for a single request: recent
// history, relevance-ranked memory contents (most relevant first) and an
// optional rolling summary.
type ContextBundle struct {
	History  []Interaction `json:"history"`
	Memories []string      `json:"memories"`
	Summary  string        `json:"summary,omitempty"`
}

// MemorySnapshot is the JSON-friendly export shape handed to external
// persistence collaborators via ExportMemory / ImportMemory.
type MemorySnapshot struct {
	SessionID  string        `json:"session_id"`
	History    []Interaction `json:"history"`
	Memories   []MemoryEntry `json:"memories"`
	Summary    string        `json:"summary,omitempty"`
	ExportedAt time.Time     `json:"exported_at"`
}

// DecisionRecord captures the outcome of a completed turn for the governance
// collaborator. It is purely observational and never influences the pipeline.
type DecisionRecord struct {
	RequestID     string        `json:"request_id"`
	SessionID     string        `json:"session_id"`
	ModelID       string        `json:"model_id"`
	Input         string        `json:"input"`
	Response      string        `json:"response"`
	Duration      time.Duration `json:"duration"`
	ErrorCategory ErrorCategory `json:"error_category,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// NewID generates a new unique identifier for interactions, memory entries and
// requests.
func NewID() string { return uuid.NewString() }
