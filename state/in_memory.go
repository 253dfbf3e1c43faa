package state

import (
	"sync"

	"github.com/hupe1980/convopilot/core"
)

// InMemoryStore is a volatile core.StateStore implementation keeping per
// session application state in a process local map. It is safe for concurrent
// access. Sessions are created lazily on first access and returned state is a
// copy so callers cannot mutate internal maps.
//
// Note: Update performs an atomic per-session replace-on-write. Two concurrent
// requests for the same session can interleave read-modify-write cycles with
// last-writer-wins semantics; single-flight per session is a caller
// responsibility.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[string]core.ApplicationState
}

// NewInMemoryStore constructs an empty in-memory state store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[string]core.ApplicationState)}
}

// Get returns a copy of the session's state, or an empty state for sessions
// that have not been seen yet.
func (s *InMemoryStore) Get(sessionID string) (core.ApplicationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[sessionID]; ok {
		return st.Clone(), nil
	}
	return core.ApplicationState{}, nil
}

// Update shallow-merges partial into the session's state, creating the
// session lazily when absent.
func (s *InMemoryStore) Update(sessionID string, partial core.ApplicationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[sessionID]
	if !ok {
		st = core.ApplicationState{}
		s.states[sessionID] = st
	}
	for k, v := range partial {
		st[k] = v
	}
	return nil
}

// Delete removes all state for the session. Used by callers issuing a clear
// operation; unknown sessions are a no-op.
func (s *InMemoryStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, sessionID)
}
