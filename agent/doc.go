// Package agent contains the request orchestrator: the single component
// exposed to callers. It composes the session state store, the hybrid memory
// manager, the tool registry and the resilience layer into one pipeline that
// turns a user utterance into a response.
//
// Pipeline per request: validate input, read state, assemble a
// budget-constrained context bundle, build the prompt, call the generation
// backend through the circuit breaker, resolve embedded tool calls, then
// write the completed turn back to state and memory. Any failure at any step
// is caught exactly once, normalized into a monitored error and surfaced to
// the caller as a safe user-facing message; HandleRequest never returns an
// error.
package agent
