// Package resilience guards calls to unreliable external dependencies. It
// provides a per-operation circuit breaker (CLOSED / OPEN / HALF_OPEN) that
// stops calling a failing dependency for a cooldown period, and an error
// handler that normalizes categorized pipeline failures into safe,
// non-leaking user-facing messages.
package resilience
