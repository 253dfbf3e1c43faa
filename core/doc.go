// Package core provides the foundational domain types and interfaces used by
// ConvoPilot. It defines the core abstractions for:
//
//   - Interactions (immutable user/assistant turn records)
//   - Memory entries (importance-scored long-term memory items)
//   - Context bundles (budget-constrained prompt context: history, memories, summary)
//   - Agent errors (categorized, severity-tagged failures and their monitored form)
//   - Pluggable collaborators: session state store, memory manager, generation
//     backend and the observational governance sink
//
// The package intentionally keeps implementation concerns (in-memory stores,
// the orchestration pipeline, concrete backends) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
