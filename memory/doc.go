// Package memory contains the hybrid memory manager combining short-term turn
// history with importance-scored long-term memory. The core.MemoryManager
// contract resides in the core package; depend on the interface in your code
// and select an implementation at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (vector databases, embeddings indexes, etc.) to be added without
// introducing dependency cycles.
package memory
