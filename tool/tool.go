// Package tool implements the tool calling subsystem that lets the
// orchestrator execute structured capabilities (APIs, computations,
// side-effects) referenced by embedded calls inside backend output, with
// consistent error handling and registration-time name uniqueness.
package tool

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/convopilot/logging"
)

// ExecutorFunc is the callable behind a tool. Params are already coerced
// key/value arguments; the returned value may be any JSON-serializable shape.
type ExecutorFunc func(params map[string]any) (any, error)

// Tool describes a named callable capability. Names are unique within a
// Registry; Category is optional grouping metadata.
type Tool struct {
	Name        string
	Description string
	Category    string
	Execute     ExecutorFunc
}

// Result is the outcome of a single tool execution.
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Recorder receives per-execution telemetry. Implemented by the telemetry
// package; a nil Recorder disables recording.
type Recorder interface {
	ObserveTool(name string, success bool, duration time.Duration)
}

// Options configures a Registry.
type Options struct {
	// Logger receives structured diagnostics. Defaults to NoOp.
	Logger logging.Logger
	// Recorder receives per-execution metrics. Optional.
	Recorder Recorder
	// ErrorMessenger maps an execution failure of the named tool onto the
	// user-facing text substituted into the response. Defaults to a generic
	// message that never leaks internal details.
	ErrorMessenger func(name string, err error) string
}

// Registry holds named tools and executes them. It replaces any implicit
// global tool table: construct one at startup and hand it to the orchestrator.
// Safe for concurrent use; tools are expected to be registered once at startup.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	logger   logging.Logger
	recorder Recorder
	errorMsg func(name string, err error) string
}

// NewRegistry constructs an empty Registry with optional overrides.
func NewRegistry(optFns ...func(o *Options)) *Registry {
	opts := Options{
		Logger:         logging.NoOpLogger{},
		ErrorMessenger: func(string, error) string { return "the tool could not complete the request" },
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		logger:   logging.OrDefault(opts.Logger),
		recorder: opts.Recorder,
		errorMsg: opts.ErrorMessenger,
	}
}

// Register adds a tool, rejecting empty names, nil executors and duplicates.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return fmt.Errorf("tool name must not be empty")
	}
	if t.Execute == nil {
		return fmt.Errorf("tool %q has no executor", t.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = t
	r.logger.Debug("tool.registered", "tool", t.Name, "category", t.Category)
	return nil
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Get returns the named tool and whether it exists.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute runs the named tool with the given params. Unknown tools and
// execution failures are reported through Result rather than an error so
// callers can substitute readable text without aborting the turn.
func (r *Registry) Execute(name string, params map[string]any) Result {
	t, ok := r.Get(name)
	if !ok {
		return Result{Error: fmt.Sprintf("tool %q not registered", name)}
	}

	start := time.Now()
	data, err := t.Execute(params)
	duration := time.Since(start)

	if r.recorder != nil {
		r.recorder.ObserveTool(name, err == nil, duration)
	}

	if err != nil {
		r.logger.Error("tool.execute.failed", "tool", name, "error", err.Error(), "duration_ms", duration.Milliseconds())
		return Result{Error: r.errorMsg(name, err)}
	}

	r.logger.Info("tool.execute.success", "tool", name, "duration_ms", duration.Milliseconds())
	return Result{Success: true, Data: data}
}
