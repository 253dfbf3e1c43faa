package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/convopilot/core"
	"github.com/hupe1980/convopilot/logging"
	"github.com/hupe1980/convopilot/memory"
	"github.com/hupe1980/convopilot/resilience"
	"github.com/hupe1980/convopilot/state"
	"github.com/hupe1980/convopilot/telemetry"
	"github.com/hupe1980/convopilot/tool"
)

// backendOperation names the protected external operation for the default
// circuit breaker and telemetry labels.
const backendOperation = "generation-backend"

// Options holds dependency + configuration overrides passed to New().
type Options struct {
	// StateStore holds per-session key/value application state.
	// Defaults to the in-memory implementation.
	StateStore core.StateStore
	// Memory combines short-term history and long-term memory.
	// Defaults to an in-memory manager with stub summarization.
	Memory core.MemoryManager
	// Tools resolves embedded tool calls in backend output. Defaults to an
	// empty registry whose failure messages come from the error handler.
	Tools *tool.Registry
	// Breaker guards the generation backend. Defaults to a breaker with a
	// threshold of 5 failures and a 30s reset timeout.
	Breaker *resilience.Breaker
	// MaxContextTokens is the context budget applied before prompting.
	MaxContextTokens int
	// Metrics receives per-request telemetry. Optional; nil disables recording.
	Metrics *telemetry.Metrics
	// DecisionSink receives a decision record after each completed turn.
	// Optional; purely observational.
	DecisionSink core.DecisionSink
	// Logger receives structured diagnostics. Defaults to NoOp.
	Logger logging.Logger
}

// Orchestrator coordinates a single request pipeline. Public methods are safe
// for concurrent use across sessions; two concurrent requests for the same
// session race on state and memory writes with last-writer-wins semantics
// (single-flight per session is a caller responsibility).
type Orchestrator struct {
	backend core.Backend
	states  core.StateStore
	memory  core.MemoryManager
	tools   *tool.Registry
	breaker *resilience.Breaker
	handler *resilience.Handler

	maxContextTokens int
	metrics          *telemetry.Metrics
	sink             core.DecisionSink
	logger           logging.Logger
}

// New constructs an Orchestrator around a generation backend with optional
// overrides.
func New(backend core.Backend, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxContextTokens: 2048,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := logging.OrDefault(opts.Logger)
	handler := resilience.NewHandler(logger)

	if opts.StateStore == nil {
		opts.StateStore = state.NewInMemoryStore()
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewManager(func(o *memory.Options) { o.Logger = logger })
	}
	if opts.Tools == nil {
		opts.Tools = tool.NewRegistry(func(o *tool.Options) {
			o.Logger = logger
			o.ErrorMessenger = func(name string, err error) string {
				return handler.UserMessage(core.NewToolExecutionError(name, err))
			}
			o.Recorder = opts.Metrics
		})
	}
	if opts.Breaker == nil {
		metrics := opts.Metrics
		opts.Breaker = resilience.NewBreaker(backendOperation, func(o *resilience.Options) {
			o.Logger = logger
			o.OnStateChange = func(operation string, _, to resilience.State) {
				metrics.SetBreakerState(operation, int(to))
			}
		})
	}

	return &Orchestrator{
		backend:          backend,
		states:           opts.StateStore,
		memory:           opts.Memory,
		tools:            opts.Tools,
		breaker:          opts.Breaker,
		handler:          handler,
		maxContextTokens: opts.MaxContextTokens,
		metrics:          opts.Metrics,
		sink:             opts.DecisionSink,
		logger:           logger,
	}
}

// Tools returns the registry so callers can register tools after construction.
func (o *Orchestrator) Tools() *tool.Registry { return o.tools }

// Backend returns the generation backend the orchestrator was built with.
func (o *Orchestrator) Backend() core.Backend { return o.backend }

// Memory returns the memory manager for clear / export / import operations.
func (o *Orchestrator) Memory() core.MemoryManager { return o.memory }

// Metrics returns the telemetry registry, or nil when recording is disabled.
// Callers mount Metrics().Handler() to expose the scrape endpoint.
func (o *Orchestrator) Metrics() *telemetry.Metrics { return o.metrics }

// HandleRequest turns one user utterance into a response. It always returns a
// string: on failure, the safe user-facing message of the normalized error.
func (o *Orchestrator) HandleRequest(ctx context.Context, input, sessionID string) string {
	start := time.Now()
	requestID := core.NewID()

	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		// Rejected before any state or memory access.
		return o.fail(start, requestID, sessionID, trimmed, core.NewInputValidationError("input is empty after trimming"))
	}

	appState, err := o.states.Get(sessionID)
	if err != nil {
		return o.fail(start, requestID, sessionID, trimmed, core.NewMemoryStorageError("read session state", err))
	}

	bundle, err := o.memory.GetContext(sessionID, trimmed)
	if err != nil {
		return o.fail(start, requestID, sessionID, trimmed, core.NewMemoryStorageError("read memory context", err))
	}

	bundle, err = o.memory.OptimizeContext(bundle, o.maxContextTokens)
	if err != nil {
		return o.fail(start, requestID, sessionID, trimmed, err)
	}

	prompt := buildPrompt(trimmed, bundle, appState)

	raw, err := o.breaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return o.backend.Complete(ctx, prompt)
	})
	o.metrics.ObserveBackendCall(o.backend.ModelID(), err == nil)
	if err != nil {
		var open *resilience.CircuitOpenError
		if !errors.As(err, &open) {
			err = core.NewLLMAPIError("backend call failed", 0, err)
		}
		return o.fail(start, requestID, sessionID, trimmed, err)
	}

	// Tool failures are recovered inline by the registry; they never abort
	// the turn.
	response := o.tools.ProcessResponse(raw, sessionID)

	interaction := core.Interaction{Input: trimmed, Response: response, Timestamp: time.Now()}
	if err := o.memory.StoreInteraction(sessionID, interaction); err != nil {
		return o.fail(start, requestID, sessionID, trimmed, core.NewMemoryStorageError("store interaction", err))
	}

	if err := o.states.Update(sessionID, core.ApplicationState{
		"last_request_id":     requestID,
		"last_interaction_at": interaction.Timestamp,
	}); err != nil {
		return o.fail(start, requestID, sessionID, trimmed, core.NewMemoryStorageError("update session state", err))
	}

	duration := time.Since(start)
	o.metrics.ObserveRequest(duration, "")
	o.emitDecision(core.DecisionRecord{
		RequestID: requestID,
		SessionID: sessionID,
		ModelID:   o.backend.ModelID(),
		Input:     trimmed,
		Response:  response,
		Duration:  duration,
		Timestamp: time.Now(),
	})
	o.logger.Info("request.completed", "request_id", requestID, "session_id", sessionID, "duration_ms", duration.Milliseconds())

	return response
}

// ClearSession drops the session's memory and state.
func (o *Orchestrator) ClearSession(sessionID string) {
	o.memory.ClearMemory(sessionID)
	if deleter, ok := o.states.(interface{ Delete(sessionID string) }); ok {
		deleter.Delete(sessionID)
	}
}

// fail normalizes err exactly once, records telemetry and the decision record,
// and returns the safe user-facing message.
func (o *Orchestrator) fail(start time.Time, requestID, sessionID, input string, err error) string {
	monitored := o.handler.Handle(err)
	duration := time.Since(start)

	o.metrics.ObserveRequest(duration, string(monitored.Category))
	o.emitDecision(core.DecisionRecord{
		RequestID:     requestID,
		SessionID:     sessionID,
		ModelID:       o.backend.ModelID(),
		Input:         input,
		Duration:      duration,
		ErrorCategory: monitored.Category,
		Timestamp:     time.Now(),
	})

	return monitored.UserMessage
}

func (o *Orchestrator) emitDecision(record core.DecisionRecord) {
	if o.sink == nil {
		return
	}
	o.sink.Record(record)
}

// buildPrompt assembles the prompt from the optimized context bundle, the
// session state and the current input.
func buildPrompt(input string, bundle core.ContextBundle, appState core.ApplicationState) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant.\n")

	if bundle.Summary != "" {
		b.WriteString("\nConversation summary:\n")
		b.WriteString(bundle.Summary)
		b.WriteString("\n")
	}

	if len(bundle.Memories) > 0 {
		b.WriteString("\nRelevant memories:\n")
		for _, mem := range bundle.Memories {
			b.WriteString("- " + mem + "\n")
		}
	}

	if len(bundle.History) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range bundle.History {
			b.WriteString("User: " + turn.Input + "\n")
			b.WriteString("Assistant: " + turn.Response + "\n")
		}
	}

	if len(appState) > 0 {
		keys := make([]string, 0, len(appState))
		for k := range appState {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nSession state:\n")
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("%s: %v\n", k, appState[k]))
		}
	}

	b.WriteString("\nUser: " + input + "\nAssistant:")
	return b.String()
}
