// Package convopilot provides a high-level façade over the request
// orchestrator and its collaborators (session state, hybrid memory, tools and
// the resilience layer) enabling rapid construction of conversational agents.
// Most applications interact with this package by:
//  1. Creating an orchestrator via New() (optionally overriding default in-memory services)
//  2. Registering tools on the orchestrator's registry
//  3. Calling HandleRequest per user utterance
//
// The façade delegates the pipeline to agent.Orchestrator while keeping setup
// ergonomics concise. All defaults are safe for local development and testing;
// production deployments typically supply a real generation backend, a
// structured logger and a metrics registry.
package convopilot

import (
	"context"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"

	"github.com/hupe1980/convopilot/agent"
	"github.com/hupe1980/convopilot/backend"
	"github.com/hupe1980/convopilot/backend/anthropic"
	"github.com/hupe1980/convopilot/backend/openai"
	"github.com/hupe1980/convopilot/config"
	"github.com/hupe1980/convopilot/core"
	"github.com/hupe1980/convopilot/logging"
	"github.com/hupe1980/convopilot/memory"
	"github.com/hupe1980/convopilot/resilience"
	"github.com/hupe1980/convopilot/telemetry"
)

// New creates a request orchestrator around the given generation backend with
// optional overrides. See agent.Options for the available knobs.
func New(backend core.Backend, optFns ...func(o *agent.Options)) *agent.Orchestrator {
	return agent.New(backend, optFns...)
}

// NewBackend builds a core.Backend from the configured provider. The mock
// provider serves tests and offline development; openai and anthropic read
// their credentials from the environment. An empty model keeps the adapter's
// default.
func NewBackend(cfg config.BackendConfig) (core.Backend, error) {
	switch cfg.Provider {
	case "openai":
		return openai.New(func(o *openai.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			if cfg.Model != "" {
				o.Model = anthropicsdk.Model(cfg.Model)
			}
			o.Temperature = cfg.Temperature
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
		}), nil
	case "mock":
		return backend.NewMock(), nil
	default:
		return nil, fmt.Errorf("unknown backend provider %q", cfg.Provider)
	}
}

// NewFromConfig wires an orchestrator from a validated configuration: the
// generation backend (built from cfg.Backend via NewBackend), memory caps and
// summarization cadence, the context budget, the circuit breaker thresholds
// and structured logging. When telemetry is enabled a metrics registry is
// created and handed to the orchestrator; mount its Handler wherever the host
// serves diagnostics. When a health check interval is configured a background
// ticker drives breaker recovery until ctx is done.
// Summarization is delegated to the backend through the same circuit breaker
// that guards completions.
func NewFromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *agent.Options)) (*agent.Orchestrator, error) {
	be, err := NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	var metrics *telemetry.Metrics
	if cfg.Telemetry.Enabled {
		metrics = telemetry.NewMetrics()
	}

	breaker := resilience.NewBreaker("generation-backend", func(o *resilience.Options) {
		o.FailureThreshold = cfg.Breaker.FailureThreshold
		o.ResetTimeout = cfg.Breaker.ResetTimeout
		o.OnStateChange = func(operation string, _, to resilience.State) {
			metrics.SetBreakerState(operation, int(to))
		}
		o.Logger = logger
	})
	if cfg.Breaker.HealthCheckInterval > 0 {
		breaker.StartHealthChecks(ctx, cfg.Breaker.HealthCheckInterval)
	}

	mem := memory.NewManager(func(o *memory.Options) {
		o.MaxShortTermTurns = cfg.Memory.MaxShortTermTurns
		o.MaxLongTermMemories = cfg.Memory.MaxLongTermMemories
		o.RetrievalTopK = cfg.Memory.RetrievalTopK
		o.SummarizeAfterTurns = cfg.Memory.SummarizeAfterTurns
		o.Summarizer = memory.BackendSummarizer{Backend: breakerGuarded{backend: be, breaker: breaker}}
		o.Logger = logger
	})

	return agent.New(be, append([]func(o *agent.Options){func(o *agent.Options) {
		o.Memory = mem
		o.Breaker = breaker
		o.MaxContextTokens = cfg.Memory.MaxContextTokens
		o.Metrics = metrics
		o.Logger = logger
	}}, optFns...)...), nil
}

// breakerGuarded routes backend calls through a circuit breaker so background
// summarization shares the same failure accounting as the request pipeline.
type breakerGuarded struct {
	backend core.Backend
	breaker *resilience.Breaker
}

// Complete implements core.Backend.
func (g breakerGuarded) Complete(ctx context.Context, prompt string) (string, error) {
	return g.breaker.Execute(ctx, func(ctx context.Context) (string, error) {
		return g.backend.Complete(ctx, prompt)
	})
}

// ModelID implements core.Backend.
func (g breakerGuarded) ModelID() string { return g.backend.ModelID() }
