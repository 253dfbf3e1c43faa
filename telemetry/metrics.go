// Package telemetry collects Prometheus metrics for the request pipeline:
// request outcomes and latency, tool executions, backend calls and circuit
// breaker state. Construct one Metrics per process and share it across
// components; a nil *Metrics disables all recording.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	RequestErrorsTotal *prometheus.CounterVec

	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	BackendCallsTotal *prometheus.CounterVec
	BreakerState      *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convopilot_requests_total",
				Help: "Total number of handled requests",
			},
			[]string{"status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convopilot_request_duration_seconds",
				Help:    "Duration of request handling in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		RequestErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convopilot_request_errors_total",
				Help: "Total number of request errors by category",
			},
			[]string{"category"},
		),
		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convopilot_tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "convopilot_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool"},
		),
		BackendCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "convopilot_backend_calls_total",
				Help: "Total number of generation backend calls",
			},
			[]string{"model", "status"},
		),
		BreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "convopilot_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.RequestErrorsTotal,
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.BackendCallsTotal,
		m.BreakerState,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics in Prometheus format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one handled request. errorCategory is empty for
// successful requests.
func (m *Metrics) ObserveRequest(duration time.Duration, errorCategory string) {
	if m == nil {
		return
	}
	status := "ok"
	if errorCategory != "" {
		status = "error"
		m.RequestErrorsTotal.WithLabelValues(errorCategory).Inc()
	}
	m.RequestsTotal.WithLabelValues(status).Inc()
	m.RequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// ObserveTool records one tool execution. Implements tool.Recorder.
func (m *Metrics) ObserveTool(name string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	m.ToolExecutionsTotal.WithLabelValues(name, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ObserveBackendCall records one generation backend call outcome.
func (m *Metrics) ObserveBackendCall(model string, success bool) {
	if m == nil {
		return
	}
	status := "ok"
	if !success {
		status = "error"
	}
	m.BackendCallsTotal.WithLabelValues(model, status).Inc()
}

// SetBreakerState records the current circuit breaker state for an operation.
func (m *Metrics) SetBreakerState(operation string, state int) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(operation).Set(float64(state))
}
