// Package governance contains core.DecisionSink implementations. Sinks
// receive a decision record after each completed turn for bias / governance
// auditing; they are purely observational and never participate in the
// pipeline's control flow.
package governance

import (
	"github.com/hupe1980/convopilot/core"
	"github.com/hupe1980/convopilot/logging"
)

// LogSink writes decision records to the structured log. It is the simplest
// useful sink; swap in an exporter towards a real auditing system at wiring
// time.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink constructs a LogSink. A nil logger falls back to NoOp.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{logger: logging.OrDefault(logger)}
}

// Record implements core.DecisionSink.
func (s *LogSink) Record(record core.DecisionRecord) {
	s.logger.Info("governance.decision",
		"request_id", record.RequestID,
		"session_id", record.SessionID,
		"model_id", record.ModelID,
		"duration_ms", record.Duration.Milliseconds(),
		"error_category", string(record.ErrorCategory),
	)
}

// MultiSink fans a record out to several sinks in order.
type MultiSink []core.DecisionSink

// Record implements core.DecisionSink.
func (m MultiSink) Record(record core.DecisionRecord) {
	for _, sink := range m {
		sink.Record(record)
	}
}
