package resilience

import (
	"errors"
	"fmt"

	"github.com/hupe1980/convopilot/core"
	"github.com/hupe1980/convopilot/logging"
)

// User-facing messages per error category. Internal details never leak into
// these strings.
const (
	msgInputValidation = "Please provide a non-empty message."
	msgLLMAPI          = "I'm sorry, I couldn't generate a response right now. Please try again."
	msgCircuitOpen     = "The assistant is temporarily unavailable. Please try again in a moment."
	msgMemoryStorage   = "I couldn't access the conversation history. Please try again."
	msgContextWindow   = "The conversation has grown too large for a single request. Try a shorter message or clear the session."
	msgToolExecution   = "A tool needed for this request failed to run."
	msgUnauthorized    = "You are not authorized to perform this action."
	msgUnknown         = "Something went wrong while handling your request."
)

// Handler normalizes pipeline failures into core.MonitoredError values:
// category plus severity plus a safe user-facing message. Internal details are
// logged, never returned.
type Handler struct {
	logger logging.Logger
}

// NewHandler constructs a Handler. A nil logger falls back to NoOp.
func NewHandler(logger logging.Logger) *Handler {
	return &Handler{logger: logging.OrDefault(logger)}
}

// Handle converts any error raised inside the pipeline into its monitored
// form, logging the internal detail at a level matching the severity.
func (h *Handler) Handle(err error) core.MonitoredError {
	monitored := normalize(err)

	switch monitored.Severity {
	case core.SeverityLow:
		h.logger.Info("pipeline.error", "category", string(monitored.Category), "detail", monitored.Internal)
	case core.SeverityMedium:
		h.logger.Warn("pipeline.error", "category", string(monitored.Category), "detail", monitored.Internal)
	default:
		h.logger.Error("pipeline.error", "category", string(monitored.Category), "detail", monitored.Internal)
	}

	return monitored
}

// UserMessage returns only the safe user-facing text for an error, without
// logging. Used where failures are substituted inline (tool execution).
func (h *Handler) UserMessage(err error) string {
	return normalize(err).UserMessage
}

// SeverityFor maps a category onto its severity grade.
func SeverityFor(category core.ErrorCategory) core.Severity {
	switch category {
	case core.CategoryInputValidation:
		return core.SeverityLow
	case core.CategoryToolExecution:
		return core.SeverityMedium
	case core.CategoryLLMAPI, core.CategoryMemoryStorage, core.CategoryContextWindowExceeded:
		return core.SeverityHigh
	case core.CategoryUnauthorized:
		return core.SeverityHigh
	default:
		return core.SeverityMedium
	}
}

func normalize(err error) core.MonitoredError {
	var open *CircuitOpenError
	if errors.As(err, &open) {
		return core.MonitoredError{
			Category:    core.CategoryLLMAPI,
			Severity:    core.SeverityHigh,
			Internal:    open.Error(),
			UserMessage: msgCircuitOpen,
		}
	}

	if ae, ok := core.AsAgentError(err); ok {
		return core.MonitoredError{
			Category:    ae.Category,
			Severity:    SeverityFor(ae.Category),
			Internal:    ae.Error(),
			UserMessage: userMessageFor(ae),
		}
	}

	return core.MonitoredError{
		Category:    core.CategoryLLMAPI,
		Severity:    core.SeverityHigh,
		Internal:    fmt.Sprintf("uncategorized: %v", err),
		UserMessage: msgUnknown,
	}
}

func userMessageFor(ae *core.AgentError) string {
	switch ae.Category {
	case core.CategoryInputValidation:
		return msgInputValidation
	case core.CategoryLLMAPI:
		return msgLLMAPI
	case core.CategoryMemoryStorage:
		return msgMemoryStorage
	case core.CategoryContextWindowExceeded:
		return msgContextWindow
	case core.CategoryToolExecution:
		return msgToolExecution
	case core.CategoryUnauthorized:
		return msgUnauthorized
	default:
		return msgUnknown
	}
}
