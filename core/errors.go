package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies pipeline failures so they can be mapped to a
// severity and a safe user-facing message exactly once, at the orchestrator
// boundary.
type ErrorCategory string

const (
	// CategoryInputValidation marks rejected caller input (empty, malformed).
	CategoryInputValidation ErrorCategory = "INPUT_VALIDATION"
	// CategoryLLMAPI marks generation backend failures (timeouts, quota,
	// transport errors, open circuit).
	CategoryLLMAPI ErrorCategory = "LLM_API"
	// CategoryMemoryStorage marks session state / memory storage failures.
	CategoryMemoryStorage ErrorCategory = "MEMORY_STORAGE"
	// CategoryContextWindowExceeded marks context budget violations that could
	// not be resolved by degrading the context bundle.
	CategoryContextWindowExceeded ErrorCategory = "CONTEXT_WINDOW_EXCEEDED"
	// CategoryToolExecution marks embedded tool call failures.
	CategoryToolExecution ErrorCategory = "TOOL_EXECUTION"
	// CategoryUnauthorized marks callers lacking permission for an operation.
	CategoryUnauthorized ErrorCategory = "UNAUTHORIZED"
)

// Severity grades an error for logging and alerting purposes.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AgentError is the categorized error raised inside the request pipeline.
// Per-category payload fields (StatusCode, TokenCount/MaxTokens, ToolName) are
// only populated where the category defines them.
type AgentError struct {
	Category ErrorCategory
	Message  string // internal detail, never shown to callers

	StatusCode int    // LLMAPI: HTTP-like status when available
	TokenCount int    // ContextWindowExceeded: final estimated tokens
	MaxTokens  int    // ContextWindowExceeded: configured budget
	ToolName   string // ToolExecution: failing tool

	Err error // wrapped cause, if any
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent error [%s]: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("agent error [%s]: %s", e.Category, e.Message)
}

// Unwrap returns the wrapped cause enabling errors.Is / errors.As.
func (e *AgentError) Unwrap() error { return e.Err }

// NewInputValidationError reports rejected caller input.
func NewInputValidationError(message string) *AgentError {
	return &AgentError{Category: CategoryInputValidation, Message: message}
}

// NewLLMAPIError reports a generation backend failure. statusCode may be 0
// when no HTTP-like status is available.
func NewLLMAPIError(message string, statusCode int, err error) *AgentError {
	return &AgentError{Category: CategoryLLMAPI, Message: message, StatusCode: statusCode, Err: err}
}

// NewMemoryStorageError reports a session state or memory storage failure.
func NewMemoryStorageError(message string, err error) *AgentError {
	return &AgentError{Category: CategoryMemoryStorage, Message: message, Err: err}
}

// NewContextWindowError reports an unresolvable context budget violation
// carrying the final token estimate and the configured maximum.
func NewContextWindowError(tokenCount, maxTokens int) *AgentError {
	return &AgentError{
		Category:   CategoryContextWindowExceeded,
		Message:    fmt.Sprintf("estimated %d tokens exceeds budget of %d", tokenCount, maxTokens),
		TokenCount: tokenCount,
		MaxTokens:  maxTokens,
	}
}

// NewToolExecutionError reports a failing embedded tool call.
func NewToolExecutionError(toolName string, err error) *AgentError {
	return &AgentError{
		Category: CategoryToolExecution,
		Message:  fmt.Sprintf("tool %q failed", toolName),
		ToolName: toolName,
		Err:      err,
	}
}

// NewUnauthorizedError reports a caller lacking permission.
func NewUnauthorizedError(message string) *AgentError {
	return &AgentError{Category: CategoryUnauthorized, Message: message}
}

// AsAgentError extracts an *AgentError from an error chain. The second return
// is false when the chain carries no AgentError.
func AsAgentError(err error) (*AgentError, bool) {
	var ae *AgentError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// MonitoredError is the normalized shape every failure is converted to before
// leaving the orchestrator. UserMessage is safe to return to callers; Internal
// retains the original detail for logging only.
type MonitoredError struct {
	Category    ErrorCategory `json:"category"`
	Severity    Severity      `json:"severity"`
	Internal    string        `json:"-"`
	UserMessage string        `json:"user_message"`
}
