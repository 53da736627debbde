// Package errors is the error taxonomy of the HTTP and MCP surfaces. Codes
// reach logs and status lines only; callers always get a conversational
// reply.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode identifies a class of transport-level failure.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates a missing or invalid caller token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimitExceeded indicates the caller sent too many turns.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidArgument indicates a malformed request body.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeServiceUnavailable indicates a dependency is not configured.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeAgentExecutionFailed indicates the turn pipeline failed unexpectedly.
	ErrCodeAgentExecutionFailed ErrorCode = "AGENT_EXECUTION_FAILED"
	// ErrCodeLLMUnavailable indicates the language model could not be reached.
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	// ErrCodeContextCanceled indicates the caller went away.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the turn ran out of time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// replies are the caller-facing sentences per code.
var replies = map[ErrorCode]string{
	ErrCodeUnauthorized:         "Please sign in again so I know who you are.",
	ErrCodeRateLimitExceeded:    "You're going a little fast for me. Give me a second and try again.",
	ErrCodeInvalidArgument:      "I couldn't read that request. Please try again.",
	ErrCodeServiceUnavailable:   "That feature isn't available right now.",
	ErrCodeAgentExecutionFailed: "Sorry, something went wrong on my side. Please try again.",
	ErrCodeLLMUnavailable:       "I'm having trouble thinking right now. Please try again in a moment.",
	ErrCodeContextCanceled:      "That request was cancelled.",
	ErrCodeTimeout:              "That took too long. Please try again.",
}

// AIError is a structured transport error.
type AIError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *AIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AIError) Unwrap() error {
	return e.Cause
}

// WithContext adds a log field to the error.
func (e *AIError) WithContext(key string, value any) *AIError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Status maps the code to an HTTP status.
func (e *AIError) Status() int {
	return HTTPStatus(e.Code)
}

// Reply is the conversational sentence shown for the error.
func (e *AIError) Reply() string {
	if r, ok := replies[e.Code]; ok {
		return r
	}
	return replies[ErrCodeAgentExecutionFailed]
}

// HTTPStatus maps a code to its HTTP status.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeServiceUnavailable, ErrCodeLLMUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeContextCanceled:
		return 499
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *AIError {
	return &AIError{Code: ErrCodeUnauthorized, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *AIError {
	return &AIError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *AIError {
	return &AIError{Code: ErrCodeInvalidArgument, Message: msg}
}

// ServiceUnavailable creates a service unavailable error.
func ServiceUnavailable(msg string) *AIError {
	return &AIError{Code: ErrCodeServiceUnavailable, Message: msg}
}

// AgentExecutionFailed creates an agent execution failed error.
func AgentExecutionFailed(msg string, cause error) *AIError {
	return &AIError{Code: ErrCodeAgentExecutionFailed, Message: msg, Cause: cause}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *AIError {
	return &AIError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	var aiErr *AIError
	return errors.As(err, &aiErr) && aiErr.Code == code
}

// GetCodeFromError extracts the error code from any error, or returns
// defaultCode when err is not an AIError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var aiErr *AIError
	if errors.As(err, &aiErr) {
		return aiErr.Code
	}
	return defaultCode
}
