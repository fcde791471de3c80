package utils

import "fmt"

// ValidationError represents an error occurring during data validation.
// Inputs that fail validation are rejected before any numeric work.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// ComputationError represents an arithmetic domain violation while rating a
// single line. It is isolated to that line and never aborts a batch.
type ComputationError struct {
	Line    string
	Message string
}

func (e *ComputationError) Error() string {
	if e.Line != "" {
		return fmt.Sprintf("computation failed for line %s: %s", e.Line, e.Message)
	}
	return e.Message
}

// NewComputationError creates a ComputationError scoped to a line.
func NewComputationError(line, message string) error {
	return &ComputationError{Line: line, Message: message}
}

// UpstreamUnavailableError indicates the weather collaborator could not be
// reached. Callers fall back to the most recent cached reading if one exists.
type UpstreamUnavailableError struct {
	Upstream string
	Err      error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Upstream, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// NewUpstreamUnavailableError wraps an upstream failure.
func NewUpstreamUnavailableError(upstream string, err error) error {
	return &UpstreamUnavailableError{Upstream: upstream, Err: err}
}

// ServiceDegradedError indicates no live reading and no cached fallback exist,
// so the whole request fails.
type ServiceDegradedError struct {
	Message string
}

func (e *ServiceDegradedError) Error() string {
	return e.Message
}

// NewServiceDegradedError creates a ServiceDegradedError.
func NewServiceDegradedError(message string) error {
	return &ServiceDegradedError{Message: message}
}
