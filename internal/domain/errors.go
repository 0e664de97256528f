package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error codes for pipeline failure scenarios
const (
	ErrUpstreamUnavailable  = "UPSTREAM_UNAVAILABLE"
	ErrAmbiguousMatch       = "AMBIGUOUS_MATCH"
	ErrInsufficientOpinions = "INSUFFICIENT_OPINIONS"
	ErrConfiguration        = "CONFIGURATION_ERROR"
	ErrInvalidInput         = "INVALID_INPUT"
	ErrDatabaseError        = "DATABASE_ERROR"
	ErrInternalServer       = "INTERNAL_SERVER_ERROR"
)

// PipelineError is a structured error carrying enough detail to render a
// precise physician-facing message: the failing stage and entity, never a
// silent downgrade of clinical severity.
type PipelineError struct {
	Code      string    `json:"code"`
	Stage     string    `json:"stage"`
	EntityID  string    `json:"entity_id,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
	cause     error
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("%s [%s/%s]: %s", e.Code, e.Stage, e.EntityID, e.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Code, e.Stage, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *PipelineError) Unwrap() error {
	return e.cause
}

// NewPipelineError creates a new PipelineError with timestamp.
func NewPipelineError(code, stage, message string) *PipelineError {
	return &PipelineError{
		Code:      code,
		Stage:     stage,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// WithEntity attaches the failing entity id.
func (e *PipelineError) WithEntity(id string) *PipelineError {
	e.EntityID = id
	return e
}

// WithCause attaches the underlying error.
func (e *PipelineError) WithCause(err error) *PipelineError {
	e.cause = err
	return e
}

// WithRequestID attaches the request correlation id.
func (e *PipelineError) WithRequestID(id string) *PipelineError {
	e.RequestID = id
	return e
}

// IsPipelineCode reports whether err is a PipelineError with the given code.
func IsPipelineCode(err error, code string) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// ValidationError represents input validation errors at the API boundary.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
