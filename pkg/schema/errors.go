package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeExecution           = "EXECUTION_ERROR"
	ErrCodeTimeout             = "TIMEOUT_ERROR"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeWorkflowNotFound    = "WORKFLOW_NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeCycleDetected       = "CYCLE_DETECTED"
	ErrCodeStepFailed          = "STEP_EXECUTION_ERROR"
	ErrCodeUnsupportedStepType = "UNSUPPORTED_STEP_TYPE"
	ErrCodeExpression          = "EXPRESSION_ERROR"
	ErrCodeCancelled           = "CANCELLED"
	ErrCodeStore               = "STORE_ERROR"
)

// Error is the structured error type used across the engine.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	StepID  string         `json:"stepId,omitempty"`
	Cause   error          `json:"-"`
}

func (e *Error) Error() string {
	if e.StepID != "" {
		return fmt.Sprintf("[%s] step %s: %s", e.Code, e.StepID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithStep attaches a step ID to the error.
func (e *Error) WithStep(stepID string) *Error {
	e.StepID = stepID
	return e
}

// WithCause attaches an underlying cause.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// IsCode reports whether any *Error in err's chain carries code. A
// *StepError in the chain matches ErrCodeStepFailed.
func IsCode(err error, code string) bool {
	if code == ErrCodeStepFailed {
		var ste *StepError
		if errors.As(err, &ste) {
			return true
		}
	}
	for err != nil {
		var se *Error
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Cause
	}
	return false
}

// StepError wraps a handler failure with the display name of the step that
// raised it. Its message is what ends up in RunStep.Error and
// WorkflowRun.ErrorMessage.
type StepError struct {
	StepID   string
	StepName string
	Cause    error
}

// NewStepError wraps cause for the given step.
func NewStepError(step *WorkflowStep, cause error) *StepError {
	return &StepError{StepID: step.ID, StepName: step.Name, Cause: cause}
}

func (e *StepError) Error() string {
	return fmt.Sprintf("Error en paso %s: %s", e.StepName, causeMessage(e.Cause))
}

// Code is always ErrCodeStepFailed.
func (e *StepError) Code() string {
	return ErrCodeStepFailed
}

func (e *StepError) Unwrap() error {
	return e.Cause
}

// causeMessage prefers the bare message of a structured error so the
// recorded text stays readable.
func causeMessage(err error) string {
	if err == nil {
		return "unknown error"
	}
	var se *Error
	if errors.As(err, &se) && se == err {
		return se.Message
	}
	return err.Error()
}
