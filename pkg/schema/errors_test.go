package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Format(t *testing.T) {
	err := NewErrorf(ErrCodeWorkflowNotFound, "workflow %q not found", "wf-1")
	assert.Equal(t, `[WORKFLOW_NOT_FOUND] workflow "wf-1" not found`, err.Error())

	err = NewError(ErrCodeExecution, "boom").WithStep("s2")
	assert.Equal(t, "[EXECUTION_ERROR] step s2: boom", err.Error())
}

func TestIsCode(t *testing.T) {
	root := errors.New("connection refused")
	err := NewError(ErrCodeExecution, "request failed").WithCause(root)
	wrapped := fmt.Errorf("dispatch: %w", err)

	assert.True(t, IsCode(wrapped, ErrCodeExecution))
	assert.False(t, IsCode(wrapped, ErrCodeNotFound))
	assert.ErrorIs(t, wrapped, root)
	assert.False(t, IsCode(root, ErrCodeExecution))
	assert.False(t, IsCode(nil, ErrCodeExecution))
}

func TestIsCode_NestedCause(t *testing.T) {
	inner := NewError(ErrCodeUnsupportedStepType, "unsupported step type: email")
	outer := NewError(ErrCodeStepFailed, "step failed").WithCause(inner)
	assert.True(t, IsCode(outer, ErrCodeUnsupportedStepType))
}

func TestStepError_Message(t *testing.T) {
	step := &WorkflowStep{ID: "s2", Name: "Call API"}

	plain := NewStepError(step, errors.New("HTTP error: status 500"))
	assert.Equal(t, "Error en paso Call API: HTTP error: status 500", plain.Error())

	structured := NewStepError(step, NewError(ErrCodeUnsupportedStepType, "unsupported step type: email"))
	assert.Equal(t, "Error en paso Call API: unsupported step type: email", structured.Error())
	assert.True(t, IsCode(structured, ErrCodeUnsupportedStepType))
}

func TestStepError_Code(t *testing.T) {
	step := &WorkflowStep{ID: "s1", Name: "Fetch"}
	err := fmt.Errorf("run: %w", NewStepError(step, errors.New("boom")))

	assert.True(t, IsCode(err, ErrCodeStepFailed))
	assert.False(t, IsCode(err, ErrCodeExecution))
	assert.False(t, IsCode(errors.New("boom"), ErrCodeStepFailed))

	var ste *StepError
	if assert.ErrorAs(t, err, &ste) {
		assert.Equal(t, ErrCodeStepFailed, ste.Code())
	}
}
