package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.NoError(t, r.ToError())
}

func TestValidationResult_WarningsOnlyIsValid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("steps[1].next", ErrCodeValidation, "next points at unknown step")

	assert.True(t, r.Valid())
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_MergeAndString(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("steps[0].type", ErrCodeValidation, "unsupported step type")

	other := &ValidationResult{}
	other.AddWarning("steps[2]", ErrCodeCycleDetected, "step s3 is part of a cycle")
	r.Merge(other)
	r.Merge(nil)

	assert.Len(t, r.Errors, 1)
	assert.Len(t, r.Warnings, 1)
	assert.Equal(t,
		"error steps[0].type: unsupported step type\nwarning steps[2]: step s3 is part of a cycle\n",
		r.String())
}

func TestValidationResult_ToError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("steps[0].type", ErrCodeValidation, "unsupported step type")

	var flowErr *Error
	require.ErrorAs(t, r.ToError(), &flowErr)
	assert.Equal(t, ErrCodeValidation, flowErr.Code)
	assert.Equal(t, "unsupported step type", flowErr.Message)

	r.AddError("steps[1].id", ErrCodeConflict, "duplicate step id")
	require.ErrorAs(t, r.ToError(), &flowErr)
	assert.Contains(t, flowErr.Message, "2 errors")
	assert.Equal(t, 2, flowErr.Details["error_count"])
}
