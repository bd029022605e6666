package validation

import (
	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/pkg/schema"
)

// WorkflowValidator runs the validation pipeline:
// 1. Structural (JSON Schema, duplicate ids)
// 2. Semantic (step handlers, trigger config)
// 3. Chain (next pointers, reachability)
type WorkflowValidator struct {
	jsonSchema *JSONSchemaValidator
	handlers   steps.Lookup
}

// NewWorkflowValidator creates a WorkflowValidator.
// handlers may be nil to skip step type checks.
func NewWorkflowValidator(handlers steps.Lookup) (*WorkflowValidator, error) {
	jsv, err := NewJSONSchemaValidator()
	if err != nil {
		return nil, err
	}
	return &WorkflowValidator{jsonSchema: jsv, handlers: handlers}, nil
}

// Validate runs the pipeline and returns an aggregated result.
// Structural errors short-circuit the later stages.
func (wv *WorkflowValidator) Validate(def *schema.WorkflowDefinition) *schema.ValidationResult {
	if def == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "workflow definition is nil")
		return r
	}

	result := validateStructural(wv.jsonSchema, def)
	if !result.Valid() {
		return result
	}

	result.Merge(validateSemantic(def, wv.handlers))
	result.Merge(validateChain(def))
	return result
}

func (wv *WorkflowValidator) ValidateDefinition(def *schema.WorkflowDefinition) error {
	return wv.Validate(def).ToError()
}

func (wv *WorkflowValidator) ValidateInput(input map[string]any, inputSchema []byte) error {
	return wv.jsonSchema.ValidateInput(input, inputSchema)
}

var _ Validator = (*WorkflowValidator)(nil)

func validateStructural(v *JSONSchemaValidator, def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	err := v.ValidateDefinition(def)
	if err == nil {
		return result
	}

	se, ok := err.(*schema.Error)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, err.Error())
		return result
	}
	if violations, ok := se.Details["violations"].([]string); ok {
		for _, msg := range violations {
			result.AddError("/", schema.ErrCodeValidation, msg)
		}
		return result
	}
	result.AddError("/", se.Code, se.Message)
	return result
}
