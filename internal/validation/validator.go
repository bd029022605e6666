package validation

import "github.com/stack21/flowengine/pkg/schema"

// Validator checks workflow definitions before they are stored, and
// webhook payloads against a workflow's declared input schema.
type Validator interface {
	ValidateDefinition(def *schema.WorkflowDefinition) error
	ValidateInput(input map[string]any, inputSchema []byte) error
}
