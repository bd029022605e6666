package steps

import (
	"context"

	"github.com/stack21/flowengine/pkg/schema"
)

// Handler executes one step type. Execute receives the step's own copy of
// the data bag and returns the data bag for the next step.
type Handler interface {
	Type() schema.StepType
	Description() string
	Validate(config map[string]any) error
	Execute(ctx context.Context, in Input) (any, error)
}

// Lookup resolves a step type to its handler.
type Lookup interface {
	Get(stepType schema.StepType) (Handler, error)
}

// Input is what a handler sees when it runs.
type Input struct {
	Step       *schema.WorkflowStep
	Data       any
	Trigger    map[string]any
	RunID      string
	WorkflowID string
}

// Config returns the step config, never nil.
func (in Input) Config() map[string]any {
	if in.Step == nil || in.Step.Config == nil {
		return map[string]any{}
	}
	return in.Step.Config
}

// ConditionFunc decides a condition step in Go code. Definitions built
// programmatically may put one under config["condition"].
type ConditionFunc func(input any) (bool, error)

// TransformFunc computes a data_transform result in Go code. Definitions
// built programmatically may put one under config["transform"].
type TransformFunc func(input any) (any, error)

// HandlerInfo summarizes a registered handler for listings.
type HandlerInfo struct {
	Type        schema.StepType `json:"type"`
	Description string          `json:"description,omitempty"`
}
