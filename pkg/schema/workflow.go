package schema

import "time"

// WorkflowDefinition is the persisted, JSON-serializable workflow format.
// Steps form a singly-linked chain through Next, entered at Steps[0].
type WorkflowDefinition struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Trigger     Trigger        `json:"trigger"`
	Steps       []WorkflowStep `json:"steps"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// Trigger records what kind of external event starts a workflow.
type Trigger struct {
	Type   string         `json:"type"`             // webhook | schedule | manual
	Config map[string]any `json:"config,omitempty"` // e.g. {"cron": "0 */6 * * *"}
}

// Trigger types understood by the built-in trigger sources.
const (
	TriggerWebhook  = "webhook"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// WorkflowStep is a single typed unit of work.
type WorkflowStep struct {
	ID     string         `json:"id"`
	Type   StepType       `json:"type"`
	Name   string         `json:"name"`
	Config map[string]any `json:"config,omitempty"`
	Next   string         `json:"next,omitempty"` // empty: halt after this step
}

// StepType enumerates the built-in step kinds.
type StepType string

const (
	StepTypeHTTPRequest   StepType = "http_request"
	StepTypeDataTransform StepType = "data_transform"
	StepTypeCondition     StepType = "condition"
	StepTypeDelay         StepType = "delay"
	StepTypeLog           StepType = "log"
)

// KnownStepTypes returns the closed set of built-in step types.
func KnownStepTypes() []StepType {
	return []StepType{
		StepTypeHTTPRequest,
		StepTypeDataTransform,
		StepTypeCondition,
		StepTypeDelay,
		StepTypeLog,
	}
}

// StepIndex maps step IDs to their steps. Later duplicates win.
func (w *WorkflowDefinition) StepIndex() map[string]*WorkflowStep {
	idx := make(map[string]*WorkflowStep, len(w.Steps))
	for i := range w.Steps {
		idx[w.Steps[i].ID] = &w.Steps[i]
	}
	return idx
}

// FirstStepID returns the entry step ID, or "" for an empty workflow.
func (w *WorkflowDefinition) FirstStepID() string {
	if len(w.Steps) == 0 {
		return ""
	}
	return w.Steps[0].ID
}
