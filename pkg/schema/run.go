package schema

import "time"

// RunStatus is the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled" // set externally only
)

// StepStatus is the lifecycle state of a recorded step.
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusRunning   StepStatus = "running"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
)

// WorkflowRun is one execution attempt of a workflow definition.
type WorkflowRun struct {
	ID           string         `json:"id"`
	WorkflowID   string         `json:"workflowId"`
	WorkflowName string         `json:"workflowName"`
	Status       RunStatus      `json:"status"`
	StartedAt    time.Time      `json:"startedAt"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	Duration     int64          `json:"duration"` // milliseconds
	TriggerType  string         `json:"triggerType"`
	TriggerData  map[string]any `json:"triggerData"`
	ErrorMessage string         `json:"errorMessage,omitempty"`
	Steps        []RunStep      `json:"steps"`
}

// RunStep records a single step execution within a run.
// Input and Output are value snapshots taken when the step started and finished.
type RunStep struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Type        StepType   `json:"type"`
	Status      StepStatus `json:"status"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Duration    int64      `json:"duration"`
	Input       any        `json:"input"`
	Output      any        `json:"output,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Finished reports whether the run reached a terminal status.
func (r *WorkflowRun) Finished() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed || r.Status == RunStatusCancelled
}

// LastStep returns the most recently appended step, or nil.
func (r *WorkflowRun) LastStep() *RunStep {
	if len(r.Steps) == 0 {
		return nil
	}
	return &r.Steps[len(r.Steps)-1]
}
