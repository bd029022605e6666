package schema

import (
	"encoding/json"
	"time"
)

// Event type constants for the per-run event log and live stream.
const (
	EventRunStarted   = "run_started"
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"

	EventStepStarted   = "step_started"
	EventStepCompleted = "step_completed"
	EventStepFailed    = "step_failed"

	// EventStepMissing is logged when a next pointer names an unknown step.
	EventStepMissing = "step_missing"
)

// RunEvent is a single entry in a run's append-only history.
type RunEvent struct {
	ID         int64           `json:"id,omitempty"`
	RunID      string          `json:"runId"`
	WorkflowID string          `json:"workflowId"`
	StepID     string          `json:"stepId,omitempty"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Sequence   int64           `json:"sequence"`
	Timestamp  time.Time       `json:"timestamp"`
}

// TerminalEvent reports whether the event type closes a run.
func TerminalEvent(eventType string) bool {
	return eventType == EventRunCompleted || eventType == EventRunFailed
}

// StepEventPayload is the payload carried by step_* events.
type StepEventPayload struct {
	Name     string   `json:"name,omitempty"`
	Type     StepType `json:"type,omitempty"`
	Input    any      `json:"input,omitempty"`
	Output   any      `json:"output,omitempty"`
	Error    string   `json:"error,omitempty"`
	Duration int64    `json:"duration,omitempty"`
}

// RunEventPayload is the payload carried by run_* events.
type RunEventPayload struct {
	WorkflowName string    `json:"workflowName,omitempty"`
	TriggerType  string    `json:"triggerType,omitempty"`
	Status       RunStatus `json:"status,omitempty"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	Duration     int64     `json:"duration,omitempty"`
}
