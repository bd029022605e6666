package streaming

import (
	"context"

	"github.com/stack21/flowengine/pkg/schema"
)

// EventFilter selects the run events a subscriber receives.
// Zero-value fields match everything.
type EventFilter struct {
	WorkflowID string   `json:"workflowId,omitempty"`
	RunID      string   `json:"runId,omitempty"`
	EventTypes []string `json:"eventTypes,omitempty"`
}

// EventHub provides pub/sub for live run events.
type EventHub interface {
	Publish(ctx context.Context, event schema.RunEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan schema.RunEvent, func(), error)
}

// Matches reports whether e passes the filter.
func (f EventFilter) Matches(e schema.RunEvent) bool {
	if f.WorkflowID != "" && f.WorkflowID != e.WorkflowID {
		return false
	}
	if f.RunID != "" && f.RunID != e.RunID {
		return false
	}
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if t == e.Type {
			return true
		}
	}
	return false
}
