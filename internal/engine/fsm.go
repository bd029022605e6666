package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"github.com/stack21/flowengine/internal/logging"
	"github.com/stack21/flowengine/pkg/schema"
)

// EventAppender is satisfied by store.EventLog; events are appended to a
// run's durable history as transitions happen.
type EventAppender interface {
	AppendEvent(ctx context.Context, event *schema.RunEvent) error
}

// EventPublisher is satisfied by streaming.EventHub.
type EventPublisher interface {
	Publish(ctx context.Context, event schema.RunEvent) error
}

// ValidRunTransitions lists the allowed run status changes.
var ValidRunTransitions = map[schema.RunStatus][]schema.RunStatus{
	schema.RunStatusRunning:   {schema.RunStatusCompleted, schema.RunStatusFailed, schema.RunStatusCancelled},
	schema.RunStatusCompleted: {},
	schema.RunStatusFailed:    {},
	schema.RunStatusCancelled: {},
}

// ValidStepTransitions lists the allowed step status changes.
var ValidStepTransitions = map[schema.StepStatus][]schema.StepStatus{
	schema.StepStatusPending:   {schema.StepStatusRunning},
	schema.StepStatusRunning:   {schema.StepStatusCompleted, schema.StepStatusFailed},
	schema.StepStatusCompleted: {},
	schema.StepStatusFailed:    {},
}

// lifecycle applies status transitions to a run and its steps and emits
// the matching events. Event delivery failures are logged, never returned.
type lifecycle struct {
	appender  EventAppender
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// transitionRun only changes the status; the terminal event is emitted by
// finish once duration and completion time are known.
func (l *lifecycle) transitionRun(run *schema.WorkflowRun, to schema.RunStatus) error {
	if !slices.Contains(ValidRunTransitions[run.Status], to) {
		return schema.NewErrorf(schema.ErrCodeConflict, "invalid run transition: %s -> %s", run.Status, to).
			WithDetails(map[string]any{"run_id": run.ID, "from": string(run.Status), "to": string(to)})
	}
	run.Status = to
	return nil
}

func (l *lifecycle) transitionStep(ctx context.Context, run *schema.WorkflowRun, step *schema.RunStep, to schema.StepStatus) error {
	if !slices.Contains(ValidStepTransitions[step.Status], to) {
		return schema.NewErrorf(schema.ErrCodeConflict, "invalid step transition: %s -> %s", step.Status, to).
			WithStep(step.ID)
	}
	step.Status = to

	p := schema.StepEventPayload{Duration: step.Duration}
	switch to {
	case schema.StepStatusRunning:
		p.Name, p.Type, p.Input = step.Name, step.Type, step.Input
	case schema.StepStatusCompleted:
		p.Output = step.Output
	case schema.StepStatusFailed:
		p.Error = step.Error
	}
	l.emit(ctx, schema.RunEvent{
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		StepID:     step.ID,
		Type:       stepEventType(to),
		Payload:    l.marshal(ctx, p),
	})
	return nil
}

func (l *lifecycle) emitRun(ctx context.Context, run *schema.WorkflowRun) {
	eventType := runEventType(run.Status)
	if eventType == "" {
		return
	}
	l.emit(ctx, schema.RunEvent{
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
		Type:       eventType,
		Payload: l.marshal(ctx, schema.RunEventPayload{
			WorkflowName: run.WorkflowName,
			TriggerType:  run.TriggerType,
			Status:       run.Status,
			ErrorMessage: run.ErrorMessage,
			Duration:     run.Duration,
		}),
	})
}

func (l *lifecycle) emitStepMissing(ctx context.Context, run *schema.WorkflowRun, stepID string) {
	l.emit(ctx, schema.RunEvent{RunID: run.ID, WorkflowID: run.WorkflowID, StepID: stepID, Type: schema.EventStepMissing})
}

func (l *lifecycle) emit(ctx context.Context, event schema.RunEvent) {
	if l.appender == nil && l.publisher == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}
	if l.appender != nil {
		if err := l.appender.AppendEvent(ctx, &event); err != nil {
			logging.LogWith(ctx, l.logger).Warn("append run event failed", "event", event.Type, "error", err)
		}
	}
	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, event); err != nil {
			logging.LogWith(ctx, l.logger).Debug("publish run event failed", "event", event.Type, "error", err)
		}
	}
}

func (l *lifecycle) marshal(ctx context.Context, v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		logging.LogWith(ctx, l.logger).Warn("encode event payload failed", "error", err)
		return nil
	}
	return raw
}

func runEventType(to schema.RunStatus) string {
	switch to {
	case schema.RunStatusRunning:
		return schema.EventRunStarted
	case schema.RunStatusCompleted:
		return schema.EventRunCompleted
	case schema.RunStatusFailed:
		return schema.EventRunFailed
	default:
		return ""
	}
}

func stepEventType(to schema.StepStatus) string {
	switch to {
	case schema.StepStatusRunning:
		return schema.EventStepStarted
	case schema.StepStatusCompleted:
		return schema.EventStepCompleted
	case schema.StepStatusFailed:
		return schema.EventStepFailed
	default:
		return ""
	}
}
