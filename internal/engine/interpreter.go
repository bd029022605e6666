package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/stack21/flowengine/internal/expressions"
	"github.com/stack21/flowengine/internal/logging"
	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

// Executor runs a workflow definition to completion and returns its run.
// Satisfied by *Interpreter; the dispatcher, scheduler and surfaces depend
// on this rather than the concrete type.
type Executor interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any) (*schema.WorkflowRun, error)
}

// Interpreter walks a workflow's next-pointer chain one step at a time,
// persisting the run after every step.
type Interpreter struct {
	workflows store.WorkflowStore
	runs      store.RunStore
	handlers  steps.Lookup

	logger   *slog.Logger
	metrics  *Metrics
	now      func() time.Time
	newRunID func(time.Time) string
	life     lifecycle
}

// Option configures an Interpreter.
type Option func(*Interpreter)

func WithLogger(l *slog.Logger) Option {
	return func(it *Interpreter) { it.logger = l }
}

// WithEventAppender records run events into a durable log.
func WithEventAppender(a EventAppender) Option {
	return func(it *Interpreter) { it.life.appender = a }
}

// WithEventPublisher streams run events to live subscribers.
func WithEventPublisher(p EventPublisher) Option {
	return func(it *Interpreter) { it.life.publisher = p }
}

func WithMetrics(m *Metrics) Option {
	return func(it *Interpreter) { it.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(it *Interpreter) { it.now = now }
}

// WithRunIDGenerator overrides run id generation.
func WithRunIDGenerator(gen func(time.Time) string) Option {
	return func(it *Interpreter) { it.newRunID = gen }
}

func NewInterpreter(workflows store.WorkflowStore, runs store.RunStore, handlers steps.Lookup, opts ...Option) *Interpreter {
	it := &Interpreter{
		workflows: workflows,
		runs:      runs,
		handlers:  handlers,
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		newRunID:  NewRunID,
	}
	for _, opt := range opts {
		opt(it)
	}
	it.life.logger = it.logger
	it.life.now = it.now
	return it
}

// ExecuteWorkflow runs workflowID with triggerData as the initial data bag.
//
// An unknown workflow returns WORKFLOW_NOT_FOUND and writes nothing. Step
// failures do not return an error: they are recorded on the run, which ends
// failed. Store errors are returned as is.
func (it *Interpreter) ExecuteWorkflow(ctx context.Context, workflowID string, triggerData map[string]any) (*schema.WorkflowRun, error) {
	wf, err := it.workflows.GetWorkflow(ctx, workflowID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, schema.NewErrorf(schema.ErrCodeWorkflowNotFound, "Workflow %s not found", workflowID).WithCause(err)
		}
		return nil, err
	}

	if triggerData == nil {
		triggerData = map[string]any{}
	}
	startedAt := it.now()
	run := &schema.WorkflowRun{
		ID:           it.newRunID(startedAt),
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Status:       schema.RunStatusRunning,
		StartedAt:    startedAt,
		TriggerType:  wf.Trigger.Type,
		TriggerData:  expressions.SnapshotMap(triggerData),
		Steps:        []schema.RunStep{},
	}

	ctx = logging.WithRun(ctx, wf.ID, run.ID)
	log := logging.LogWith(ctx, it.logger)
	// Persistence outlives cancellation so a cancelled run is still
	// recorded as failed.
	saveCtx := context.WithoutCancel(ctx)

	if err := it.runs.SaveRun(saveCtx, run); err != nil {
		return nil, err
	}
	log.Info("run started", "workflow_name", wf.Name, "trigger_type", run.TriggerType, "steps", len(wf.Steps))
	it.metrics.runStarted(ctx, wf.ID)
	it.life.emitRun(ctx, run)

	index := wf.StepIndex()
	visited := make(map[string]bool, len(wf.Steps))
	var current any = expressions.SnapshotMap(triggerData)

	for stepID := wf.FirstStepID(); stepID != "" && !visited[stepID]; {
		visited[stepID] = true

		def, ok := index[stepID]
		if !ok {
			log.Warn("next step not found, stopping run", "step_id", stepID)
			it.life.emitStepMissing(ctx, run, stepID)
			break
		}

		output, stepErr := it.runStep(ctx, run, def, current, triggerData)
		if err := it.runs.SaveRun(saveCtx, run); err != nil {
			return nil, err
		}
		if stepErr != nil {
			break
		}
		current = output
		stepID = def.Next
	}

	return it.finish(saveCtx, run)
}

// runStep records and executes one step. The returned error has already
// been recorded on the run.
func (it *Interpreter) runStep(ctx context.Context, run *schema.WorkflowRun, def *schema.WorkflowStep, data any, trigger map[string]any) (any, error) {
	ctx = logging.WithStepID(ctx, def.ID)
	log := logging.LogWith(ctx, it.logger)

	run.Steps = append(run.Steps, schema.RunStep{
		ID:        def.ID,
		Name:      def.Name,
		Type:      def.Type,
		Status:    schema.StepStatusPending,
		StartedAt: it.now(),
		Input:     expressions.Snapshot(data),
	})
	rec := run.LastStep()
	_ = it.life.transitionStep(ctx, run, rec, schema.StepStatusRunning)

	output, err := it.dispatch(ctx, run, def, data, trigger)

	completedAt := it.now()
	rec.CompletedAt = &completedAt
	rec.Duration = completedAt.Sub(rec.StartedAt).Milliseconds()

	if err != nil {
		stepErr := schema.NewStepError(def, err)
		rec.Error = stepErr.Error()
		_ = it.life.transitionStep(ctx, run, rec, schema.StepStatusFailed)
		run.ErrorMessage = stepErr.Error()
		_ = it.life.transitionRun(run, schema.RunStatusFailed)
		it.metrics.stepFinished(ctx, rec)
		log.Error("step failed", "step_type", def.Type, "duration_ms", rec.Duration, "error", err)
		return nil, stepErr
	}

	rec.Output = expressions.Snapshot(output)
	_ = it.life.transitionStep(ctx, run, rec, schema.StepStatusCompleted)
	it.metrics.stepFinished(ctx, rec)
	log.Debug("step completed", "step_type", def.Type, "duration_ms", rec.Duration)
	return output, nil
}

// dispatch hands the step its own copy of the data bag so that handler
// mutations cannot reach recorded snapshots.
func (it *Interpreter) dispatch(ctx context.Context, run *schema.WorkflowRun, def *schema.WorkflowStep, data any, trigger map[string]any) (out any, err error) {
	h, err := it.handlers.Get(def.Type)
	if err != nil {
		return nil, err
	}
	defer func() {
		if r := recover(); r != nil {
			err = schema.NewErrorf(schema.ErrCodeExecution, "handler panic: %v", r)
		}
	}()
	return h.Execute(ctx, steps.Input{
		Step:       def,
		Data:       expressions.Snapshot(data),
		Trigger:    expressions.SnapshotMap(trigger),
		RunID:      run.ID,
		WorkflowID: run.WorkflowID,
	})
}

func (it *Interpreter) finish(ctx context.Context, run *schema.WorkflowRun) (*schema.WorkflowRun, error) {
	if run.Status == schema.RunStatusRunning {
		_ = it.life.transitionRun(run, schema.RunStatusCompleted)
	}
	completedAt := it.now()
	run.CompletedAt = &completedAt
	run.Duration = completedAt.Sub(run.StartedAt).Milliseconds()

	if err := it.runs.SaveRun(ctx, run); err != nil {
		return nil, err
	}

	it.metrics.runFinished(ctx, run)
	it.life.emitRun(ctx, run)

	log := logging.LogWith(ctx, it.logger)
	if run.Status == schema.RunStatusFailed {
		log.Warn("run failed", "duration_ms", run.Duration, "steps", len(run.Steps), "error", run.ErrorMessage)
	} else {
		log.Info("run completed", "duration_ms", run.Duration, "steps", len(run.Steps))
	}
	return run, nil
}

var _ Executor = (*Interpreter)(nil)
