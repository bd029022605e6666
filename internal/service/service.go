// Package service holds the workflow operations shared by the REST API,
// the MCP server and the CLI.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stack21/flowengine/internal/diagram"
	"github.com/stack21/flowengine/internal/engine"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/internal/validation"
	"github.com/stack21/flowengine/pkg/schema"
)

// Submitter starts a run asynchronously. Satisfied by engine.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, workflowID string, triggerData map[string]any, onDone func(*schema.WorkflowRun, error)) error
}

// Deps are the collaborators of a WorkflowService. Events and Dispatcher
// may be nil.
type Deps struct {
	Store      store.Store
	Events     store.EventStore
	Executor   engine.Executor
	Dispatcher Submitter
	Validator  *validation.WorkflowValidator
	Logger     *slog.Logger
	Now        func() time.Time
}

// WorkflowService defines, runs and inspects workflows.
type WorkflowService struct {
	deps Deps
}

func New(deps Deps) *WorkflowService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &WorkflowService{deps: deps}
}

// DefineResult is what DefineWorkflow stored, plus any warnings.
type DefineResult struct {
	Workflow *schema.WorkflowDefinition `json:"workflow"`
	Warnings []schema.ValidationIssue   `json:"warnings,omitempty"`
}

func (s *WorkflowService) ListWorkflows(ctx context.Context) ([]schema.WorkflowDefinition, error) {
	return s.deps.Store.ReadAllWorkflows(ctx)
}

func (s *WorkflowService) GetWorkflow(ctx context.Context, id string) (*schema.WorkflowDefinition, error) {
	return s.deps.Store.GetWorkflow(ctx, id)
}

// DefineWorkflow validates def and inserts or replaces it. An empty ID is
// assigned a UUID. CreatedAt survives replacement.
func (s *WorkflowService) DefineWorkflow(ctx context.Context, def *schema.WorkflowDefinition) (*DefineResult, error) {
	if def == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "workflow definition is required")
	}
	wf := *def
	if wf.ID == "" {
		wf.ID = uuid.New().String()
	}

	now := s.deps.Now()
	wf.UpdatedAt = &now
	if wf.CreatedAt == nil {
		wf.CreatedAt = &now
		if existing, err := s.deps.Store.GetWorkflow(ctx, wf.ID); err == nil {
			wf.CreatedAt = existing.CreatedAt
		} else if !store.IsNotFound(err) {
			return nil, err
		}
	}

	var warnings []schema.ValidationIssue
	if s.deps.Validator != nil {
		result := s.deps.Validator.Validate(&wf)
		if err := result.ToError(); err != nil {
			return nil, err
		}
		warnings = result.Warnings
	}

	if err := s.deps.Store.SaveWorkflow(ctx, &wf); err != nil {
		return nil, err
	}
	s.deps.Logger.InfoContext(ctx, "workflow defined",
		slog.String("workflow_id", wf.ID),
		slog.Int("steps", len(wf.Steps)),
		slog.Int("warnings", len(warnings)),
	)
	return &DefineResult{Workflow: &wf, Warnings: warnings}, nil
}

// ExecuteWorkflow runs a workflow synchronously.
func (s *WorkflowService) ExecuteWorkflow(ctx context.Context, id string, data map[string]any) (*schema.WorkflowRun, error) {
	return s.deps.Executor.ExecuteWorkflow(ctx, id, data)
}

// TriggerWebhook checks the payload against the workflow's webhook trigger
// and submits a run without waiting for it.
func (s *WorkflowService) TriggerWebhook(ctx context.Context, id string, payload map[string]any) error {
	wf, err := s.deps.Store.GetWorkflow(ctx, id)
	if err != nil {
		if store.IsNotFound(err) {
			return schema.NewErrorf(schema.ErrCodeWorkflowNotFound, "Workflow %s not found", id)
		}
		return err
	}
	if wf.Trigger.Type != schema.TriggerWebhook {
		return schema.NewErrorf(schema.ErrCodeConflict, "workflow %s has a %s trigger, not webhook", id, wf.Trigger.Type)
	}

	if raw, ok := wf.Trigger.Config["inputSchema"]; ok && s.deps.Validator != nil {
		doc, err := json.Marshal(raw)
		if err != nil {
			return schema.NewError(schema.ErrCodeValidation, "invalid inputSchema").WithCause(err)
		}
		if err := s.deps.Validator.ValidateInput(payload, doc); err != nil {
			return err
		}
	}

	if s.deps.Dispatcher == nil {
		return schema.NewError(schema.ErrCodeExecution, "no dispatcher configured")
	}
	logger := s.deps.Logger
	return s.deps.Dispatcher.Submit(ctx, id, payload, func(run *schema.WorkflowRun, err error) {
		if err != nil {
			logger.Error("webhook run failed to start", slog.String("workflow_id", id), slog.String("error", err.Error()))
			return
		}
		logger.Info("webhook run finished",
			slog.String("workflow_id", id),
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)),
		)
	})
}

func (s *WorkflowService) ListRuns(ctx context.Context, filter store.RunFilter) ([]schema.WorkflowRun, error) {
	return s.deps.Store.ListRuns(ctx, filter)
}

func (s *WorkflowService) GetRun(ctx context.Context, id string) (*schema.WorkflowRun, error) {
	return s.deps.Store.GetRun(ctx, id)
}

// RunEvents returns a run's events after sequence since. Only the libsql
// driver records events.
func (s *WorkflowService) RunEvents(ctx context.Context, runID string, since int64) ([]schema.RunEvent, error) {
	if s.deps.Events == nil {
		return nil, schema.NewError(schema.ErrCodeNotFound, "run events are only recorded by the libsql storage driver")
	}
	if _, err := s.deps.Store.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.deps.Events.GetEvents(ctx, runID, since)
}

// Diagram builds the step-chain diagram of a workflow. A non-empty runID
// overlays that run's step records; the run must belong to the workflow.
func (s *WorkflowService) Diagram(ctx context.Context, workflowID, runID string) (*diagram.DiagramModel, error) {
	wf, err := s.deps.Store.GetWorkflow(ctx, workflowID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, schema.NewErrorf(schema.ErrCodeWorkflowNotFound, "Workflow %s not found", workflowID)
		}
		return nil, err
	}

	var run *schema.WorkflowRun
	if runID != "" {
		run, err = s.deps.Store.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run.WorkflowID != workflowID {
			return nil, schema.NewErrorf(schema.ErrCodeConflict, "run %s belongs to workflow %s", runID, run.WorkflowID)
		}
	}
	return diagram.Build(wf, run)
}
