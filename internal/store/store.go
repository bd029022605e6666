package store

import (
	"context"

	"github.com/stack21/flowengine/pkg/schema"
)

// WorkflowStore persists workflow definitions.
// All implementations must be safe for concurrent use.
type WorkflowStore interface {
	// ReadAllWorkflows returns every definition in storage order.
	ReadAllWorkflows(ctx context.Context) ([]schema.WorkflowDefinition, error)
	// WriteAllWorkflows replaces the whole set of definitions.
	WriteAllWorkflows(ctx context.Context, workflows []schema.WorkflowDefinition) error

	GetWorkflow(ctx context.Context, id string) (*schema.WorkflowDefinition, error)
	// SaveWorkflow inserts or replaces a definition by ID.
	SaveWorkflow(ctx context.Context, wf *schema.WorkflowDefinition) error
}

// RunStore persists workflow runs.
// All implementations must be safe for concurrent use.
type RunStore interface {
	ReadAllRuns(ctx context.Context) ([]schema.WorkflowRun, error)
	WriteAllRuns(ctx context.Context, runs []schema.WorkflowRun) error

	// SaveRun inserts or replaces a run by ID. Once it returns, the run's
	// state is visible to readers.
	SaveRun(ctx context.Context, run *schema.WorkflowRun) error
	GetRun(ctx context.Context, id string) (*schema.WorkflowRun, error)
	// ListRuns returns matching runs, newest first.
	ListRuns(ctx context.Context, filter RunFilter) ([]schema.WorkflowRun, error)
}

// Store is the full persistence contract.
type Store interface {
	WorkflowStore
	RunStore
	Close() error
}

// EventStore is the append-only per-run event log.
type EventStore interface {
	AppendEvent(ctx context.Context, event *schema.RunEvent) error
	GetEvents(ctx context.Context, runID string, since int64) ([]schema.RunEvent, error)
}
