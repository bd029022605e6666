package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/internal/validation"
	"github.com/stack21/flowengine/pkg/schema"
)

type captured struct {
	workflowID string
	data       map[string]any
}

type captureSubmitter struct{ got []captured }

func (c *captureSubmitter) Submit(_ context.Context, id string, data map[string]any, _ func(*schema.WorkflowRun, error)) error {
	c.got = append(c.got, captured{id, data})
	return nil
}

func newService(t *testing.T) (*WorkflowService, *store.JSONFileStore, *captureSubmitter) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := store.NewJSONFileStore(t.TempDir(), logger)
	reg, err := steps.NewBuiltinRegistry(steps.BuiltinDeps{Logger: logger})
	require.NoError(t, err)
	v, err := validation.NewWorkflowValidator(reg)
	require.NoError(t, err)
	sub := &captureSubmitter{}

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	svc := New(Deps{
		Store:      s,
		Dispatcher: sub,
		Validator:  v,
		Logger:     logger,
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
	})
	return svc, s, sub
}

func manual(id string) *schema.WorkflowDefinition {
	return &schema.WorkflowDefinition{
		ID: id, Name: "W " + id, Trigger: schema.Trigger{Type: schema.TriggerManual},
		Steps: []schema.WorkflowStep{{ID: "a", Type: schema.StepTypeLog, Name: "A"}},
	}
}

func TestDefineWorkflow_KeepsCreatedAt(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	first, err := svc.DefineWorkflow(ctx, manual("wf"))
	require.NoError(t, err)
	require.NotNil(t, first.Workflow.CreatedAt)

	second, err := svc.DefineWorkflow(ctx, manual("wf"))
	require.NoError(t, err)
	assert.True(t, first.Workflow.CreatedAt.Equal(*second.Workflow.CreatedAt))
	assert.True(t, second.Workflow.UpdatedAt.After(*first.Workflow.UpdatedAt))
}

func TestDefineWorkflow_DoesNotMutateInput(t *testing.T) {
	svc, _, _ := newService(t)
	def := manual("")

	res, err := svc.DefineWorkflow(context.Background(), def)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Workflow.ID)
	assert.Empty(t, def.ID)
	assert.Nil(t, def.CreatedAt)
}

func TestDefineWorkflow_Invalid(t *testing.T) {
	svc, s, _ := newService(t)
	def := manual("wf")
	def.Trigger = schema.Trigger{Type: schema.TriggerSchedule, Config: map[string]any{"cron": "bogus"}}

	_, err := svc.DefineWorkflow(context.Background(), def)
	require.Error(t, err)
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))

	all, err := s.ReadAllWorkflows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	_, err = svc.DefineWorkflow(context.Background(), nil)
	assert.Error(t, err)
}

func TestTriggerWebhook(t *testing.T) {
	svc, s, sub := newService(t)
	ctx := context.Background()
	hook := manual("hook")
	hook.Trigger = schema.Trigger{Type: schema.TriggerWebhook}
	require.NoError(t, s.SaveWorkflow(ctx, hook))
	require.NoError(t, s.SaveWorkflow(ctx, manual("plain")))

	require.NoError(t, svc.TriggerWebhook(ctx, "hook", map[string]any{"k": "v"}))
	require.Len(t, sub.got, 1)
	assert.Equal(t, captured{"hook", map[string]any{"k": "v"}}, sub.got[0])

	err := svc.TriggerWebhook(ctx, "plain", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeConflict))

	err = svc.TriggerWebhook(ctx, "ghost", nil)
	assert.True(t, schema.IsCode(err, schema.ErrCodeWorkflowNotFound))
	assert.Len(t, sub.got, 1)
}

func TestTriggerWebhook_InputSchema(t *testing.T) {
	svc, s, sub := newService(t)
	ctx := context.Background()
	hook := manual("hook")
	hook.Trigger = schema.Trigger{Type: schema.TriggerWebhook, Config: map[string]any{
		"inputSchema": map[string]any{
			"type":       "object",
			"required":   []any{"email"},
			"properties": map[string]any{"email": map[string]any{"type": "string"}},
		},
	}}
	require.NoError(t, s.SaveWorkflow(ctx, hook))

	err := svc.TriggerWebhook(ctx, "hook", map[string]any{"email": 5})
	assert.True(t, schema.IsCode(err, schema.ErrCodeValidation))
	assert.Empty(t, sub.got)

	require.NoError(t, svc.TriggerWebhook(ctx, "hook", map[string]any{"email": "x@y.z"}))
	assert.Len(t, sub.got, 1)
}

func TestRunEvents_NoEventStore(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.RunEvents(context.Background(), "run_1", 0)
	assert.True(t, schema.IsCode(err, schema.ErrCodeNotFound))
}

func TestDiagram(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	require.NoError(t, s.SaveWorkflow(ctx, manual("wf")))
	require.NoError(t, s.SaveWorkflow(ctx, manual("other")))
	require.NoError(t, s.SaveRun(ctx, &schema.WorkflowRun{
		ID: "run_1", WorkflowID: "wf", Status: schema.RunStatusCompleted,
		Steps: []schema.RunStep{{ID: "a", Status: schema.StepStatusCompleted}},
	}))

	m, err := svc.Diagram(ctx, "wf", "run_1")
	require.NoError(t, err)
	assert.Contains(t, m.Order, "a")

	_, err = svc.Diagram(ctx, "other", "run_1")
	assert.True(t, schema.IsCode(err, schema.ErrCodeConflict))

	_, err = svc.Diagram(ctx, "missing", "")
	assert.True(t, schema.IsCode(err, schema.ErrCodeWorkflowNotFound))
}
