package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LibSQLStore {
	t.Helper()
	s, err := NewLibSQLStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLibSQL_MigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var version int
	require.NoError(t, s.DB().QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, 1, version)
}

func TestLibSQL_Workflows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	wf := sampleWorkflow("wf-1")
	require.NoError(t, s.SaveWorkflow(ctx, &wf))

	got, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, wf, *got)

	wf.Name = "Renamed"
	require.NoError(t, s.SaveWorkflow(ctx, &wf))
	all, err := s.ReadAllWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Renamed", all[0].Name)

	require.NoError(t, s.WriteAllWorkflows(ctx, []schema.WorkflowDefinition{sampleWorkflow("a"), sampleWorkflow("b")}))
	all, err = s.ReadAllWorkflows(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	_, err = s.GetWorkflow(ctx, "wf-1")
	assert.True(t, IsNotFound(err))
}

func TestLibSQL_RunsUpsertAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	r1 := sampleRun("r1", "wf-1", schema.RunStatusRunning, base)
	r2 := sampleRun("r2", "wf-2", schema.RunStatusFailed, base.Add(time.Minute))
	r3 := sampleRun("r3", "wf-1", schema.RunStatusCompleted, base.Add(2*time.Minute))
	for _, r := range []*schema.WorkflowRun{&r1, &r2, &r3} {
		require.NoError(t, s.SaveRun(ctx, r))
	}

	r1.Status = schema.RunStatusCompleted
	require.NoError(t, s.SaveRun(ctx, &r1))

	got, err := s.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, r1, *got)

	all, err := s.ListRuns(ctx, RunFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3", "r2", "r1"}, runIDs(all))

	completed, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-1", Status: schema.RunStatusCompleted, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"r3"}, runIDs(completed))

	_, err = s.GetRun(ctx, "nope")
	assert.True(t, IsNotFound(err))
}

func TestLibSQL_WriteAllRunsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	r := sampleRun("old", "wf-1", schema.RunStatusCompleted, base)
	require.NoError(t, s.SaveRun(ctx, &r))
	require.NoError(t, s.WriteAllRuns(ctx, []schema.WorkflowRun{sampleRun("new", "wf-1", schema.RunStatusFailed, base)}))

	all, err := s.ReadAllRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, runIDs(all))
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	js, err := Open(ctx, Config{Dir: dir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &JSONFileStore{}, js.Store)
	assert.Nil(t, js.Events)

	lib, err := Open(ctx, Config{Driver: DriverLibSQL, Dir: filepath.Join(dir, "db")}, nil)
	require.NoError(t, err)
	defer lib.Store.Close()
	assert.IsType(t, &LibSQLStore{}, lib.Store)
	assert.NotNil(t, lib.Events)

	_, err = Open(ctx, Config{Driver: "mongo"}, nil)
	assert.Error(t, err)
}

func TestEventLog_AppendAndReplay(t *testing.T) {
	s := newTestStore(t)
	el := NewEventLog(s)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	payload := func(p any) json.RawMessage {
		b, err := json.Marshal(p)
		require.NoError(t, err)
		return b
	}

	events := []schema.RunEvent{
		{RunID: "run-1", WorkflowID: "wf-1", Type: schema.EventRunStarted, Timestamp: base},
		{RunID: "run-1", WorkflowID: "wf-1", StepID: "s1", Type: schema.EventStepStarted, Timestamp: base,
			Payload: payload(schema.StepEventPayload{Name: "Fetch", Type: schema.StepTypeHTTPRequest, Input: map[string]any{"a": 1}})},
		{RunID: "run-1", WorkflowID: "wf-1", StepID: "s1", Type: schema.EventStepCompleted, Timestamp: base.Add(time.Second),
			Payload: payload(schema.StepEventPayload{Output: "ok", Duration: 1000})},
		{RunID: "run-1", WorkflowID: "wf-1", StepID: "s2", Type: schema.EventStepStarted, Timestamp: base.Add(time.Second),
			Payload: payload(schema.StepEventPayload{Name: "Boom", Type: schema.StepTypeLog})},
		{RunID: "run-1", WorkflowID: "wf-1", StepID: "s2", Type: schema.EventStepFailed, Timestamp: base.Add(2 * time.Second),
			Payload: payload(schema.StepEventPayload{Error: "Error en paso Boom: bad"})},
		{RunID: "run-2", WorkflowID: "wf-1", Type: schema.EventRunStarted, Timestamp: base},
	}
	for i := range events {
		require.NoError(t, el.AppendEvent(ctx, &events[i]))
	}
	assert.Equal(t, int64(5), events[4].Sequence)
	assert.Equal(t, int64(1), events[5].Sequence, "sequence is per run")

	got, err := el.GetEvents(ctx, "run-1", 2)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].Sequence)
	assert.True(t, base.Add(time.Second).Equal(got[0].Timestamp))

	steps, err := el.ReplayRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, schema.StepStatusCompleted, steps[0].Status)
	assert.Equal(t, "Fetch", steps[0].Name)
	assert.Equal(t, "ok", steps[0].Output)
	assert.Equal(t, int64(1000), steps[0].Duration)
	assert.Equal(t, map[string]any{"a": float64(1)}, steps[0].Input)
	assert.Equal(t, schema.StepStatusFailed, steps[1].Status)
	assert.Equal(t, "Error en paso Boom: bad", steps[1].Error)
}

func TestEventLog_ReplayDetectsGap(t *testing.T) {
	s := newTestStore(t)
	el := NewEventLog(s)
	ctx := context.Background()

	_, err := s.DB().ExecContext(ctx,
		`INSERT INTO run_events (run_id, workflow_id, event_type, sequence, timestamp) VALUES (?, ?, ?, ?, ?)`,
		"run-1", "wf-1", schema.EventRunStarted, 2, time.Now().UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)

	_, err = el.ReplayRun(ctx, "run-1")
	assert.True(t, schema.IsCode(err, schema.ErrCodeStore))
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("-- header\nCREATE TABLE a (x INT);\n\n-- only comment\n;CREATE INDEX i ON a(x);")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a(x)"}, stmts)
}
