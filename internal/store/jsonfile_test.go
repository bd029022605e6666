package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRun(id, workflowID string, status schema.RunStatus, started time.Time) schema.WorkflowRun {
	return schema.WorkflowRun{
		ID:           id,
		WorkflowID:   workflowID,
		WorkflowName: "Workflow " + workflowID,
		Status:       status,
		StartedAt:    started,
		TriggerType:  "manual",
		TriggerData:  map[string]any{"name": "Ana"},
		Steps: []schema.RunStep{{
			ID:        "s1",
			Name:      "Log",
			Type:      schema.StepTypeLog,
			Status:    schema.StepStatusCompleted,
			StartedAt: started,
			Input:     map[string]any{"name": "Ana"},
			Output:    map[string]any{"name": "Ana"},
		}},
	}
}

func sampleWorkflow(id string) schema.WorkflowDefinition {
	return schema.WorkflowDefinition{
		ID:      id,
		Name:    "Workflow " + id,
		Trigger: schema.Trigger{Type: schema.TriggerManual},
		Steps: []schema.WorkflowStep{
			{ID: "s1", Type: schema.StepTypeLog, Name: "Log", Config: map[string]any{"message": "hi"}},
		},
	}
}

func TestJSONFileStore_MissingFilesReadEmpty(t *testing.T) {
	s := NewJSONFileStore(filepath.Join(t.TempDir(), "nope"), nil)
	ctx := context.Background()

	wfs, err := s.ReadAllWorkflows(ctx)
	require.NoError(t, err)
	assert.NotNil(t, wfs)
	assert.Empty(t, wfs)

	runs, err := s.ReadAllRuns(ctx)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestJSONFileStore_UnparsableFileReadsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RunsFile), []byte("{not json"), 0o644))

	s := NewJSONFileStore(dir, nil)
	runs, err := s.ReadAllRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestJSONFileStore_WriteCreatesDirectoryAndIndents(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s := NewJSONFileStore(dir, nil)
	ctx := context.Background()

	require.NoError(t, s.WriteAllWorkflows(ctx, []schema.WorkflowDefinition{sampleWorkflow("wf-1")}))

	raw, err := os.ReadFile(filepath.Join(dir, WorkflowsFile))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "[\n  {\n    \"id\": \"wf-1\""), string(raw))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestJSONFileStore_WriteNilWritesEmptyArray(t *testing.T) {
	dir := t.TempDir()
	s := NewJSONFileStore(dir, nil)
	require.NoError(t, s.WriteAllRuns(context.Background(), nil))

	raw, err := os.ReadFile(filepath.Join(dir, RunsFile))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestJSONFileStore_RunRoundTrip(t *testing.T) {
	s := NewJSONFileStore(t.TempDir(), nil)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	runs := []schema.WorkflowRun{
		sampleRun("run-1", "wf-1", schema.RunStatusCompleted, started),
		sampleRun("run-2", "wf-2", schema.RunStatusFailed, started.Add(time.Minute)),
	}
	require.NoError(t, s.WriteAllRuns(ctx, runs))

	got, err := s.ReadAllRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, runs, got)
}

func TestJSONFileStore_WorkflowRoundTrip(t *testing.T) {
	s := NewJSONFileStore(t.TempDir(), nil)
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	wf := sampleWorkflow("wf-1")
	wf.Description = "round trip"
	wf.Trigger = schema.Trigger{Type: schema.TriggerSchedule, Config: map[string]any{"cron": "0 * * * *"}}
	wf.Steps = append(wf.Steps, schema.WorkflowStep{
		ID:     "s2",
		Type:   schema.StepTypeDelay,
		Name:   "Wait",
		Config: map[string]any{"duration": 250.0},
	})
	wf.Steps[0].Next = "s2"
	wf.CreatedAt = &created
	wf.UpdatedAt = &created

	require.NoError(t, s.WriteAllWorkflows(ctx, []schema.WorkflowDefinition{wf}))

	got, err := s.ReadAllWorkflows(ctx)
	require.NoError(t, err)
	assert.Equal(t, []schema.WorkflowDefinition{wf}, got)
}

func TestJSONFileStore_SaveRunUpserts(t *testing.T) {
	s := NewJSONFileStore(t.TempDir(), nil)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", "wf-1", schema.RunStatusRunning, started)
	require.NoError(t, s.SaveRun(ctx, &run))
	other := sampleRun("run-2", "wf-1", schema.RunStatusRunning, started)
	require.NoError(t, s.SaveRun(ctx, &other))

	run.Status = schema.RunStatusCompleted
	require.NoError(t, s.SaveRun(ctx, &run))

	all, err := s.ReadAllRuns(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "run-1", all[0].ID)
	assert.Equal(t, schema.RunStatusCompleted, all[0].Status)

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, schema.RunStatusCompleted, got.Status)

	_, err = s.GetRun(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestJSONFileStore_Workflows(t *testing.T) {
	s := NewJSONFileStore(t.TempDir(), nil)
	ctx := context.Background()

	wf := sampleWorkflow("wf-1")
	require.NoError(t, s.SaveWorkflow(ctx, &wf))
	wf.Name = "Renamed"
	require.NoError(t, s.SaveWorkflow(ctx, &wf))

	got, err := s.GetWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	all, err := s.ReadAllWorkflows(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetWorkflow(ctx, "wf-x")
	assert.True(t, IsNotFound(err))
}

func TestJSONFileStore_ConcurrentSaveRunKeepsAll(t *testing.T) {
	s := NewJSONFileStore(t.TempDir(), nil)
	ctx := context.Background()
	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			run := sampleRun("run-"+string(rune('a'+i)), "wf-1", schema.RunStatusRunning, started)
			assert.NoError(t, s.SaveRun(ctx, &run))
		}(i)
	}
	wg.Wait()

	all, err := s.ReadAllRuns(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 10)
}

func TestRunFilter_Apply(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []schema.WorkflowRun{
		sampleRun("r1", "wf-1", schema.RunStatusCompleted, base),
		sampleRun("r2", "wf-2", schema.RunStatusFailed, base.Add(time.Minute)),
		sampleRun("r3", "wf-1", schema.RunStatusFailed, base.Add(2*time.Minute)),
	}

	got := RunFilter{}.Apply(runs)
	require.Len(t, got, 3)
	assert.Equal(t, "r3", got[0].ID)

	got = RunFilter{WorkflowID: "wf-1"}.Apply(runs)
	assert.Equal(t, []string{"r3", "r1"}, runIDs(got))

	got = RunFilter{Status: schema.RunStatusFailed, Limit: 1}.Apply(runs)
	assert.Equal(t, []string{"r3"}, runIDs(got))
}

func runIDs(runs []schema.WorkflowRun) []string {
	ids := make([]string, len(runs))
	for i := range runs {
		ids[i] = runs[i].ID
	}
	return ids
}
