package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

const greetWorkflow = `[{
  "id": "greet",
  "name": "Greet",
  "trigger": {"type": "manual"},
  "steps": [
    {"id": "shape", "type": "data_transform", "name": "Shape", "config": {"transform": {"who": "$.name"}}, "next": "say"},
    {"id": "say", "type": "log", "name": "Say", "config": {"message": "hello"}}
  ]
}]`

// execute runs the root command against dir and returns stdout.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand(io.Discard)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data-dir", dir}, args...))
	err := root.Execute()
	return out.String(), err
}

func seedGreet(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, store.WorkflowsFile), []byte(greetWorkflow), 0o644))
	return dir
}

func TestSamplesInit(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, dir, "samples", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded")

	out, err = execute(t, dir, "samples", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to do")
}

func TestRunCommand(t *testing.T) {
	dir := seedGreet(t)

	out, err := execute(t, dir, "run", "greet", "--data", `{"name":"Ana"}`, "--json")
	require.NoError(t, err)

	var run schema.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))
	assert.Equal(t, schema.RunStatusCompleted, run.Status)
	require.Len(t, run.Steps, 2)
	assert.Equal(t, map[string]any{"who": "Ana"}, run.Steps[0].Output)

	out, err = execute(t, dir, "run", "greet")
	require.NoError(t, err)
	assert.Contains(t, out, "Greet (greet)")
	assert.Contains(t, out, "Say (say)")
}

func TestRunCommand_Errors(t *testing.T) {
	dir := seedGreet(t)

	_, err := execute(t, dir, "run", "greet", "--data", "[1,2]")
	assert.ErrorContains(t, err, "--data")

	_, err = execute(t, dir, "run", "missing")
	require.Error(t, err)
	_, isExit := IsExitError(err)
	assert.False(t, isExit)
}

func TestRunsCommands(t *testing.T) {
	dir := seedGreet(t)
	out, err := execute(t, dir, "run", "greet", "--json")
	require.NoError(t, err)
	var run schema.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))

	out, err = execute(t, dir, "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, run.ID)

	out, err = execute(t, dir, "runs", "list", "--workflow", "other", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)

	out, err = execute(t, dir, "runs", "show", run.ID, "--json")
	require.NoError(t, err)
	var shown schema.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, run.ID, shown.ID)

	_, err = execute(t, dir, "runs", "show", "run_nope")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	files := t.TempDir()
	good := filepath.Join(files, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(greetWorkflow), 0o644))
	bad := filepath.Join(files, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{
  "id": "bad", "name": "Bad", "trigger": {"type": "manual"},
  "steps": [{"id": "x", "type": "teleport", "name": "X"}]
}`), 0o644))

	out, err := execute(t, t.TempDir(), "validate", good)
	require.NoError(t, err)
	assert.Contains(t, out, "good.json#greet")

	out, err = execute(t, t.TempDir(), "validate", good, bad)
	code, ok := IsExitError(err)
	require.True(t, ok)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "teleport")
}

func TestDiagramCommand(t *testing.T) {
	dir := seedGreet(t)
	out, err := execute(t, dir, "run", "greet", "--json")
	require.NoError(t, err)
	var run schema.WorkflowRun
	require.NoError(t, json.Unmarshal([]byte(out), &run))

	out, err = execute(t, dir, "diagram", "greet", "--run", run.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "=== Greet ===")
	assert.Contains(t, out, "[OK]")

	out, err = execute(t, dir, "diagram", "greet", "-f", "mermaid")
	require.NoError(t, err)
	assert.Contains(t, out, "shape --> say")

	_, err = execute(t, dir, "diagram", "greet", "-f", "png")
	assert.ErrorContains(t, err, "--output")

	png := filepath.Join(t.TempDir(), "greet.png")
	_, err = execute(t, dir, "diagram", "greet", "-f", "png", "-o", png)
	require.NoError(t, err)
	data, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])
}
