package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	fn func(ctx context.Context, workflowID string, data map[string]any) (*schema.WorkflowRun, error)
}

func (f *fakeExecutor) ExecuteWorkflow(ctx context.Context, workflowID string, data map[string]any) (*schema.WorkflowRun, error) {
	return f.fn(ctx, workflowID, data)
}

func completedRun(workflowID string) *schema.WorkflowRun {
	return &schema.WorkflowRun{ID: "run_" + workflowID, WorkflowID: workflowID, Status: schema.RunStatusCompleted}
}

func TestDispatcher_RunsAndReports(t *testing.T) {
	exec := &fakeExecutor{fn: func(_ context.Context, id string, data map[string]any) (*schema.WorkflowRun, error) {
		assert.Equal(t, "hook", data["source"])
		return completedRun(id), nil
	}}
	d := NewDispatcher(exec, 2, quietLogger())
	defer d.Shutdown()

	var got *schema.WorkflowRun
	require.NoError(t, d.Submit(context.Background(), "wf-1", map[string]any{"source": "hook"},
		func(run *schema.WorkflowRun, err error) {
			assert.NoError(t, err)
			got = run
		}))
	d.Wait()

	require.NotNil(t, got)
	assert.Equal(t, "wf-1", got.WorkflowID)
	assert.Equal(t, DispatcherMetrics{Completed: 1}, d.Metrics())
}

func TestDispatcher_ConcurrencyLimit(t *testing.T) {
	const size = 3
	var current, peak int64
	var mu sync.Mutex

	exec := &fakeExecutor{fn: func(_ context.Context, id string, _ map[string]any) (*schema.WorkflowRun, error) {
		c := atomic.AddInt64(&current, 1)
		mu.Lock()
		if c > peak {
			peak = c
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return completedRun(id), nil
	}}
	d := NewDispatcher(exec, size, quietLogger())
	defer d.Shutdown()

	for i := 0; i < 10; i++ {
		require.NoError(t, d.Submit(context.Background(), "wf", nil, nil))
	}
	d.Wait()

	assert.LessOrEqual(t, peak, int64(size))
	assert.Positive(t, peak)
	assert.Equal(t, int64(10), d.Metrics().Completed)
}

func TestDispatcher_BackpressureHonorsContext(t *testing.T) {
	block := make(chan struct{})
	exec := &fakeExecutor{fn: func(_ context.Context, id string, _ map[string]any) (*schema.WorkflowRun, error) {
		<-block
		return completedRun(id), nil
	}}
	d := NewDispatcher(exec, 1, quietLogger())

	require.NoError(t, d.Submit(context.Background(), "wf", nil, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := d.Submit(ctx, "wf", nil, nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	d.Shutdown()
}

func TestDispatcher_CountsFailuresAndPanics(t *testing.T) {
	exec := &fakeExecutor{fn: func(_ context.Context, id string, _ map[string]any) (*schema.WorkflowRun, error) {
		switch id {
		case "missing":
			return nil, schema.NewError(schema.ErrCodeWorkflowNotFound, "nope")
		case "failed":
			return &schema.WorkflowRun{WorkflowID: id, Status: schema.RunStatusFailed}, nil
		default:
			panic("boom")
		}
	}}
	d := NewDispatcher(exec, 2, quietLogger())

	for _, id := range []string{"missing", "failed", "panic"} {
		require.NoError(t, d.Submit(context.Background(), id, nil, nil))
	}
	d.Wait()

	m := d.Metrics()
	assert.Equal(t, int64(3), m.Failed)
	assert.Equal(t, int64(1), m.Panics)
	assert.Equal(t, int64(0), m.Active)
	d.Shutdown()
}

func TestDispatcher_RunOutlivesSubmitContext(t *testing.T) {
	started := make(chan struct{})
	var runErr atomic.Value
	exec := &fakeExecutor{fn: func(ctx context.Context, id string, _ map[string]any) (*schema.WorkflowRun, error) {
		close(started)
		time.Sleep(20 * time.Millisecond)
		if err := ctx.Err(); err != nil {
			runErr.Store(err)
		}
		return completedRun(id), nil
	}}
	d := NewDispatcher(exec, 1, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Submit(ctx, "wf", nil, nil))
	<-started
	cancel()
	d.Shutdown()

	assert.Nil(t, runErr.Load())
}

func TestDispatcher_ShutdownRejects(t *testing.T) {
	d := NewDispatcher(&fakeExecutor{}, 1, quietLogger())
	d.Shutdown()
	d.Shutdown()

	err := d.Submit(context.Background(), "wf", nil, nil)
	assert.True(t, errors.Is(err, ErrDispatcherShutdown))
}
