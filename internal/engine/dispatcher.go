package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/stack21/flowengine/internal/logging"
	"github.com/stack21/flowengine/pkg/schema"
)

// DefaultPoolSize is the default number of runs executing at once.
const DefaultPoolSize = 4

// ErrDispatcherShutdown is returned when work is submitted after Shutdown.
var ErrDispatcherShutdown = errors.New("dispatcher is shut down")

// DispatcherMetrics is a snapshot of dispatcher counters.
type DispatcherMetrics struct {
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Panics    int64 `json:"panics"`
}

// Dispatcher runs workflows asynchronously on a bounded set of goroutines.
// Webhook and schedule triggers go through it so that a burst of triggers
// cannot start an unbounded number of runs.
type Dispatcher struct {
	exec   Executor
	logger *slog.Logger
	base   context.Context

	sem     chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	done    chan struct{}
	closed  bool
	metrics DispatcherMetrics
}

// NewDispatcher creates a dispatcher running at most size workflows at once.
// Runs execute under a context detached from the submitter's, so an HTTP
// request finishing does not cancel the run it triggered.
func NewDispatcher(exec Executor, size int, logger *slog.Logger) *Dispatcher {
	if size <= 0 {
		size = DefaultPoolSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		exec:   exec,
		logger: logger,
		base:   context.Background(),
		sem:    make(chan struct{}, size),
		done:   make(chan struct{}),
	}
}

// Submit queues a run of workflowID. It blocks while the pool is full and
// honors ctx while waiting. onDone, if set, receives the outcome.
func (d *Dispatcher) Submit(ctx context.Context, workflowID string, triggerData map[string]any, onDone func(*schema.WorkflowRun, error)) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherShutdown
	}
	d.mu.Unlock()

	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.done:
		return ErrDispatcherShutdown
	}

	// wg.Add must happen under the lock so Shutdown's Wait cannot miss it.
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.sem
		return ErrDispatcherShutdown
	}
	d.wg.Add(1)
	atomic.AddInt64(&d.metrics.Active, 1)
	d.mu.Unlock()

	runCtx := logging.WithWorkflowID(d.base, workflowID)
	go d.run(runCtx, workflowID, triggerData, onDone)
	return nil
}

func (d *Dispatcher) run(ctx context.Context, workflowID string, triggerData map[string]any, onDone func(*schema.WorkflowRun, error)) {
	defer func() {
		if r := recover(); r != nil {
			atomic.AddInt64(&d.metrics.Panics, 1)
			atomic.AddInt64(&d.metrics.Failed, 1)
			logging.LogWith(ctx, d.logger).Error("dispatched run panicked", "panic", r)
		}
		atomic.AddInt64(&d.metrics.Active, -1)
		<-d.sem
		d.wg.Done()
	}()

	run, err := d.exec.ExecuteWorkflow(ctx, workflowID, triggerData)
	switch {
	case err != nil:
		atomic.AddInt64(&d.metrics.Failed, 1)
		logging.LogWith(ctx, d.logger).Error("dispatched run could not execute", "error", err)
	case run.Status == schema.RunStatusFailed:
		atomic.AddInt64(&d.metrics.Failed, 1)
	default:
		atomic.AddInt64(&d.metrics.Completed, 1)
	}
	if onDone != nil {
		onDone(run, err)
	}
}

// Wait blocks until every submitted run has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown rejects new submissions and waits for in-flight runs.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.done)
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) Metrics() DispatcherMetrics {
	return DispatcherMetrics{
		Active:    atomic.LoadInt64(&d.metrics.Active),
		Completed: atomic.LoadInt64(&d.metrics.Completed),
		Failed:    atomic.LoadInt64(&d.metrics.Failed),
		Panics:    atomic.LoadInt64(&d.metrics.Panics),
	}
}
