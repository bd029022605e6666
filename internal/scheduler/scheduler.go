package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

// DefaultInterval is how often the workflow store is polled.
const DefaultInterval = 30 * time.Second

// Submitter starts a workflow run asynchronously. Satisfied by
// engine.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, workflowID string, triggerData map[string]any, onDone func(*schema.WorkflowRun, error)) error
}

type entry struct {
	cron     string
	schedule cron.Schedule
	next     time.Time
}

// Scheduler polls the workflow store for schedule-triggered workflows and
// submits a run whenever one comes due.
//
// Next fire times are kept in memory and computed from the moment a
// workflow is first seen, so a restart never replays missed firings.
type Scheduler struct {
	workflows store.WorkflowStore
	submitter Submitter
	parser    cron.Parser
	logger    *slog.Logger
	interval  time.Duration
	now       func() time.Time

	cancel context.CancelFunc
	done   chan struct{}
	mu     sync.Mutex

	entriesMu sync.Mutex
	entries   map[string]*entry

	inflightMu sync.Mutex
	inflight   map[string]struct{} // workflow IDs with a scheduled run executing
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the polling interval.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// NewScheduler creates a new Scheduler.
func NewScheduler(workflows store.WorkflowStore, submitter Submitter, logger *slog.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		workflows: workflows,
		submitter: submitter,
		parser:    cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		logger:    logger,
		interval:  DefaultInterval,
		now:       func() time.Time { return time.Now().UTC() },
		entries:   make(map[string]*entry),
		inflight:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the background polling loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.done != nil {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already started")
	}

	schedCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop(schedCtx)
	s.logger.Info("scheduler started", slog.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick refreshes the schedule table and submits every workflow that is due.
func (s *Scheduler) tick(ctx context.Context) {
	defs, err := s.workflows.ReadAllWorkflows(ctx)
	if err != nil {
		s.logger.Error("failed to list workflows", slog.String("error", err.Error()))
		return
	}

	now := s.now()
	for _, e := range s.refresh(defs, now) {
		s.fire(ctx, e.id, e.cron, now)
	}
}

type due struct {
	id   string
	cron string
}

// refresh syncs entries with the current definitions and returns the due
// ones, advancing their next fire time.
func (s *Scheduler) refresh(defs []schema.WorkflowDefinition, now time.Time) []due {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()

	seen := make(map[string]bool, len(defs))
	var out []due
	for i := range defs {
		def := &defs[i]
		expr, ok := cronOf(def)
		if !ok {
			continue
		}
		seen[def.ID] = true

		e, exists := s.entries[def.ID]
		if !exists || e.cron != expr {
			sched, err := s.parser.Parse(expr)
			if err != nil {
				if !exists {
					s.logger.Warn("skipping workflow with invalid cron",
						slog.String("workflow_id", def.ID),
						slog.String("cron", expr),
						slog.String("error", err.Error()),
					)
				}
				delete(s.entries, def.ID)
				continue
			}
			e = &entry{cron: expr, schedule: sched, next: sched.Next(now)}
			s.entries[def.ID] = e
			s.logger.Debug("scheduled workflow",
				slog.String("workflow_id", def.ID),
				slog.String("cron", expr),
				slog.Time("next_run", e.next),
			)
			continue
		}

		if !e.next.After(now) {
			out = append(out, due{id: def.ID, cron: e.cron})
			e.next = e.schedule.Next(now)
		}
	}

	for id := range s.entries {
		if !seen[id] {
			delete(s.entries, id)
		}
	}
	return out
}

func (s *Scheduler) fire(ctx context.Context, workflowID, expr string, now time.Time) {
	if !s.tryAcquire(workflowID) {
		s.logger.Warn("previous scheduled run still executing, skipping",
			slog.String("workflow_id", workflowID),
		)
		return
	}

	data := map[string]any{
		"scheduledAt": now.Format(time.RFC3339),
		"cron":        expr,
	}
	err := s.submitter.Submit(ctx, workflowID, data, func(run *schema.WorkflowRun, err error) {
		defer s.release(workflowID)
		if err != nil {
			s.logger.Error("scheduled run failed to start",
				slog.String("workflow_id", workflowID),
				slog.String("error", err.Error()),
			)
			return
		}
		s.logger.Info("scheduled run finished",
			slog.String("workflow_id", workflowID),
			slog.String("run_id", run.ID),
			slog.String("status", string(run.Status)),
		)
	})
	if err != nil {
		s.release(workflowID)
		s.logger.Error("failed to submit scheduled run",
			slog.String("workflow_id", workflowID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Info("submitted scheduled run", slog.String("workflow_id", workflowID), slog.String("cron", expr))
}

// NextRun returns the next fire time of a scheduled workflow, if known.
func (s *Scheduler) NextRun(workflowID string) (time.Time, bool) {
	s.entriesMu.Lock()
	defer s.entriesMu.Unlock()
	e, ok := s.entries[workflowID]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

func (s *Scheduler) tryAcquire(workflowID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, ok := s.inflight[workflowID]; ok {
		return false
	}
	s.inflight[workflowID] = struct{}{}
	return true
}

func (s *Scheduler) release(workflowID string) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	delete(s.inflight, workflowID)
}

// CalculateNextRun computes the next run time for a cron expression.
func (s *Scheduler) CalculateNextRun(cronExpr string, from time.Time) (time.Time, error) {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return schedule.Next(from), nil
}

// Stop shuts the loop down. Runs already submitted keep going.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel == nil {
		return nil
	}

	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil

	s.logger.Info("scheduler stopped")
	return nil
}

func cronOf(def *schema.WorkflowDefinition) (string, bool) {
	if def.Trigger.Type != schema.TriggerSchedule {
		return "", false
	}
	expr, _ := def.Trigger.Config["cron"].(string)
	return expr, expr != ""
}
