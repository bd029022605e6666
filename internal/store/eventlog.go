package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stack21/flowengine/pkg/schema"
)

// EventLog is the append-only per-run history stored next to a LibSQLStore.
type EventLog struct {
	store *LibSQLStore
}

func NewEventLog(s *LibSQLStore) *EventLog {
	return &EventLog{store: s}
}

// AppendEvent stores event with the next per-run sequence number and fills
// in event.ID, event.Sequence and a zero Timestamp.
func (el *EventLog) AppendEvent(ctx context.Context, event *schema.RunEvent) error {
	tx, err := el.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin event tx", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM run_events WHERE run_id = ?`, event.RunID,
	).Scan(&seq); err != nil {
		return storeErr("next sequence", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO run_events (run_id, workflow_id, step_id, event_type, payload, sequence, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.RunID, event.WorkflowID, nullStr(event.StepID), event.Type, nullRaw(event.Payload),
		seq, event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return storeErr("insert event", err)
	}
	if err := tx.Commit(); err != nil {
		return storeErr("commit event", err)
	}

	event.Sequence = seq
	if id, err := res.LastInsertId(); err == nil {
		event.ID = id
	}
	return nil
}

// GetEvents returns events of runID with sequence > since, oldest first.
func (el *EventLog) GetEvents(ctx context.Context, runID string, since int64) ([]schema.RunEvent, error) {
	rows, err := el.store.DB().QueryContext(ctx,
		`SELECT id, run_id, workflow_id, step_id, event_type, payload, sequence, timestamp
		 FROM run_events WHERE run_id = ? AND sequence > ? ORDER BY sequence ASC`,
		runID, since,
	)
	if err != nil {
		return nil, storeErr("query events", err)
	}
	defer rows.Close()

	out := []schema.RunEvent{}
	for rows.Next() {
		var (
			e       schema.RunEvent
			stepID  sql.NullString
			payload sql.NullString
			ts      string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.WorkflowID, &stepID, &e.Type, &payload, &e.Sequence, &ts); err != nil {
			return nil, storeErr("scan event", err)
		}
		e.StepID = stepID.String
		e.Payload = rawOrNil(payload)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, storeErr("parse event timestamp", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplayRun rebuilds the step records of a run from its event history.
// Returns a STORE_ERROR when the sequence has gaps.
func (el *EventLog) ReplayRun(ctx context.Context, runID string) ([]schema.RunStep, error) {
	events, err := el.GetEvents(ctx, runID, 0)
	if err != nil {
		return nil, err
	}

	for i, e := range events {
		if want := int64(i + 1); e.Sequence != want {
			return nil, schema.NewErrorf(schema.ErrCodeStore,
				"sequence gap in run %s: expected %d, got %d", runID, want, e.Sequence)
		}
	}

	var steps []schema.RunStep
	open := map[string]int{} // step id -> index of its latest record

	for _, e := range events {
		if e.StepID == "" {
			continue
		}
		var p schema.StepEventPayload
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, &p); err != nil {
				return nil, storeErr(fmt.Sprintf("decode event %d", e.Sequence), err)
			}
		}

		switch e.Type {
		case schema.EventStepStarted:
			steps = append(steps, schema.RunStep{
				ID:        e.StepID,
				Name:      p.Name,
				Type:      p.Type,
				Status:    schema.StepStatusRunning,
				StartedAt: e.Timestamp,
				Input:     p.Input,
			})
			open[e.StepID] = len(steps) - 1

		case schema.EventStepCompleted, schema.EventStepFailed:
			idx, ok := open[e.StepID]
			if !ok {
				continue
			}
			ts := e.Timestamp
			st := &steps[idx]
			st.CompletedAt = &ts
			st.Duration = p.Duration
			if e.Type == schema.EventStepCompleted {
				st.Status = schema.StepStatusCompleted
				st.Output = p.Output
			} else {
				st.Status = schema.StepStatusFailed
				st.Error = p.Error
			}
			delete(open, e.StepID)
		}
	}
	return steps, nil
}

var _ EventStore = (*EventLog)(nil)
