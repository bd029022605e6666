package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/stack21/flowengine/pkg/schema"
)

// LibSQLStore keeps workflows and runs in an embedded libSQL database.
// Each SaveRun is a single-row upsert, so concurrent runs never clobber
// each other the way whole-file rewrites can.
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens the database at path (a plain file path or a
// "file:" URI). Call Migrate before use.
func NewLibSQLStore(path string) (*LibSQLStore, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") && !strings.HasPrefix(dsn, "libsql:") {
		dsn = "file:" + dsn
	}
	db, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return a row, so they go through QueryRow.
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	} {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}
	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying handle, shared with EventLog.
func (s *LibSQLStore) DB() *sql.DB { return s.db }

func (s *LibSQLStore) Close() error { return s.db.Close() }

func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// --- Workflows ---

func (s *LibSQLStore) ReadAllWorkflows(ctx context.Context) ([]schema.WorkflowDefinition, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT definition FROM workflows ORDER BY rowid`)
	if err != nil {
		return nil, storeErr("list workflows", err)
	}
	defer rows.Close()

	out := []schema.WorkflowDefinition{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, storeErr("scan workflow", err)
		}
		var wf schema.WorkflowDefinition
		if err := json.Unmarshal([]byte(doc), &wf); err != nil {
			return nil, storeErr("decode workflow", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

func (s *LibSQLStore) WriteAllWorkflows(ctx context.Context, workflows []schema.WorkflowDefinition) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM workflows`); err != nil {
		return storeErr("clear workflows", err)
	}
	for i := range workflows {
		if err := upsertWorkflow(ctx, tx, &workflows[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *LibSQLStore) GetWorkflow(ctx context.Context, id string) (*schema.WorkflowDefinition, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT definition FROM workflows WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("workflow", id)
	}
	if err != nil {
		return nil, storeErr("get workflow", err)
	}
	var wf schema.WorkflowDefinition
	if err := json.Unmarshal([]byte(doc), &wf); err != nil {
		return nil, storeErr("decode workflow", err)
	}
	return &wf, nil
}

func (s *LibSQLStore) SaveWorkflow(ctx context.Context, wf *schema.WorkflowDefinition) error {
	return upsertWorkflow(ctx, s.db, wf)
}

// --- Runs ---

func (s *LibSQLStore) ReadAllRuns(ctx context.Context) ([]schema.WorkflowRun, error) {
	return s.queryRuns(ctx, `SELECT document FROM runs ORDER BY rowid`)
}

func (s *LibSQLStore) WriteAllRuns(ctx context.Context, runs []schema.WorkflowRun) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs`); err != nil {
		return storeErr("clear runs", err)
	}
	for i := range runs {
		if err := upsertRun(ctx, tx, &runs[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *LibSQLStore) SaveRun(ctx context.Context, run *schema.WorkflowRun) error {
	return upsertRun(ctx, s.db, run)
}

func (s *LibSQLStore) GetRun(ctx context.Context, id string) (*schema.WorkflowRun, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM runs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeNotFound("run", id)
	}
	if err != nil {
		return nil, storeErr("get run", err)
	}
	var run schema.WorkflowRun
	if err := json.Unmarshal([]byte(doc), &run); err != nil {
		return nil, storeErr("decode run", err)
	}
	return &run, nil
}

func (s *LibSQLStore) ListRuns(ctx context.Context, filter RunFilter) ([]schema.WorkflowRun, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.WorkflowID != "" {
		clauses = append(clauses, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	q := `SELECT document FROM runs`
	if len(clauses) > 0 {
		q += " WHERE " + strings.Join(clauses, " AND ")
	}
	q += " ORDER BY started_at_ms DESC, rowid DESC"
	if filter.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return s.queryRuns(ctx, q, args...)
}

func (s *LibSQLStore) queryRuns(ctx context.Context, query string, args ...any) ([]schema.WorkflowRun, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list runs", err)
	}
	defer rows.Close()

	out := []schema.WorkflowRun{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, storeErr("scan run", err)
		}
		var run schema.WorkflowRun
		if err := json.Unmarshal([]byte(doc), &run); err != nil {
			return nil, storeErr("decode run", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// --- Helpers ---

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertWorkflow(ctx context.Context, db execer, wf *schema.WorkflowDefinition) error {
	doc, err := json.Marshal(wf)
	if err != nil {
		return storeErr("encode workflow", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO workflows (id, name, trigger_type, definition, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, trigger_type=excluded.trigger_type,
		   definition=excluded.definition, updated_at=excluded.updated_at`,
		wf.ID, wf.Name, wf.Trigger.Type, string(doc), nowText(),
	)
	if err != nil {
		return storeErr("save workflow", err)
	}
	return nil
}

func upsertRun(ctx context.Context, db execer, run *schema.WorkflowRun) error {
	doc, err := json.Marshal(run)
	if err != nil {
		return storeErr("encode run", err)
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO runs (id, workflow_id, status, started_at_ms, document, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET status=excluded.status, document=excluded.document, updated_at=excluded.updated_at`,
		run.ID, run.WorkflowID, string(run.Status), run.StartedAt.UnixMilli(), string(doc), nowText(),
	)
	if err != nil {
		return storeErr("save run", err)
	}
	return nil
}

func storeErr(op string, err error) error {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}

func nowText() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullRaw(r json.RawMessage) any {
	if len(r) == 0 {
		return nil
	}
	return string(r)
}

func rawOrNil(ns sql.NullString) json.RawMessage {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	return json.RawMessage(ns.String)
}

var _ Store = (*LibSQLStore)(nil)
