package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/stack21/flowengine/pkg/schema"
)

const (
	WorkflowsFile = "workflows.json"
	RunsFile      = "runs.json"
)

// JSONFileStore keeps workflows and runs as two pretty-printed JSON arrays
// in a directory. Reads never fail: a missing or unparsable file reads as
// an empty list. Writes replace the file atomically (temp file + rename)
// and a mutex serializes read-modify-write cycles within the process.
type JSONFileStore struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
}

func NewJSONFileStore(dir string, logger *slog.Logger) *JSONFileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONFileStore{dir: dir, logger: logger}
}

// Dir returns the directory holding the JSON files.
func (s *JSONFileStore) Dir() string { return s.dir }

func (s *JSONFileStore) Close() error { return nil }

func (s *JSONFileStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// --- Workflows ---

func (s *JSONFileStore) ReadAllWorkflows(ctx context.Context) ([]schema.WorkflowDefinition, error) {
	return readArray[schema.WorkflowDefinition](ctx, s.path(WorkflowsFile), s.logger), nil
}

func (s *JSONFileStore) WriteAllWorkflows(_ context.Context, workflows []schema.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeArray(s.path(WorkflowsFile), workflows)
}

func (s *JSONFileStore) GetWorkflow(ctx context.Context, id string) (*schema.WorkflowDefinition, error) {
	for _, wf := range readArray[schema.WorkflowDefinition](ctx, s.path(WorkflowsFile), s.logger) {
		if wf.ID == id {
			return &wf, nil
		}
	}
	return nil, storeNotFound("workflow", id)
}

func (s *JSONFileStore) SaveWorkflow(ctx context.Context, wf *schema.WorkflowDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := readArray[schema.WorkflowDefinition](ctx, s.path(WorkflowsFile), s.logger)
	return writeArray(s.path(WorkflowsFile), upsert(all, *wf, func(w schema.WorkflowDefinition) string { return w.ID }))
}

// --- Runs ---

func (s *JSONFileStore) ReadAllRuns(ctx context.Context) ([]schema.WorkflowRun, error) {
	return readArray[schema.WorkflowRun](ctx, s.path(RunsFile), s.logger), nil
}

func (s *JSONFileStore) WriteAllRuns(_ context.Context, runs []schema.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeArray(s.path(RunsFile), runs)
}

func (s *JSONFileStore) SaveRun(ctx context.Context, run *schema.WorkflowRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := readArray[schema.WorkflowRun](ctx, s.path(RunsFile), s.logger)
	return writeArray(s.path(RunsFile), upsert(all, *run, func(r schema.WorkflowRun) string { return r.ID }))
}

func (s *JSONFileStore) GetRun(ctx context.Context, id string) (*schema.WorkflowRun, error) {
	for _, run := range readArray[schema.WorkflowRun](ctx, s.path(RunsFile), s.logger) {
		if run.ID == id {
			return &run, nil
		}
	}
	return nil, storeNotFound("run", id)
}

func (s *JSONFileStore) ListRuns(ctx context.Context, filter RunFilter) ([]schema.WorkflowRun, error) {
	return filter.Apply(readArray[schema.WorkflowRun](ctx, s.path(RunsFile), s.logger)), nil
}

// --- File helpers ---

// upsert replaces the element with item's key or appends item.
func upsert[T any](items []T, item T, key func(T) string) []T {
	k := key(item)
	for i := range items {
		if key(items[i]) == k {
			items[i] = item
			return items
		}
	}
	return append(items, item)
}

func readArray[T any](ctx context.Context, path string, logger *slog.Logger) []T {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.WarnContext(ctx, "store: cannot read file, treating as empty", "path", path, "error", err)
		}
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		logger.WarnContext(ctx, "store: cannot parse file, treating as empty", "path", path, "error", err)
		return []T{}
	}
	if items == nil {
		items = []T{}
	}
	return items
}

// writeArray serializes items with a 2-space indent and swaps the file in
// with a rename, creating the directory when needed.
func writeArray[T any](path string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "encode %s: %v", filepath.Base(path), err).WithCause(err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "create directory %s: %v", dir, err).WithCause(err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeStore, "create temp file: %v", err).WithCause(err)
	}
	tmpPath := tmp.Name()

	if err := writeAndSync(tmp, data); err != nil {
		_ = os.Remove(tmpPath)
		return schema.NewErrorf(schema.ErrCodeStore, "write %s: %v", tmpPath, err).WithCause(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return schema.NewErrorf(schema.ErrCodeStore, "replace %s: %v", path, err).WithCause(err)
	}
	return nil
}

func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

var _ Store = (*JSONFileStore)(nil)
