package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	DriverJSON   = "json"
	DriverLibSQL = "libsql"
)

// Config selects and locates the persistence backend.
type Config struct {
	Driver string // "json" (default) or "libsql"
	Dir    string // data directory for the json driver
	DBPath string // database file for the libsql driver; defaults to Dir/flowengine.db
}

// Opened bundles a Store with its optional event log (libsql only).
type Opened struct {
	Store  Store
	Events *EventLog
}

// Open builds the configured backend, running migrations for libsql.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Opened, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		cfg.Dir = "data"
	}

	switch cfg.Driver {
	case "", DriverJSON:
		logger.Info("store: using json files", "dir", cfg.Dir)
		return &Opened{Store: NewJSONFileStore(cfg.Dir, logger)}, nil

	case DriverLibSQL:
		path := cfg.DBPath
		if path == "" {
			path = filepath.Join(cfg.Dir, "flowengine.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		s, err := NewLibSQLStore(path)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate %s: %w", path, err)
		}
		logger.Info("store: using libsql", "path", path)
		return &Opened{Store: s, Events: NewEventLog(s)}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
