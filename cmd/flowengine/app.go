package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/stack21/flowengine/internal/engine"
	"github.com/stack21/flowengine/internal/logging"
	"github.com/stack21/flowengine/internal/service"
	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/internal/streaming"
	"github.com/stack21/flowengine/internal/validation"
)

// App is the wired process: storage, handlers, interpreter, dispatcher and
// the service shared by every surface.
type App struct {
	Config     *Config
	Logger     *slog.Logger
	Store      store.Store
	Events     *store.EventLog
	Hub        *streaming.MemoryHub
	Registry   *steps.Registry
	Interp     *engine.Interpreter
	Dispatcher *engine.Dispatcher
	Validator  *validation.WorkflowValidator
	Service    *service.WorkflowService
}

func newApp(ctx context.Context, cfg *Config, logOut io.Writer) (*App, error) {
	logger := logging.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format)

	opened, err := store.Open(ctx, cfg.storeConfig(), logger)
	if err != nil {
		return nil, err
	}

	reg, err := steps.NewBuiltinRegistry(steps.BuiltinDeps{
		HTTP: steps.HTTPConfig{
			DefaultTimeout:  cfg.HTTP.Timeout,
			MaxResponseBody: cfg.HTTP.MaxResponseBody,
		},
		Logger: logger,
	})
	if err != nil {
		_ = opened.Store.Close()
		return nil, err
	}

	metrics, err := engine.NewMetrics(nil)
	if err != nil {
		_ = opened.Store.Close()
		return nil, err
	}

	hub := streaming.NewMemoryHub()
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithEventPublisher(hub),
		engine.WithMetrics(metrics),
	}
	if opened.Events != nil {
		opts = append(opts, engine.WithEventAppender(opened.Events))
	}
	interp := engine.NewInterpreter(opened.Store, opened.Store, reg, opts...)

	validator, err := validation.NewWorkflowValidator(reg)
	if err != nil {
		_ = opened.Store.Close()
		return nil, err
	}

	dispatcher := engine.NewDispatcher(interp, cfg.Dispatcher.PoolSize, logger)

	deps := service.Deps{
		Store:      opened.Store,
		Executor:   interp,
		Dispatcher: dispatcher,
		Validator:  validator,
		Logger:     logger,
	}
	if opened.Events != nil {
		deps.Events = opened.Events
	}

	return &App{
		Config:     cfg,
		Logger:     logger,
		Store:      opened.Store,
		Events:     opened.Events,
		Hub:        hub,
		Registry:   reg,
		Interp:     interp,
		Dispatcher: dispatcher,
		Validator:  validator,
		Service:    service.New(deps),
	}, nil
}

// Close waits for dispatched runs, then closes storage.
func (a *App) Close() error {
	a.Dispatcher.Shutdown()
	return a.Store.Close()
}
