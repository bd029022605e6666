package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/internal/api"
	"github.com/stack21/flowengine/internal/samples"
	"github.com/stack21/flowengine/internal/scheduler"
)

func newServeCommand(c *cli) *cobra.Command {
	var seed bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the REST API, webhooks and the schedule trigger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(ctx, func(app *App) error {
				if seed {
					if _, err := samples.InitializeSampleWorkflows(ctx, app.Store, app.Logger); err != nil {
						return err
					}
				}
				return serve(ctx, app)
			})
		},
	}
	cmd.Flags().BoolVar(&seed, "samples", true, "seed sample workflows into an empty store")
	cmd.Flags().String("listen-addr", "", "HTTP listen address")
	_ = c.v.BindPFlag("server.listen_addr", cmd.Flags().Lookup("listen-addr"))
	return cmd
}

func serve(ctx context.Context, app *App) error {
	cfg := app.Config

	if cfg.Scheduler.Enabled {
		sched := scheduler.NewScheduler(app.Store, app.Dispatcher, app.Logger,
			scheduler.WithInterval(cfg.Scheduler.Interval))
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = sched.Stop() }()
	}

	srv := api.NewServer(api.Deps{
		Service: app.Service,
		Hub:     app.Hub,
		Logger:  app.Logger,
		Health: func() map[string]any {
			return map[string]any{
				"version":    version,
				"storage":    cfg.Storage.Driver,
				"dispatcher": app.Dispatcher.Metrics(),
			}
		},
	})

	app.Logger.Info("flowengine serving",
		slog.String("version", version),
		slog.String("addr", cfg.Server.ListenAddr),
		slog.String("storage", cfg.Storage.Driver),
		slog.Bool("scheduler", cfg.Scheduler.Enabled),
	)
	return srv.ListenAndServe(ctx, cfg.Server.ListenAddr)
}
