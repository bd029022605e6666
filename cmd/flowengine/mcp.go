package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	flowmcp "github.com/stack21/flowengine/pkg/mcp"
)

func newMCPCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Long: `Serve the workflow.* and run.* tools to an MCP client over stdin/stdout.
Finished runs are pushed to clients as notifications. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return c.withApp(ctx, func(app *App) error {
				srv := flowmcp.NewFlowServer(flowmcp.FlowServerDeps{
					Service: app.Service,
					Logger:  app.Logger,
				})

				notifyCtx, cancel := context.WithCancel(ctx)
				defer cancel()
				go func() {
					if err := flowmcp.NewRunNotifier(srv, app.Hub).Run(notifyCtx); err != nil {
						app.Logger.Warn("mcp: run notifier stopped", slog.String("error", err.Error()))
					}
				}()

				app.Logger.Info("mcp serving on stdio", slog.String("version", flowmcp.Version))
				return srv.Serve(ctx)
			})
		},
	}
}
