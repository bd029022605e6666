package main

import (
	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/internal/store"
	"github.com/stack21/flowengine/pkg/schema"
)

func newRunsCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect workflow runs",
	}

	var (
		filter store.RunFilter
		status string
		asJSON bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Status = schema.RunStatus(status)
			return c.withApp(cmd.Context(), func(app *App) error {
				runs, err := app.Service.ListRuns(cmd.Context(), filter)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), runs)
				}
				renderRunList(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	list.Flags().StringVar(&filter.WorkflowID, "workflow", "", "only runs of this workflow")
	list.Flags().StringVar(&status, "status", "", "only runs with this status")
	list.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs (0 = all)")
	list.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")

	var showJSON bool
	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its steps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				run, err := app.Service.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if showJSON {
					return writeJSON(cmd.OutOrStdout(), run)
				}
				renderRun(cmd.OutOrStdout(), run)
				return nil
			})
		},
	}
	show.Flags().BoolVar(&showJSON, "json", false, "print the run as JSON")

	cmd.AddCommand(list, show)
	return cmd
}
