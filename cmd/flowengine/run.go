package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/pkg/schema"
)

func newRunCommand(c *cli) *cobra.Command {
	var (
		data   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run <workflow-id>",
		Short: "Run a workflow and print the result",
		Long: `Run a workflow synchronously with optional trigger data and print a
summary of the run. Exits 1 when the run fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var trigger map[string]any
			if data != "" {
				if err := json.Unmarshal([]byte(data), &trigger); err != nil {
					return fmt.Errorf("--data must be a JSON object: %w", err)
				}
			}

			return c.withApp(cmd.Context(), func(app *App) error {
				run, err := app.Service.ExecuteWorkflow(cmd.Context(), args[0], trigger)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asJSON {
					if err := writeJSON(out, run); err != nil {
						return err
					}
				} else {
					renderRun(out, run)
				}
				if run.Status != schema.RunStatusCompleted {
					return NewExitError(1)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "trigger data as a JSON object")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run as JSON")
	return cmd
}
