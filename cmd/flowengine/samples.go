package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/internal/samples"
)

func newSamplesCommand(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "samples",
		Short: "Manage sample workflows",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Seed the sample workflows into an empty store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				seeded, err := samples.InitializeSampleWorkflows(cmd.Context(), app.Store, app.Logger)
				if err != nil {
					return err
				}
				if seeded {
					fmt.Fprintf(cmd.OutOrStdout(), "seeded %s and %s\n", samples.ContactFormWorkflowID, samples.DataSyncWorkflowID)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "store already has workflows; nothing to do")
				}
				return nil
			})
		},
	})
	return cmd
}
