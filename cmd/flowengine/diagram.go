package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/internal/diagram"
)

func newDiagramCommand(c *cli) *cobra.Command {
	var (
		runID  string
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "diagram <workflow-id>",
		Short: "Draw a workflow's step chain",
		Long: `Draw the chain of steps a workflow runs, as ASCII (default), Mermaid, PNG
or SVG. With --run the step states of that run are laid over the diagram.
Images need --output.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd.Context(), func(app *App) error {
				model, err := app.Service.Diagram(cmd.Context(), args[0], runID)
				if err != nil {
					return err
				}

				var out []byte
				switch format {
				case "ascii":
					out = []byte(diagram.RenderASCII(model))
				case "mermaid":
					out = []byte(diagram.RenderMermaid(model))
				case diagram.FormatPNG, diagram.FormatSVG:
					if output == "" {
						return fmt.Errorf("--output is required for %s", format)
					}
					if out, err = diagram.RenderImage(cmd.Context(), model, format); err != nil {
						return err
					}
				default:
					return fmt.Errorf("--format must be ascii, mermaid, png or svg, got %q", format)
				}

				if output == "" {
					_, err = cmd.OutOrStdout().Write(out)
					return err
				}
				if err := os.WriteFile(output, out, 0o644); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", output)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "overlay the step states of this run")
	cmd.Flags().StringVarP(&format, "format", "f", "ascii", "ascii, mermaid, png or svg")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	return cmd
}
