package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/internal/validation"
	"github.com/stack21/flowengine/pkg/schema"
)

func newValidateCommand(_ *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Validate workflow definition files",
		Long: `Validate one or more JSON files, each holding a workflow definition or an
array of them. Exits 1 when any definition has errors; warnings alone pass.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := steps.NewBuiltinRegistry(steps.BuiltinDeps{})
			if err != nil {
				return err
			}
			v, err := validation.NewWorkflowValidator(reg)
			if err != nil {
				return err
			}

			failed := false
			out := cmd.OutOrStdout()
			for _, path := range args {
				defs, err := readDefinitions(path)
				if err != nil {
					fmt.Fprintf(out, "✗ %s: %v\n", path, err)
					failed = true
					continue
				}
				for i := range defs {
					name := filepath.Base(path)
					if defs[i].ID != "" {
						name += "#" + defs[i].ID
					}
					result := v.Validate(&defs[i])
					renderValidation(out, name, result)
					if !result.Valid() {
						failed = true
					}
				}
			}
			if failed {
				return NewExitError(1)
			}
			return nil
		},
	}
}

// readDefinitions accepts a single definition object or an array, the
// latter matching the workflows.json store file.
func readDefinitions(path string) ([]schema.WorkflowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var many []schema.WorkflowDefinition
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one schema.WorkflowDefinition
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("not a workflow definition: %w", err)
	}
	return []schema.WorkflowDefinition{one}, nil
}
