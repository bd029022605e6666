package validation

import (
	"fmt"

	"github.com/stack21/flowengine/pkg/schema"
)

// validateChain walks the next pointers from the first step. The
// interpreter tolerates every issue found here, so all of them are warnings:
// an unknown next ends the run early, a revisited step ends it silently, and
// an unreachable step never runs.
func validateChain(def *schema.WorkflowDefinition) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if len(def.Steps) == 0 {
		return result
	}

	index := def.StepIndex()
	position := make(map[string]int, len(def.Steps))
	for i, st := range def.Steps {
		position[st.ID] = i
	}

	visited := make(map[string]bool, len(def.Steps))
	current, prev := def.FirstStepID(), ""
	for current != "" {
		if visited[current] {
			result.AddWarning(fmt.Sprintf("steps[%d].next", position[prev]), schema.ErrCodeCycleDetected,
				fmt.Sprintf("step %q returns to step %q; execution stops there", prev, current))
			break
		}
		visited[current] = true

		st := index[current]
		if st.Next == "" {
			break
		}
		if _, ok := index[st.Next]; !ok {
			result.AddWarning(fmt.Sprintf("steps[%d].next", position[current]), schema.ErrCodeNotFound,
				fmt.Sprintf("step %q points to unknown step %q; execution stops there", st.ID, st.Next))
			break
		}
		prev, current = current, st.Next
	}

	for i, st := range def.Steps {
		if !visited[st.ID] {
			result.AddWarning(fmt.Sprintf("steps[%d]", i), schema.ErrCodeValidation,
				fmt.Sprintf("step %q is unreachable from the first step", st.ID))
		}
	}
	return result
}
