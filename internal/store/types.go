package store

import (
	"sort"

	"github.com/stack21/flowengine/pkg/schema"
)

// RunFilter selects runs for ListRuns. Zero-value fields match everything.
type RunFilter struct {
	WorkflowID string
	Status     schema.RunStatus
	Limit      int
}

// Matches reports whether run passes the filter (Limit is not considered).
func (f RunFilter) Matches(run *schema.WorkflowRun) bool {
	if f.WorkflowID != "" && run.WorkflowID != f.WorkflowID {
		return false
	}
	if f.Status != "" && run.Status != f.Status {
		return false
	}
	return true
}

// Apply filters, sorts newest first and truncates runs.
func (f RunFilter) Apply(runs []schema.WorkflowRun) []schema.WorkflowRun {
	out := make([]schema.WorkflowRun, 0, len(runs))
	for i := range runs {
		if f.Matches(&runs[i]) {
			out = append(out, runs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func storeNotFound(resource, id string) *schema.Error {
	return schema.NewErrorf(schema.ErrCodeNotFound, "%s %q not found", resource, id)
}

// IsNotFound reports whether err is a NOT_FOUND store error.
func IsNotFound(err error) bool {
	return schema.IsCode(err, schema.ErrCodeNotFound)
}
