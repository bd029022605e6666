package validation

import (
	"encoding/json"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/stack21/flowengine/internal/steps"
	"github.com/stack21/flowengine/pkg/schema"
)

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// validateSemantic checks step types against the handler registry, each
// step's config against its handler, and the trigger config.
func validateSemantic(def *schema.WorkflowDefinition, handlers steps.Lookup) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	validateTrigger(def.Trigger, result)

	if len(def.Steps) == 0 {
		result.AddWarning("steps", schema.ErrCodeValidation, "workflow has no steps; runs complete immediately")
	}

	for i := range def.Steps {
		st := &def.Steps[i]
		path := fmt.Sprintf("steps[%d]", i)

		if handlers == nil {
			continue
		}
		h, err := handlers.Get(st.Type)
		if err != nil {
			result.AddError(path+".type", schema.ErrCodeUnsupportedStepType,
				fmt.Sprintf("step %q: unsupported step type %q", st.ID, st.Type))
			continue
		}
		if err := h.Validate(st.Config); err != nil {
			result.AddError(path+".config", schema.ErrCodeValidation, fmt.Sprintf("step %q: %s", st.ID, errMessage(err)))
		}
	}
	return result
}

func validateTrigger(t schema.Trigger, result *schema.ValidationResult) {
	switch t.Type {
	case schema.TriggerSchedule:
		expr, _ := t.Config["cron"].(string)
		if expr == "" {
			result.AddError("trigger.config.cron", schema.ErrCodeValidation, "schedule trigger requires a cron expression")
			return
		}
		if _, err := cronParser.Parse(expr); err != nil {
			result.AddError("trigger.config.cron", schema.ErrCodeValidation, fmt.Sprintf("invalid cron %q: %v", expr, err))
		}
	case schema.TriggerWebhook:
		if raw, ok := t.Config["inputSchema"]; ok {
			if _, err := json.Marshal(raw); err != nil {
				result.AddError("trigger.config.inputSchema", schema.ErrCodeValidation, "inputSchema is not encodable")
			}
		}
	}
}

func errMessage(err error) string {
	if se, ok := err.(*schema.Error); ok {
		return se.Message
	}
	return err.Error()
}
