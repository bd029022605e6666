package expressions

import (
	"context"
	"strings"

	"github.com/stack21/flowengine/pkg/schema"
)

// ConditionEvaluator decides condition steps. Authors write "$.field"
// references; they are rewritten to "input.field" before compilation so the
// data bag is visible as the input variable.
type ConditionEvaluator struct {
	engines *Set
}

// NewConditionEvaluator creates an evaluator backed by engines.
func NewConditionEvaluator(engines *Set) *ConditionEvaluator {
	return &ConditionEvaluator{engines: engines}
}

// RewritePaths replaces every "$." with "input.".
func RewritePaths(expression string) string {
	return strings.ReplaceAll(expression, PathPrefix, "input.")
}

// Evaluate runs expression in the given language (empty selects expr) with
// input bound to the data bag and trigger to the run's trigger data.
func (c *ConditionEvaluator) Evaluate(ctx context.Context, language, expression string, input any, trigger map[string]any) (bool, error) {
	if strings.TrimSpace(expression) == "" {
		return false, schema.NewError(schema.ErrCodeExpression, "condition expression is empty")
	}
	if language == LanguageJQ {
		return false, schema.NewError(schema.ErrCodeValidation, "jq cannot be used for conditions")
	}

	engine, err := c.engines.Get(language)
	if err != nil {
		return false, err
	}

	out, err := engine.Evaluate(ctx, RewritePaths(expression), map[string]any{
		"input":   input,
		"trigger": trigger,
	})
	if err != nil {
		return false, err
	}
	return Truthy(out), nil
}
