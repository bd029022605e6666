package steps

import (
	"context"

	"github.com/stack21/flowengine/internal/expressions"
	"github.com/stack21/flowengine/pkg/schema"
)

// ConditionHandler implements the condition step. It evaluates
// config.condition and returns config.trueValue or config.falseValue.
// The step never changes which step runs next.
//
// config.condition is a ConditionFunc or an expression string using "$."
// references; config.language selects "expr" (default) or "cel".
// A missing branch value yields nil.
type ConditionHandler struct {
	evaluator *expressions.ConditionEvaluator
}

func NewConditionHandler(evaluator *expressions.ConditionEvaluator) *ConditionHandler {
	return &ConditionHandler{evaluator: evaluator}
}

func (h *ConditionHandler) Type() schema.StepType { return schema.StepTypeCondition }

func (h *ConditionHandler) Description() string {
	return "Pick trueValue or falseValue by evaluating a sandboxed expression."
}

func (h *ConditionHandler) Validate(config map[string]any) error {
	switch c := config["condition"].(type) {
	case string:
		if c == "" {
			return schema.NewError(schema.ErrCodeValidation, "condition: 'condition' is empty")
		}
	case ConditionFunc, func(any) (bool, error), func(any) bool:
	case nil:
		return schema.NewError(schema.ErrCodeValidation, "condition: missing required config 'condition'")
	default:
		return schema.NewErrorf(schema.ErrCodeValidation,
			"condition: 'condition' must be a string or function, got %T", c)
	}
	switch lang := stringParam(config, "language", expressions.LanguageExpr); lang {
	case expressions.LanguageExpr, expressions.LanguageCEL:
	default:
		return schema.NewErrorf(schema.ErrCodeValidation, "condition: unsupported language %q", lang)
	}
	return nil
}

func (h *ConditionHandler) Execute(ctx context.Context, in Input) (any, error) {
	cfg := in.Config()
	if err := h.Validate(cfg); err != nil {
		return nil, err
	}

	var result bool
	var err error
	switch c := cfg["condition"].(type) {
	case ConditionFunc:
		result, err = c(in.Data)
	case func(any) (bool, error):
		result, err = c(in.Data)
	case func(any) bool:
		result = c(in.Data)
	case string:
		result, err = h.evaluator.Evaluate(ctx, stringParam(cfg, "language", ""), c, in.Data, in.Trigger)
	}
	if err != nil {
		return nil, err
	}

	if result {
		return expressions.Snapshot(cfg["trueValue"]), nil
	}
	return expressions.Snapshot(cfg["falseValue"]), nil
}
