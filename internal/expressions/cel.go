package expressions

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/stack21/flowengine/pkg/schema"
)

// celVariables are the top-level names a CEL condition may reference.
var celVariables = []string{"input", "trigger"}

// CELEngine evaluates Common Expression Language conditions. Missing map
// keys are runtime errors in CEL; conditions guard optional fields with
// has(input.field).
type CELEngine struct {
	env   *cel.Env
	cache programCache[cel.Program]
}

// NewCELEngine declares input (the step's data bag) and trigger (the run's
// trigger data) as dynamically typed variables.
func NewCELEngine() (*CELEngine, error) {
	opts := []cel.EnvOption{cel.CrossTypeNumericComparisons(true)}
	for _, name := range celVariables {
		opts = append(opts, cel.Variable(name, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &CELEngine{env: env}, nil
}

func (e *CELEngine) Name() string {
	return LanguageCEL
}

func (e *CELEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty CEL expression")
	}

	prg, err := e.cache.get(expression, e.compile)
	if err != nil {
		return nil, err
	}

	activation := make(map[string]any, len(celVariables))
	for _, name := range celVariables {
		activation[name] = map[string]any{}
		if v, ok := data[name]; ok && v != nil {
			activation[name] = v
		}
	}

	out, _, err := prg.ContextEval(ctx, activation)
	if err != nil {
		return nil, expressionError("CEL evaluation failed for", expression, err)
	}
	return out.Value(), nil
}

func (e *CELEngine) compile(src string) (cel.Program, error) {
	ast, issues := e.env.Compile(src)
	if err := issues.Err(); err != nil {
		return nil, expressionError("CEL compile error in", src, err)
	}
	// Interrupt checks let ContextEval honor cancellation inside
	// comprehensions.
	prg, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, expressionError("CEL program error for", src, err)
	}
	return prg, nil
}

var _ Engine = (*CELEngine)(nil)
