package steps

import (
	"log/slog"

	"github.com/stack21/flowengine/internal/expressions"
)

// BuiltinDeps are the collaborators the built-in handlers need.
type BuiltinDeps struct {
	HTTP    HTTPConfig
	Engines *expressions.Set
	Logger  *slog.Logger
}

// RegisterBuiltins registers the five built-in step handlers.
func RegisterBuiltins(reg *Registry, deps BuiltinDeps) error {
	engines := deps.Engines
	if engines == nil {
		var err error
		if engines, err = expressions.NewSet(); err != nil {
			return err
		}
	}
	jq, _ := engines.Get(expressions.LanguageJQ)
	gojq, _ := jq.(*expressions.GoJQEngine)

	all := []Handler{
		NewHTTPRequestHandler(deps.HTTP),
		NewTransformHandler(gojq),
		NewConditionHandler(expressions.NewConditionEvaluator(engines)),
		NewDelayHandler(),
		NewLogHandler(deps.Logger),
	}
	for _, h := range all {
		if err := reg.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// NewBuiltinRegistry returns a registry holding the built-in handlers.
func NewBuiltinRegistry(deps BuiltinDeps) (*Registry, error) {
	reg := NewRegistry()
	if err := RegisterBuiltins(reg, deps); err != nil {
		return nil, err
	}
	return reg, nil
}
