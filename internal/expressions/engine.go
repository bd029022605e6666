package expressions

import (
	"context"
	"sort"

	"github.com/stack21/flowengine/pkg/schema"
)

// Engine evaluates expressions against step data.
// Three implementations: Expr (conditions, default), CEL (conditions), GoJQ (transforms).
type Engine interface {
	Name() string
	Evaluate(ctx context.Context, expression string, data map[string]any) (any, error)
}

// Language names accepted in step config.
const (
	LanguageExpr = "expr"
	LanguageCEL  = "cel"
	LanguageJQ   = "jq"
)

// Set holds one engine per language.
type Set struct {
	engines map[string]Engine
}

// NewSet builds the standard engine set.
func NewSet() (*Set, error) {
	cel, err := NewCELEngine()
	if err != nil {
		return nil, err
	}
	return &Set{engines: map[string]Engine{
		LanguageExpr: NewExprEngine(),
		LanguageCEL:  cel,
		LanguageJQ:   NewGoJQEngine(),
	}}, nil
}

// Get returns the engine for language. An empty language selects expr.
func (s *Set) Get(language string) (Engine, error) {
	if language == "" {
		language = LanguageExpr
	}
	e, ok := s.engines[language]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeValidation,
			"unknown expression language %q (supported: %v)", language, s.Languages())
	}
	return e, nil
}

// Languages lists the registered language names, sorted.
func (s *Set) Languages() []string {
	names := make([]string, 0, len(s.engines))
	for name := range s.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
