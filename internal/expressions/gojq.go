package expressions

import (
	"context"

	"github.com/itchyny/gojq"

	"github.com/stack21/flowengine/pkg/schema"
)

// GoJQEngine runs jq programs for data_transform steps. Programs cannot
// read the process environment.
type GoJQEngine struct {
	cache programCache[*gojq.Code]
}

func NewGoJQEngine() *GoJQEngine {
	return &GoJQEngine{}
}

func (e *GoJQEngine) Name() string {
	return LanguageJQ
}

// Evaluate runs expression with data as the jq input document.
func (e *GoJQEngine) Evaluate(ctx context.Context, expression string, data map[string]any) (any, error) {
	var input any = map[string]any{}
	if data != nil {
		input = data
	}
	return e.Transform(ctx, expression, input)
}

// Transform runs expression against any JSON-shaped value. One output is
// returned as is, several are collected into a slice, none yields nil.
func (e *GoJQEngine) Transform(ctx context.Context, expression string, input any) (any, error) {
	if expression == "" {
		return nil, schema.NewError(schema.ErrCodeExpression, "empty jq expression")
	}

	code, err := e.cache.get(expression, compileJQ)
	if err != nil {
		return nil, err
	}

	var results []any
	iter := code.RunWithContext(ctx, normalizeForJQ(input))
	for v, ok := iter.Next(); ok; v, ok = iter.Next() {
		if err, isErr := v.(error); isErr {
			return nil, expressionError("jq evaluation failed for", expression, err)
		}
		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}

func compileJQ(src string) (*gojq.Code, error) {
	query, err := gojq.Parse(src)
	if err != nil {
		return nil, expressionError("jq parse error in", src, err)
	}
	code, err := gojq.Compile(query, gojq.WithEnvironLoader(func() []string { return nil }))
	if err != nil {
		return nil, expressionError("jq compile error in", src, err)
	}
	return code, nil
}

// normalizeForJQ rewrites Go values gojq rejects (sized ints, float32,
// typed slices and maps) into the JSON-decoded shapes it accepts. Trigger
// data and TransformFunc outputs built in Go can carry them.
func normalizeForJQ(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeForJQ(item)
		}
		return out
	case []any:
		return normalizeSlice(val)
	case []map[string]any:
		return normalizeSlice(val)
	case []string:
		return normalizeSlice(val)
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return float64(val)
	case uint:
		return float64(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return float64(val)
	case uint64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

func normalizeSlice[T any](items []T) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = normalizeForJQ(item)
	}
	return out
}

var _ Engine = (*GoJQEngine)(nil)
