package steps

import (
	"context"

	"github.com/stack21/flowengine/internal/expressions"
	"github.com/stack21/flowengine/pkg/schema"
)

// TransformHandler implements the data_transform step.
//
// config.transform is either a TransformFunc or a map. In a map, string
// values starting with "$." are resolved against the input; keys whose path
// does not resolve are left out of the result. Every other value is copied
// literally. config.jq runs a jq program against the input instead.
// With neither key the input passes through unchanged.
type TransformHandler struct {
	jq *expressions.GoJQEngine
}

func NewTransformHandler(jq *expressions.GoJQEngine) *TransformHandler {
	if jq == nil {
		jq = expressions.NewGoJQEngine()
	}
	return &TransformHandler{jq: jq}
}

func (h *TransformHandler) Type() schema.StepType { return schema.StepTypeDataTransform }

func (h *TransformHandler) Description() string {
	return "Reshape the data bag with $. path mappings or a jq program."
}

func (h *TransformHandler) Validate(config map[string]any) error {
	transform, hasTransform := config["transform"]
	program, hasJQ := config["jq"]
	if hasTransform && hasJQ {
		return schema.NewError(schema.ErrCodeValidation, "data_transform: 'transform' and 'jq' are mutually exclusive")
	}
	if hasJQ {
		if s, ok := program.(string); !ok || s == "" {
			return schema.NewError(schema.ErrCodeValidation, "data_transform: 'jq' must be a non-empty string")
		}
	}
	if hasTransform {
		switch transform.(type) {
		case map[string]any, TransformFunc, func(any) (any, error), func(any) any, nil:
		default:
			return schema.NewErrorf(schema.ErrCodeValidation,
				"data_transform: 'transform' must be an object or function, got %T", transform)
		}
	}
	return nil
}

func (h *TransformHandler) Execute(ctx context.Context, in Input) (any, error) {
	cfg := in.Config()
	if err := h.Validate(cfg); err != nil {
		return nil, err
	}

	if program, ok := cfg["jq"].(string); ok {
		return h.jq.Transform(ctx, program, in.Data)
	}

	switch t := cfg["transform"].(type) {
	case TransformFunc:
		return t(in.Data)
	case func(any) (any, error):
		return t(in.Data)
	case func(any) any:
		return t(in.Data), nil
	case map[string]any:
		return MapTransform(t, in.Data), nil
	default:
		return in.Data, nil
	}
}

// MapTransform builds a new object from mapping, resolving "$." paths
// against input.
func MapTransform(mapping map[string]any, input any) map[string]any {
	out := make(map[string]any, len(mapping))
	for key, v := range mapping {
		if s, ok := v.(string); ok && expressions.IsPath(s) {
			if resolved, found := expressions.ResolvePath(input, s); found {
				out[key] = expressions.Snapshot(resolved)
			}
			continue
		}
		out[key] = expressions.Snapshot(v)
	}
	return out
}
