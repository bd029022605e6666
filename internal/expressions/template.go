package expressions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/stack21/flowengine/pkg/schema"
)

// Interpolate replaces ${{ $.path }} tokens in s with values resolved from
// data. Strings are inserted verbatim, other values as compact JSON, and
// unresolved paths as the empty string.
func Interpolate(s string, data any) (string, error) {
	if !strings.Contains(s, "${{") {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		idx := strings.Index(s[i:], "${{")
		if idx == -1 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+idx])
		start := i + idx + 3

		end := strings.Index(s[start:], "}}")
		if end == -1 {
			return "", schema.NewErrorf(schema.ErrCodeExpression, "unclosed ${{ in %q", s)
		}
		end += start

		ref := strings.TrimSpace(s[start:end])
		if !IsPath(ref) {
			return "", schema.NewErrorf(schema.ErrCodeExpression,
				"template reference %q must start with %q", ref, PathPrefix)
		}
		if v, ok := ResolvePath(data, ref); ok {
			b.WriteString(inline(v))
		}
		i = end + 2
	}
	return b.String(), nil
}

// InterpolateValue applies Interpolate to every string inside v, walking maps
// and slices. The result is a fresh value; v is not modified.
func InterpolateValue(v any, data any) (any, error) {
	switch val := v.(type) {
	case string:
		return Interpolate(val, data)
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			r, err := InterpolateValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			r, err := InterpolateValue(item, data)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = r
		}
		return out, nil
	default:
		return v, nil
	}
}

func inline(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
