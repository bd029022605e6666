package expressions

import (
	"strconv"
	"strings"
)

// PathPrefix marks a string as a reference into the data bag.
const PathPrefix = "$."

// IsPath reports whether s is a data bag reference such as "$.user.email".
func IsPath(s string) bool {
	return strings.HasPrefix(s, PathPrefix)
}

// ResolvePath walks a dotted "$." path through data. Map keys are matched
// literally; numeric segments also index into slices. ok is false when any
// segment is missing.
func ResolvePath(data any, path string) (any, bool) {
	rest := strings.TrimPrefix(path, PathPrefix)
	if rest == path {
		return nil, false
	}
	if rest == "" {
		return data, true
	}

	cur := data
	for _, seg := range strings.Split(rest, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case map[string]string:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
