package expressions

import (
	"encoding/json"
	"reflect"
)

// Snapshot returns a deep copy of a data bag value so that later mutation of
// the original cannot alter a recorded RunStep input or output.
// JSON-shaped values are copied structurally; other composite values are
// copied through a JSON round trip, and values that cannot be encoded are
// returned as is.
func Snapshot(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return SnapshotMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = Snapshot(item)
		}
		return cp
	case map[string]string:
		cp := make(map[string]string, len(val))
		for k, s := range val {
			cp[k] = s
		}
		return cp
	case []string:
		return append([]string(nil), val...)
	case []map[string]any:
		cp := make([]map[string]any, len(val))
		for i, m := range val {
			cp[i] = SnapshotMap(m)
		}
		return cp
	case json.RawMessage:
		cp := make(json.RawMessage, len(val))
		copy(cp, val)
		return cp
	case string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return v
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Pointer, reflect.Struct:
		raw, err := json.Marshal(v)
		if err != nil {
			return v
		}
		var out any
		if err := json.Unmarshal(raw, &out); err != nil {
			return v
		}
		return out
	default:
		return v
	}
}

// SnapshotMap deep-copies a map[string]any. nil stays nil.
func SnapshotMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = Snapshot(v)
	}
	return cp
}
