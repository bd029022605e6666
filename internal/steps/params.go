package steps

import (
	"encoding/json"
	"time"
)

// Param helpers shared by the handlers. Config comes from JSON, so numbers
// usually arrive as float64.

// param returns m[key] when it holds a T, else defaultVal.
func param[T any](m map[string]any, key string, defaultVal T) T {
	if v, ok := m[key].(T); ok {
		return v
	}
	return defaultVal
}

func stringParam(m map[string]any, key, defaultVal string) string {
	return param(m, key, defaultVal)
}

func boolParam(m map[string]any, key string, defaultVal bool) bool {
	return param(m, key, defaultVal)
}

func intParam(m map[string]any, key string, defaultVal int) int {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return defaultVal
		}
		return int(i)
	default:
		return defaultVal
	}
}

func mapParam(m map[string]any, key string) map[string]any {
	return param[map[string]any](m, key, nil)
}

// durationParam reads key as milliseconds when numeric or as a Go duration
// string ("1.5s") otherwise.
func durationParam(m map[string]any, key string, defaultVal time.Duration) (time.Duration, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal, true
	}
	switch n := v.(type) {
	case string:
		d, err := time.ParseDuration(n)
		if err != nil {
			return defaultVal, false
		}
		return d, true
	case int, int64, float64, json.Number:
		return time.Duration(intParam(m, key, 0)) * time.Millisecond, true
	default:
		return defaultVal, false
	}
}
