// Package coerce converts loosely typed config values into the types the
// ConfigStore getters return. TOML decodes integers as int64 and arrays as
// []any, while values set in code keep their Go types, so each function
// accepts both forms. Anything else yields the zero value.
package coerce

import "time"

// String returns v if it is a string.
func String(v any) string {
	s, _ := v.(string)
	return s
}

// Bool returns v if it is a bool.
func Bool(v any) bool {
	b, _ := v.(bool)
	return b
}

// Int accepts int, int64 and float64. Floats are truncated.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Float accepts float64, int and int64.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

// Duration parses strings like "90s". Bare integers are seconds.
func Duration(v any) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(d)
		if err != nil {
			return 0
		}
		return parsed
	case int, int64:
		return time.Duration(Int(d)) * time.Second
	}
	return 0
}

// Strings drops non-string elements.
func Strings(v any) []string {
	switch items := v.(type) {
	case []string:
		return items
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
