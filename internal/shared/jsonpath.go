package shared

import (
	"math"
	"strconv"
	"strings"
)

// LookupAny walks a dot path through nested maps. Numeric segments index into
// slices ("edges.0.node"). Any missing or mistyped hop yields nil.
func LookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		switch obj := cur.(type) {
		case map[string]any:
			v, ok := obj[part]
			if !ok {
				return nil
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(obj) {
				return nil
			}
			cur = obj[i]
		default:
			return nil
		}
	}
	return cur
}

// LookupStr returns the string at path or "".
func LookupStr(m map[string]any, path string) string {
	if s, ok := LookupAny(m, path).(string); ok {
		return s
	}
	return ""
}

// LookupStrPtr returns nil for a missing or empty string.
func LookupStrPtr(m map[string]any, path string) *string {
	if s := LookupStr(m, path); s != "" {
		return &s
	}
	return nil
}

func LookupMap(m map[string]any, path string) map[string]any {
	if v, ok := LookupAny(m, path).(map[string]any); ok {
		return v
	}
	return nil
}

func LookupSlice(m map[string]any, path string) []any {
	if v, ok := LookupAny(m, path).([]any); ok {
		return v
	}
	return nil
}

// LookupFloat accepts JSON numbers and numeric strings. NaN and infinities
// read as missing.
func LookupFloat(m map[string]any, path string) *float64 {
	var f float64
	switch v := LookupAny(m, path).(type) {
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func LookupInt(m map[string]any, path string) *int {
	f := LookupFloat(m, path)
	if f == nil {
		return nil
	}
	n := int(*f)
	return &n
}

// LookupStrings collects the string elements at path, skipping anything else.
func LookupStrings(m map[string]any, path string) []string {
	raw := LookupSlice(m, path)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
