package broker

import (
	"fmt"
	"strconv"
	"strings"
)

// Loose accessors for broker JSON decoded into map[string]any. Broker APIs
// switch between strings and numbers for the same field across versions, so
// every getter coerces.

func Str(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			s := strings.TrimSpace(fmt.Sprint(v))
			if s != "" && s != "<nil>" {
				return s
			}
		}
	}
	return ""
}

func Float(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t
		case int:
			return float64(t)
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func Int(m map[string]any, keys ...string) int {
	return int(Float(m, keys...))
}

// List extracts a []map payload whether the body is a bare array or wraps it
// under one of the given keys.
func List(body any, keys ...string) []map[string]any {
	unwrap := func(v any) []map[string]any {
		arr, ok := v.([]any)
		if !ok {
			return nil
		}
		out := make([]map[string]any, 0, len(arr))
		for _, it := range arr {
			if m, ok := it.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	if l := unwrap(body); l != nil {
		return l
	}
	if m, ok := body.(map[string]any); ok {
		for _, k := range keys {
			if l := unwrap(m[k]); l != nil {
				return l
			}
		}
	}
	return nil
}
