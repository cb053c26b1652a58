package xmlfeed

import (
	"strconv"
	"strings"
)

// Lookup walks nested maps along path. A list met on the way is entered
// through its first element.
func Lookup(v any, path ...string) (any, bool) {
	cur := v
	for _, key := range path {
		if arr, ok := cur.([]any); ok {
			if len(arr) == 0 {
				return nil, false
			}
			cur = arr[0]
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// String renders a leaf as text. Numbers are printed without exponent or
// trailing zeros; an element with attributes yields its text content.
func String(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		return String(t[TextKey])
	case []any:
		if len(t) == 0 {
			return ""
		}
		return String(t[0])
	default:
		return ""
	}
}

// Number reads a leaf as a float, accepting numeric strings with thousands separators.
func Number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	case map[string]any:
		return Number(t[TextKey])
	case []any:
		if len(t) == 0 {
			return 0, false
		}
		return Number(t[0])
	default:
		return 0, false
	}
}

// List normalises a node to a slice: nil stays nil, a list is returned as
// is and anything else becomes a one-element list.
func List(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	default:
		return []any{t}
	}
}

// Map returns v as an element map.
func Map(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// Strings collects the text of every entry of a repeated element.
func Strings(v any) []string {
	var out []string
	for _, item := range List(v) {
		if s := String(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
