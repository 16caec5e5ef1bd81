package asu

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Record is a raw semi-structured provider record. Every accessor tolerates
// absent fields and unexpected value types: the provider occasionally emits
// malformed rows and numbers encoded as strings.
type Record map[string]any

// Str returns the string value under key, or "" when absent or non-string.
func (r Record) Str(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}

// Int returns the integer value under key, accepting numeric strings,
// or 0 when the field is absent or unparseable.
func (r Record) Int(key string) int {
	switch v := r[key].(type) {
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Sub returns the nested record under key, or an empty record.
func (r Record) Sub(key string) Record {
	if m, ok := r[key].(map[string]any); ok {
		return Record(m)
	}
	return Record{}
}

// List returns the nested record array under key, or nil.
func (r Record) List(key string) []Record {
	raw, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

// firstPathSegment extracts the leading numeric segment of a provider path
// like "3/7" (faculty/group) or "3/12/77" (faculty/chair/lecturer).
func firstPathSegment(path string) int {
	seg, _, _ := strings.Cut(path, "/")
	n, err := strconv.Atoi(strings.TrimSpace(seg))
	if err != nil {
		return 0
	}
	return n
}
