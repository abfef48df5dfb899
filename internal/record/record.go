// Package record handles the unpredictable shapes of audit API payloads:
// locating nested fields by dot-separated paths and normalizing per-record
// event timestamps into epoch milliseconds.
package record

import "strings"

// Normalized pairs a raw record with its extracted event timestamp.
// HasTimestamp is false when no configured field path yielded a parseable
// value; such records are emitted un-timestamped.
type Normalized struct {
	Record       map[string]any
	TimestampMS  int64
	HasTimestamp bool
}

// Records extracts the record list from a decoded API payload. The API
// returns either a bare array of records or a single object wrapping a
// nested array under one of wrapKeys (e.g. "auditRecord"). Non-object
// array elements are dropped.
func Records(payload any, wrapKeys []string) []map[string]any {
	switch v := payload.(type) {
	case []any:
		return objectsOf(v)
	case map[string]any:
		for _, key := range wrapKeys {
			if inner, ok := v[key].([]any); ok {
				return objectsOf(inner)
			}
		}
		// a single naked record
		if len(v) > 0 {
			return []map[string]any{v}
		}
	}
	return nil
}

func objectsOf(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// lookupPath walks a dot-separated path through nested maps. It returns
// (nil, false) as soon as an intermediate segment is missing or not a map.
func lookupPath(rec map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = rec
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// ExtractTimestamp returns the first parseable epoch-millisecond timestamp
// found by trying fieldPaths in order. It never fails on malformed input;
// unparseable values just mean "try the next path".
func ExtractTimestamp(rec map[string]any, fieldPaths []string) (int64, bool) {
	for _, path := range fieldPaths {
		v, ok := lookupPath(rec, path)
		if !ok {
			continue
		}
		if ms, ok := parseTimestamp(v); ok {
			return ms, true
		}
	}
	return 0, false
}
