package record

import (
	"strconv"
	"strings"
	"time"
)

// year2000MS is the epoch-millisecond value of 2000-01-01T00:00:00Z. Numeric
// values at or above this magnitude are already milliseconds; smaller values
// are seconds.
const year2000MS = 946684800000

// timestampLayouts are tried in order, most specific first, after RFC3339 and
// bare-numeric parsing have failed.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseTimestamp converts an arbitrary JSON value into epoch milliseconds.
// Numbers use the seconds/milliseconds magnitude heuristic; strings try
// ISO-8601 first, then a numeric-string parse, then the explicit layouts.
func parseTimestamp(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		// encoding/json decodes all numbers as float64
		return scaleEpoch(int64(t)), true
	case int64:
		return scaleEpoch(t), true
	case int:
		return scaleEpoch(int64(t)), true
	case string:
		return parseTimestampString(t)
	}
	return 0, false
}

func parseTimestampString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UnixMilli(), true
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scaleEpoch(n), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return scaleEpoch(int64(f)), true
	}

	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func scaleEpoch(n int64) int64 {
	if n >= year2000MS {
		return n
	}
	return n * 1000
}
