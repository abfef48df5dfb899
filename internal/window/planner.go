// Package window computes the [start, end) millisecond time window that one
// ingestion run queries from the audit API.
package window

import (
	"fmt"
	"time"
)

// Window is a half-open [StartMS, EndMS) interval in epoch milliseconds.
type Window struct {
	StartMS int64
	EndMS   int64
}

const (
	// DefaultLookbackDays is used when an input has no configured start date
	// and no checkpoint.
	DefaultLookbackDays = 7

	millisPerDay = 24 * 3600 * 1000

	// clockSkewTolerance allows a configured start date slightly in the future.
	clockSkewTolerance = 60 * time.Second

	// maxRetention rejects configured start dates older than two years.
	maxRetention = 2 * 365 * millisPerDay
)

// startLayouts are the accepted formats for a configured start date,
// most specific first.
var startLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseStart parses a configured start date into epoch milliseconds.
// Accepted formats are YYYY-MM-DDTHH:MM:SS and YYYY-MM-DD.
func ParseStart(s string) (int64, error) {
	for _, layout := range startLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unsupported start date format: %q", s)
}

// ValidateStart checks a configured start date at configuration time. It
// rejects dates in the future (beyond a small clock-skew tolerance) and dates
// older than the retention window.
func ValidateStart(s string, now time.Time) error {
	if s == "" {
		return nil
	}
	ms, err := ParseStart(s)
	if err != nil {
		return err
	}
	nowMS := now.UnixMilli()
	if ms > nowMS+clockSkewTolerance.Milliseconds() {
		return fmt.Errorf("start date %q is in the future", s)
	}
	if ms < nowMS-maxRetention {
		return fmt.Errorf("start date %q is older than the 2 year retention window", s)
	}
	return nil
}

// Plan computes the query window for one run.
//
// The lower bound is the configured start date if present, otherwise
// now - lookbackDays. A checkpoint can only move the lower bound forward,
// never backward past the configured floor. The upper bound is always now.
func Plan(configuredStart string, lookbackDays int, checkpoint *int64, now time.Time) (Window, error) {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}
	endMS := now.UnixMilli()

	startMS := endMS - int64(lookbackDays)*millisPerDay
	if configuredStart != "" {
		ms, err := ParseStart(configuredStart)
		if err != nil {
			return Window{}, err
		}
		startMS = ms
	}

	if checkpoint != nil && *checkpoint > startMS {
		startMS = *checkpoint
	}

	if startMS < 0 {
		startMS = 0
	}
	if startMS > endMS {
		startMS = endMS
	}

	return Window{StartMS: startMS, EndMS: endMS}, nil
}
