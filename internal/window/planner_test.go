package window

import (
	"testing"
	"time"
)

func TestPlan_DefaultLookback(t *testing.T) {
	now := time.UnixMilli(1000000000000)
	w, err := Plan("", 7, nil, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.StartMS != 999395200000 {
		t.Fatalf("expected start 999395200000, got %d", w.StartMS)
	}
	if w.EndMS != 1000000000000 {
		t.Fatalf("expected end 1000000000000, got %d", w.EndMS)
	}
}

func TestPlan_CheckpointMovesWindowForward(t *testing.T) {
	now := time.UnixMilli(1000)
	cp := int64(500)
	w, err := Plan("", 7, &cp, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// default lower bound is clamped to 0, checkpoint wins
	if w.StartMS != 500 {
		t.Fatalf("expected start 500, got %d", w.StartMS)
	}
}

func TestPlan_CheckpointNeverMovesWindowBackward(t *testing.T) {
	now := time.Now()
	cp := int64(100) // far older than the configured floor
	w, err := Plan("2024-01-15", 7, &cp, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	floor, _ := ParseStart("2024-01-15")
	if w.StartMS != floor {
		t.Fatalf("expected configured floor %d, got %d", floor, w.StartMS)
	}
}

func TestPlan_Bounds(t *testing.T) {
	cases := []struct {
		name         string
		start        string
		lookbackDays int
		cp           *int64
	}{
		{"empty start", "", 7, nil},
		{"date only", "2024-01-15", 7, nil},
		{"date time", "2024-01-15T10:30:00", 30, nil},
		{"zero lookback falls back to default", "", 0, nil},
	}
	now := time.Now()
	for _, tc := range cases {
		w, err := Plan(tc.start, tc.lookbackDays, tc.cp, now)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if w.StartMS < 0 {
			t.Fatalf("%s: negative start %d", tc.name, w.StartMS)
		}
		if w.StartMS > w.EndMS {
			t.Fatalf("%s: start %d > end %d", tc.name, w.StartMS, w.EndMS)
		}
	}
}

func TestPlan_BadStartDate(t *testing.T) {
	if _, err := Plan("15/01/2024", 7, nil, time.Now()); err == nil {
		t.Fatal("expected error for unsupported date format")
	}
}

func TestParseStart_BothFormats(t *testing.T) {
	ms, err := ParseStart("2024-01-15T10:30:00")
	if err != nil {
		t.Fatalf("datetime format: %v", err)
	}
	if ms != 1705314600000 {
		t.Fatalf("expected 1705314600000, got %d", ms)
	}

	ms, err = ParseStart("2024-01-15")
	if err != nil {
		t.Fatalf("date format: %v", err)
	}
	if ms != 1705276800000 {
		t.Fatalf("expected 1705276800000, got %d", ms)
	}
}

func TestValidateStart(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	if err := ValidateStart("", now); err != nil {
		t.Fatalf("empty start should be valid: %v", err)
	}
	if err := ValidateStart("2024-05-01", now); err != nil {
		t.Fatalf("recent start should be valid: %v", err)
	}
	if err := ValidateStart("2025-01-01", now); err == nil {
		t.Fatal("expected error for future start date")
	}
	if err := ValidateStart("2020-01-01", now); err == nil {
		t.Fatal("expected error for start date beyond retention")
	}
	if err := ValidateStart("not-a-date", now); err == nil {
		t.Fatal("expected error for malformed start date")
	}
}
