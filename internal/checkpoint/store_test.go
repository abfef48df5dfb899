package checkpoint

import (
	"context"
	"testing"
	"time"
)

func TestUpdate_Get_RoundTrip(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "checkpoint-table")
	s.nowFunc = func() time.Time { return time.UnixMilli(1700000000000) }

	ctx := context.Background()
	key := "audit_input_prod"

	if err := s.Update(ctx, key, 1705314600000, 42); err != nil {
		t.Fatalf("Update error: %v", err)
	}

	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec == nil {
		t.Fatal("expected record, got nil")
	}
	if rec.LastEventTime != 1705314600000 {
		t.Fatalf("last_event_time mismatch: %d", rec.LastEventTime)
	}
	if rec.EventsProcessed != 42 {
		t.Fatalf("events_processed mismatch: %d", rec.EventsProcessed)
	}
	if rec.LastUpdated != 1700000000000 {
		t.Fatalf("last_updated mismatch: %d", rec.LastUpdated)
	}
}

func TestGet_NoCheckpoint(t *testing.T) {
	s := NewStore(newSimpleMock(), "checkpoint-table")
	rec, err := s.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil for missing checkpoint, got %+v", rec)
	}
}

func TestUpdate_Monotonic(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "checkpoint-table")
	ctx := context.Background()
	key := "audit_input_prod"

	if err := s.Update(ctx, key, 500, 5); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// a backward write is dropped, not an error
	if err := s.Update(ctx, key, 300, 3); err != nil {
		t.Fatalf("backward update should be swallowed: %v", err)
	}
	rec, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if rec.LastEventTime != 500 {
		t.Fatalf("checkpoint moved backward: %d", rec.LastEventTime)
	}

	// equal and forward writes succeed
	if err := s.Update(ctx, key, 500, 6); err != nil {
		t.Fatalf("equal update: %v", err)
	}
	if err := s.Update(ctx, key, 900, 9); err != nil {
		t.Fatalf("forward update: %v", err)
	}
	rec, _ = s.Get(ctx, key)
	if rec.LastEventTime != 900 {
		t.Fatalf("expected 900, got %d", rec.LastEventTime)
	}
}

func TestUpdate_BackendError(t *testing.T) {
	mock := newSimpleMock()
	mock.failPuts = true
	s := NewStore(mock, "checkpoint-table")

	if err := s.Update(context.Background(), "k", 100, 1); err == nil {
		t.Fatal("expected error when backend unavailable")
	}
}

func TestGet_BackendError(t *testing.T) {
	mock := newSimpleMock()
	mock.failGets = true
	s := NewStore(mock, "checkpoint-table")

	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error when backend unavailable")
	}
}

func TestKeysDoNotInterfere(t *testing.T) {
	mock := newSimpleMock()
	s := NewStore(mock, "checkpoint-table")
	ctx := context.Background()

	if err := s.Update(ctx, "input-a", 100, 1); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, "input-b", 50, 2); err != nil {
		t.Fatal(err)
	}

	a, _ := s.Get(ctx, "input-a")
	b, _ := s.Get(ctx, "input-b")
	if a.LastEventTime != 100 || b.LastEventTime != 50 {
		t.Fatalf("cross-key interference: a=%d b=%d", a.LastEventTime, b.LastEventTime)
	}
}
