// Package pipeline orchestrates one ingestion run: plan the time window,
// fetch the audit page, normalize and order records, emit them to the sink,
// and advance the checkpoint.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/badrinath-dash/apigee-audit-connector/internal/checkpoint"
	"github.com/badrinath-dash/apigee-audit-connector/internal/metrics"
	"github.com/badrinath-dash/apigee-audit-connector/internal/record"
	"github.com/badrinath-dash/apigee-audit-connector/internal/runs"
	"github.com/badrinath-dash/apigee-audit-connector/internal/sink"
	"github.com/badrinath-dash/apigee-audit-connector/internal/window"
)

// Run states, recorded for logging and run history.
const (
	statePlanning      = "PLANNING"
	stateFetching      = "FETCHING"
	stateNormalizing   = "NORMALIZING"
	stateEmitting      = "EMITTING"
	stateCheckpointing = "CHECKPOINTING"
	stateDone          = "DONE"
)

// DefaultBatchSize bounds how many records can be reprocessed after a
// mid-run crash: an intermediate checkpoint is written after each batch.
const DefaultBatchSize = 100

// wrapKeys are the payload keys the audit API is known to nest its record
// array under.
var wrapKeys = []string{"auditRecord", "audit_record", "records"}

// FetchFunc retrieves one page of raw payload for the given window.
type FetchFunc func(ctx context.Context, w window.Window) (any, error)

// CheckpointStore is the durable high-water-mark store. Both methods are
// treated as fail-soft by the pipeline.
type CheckpointStore interface {
	Get(ctx context.Context, key string) (*checkpoint.Record, error)
	Update(ctx context.Context, key string, lastEventTime, eventsProcessed int64) error
}

// RunRecorder persists run history. Optional; failures are absorbed.
type RunRecorder interface {
	Begin(ctx context.Context, runID, inputKey string, windowStartMS, windowEndMS int64) error
	Finish(ctx context.Context, runID, status string, eventsProcessed int64, runErr string) error
}

// Pipeline holds everything one run needs. Construct a fresh value per run;
// nothing here is shared across inputs.
type Pipeline struct {
	InputName       string
	ConfiguredStart string
	LookbackDays    int
	FieldPaths      []string
	Index           string
	Sourcetype      string
	BatchSize       int

	Fetch       FetchFunc
	Sink        sink.Sink
	Checkpoints CheckpointStore
	Runs        RunRecorder        // optional
	Metrics     *metrics.Publisher // optional
	RunID       string

	nowFunc func() time.Time
}

// Summary reports the outcome of a successful run.
type Summary struct {
	EventsProcessed int64
	LatestTimestamp int64
	Window          window.Window
}

func (p *Pipeline) now() time.Time {
	if p.nowFunc != nil {
		return p.nowFunc()
	}
	return time.Now()
}

// Run executes one complete ingestion pass. Fetch failures abort the run
// with no checkpoint advance; checkpoint and per-record sink failures are
// absorbed so an otherwise-healthy run always completes.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	started := p.now()
	batchSize := p.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// a checkpoint read failure degrades to "no checkpoint yet"
	state := p.enter(statePlanning)
	var cpTime *int64
	if cp, err := p.Checkpoints.Get(ctx, p.InputName); err != nil {
		log.Printf("[pipeline] input=%s checkpoint read failed, using configured window: %v", p.InputName, err)
	} else if cp != nil {
		cpTime = &cp.LastEventTime
	}

	w, err := window.Plan(p.ConfiguredStart, p.LookbackDays, cpTime, started)
	if err != nil {
		return Summary{}, p.fail(ctx, state, started, w, err)
	}
	p.beginRun(ctx, w)
	log.Printf("[pipeline] input=%s run=%s window=[%d,%d)", p.InputName, p.RunID, w.StartMS, w.EndMS)

	state = p.enter(stateFetching)
	payload, err := p.Fetch(ctx, w)
	if err != nil {
		return Summary{}, p.fail(ctx, state, started, w, err)
	}

	p.enter(stateNormalizing)
	raw := record.Records(payload, wrapKeys)
	timestamped := make([]record.Normalized, 0, len(raw))
	untimestamped := make([]record.Normalized, 0)
	for _, rec := range raw {
		ms, ok := record.ExtractTimestamp(rec, p.FieldPaths)
		n := record.Normalized{Record: rec, TimestampMS: ms, HasTimestamp: ok}
		if ok {
			timestamped = append(timestamped, n)
		} else {
			untimestamped = append(untimestamped, n)
		}
	}
	sort.SliceStable(timestamped, func(i, j int) bool {
		return timestamped[i].TimestampMS < timestamped[j].TimestampMS
	})

	// ascending timestamp order first, un-timestamped last
	p.enter(stateEmitting)
	var emitted int64
	var latest int64

	for _, n := range timestamped {
		if p.emit(ctx, n) {
			emitted++
			latest = n.TimestampMS
			if emitted%int64(batchSize) == 0 {
				p.persistCheckpoint(ctx, latest, emitted)
			}
		} else {
			// the checkpoint may advance past this record; accepted
			// at-least-once/skip trade-off
			if n.TimestampMS > latest {
				latest = n.TimestampMS
			}
		}
	}

	if len(untimestamped) > 0 && latest == 0 {
		// no timestamped record was emitted; fall back to wall clock
		latest = p.now().UnixMilli()
	}
	for _, n := range untimestamped {
		if p.emit(ctx, n) {
			emitted++
		}
	}

	p.enter(stateCheckpointing)
	if latest > 0 {
		p.persistCheckpoint(ctx, latest, emitted)
	}

	p.finishRun(ctx, runs.StatusCompleted, emitted, "")
	dur := p.now().Sub(started)
	p.Metrics.RecordRun(ctx, p.InputName, emitted, dur, false)
	log.Printf("[pipeline] input=%s run=%s state=%s records=%d latest=%d window=[%d,%d) duration=%s",
		p.InputName, p.RunID, stateDone, emitted, latest, w.StartMS, w.EndMS, dur)

	return Summary{EventsProcessed: emitted, LatestTimestamp: latest, Window: w}, nil
}

// enter logs a state transition and returns the state for failure
// reporting.
func (p *Pipeline) enter(state string) string {
	log.Printf("[pipeline] input=%s run=%s state=%s", p.InputName, p.RunID, state)
	return state
}

// emit sends one record to the sink. A per-record failure is logged and
// absorbed; the run continues with the next record.
func (p *Pipeline) emit(ctx context.Context, n record.Normalized) bool {
	payload, err := json.Marshal(n.Record)
	if err != nil {
		log.Printf("[pipeline] input=%s skipping unserializable record: %v", p.InputName, err)
		return false
	}

	ev := sink.Event{
		Payload:    payload,
		Index:      p.Index,
		Sourcetype: p.Sourcetype,
		InputName:  p.InputName,
	}
	if n.HasTimestamp {
		ev.EventTimeSec = n.TimestampMS / 1000
	}

	if err := p.Sink.Emit(ctx, ev); err != nil {
		log.Printf("[pipeline] input=%s record emit failed: %v", p.InputName, err)
		return false
	}
	return true
}

// persistCheckpoint writes the high-water mark, fail-soft.
func (p *Pipeline) persistCheckpoint(ctx context.Context, lastEventTime, eventsProcessed int64) {
	if err := p.Checkpoints.Update(ctx, p.InputName, lastEventTime, eventsProcessed); err != nil {
		log.Printf("[pipeline] input=%s checkpoint write failed (next run may re-emit): %v", p.InputName, err)
	}
}

func (p *Pipeline) beginRun(ctx context.Context, w window.Window) {
	if p.Runs == nil || p.RunID == "" {
		return
	}
	if err := p.Runs.Begin(ctx, p.RunID, p.InputName, w.StartMS, w.EndMS); err != nil {
		log.Printf("[pipeline] input=%s run history begin failed: %v", p.InputName, err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, status string, events int64, runErr string) {
	if p.Runs == nil || p.RunID == "" {
		return
	}
	if err := p.Runs.Finish(ctx, p.RunID, status, events, runErr); err != nil {
		log.Printf("[pipeline] input=%s run history finish failed: %v", p.InputName, err)
	}
}

// fail records a terminal failure and returns the wrapped error. State is
// part of the message so operators can see how far the run got.
func (p *Pipeline) fail(ctx context.Context, state string, started time.Time, w window.Window, err error) error {
	wrapped := fmt.Errorf("input %s failed during %s: %w", p.InputName, state, err)
	log.Printf("[pipeline] %v", wrapped)
	p.finishRun(ctx, runs.StatusFailed, 0, wrapped.Error())
	p.Metrics.RecordRun(ctx, p.InputName, 0, p.now().Sub(started), true)
	return wrapped
}
