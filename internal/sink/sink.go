// Package sink defines the downstream event boundary: one call per audit
// record, carrying the serialized payload plus routing metadata.
package sink

import "context"

// Event is one audit record ready for delivery. EventTimeSec is zero for
// un-timestamped records and is then omitted from the outgoing message.
type Event struct {
	Payload      []byte // JSON-serialized record
	Index        string
	Sourcetype   string
	InputName    string
	EventTimeSec int64
}

// Sink delivers events downstream.
type Sink interface {
	Emit(ctx context.Context, ev Event) error
}
