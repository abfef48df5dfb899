package runs

// Run statuses
const (
	StatusRunning   = "RUNNING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// Run represents one pipeline invocation stored in the run-history DynamoDB
// table. Best-effort operational record; the pipeline never depends on it.
type Run struct {
	RunID           string `dynamodbav:"run_id"` // PK
	InputKey        string `dynamodbav:"input_key"`
	Status          string `dynamodbav:"status"` // RUNNING | COMPLETED | FAILED
	WindowStartMS   int64  `dynamodbav:"window_start_ms"`
	WindowEndMS     int64  `dynamodbav:"window_end_ms"`
	EventsProcessed int64  `dynamodbav:"events_processed,omitempty"`
	Error           string `dynamodbav:"error,omitempty"`
	StartedAt       int64  `dynamodbav:"started_at"`            // epoch ms
	FinishedAt      int64  `dynamodbav:"finished_at,omitempty"` // epoch ms
}
