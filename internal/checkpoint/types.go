package checkpoint

// Record is the shape persisted in the checkpoint DynamoDB table, one item
// per configured input.
type Record struct {
	InputKey        string `dynamodbav:"input_key"`        // PK
	LastEventTime   int64  `dynamodbav:"last_event_time"`  // epoch ms
	EventsProcessed int64  `dynamodbav:"events_processed"` // cumulative for the last run
	LastUpdated     int64  `dynamodbav:"last_updated"`     // epoch ms
}
