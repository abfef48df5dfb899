package fetch

import "fmt"

// TransientError is returned after the retry budget for a request has been
// exhausted. It wraps the last failure encountered.
type TransientError struct {
	Attempts int
	Cause    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("fetch failed after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// MalformedResponseError indicates the remote returned a 2xx response whose
// body is not valid JSON. It is never retried.
type MalformedResponseError struct {
	Cause error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("response body is not valid JSON: %v", e.Cause)
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }
