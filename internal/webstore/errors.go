package webstore

import "fmt"

// TransportError reports that the retry budget was exhausted without a
// successful response. It wraps the last underlying failure.
type TransportError struct {
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ExtractionError reports that the response envelope did not have the
// expected shape, or that the cleaned-up payload was not valid JSON. The
// orchestrator treats it as an implicit "no more pages" signal.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extract response: %s", e.Reason)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
