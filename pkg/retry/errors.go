package retry

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the handler.
var (
	// ErrRetryExhausted is returned when all retry attempts are used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrEmptyResult marks a client-data error (400/404/408/409/422)
	// that read paths treat as "no data" rather than a failure.
	ErrEmptyResult = errors.New("no data for request")

	// ErrUnauthorized marks an authentication or authorization failure.
	// Never swallowed, even though it shares the 4xx range with
	// ErrEmptyResult statuses.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrContextCancelled is returned when the context is cancelled
	// during a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")
)

// APIError carries the status code and response body of a failed call.
type APIError struct {
	StatusCode int
	Class      Class
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend %s error (status %d): %v", e.Class, e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("backend %s error (status %d): %s", e.Class, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("backend %s error (status %d)", e.Class, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}
