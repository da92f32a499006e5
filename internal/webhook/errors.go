package webhook

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured means the webhook URL is missing or still a placeholder.
// The call is never attempted.
var ErrNotConfigured = errors.New("webhook URL not configured")

// HTTPError is a completed call with a non-2xx status.
type HTTPError struct {
	Status     int
	StatusText string
	Detail     string
}

func (e *HTTPError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("webhook returned %d", e.Status)
}

// NetworkError is a call that never produced a response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return "webhook unreachable: " + e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// TimeoutError is a call aborted after the client-side deadline.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("webhook timed out after %s", e.After) }

// ResponseFormatError is a 2xx response whose body could not be read or used.
type ResponseFormatError struct {
	Err error
}

func (e *ResponseFormatError) Error() string { return "unexpected webhook response: " + e.Err.Error() }
func (e *ResponseFormatError) Unwrap() error { return e.Err }
