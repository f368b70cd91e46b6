package publish

import "fmt"

// TransientError marks a failure that is expected to potentially succeed on
// retry: network faults, rate limits, 5xx responses. The orchestrator's
// publish retry policy only retries these.
type TransientError struct {
	Status int // 0 for network-level failures
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("transient publish error (status %d): %v", e.Status, e.Err)
	}
	return fmt.Sprintf("transient publish error: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// AuthError reports a credential or token failure after the automatic
// refresh attempt was exhausted.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("publish authentication failed: %v", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// APIError is a permanent, non-retryable rejection from the destination.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("publish API error (status %d): %s", e.Status, e.Body)
}
