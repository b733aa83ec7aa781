package fetch

import "fmt"

// ErrorKind classifies a fetch failure.
type ErrorKind string

const (
	KindTimeout   ErrorKind = "timeout"
	KindHTTP      ErrorKind = "http_error"
	KindBlocked   ErrorKind = "blocked"
	KindMalformed ErrorKind = "malformed"
)

// FetchError is returned when a fetch fails after the retry policy is
// exhausted. It is never silently empty: every failed fetch surfaces one.
type FetchError struct {
	Kind     ErrorKind
	SourceID string
	Status   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s after %d attempt(s): %v", e.SourceID, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s after %d attempt(s) (status %d)", e.SourceID, e.Kind, e.Attempts, e.Status)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether this failure class may be retried.
// Blocked (auth/robots) and malformed responses are terminal.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout:
		return true
	case KindHTTP:
		// Status 0 means the request never completed (connection reset).
		return e.Status == 0 || e.Status >= 500
	default:
		return false
	}
}
