package fetch

import (
	"context"
	"math/rand"
	"time"
)

// RetryPolicy formalises retries across fetch call sites: a maximum attempt
// count, an exponential backoff with jitter, and a predicate deciding which
// errors are worth retrying.
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Jitter      float64 // fraction of the backoff added as random jitter, e.g. 0.2
	Retryable   func(error) bool
}

// DefaultRetryPolicy mirrors the fetcher defaults: transient network and 5xx
// failures retried with 300ms base backoff.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		BaseBackoff: 300 * time.Millisecond,
		MaxBackoff:  10 * time.Second,
		Jitter:      0.2,
		Retryable: func(err error) bool {
			if fe, ok := err.(*FetchError); ok {
				return fe.Retryable()
			}
			return true
		},
	}
}

// Backoff returns the delay before the given retry attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	d := p.BaseBackoff * time.Duration(1<<attempt)
	if p.MaxBackoff > 0 && d > p.MaxBackoff {
		d = p.MaxBackoff
	}
	if p.Jitter > 0 {
		d += time.Duration(rand.Float64() * p.Jitter * float64(d))
	}
	return d
}

// Do runs fn under the policy. It returns the first terminal error, the last
// error once attempts are exhausted, or nil on success.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt < attempts-1 {
			select {
			case <-time.After(p.Backoff(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}
