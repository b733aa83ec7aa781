package fetch

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock drives a Limiter deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	now     time.Time
	slept   []time.Duration
	sleepFn func(d time.Duration) error
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) install(l *Limiter) {
	l.now = func() time.Time { return c.now }
	l.sleep = func(_ context.Context, d time.Duration) error {
		c.slept = append(c.slept, d)
		c.now = c.now.Add(d)
		if c.sleepFn != nil {
			return c.sleepFn(d)
		}
		return nil
	}
}

func TestLimiterSerializesRequests(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := NewLimiter(time.Second)
	clock.install(l)

	const k = 5
	for i := 0; i < k; i++ {
		if err := l.Wait(context.Background()); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}

	var total time.Duration
	for _, d := range clock.slept {
		total += d
	}
	if want := time.Duration(k-1) * time.Second; total < want {
		t.Fatalf("total wait = %v, want >= %v for %d requests at 1 rps", total, want, k)
	}
}

func TestLimiterFirstRequestImmediate(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := NewLimiter(time.Second)
	clock.install(l)

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(clock.slept) != 0 {
		t.Fatalf("first request slept %v, want no sleep", clock.slept)
	}
}

func TestLimiterPropagatesContextError(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	l := NewLimiter(time.Second)
	clock.install(l)
	clock.sleepFn = func(time.Duration) error { return context.DeadlineExceeded }

	if err := l.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait() error = %v", err)
	}
	err := l.Wait(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want deadline exceeded", err)
	}
}

func TestLimiterPoolReusesPerSource(t *testing.T) {
	t.Parallel()
	pool := newLimiterPool()
	a := pool.get("src-a", time.Second)
	b := pool.get("src-b", time.Second)
	if a == b {
		t.Fatal("distinct sources share a limiter")
	}
	if pool.get("src-a", time.Minute) != a {
		t.Fatal("same source got a new limiter")
	}
}
