package fetch

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between dispatched requests for a
// single source. Callers beyond the budget suspend in Wait until a slot is
// available; requests for the same source are therefore serialized.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewLimiter builds a fixed-interval limiter.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		interval: interval,
		now:      time.Now,
		sleep: func(ctx context.Context, d time.Duration) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}
}

// Wait blocks until the caller may dispatch a request, or until ctx expires.
// Slots are handed out in claim order.
func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	now := l.now()
	var wait time.Duration
	if l.next.After(now) {
		wait = l.next.Sub(now)
		l.next = l.next.Add(l.interval)
	} else {
		l.next = now.Add(l.interval)
	}
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	return l.sleep(ctx, wait)
}

// limiterPool hands out one Limiter per source id.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*Limiter
}

func newLimiterPool() *limiterPool {
	return &limiterPool{limiters: make(map[string]*Limiter)}
}

func (p *limiterPool) get(sourceID string, interval time.Duration) *Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if l, ok := p.limiters[sourceID]; ok {
		return l
	}
	l := NewLimiter(interval)
	p.limiters[sourceID] = l
	return l
}
