package cache

import (
	"context"
	"time"

	"github.com/gorhill/cronexpr"
	"github.com/redis/go-redis/v9"
)

// Stats summarises the cache contents for the --stats surface.
type Stats struct {
	Entries    int       `json:"entries"`
	Hot        int       `json:"hot"`
	Warm       int       `json:"warm"`
	Cold       int       `json:"cold"`
	Expired    int       `json:"expired"`
	Recent24h  int       `json:"recent_24h"`
	TotalItems int       `json:"total_items"`
	OldestAt   time.Time `json:"oldest_at,omitempty"`
}

// SweepResult reports what a maintenance sweep did.
type SweepResult struct {
	Purged   int `json:"purged"`
	Demoted  int `json:"demoted"`
	Archived int `json:"archived"`
}

// Stats returns a snapshot of the cache contents.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	now := c.now()
	var st Stats
	st.Entries = len(c.entries)
	for _, e := range c.entries {
		switch e.Tier {
		case TierHot:
			st.Hot++
		case TierWarm:
			st.Warm++
		case TierCold:
			st.Cold++
		}
		if !e.Fresh(now) {
			st.Expired++
		}
		if now.Sub(e.CreatedAt) < 24*time.Hour {
			st.Recent24h++
		}
		st.TotalItems += len(e.Items)
		if st.OldestAt.IsZero() || e.CreatedAt.Before(st.OldestAt) {
			st.OldestAt = e.CreatedAt
		}
	}
	return st
}

// Sweep purges expired entries and applies pending tier transitions. It never
// blocks Get/Put beyond ordinary lock contention.
func (c *Cache) Sweep(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	now := c.now()

	c.mu.Lock()
	var purged []string
	for key, e := range c.entries {
		if !e.Fresh(now) {
			delete(c.entries, key)
			purged = append(purged, key)
			continue
		}
		before := e.Tier
		c.retier(e, now)
		if e.Tier != before {
			if e.Tier == TierCold {
				res.Archived++
			} else {
				res.Demoted++
			}
		}
	}
	c.mu.Unlock()

	res.Purged = len(purged)
	if c.persist != nil {
		for _, key := range purged {
			if err := c.persist.Delete(ctx, key); err != nil {
				return res, &CacheError{Key: key, Err: err}
			}
		}
	}
	if res.Purged > 0 || res.Archived > 0 {
		c.logger.Printf("sweep: purged=%d demoted=%d archived=%d", res.Purged, res.Demoted, res.Archived)
	}
	return res, nil
}

// Clear drops every entry from memory and persistence, returning the number
// of entries removed.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
	if c.persist != nil {
		if _, err := c.persist.Clear(ctx); err != nil {
			return n, err
		}
	}
	c.logger.Printf("cleared %d entries", n)
	return n, nil
}

// SweepScheduler runs maintenance sweeps on a cron schedule. A Redis SetNX
// lock keeps concurrent replicas from sweeping at the same time.
type SweepScheduler struct {
	Cache    *Cache
	Rdb      *redis.Client
	CronSpec string
	Stop     chan struct{}

	lastRun time.Time
}

// Start launches the scheduler loop. Checks run every minute against the
// cron spec; "@hourly" and "@daily" shorthands are supported.
func (s *SweepScheduler) Start() {
	ticker := time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *SweepScheduler) tick() {
	if !sweepDue(s.CronSpec, s.lastRun) {
		return
	}
	ctx := context.Background()
	if s.Rdb != nil {
		ok, _ := s.Rdb.SetNX(ctx, "cache:sweep:lock", "1", 2*time.Minute).Result()
		if !ok {
			return
		}
		defer s.Rdb.Del(ctx, "cache:sweep:lock")
	}
	s.lastRun = time.Now()
	_, _ = s.Cache.Sweep(ctx)
}

// sweepDue determines whether a sweep with cronSpec should run now given the
// last run time. Invalid specs fall back to @hourly.
func sweepDue(cronSpec string, last time.Time) bool {
	now := time.Now()
	switch cronSpec {
	case "@daily":
		return last.IsZero() || now.Sub(last) >= 24*time.Hour
	case "", "@hourly":
		return last.IsZero() || now.Sub(last) >= time.Hour
	default:
		expr, err := cronexpr.Parse(cronSpec)
		if err != nil {
			return last.IsZero() || now.Sub(last) >= time.Hour
		}
		if last.IsZero() {
			return true
		}
		return !expr.Next(last).After(now)
	}
}
