package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
)

// Tier places an entry in the storage hierarchy by age.
type Tier string

const (
	TierHot  Tier = "hot"  // younger than 24h
	TierWarm Tier = "warm" // 24h to 7 days
	TierCold Tier = "cold" // older than 7 days, compacted to aggregate counts
)

const (
	hotAge  = 24 * time.Hour
	warmAge = 7 * 24 * time.Hour
)

// ArchiveSummary replaces raw text for cold entries: aggregated counts only.
type ArchiveSummary struct {
	ItemCount    int            `json:"item_count"`
	SourceCounts map[string]int `json:"source_counts"`
	OldestItem   time.Time      `json:"oldest_item"`
	NewestItem   time.Time      `json:"newest_item"`
}

// Entry is a cached value: a result set keyed by normalized query or
// canonical URL, with a creation time and TTL that strictly determine
// staleness. Mutated only by refresh (replace) or eviction (delete).
type Entry struct {
	Key       string          `json:"key"`
	Items     []item.RawItem  `json:"items,omitempty"`
	Archive   *ArchiveSummary `json:"archive,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	TTL       time.Duration   `json:"ttl"`
	Tier      Tier            `json:"tier"`
}

// Fresh reports whether the entry is within its TTL at the given instant.
func (e *Entry) Fresh(now time.Time) bool {
	return now.Before(e.CreatedAt.Add(e.TTL))
}

// CacheError wraps a persistence or decoding failure. Corrupt entries are
// treated as misses and recreated on the next fetch.
type CacheError struct {
	Key string
	Err error
}

func (e *CacheError) Error() string { return fmt.Sprintf("cache entry %s: %v", e.Key, e.Err) }
func (e *CacheError) Unwrap() error { return e.Err }

// Persistence is the durable collaborator backing the cache.
type Persistence interface {
	LoadAll(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, e Entry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) (int, error)
}

// Cache is the content-addressable store with TTL expiry and near-duplicate
// suppression. It is the only shared mutable state in the system and is safe
// for concurrent use. Lifecycle: New loads persisted entries, Close flushes.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	persist Persistence
	now     func() time.Time
	logger  *log.Logger
}

// New builds a cache, loading previously persisted entries when a
// persistence collaborator is supplied. Entries that fail to load are
// dropped as corrupt (treated as misses).
func New(ctx context.Context, persist Persistence) (*Cache, error) {
	c := &Cache{
		entries: make(map[string]*Entry),
		persist: persist,
		now:     time.Now,
		logger:  log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
	}
	if persist != nil {
		loaded, err := persist.LoadAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("cache load: %w", err)
		}
		for i := range loaded {
			e := loaded[i]
			c.entries[e.Key] = &e
		}
		c.logger.Printf("loaded %d persisted entries", len(loaded))
	}
	return c, nil
}

// Close flushes every entry to the persistence collaborator.
func (c *Cache) Close(ctx context.Context) error {
	if c.persist == nil {
		return nil
	}
	c.mu.RLock()
	entries := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, *e)
	}
	c.mu.RUnlock()
	for _, e := range entries {
		if err := c.persist.Save(ctx, e); err != nil {
			return &CacheError{Key: e.Key, Err: err}
		}
	}
	return nil
}

// Get returns the stored items and whether the entry is within its TTL.
// A stale hit is still returned, flagged fresh=false, so callers can make
// incremental refresh decisions. Expired entries are not purged here; that is
// the sweep's job. Tier transitions happen lazily on access.
func (c *Cache) Get(key string) ([]item.RawItem, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	now := c.now()
	c.retier(e, now)
	return e.Items, e.Fresh(now), true
}

// Put inserts or overwrites an entry and resets its creation time.
// Concurrent writers race last-write-wins; creation-time comparison resolves
// true races so an older write never clobbers a newer entry.
func (c *Cache) Put(ctx context.Context, key string, items []item.RawItem, ttl time.Duration) error {
	now := c.now()
	e := Entry{Key: key, Items: items, CreatedAt: now, TTL: ttl, Tier: TierHot}

	c.mu.Lock()
	if prev, ok := c.entries[key]; ok && prev.CreatedAt.After(now) {
		c.mu.Unlock()
		return nil
	}
	c.entries[key] = &e
	c.mu.Unlock()

	if c.persist != nil {
		if err := c.persist.Save(ctx, e); err != nil {
			return &CacheError{Key: key, Err: err}
		}
	}
	return nil
}

// Delete removes an entry from memory and persistence.
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	if c.persist != nil {
		if err := c.persist.Delete(ctx, key); err != nil {
			return &CacheError{Key: key, Err: err}
		}
	}
	return nil
}

// IsDuplicate reports whether candidate duplicates any item in existing:
// exact canonical-URL match, or normalized-content similarity at or above
// DuplicateThreshold. The comparison covers title and body together so
// title-only items are matched on their titles rather than their empty bodies.
func IsDuplicate(candidate item.RawItem, existing []item.RawItem) bool {
	candURL := ""
	if candidate.URL != "" {
		if cu, err := CanonicalURL(candidate.URL); err == nil {
			candURL = cu
		}
	}
	candText := contentText(candidate)
	for _, ex := range existing {
		if candURL != "" && ex.URL != "" {
			if exURL, err := CanonicalURL(ex.URL); err == nil && exURL == candURL {
				return true
			}
		}
		if Similarity(candText, contentText(ex)) >= DuplicateThreshold {
			return true
		}
	}
	return false
}

func contentText(it item.RawItem) string {
	if it.Title == "" {
		return it.Text
	}
	return it.Title + "\n" + it.Text
}

// SeenDuplicate checks candidate against every non-archived item currently in
// the store (the persistent comparison window).
func (c *Cache) SeenDuplicate(candidate item.RawItem) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if len(e.Items) == 0 {
			continue
		}
		if IsDuplicate(candidate, e.Items) {
			return true
		}
	}
	return false
}

// Items returns every non-archived cached item, for indexing and reporting.
func (c *Cache) Items() []item.RawItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []item.RawItem
	for _, e := range c.entries {
		out = append(out, e.Items...)
	}
	return out
}

// retier applies lazy tier transitions by entry age. Cold demotion compacts
// raw items into an archive summary. Caller holds the write lock.
func (c *Cache) retier(e *Entry, now time.Time) {
	age := now.Sub(e.CreatedAt)
	switch {
	case age >= warmAge && e.Tier != TierCold:
		e.Tier = TierCold
		e.Archive = summarize(e.Items)
		e.Items = nil
	case age >= hotAge && e.Tier == TierHot:
		e.Tier = TierWarm
	}
}

func summarize(items []item.RawItem) *ArchiveSummary {
	sum := &ArchiveSummary{ItemCount: len(items), SourceCounts: make(map[string]int)}
	for _, it := range items {
		sum.SourceCounts[it.SourceID]++
		if sum.OldestItem.IsZero() || it.PublishedAt.Before(sum.OldestItem) {
			sum.OldestItem = it.PublishedAt
		}
		if it.PublishedAt.After(sum.NewestItem) {
			sum.NewestItem = it.PublishedAt
		}
	}
	return sum
}
