package aggregate

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/cache"
	"github.com/mohammad-safakhou/polisight/internal/fetch"
	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// SourceFailure records a per-source soft failure during collection.
type SourceFailure struct {
	SourceID string `json:"source_id"`
	Error    string `json:"error"`
}

// Result is the outcome of one Collect call. Items are keyed by source so
// callers can weigh provenance; failures list the sources that contributed
// nothing, so completeness is inspectable rather than silently hidden.
type Result struct {
	Query    string                    `json:"query"`
	Items    map[string][]item.RawItem `json:"items"`
	Failures []SourceFailure           `json:"failures,omitempty"`
	Duration time.Duration             `json:"duration"`
}

// TotalItems counts items across all sources.
func (r Result) TotalItems() int {
	n := 0
	for _, items := range r.Items {
		n += len(items)
	}
	return n
}

// Categories returns the number of distinct source categories represented.
func (r Result) Categories(reg *source.Registry) int {
	seen := make(map[source.Category]struct{})
	for id, items := range r.Items {
		if len(items) == 0 {
			continue
		}
		if src, ok := reg.Get(id); ok {
			seen[src.Category] = struct{}{}
		}
	}
	return len(seen)
}

// Recorder receives collection activity for the metrics surface. Satisfied by
// *telemetry.Telemetry; may be nil.
type Recorder interface {
	RecordFetch(sourceID string, success bool)
	RecordCacheLookup(result string)
	RecordDedup(count int)
}

// Aggregator fans a logical query out to N sources through the fetcher and
// merges results through the cache's duplicate suppression.
type Aggregator struct {
	fetcher  *fetch.Fetcher
	cache    *cache.Cache
	cacheTTL time.Duration
	tele     Recorder
	logger   *log.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithRecorder installs a telemetry recorder for collection activity.
func WithRecorder(r Recorder) Option { return func(a *Aggregator) { a.tele = r } }

// New builds an Aggregator. cacheTTL governs how long merged result sets stay
// fresh.
func New(fetcher *fetch.Fetcher, c *cache.Cache, cacheTTL time.Duration, opts ...Option) *Aggregator {
	if cacheTTL <= 0 {
		cacheTTL = 6 * time.Hour
	}
	a := &Aggregator{
		fetcher:  fetcher,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   log.New(log.Writer(), "[AGG] ", log.LstdFlags),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Collect dispatches one fetch per source concurrently, deduplicates the
// merged batch against the cache and within itself, and returns per-source
// item lists ordered by descending publish time. A failing source never
// aborts the batch; on ctx expiry, partial results already collected remain
// usable.
func (a *Aggregator) Collect(ctx context.Context, query string, sources []source.Source, maxPerSource int) (Result, error) {
	start := time.Now()
	res := Result{Query: query, Items: make(map[string][]item.RawItem)}

	key := cache.KeyHash(query)
	cached, fresh, ok := a.cache.Get(key)
	switch {
	case ok && fresh:
		a.recordCache("fresh")
		for _, it := range cached {
			res.Items[it.SourceID] = append(res.Items[it.SourceID], it)
		}
		sortBySource(res.Items)
		res.Duration = time.Since(start)
		a.logger.Printf("cache hit for %q: %d items", query, len(cached))
		return res, nil
	case ok:
		a.recordCache("stale")
	default:
		a.recordCache("miss")
	}

	type outcome struct {
		sourceID string
		items    []item.RawItem
		err      error
	}
	out := make(chan outcome, len(sources))
	var wg sync.WaitGroup
	for _, src := range sources {
		wg.Add(1)
		go func(src source.Source) {
			defer wg.Done()
			items, err := a.fetcher.Fetch(ctx, src, fetch.Request{Query: query, MaxResults: maxPerSource})
			out <- outcome{sourceID: src.ID, items: items, err: err}
		}(src)
	}
	wg.Wait()
	close(out)

	var batch []item.RawItem
	dropped := 0
	for o := range out {
		a.recordFetch(o.sourceID, o.err == nil)
		if o.err != nil {
			a.logger.Printf("source %s failed: %v", o.sourceID, o.err)
			res.Failures = append(res.Failures, SourceFailure{SourceID: o.sourceID, Error: o.err.Error()})
			continue
		}
		for _, cand := range o.items {
			before := len(batch)
			batch = a.merge(batch, cand)
			if len(batch) == before {
				dropped++
			}
		}
	}
	if dropped > 0 && a.tele != nil {
		a.tele.RecordDedup(dropped)
	}
	sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].SourceID < res.Failures[j].SourceID })

	for _, it := range batch {
		res.Items[it.SourceID] = append(res.Items[it.SourceID], it)
	}
	sortBySource(res.Items)

	if len(batch) > 0 {
		if err := a.cache.Put(ctx, key, batch, a.cacheTTL); err != nil {
			a.logger.Printf("cache put failed for %q: %v", query, err)
		}
	}
	res.Duration = time.Since(start)
	a.logger.Printf("collected %d items from %d/%d sources for %q",
		len(batch), len(res.Items), len(sources), query)
	return res, nil
}

// merge adds cand to batch unless it duplicates the persistent store or the
// batch itself. On an in-batch conflict the most recently published version
// wins.
func (a *Aggregator) merge(batch []item.RawItem, cand item.RawItem) []item.RawItem {
	for i, ex := range batch {
		if cache.IsDuplicate(cand, []item.RawItem{ex}) {
			if cand.PublishedAt.After(ex.PublishedAt) {
				batch[i] = cand
			}
			return batch
		}
	}
	if a.cache.SeenDuplicate(cand) {
		return batch
	}
	return append(batch, cand)
}

func (a *Aggregator) recordFetch(sourceID string, success bool) {
	if a.tele != nil {
		a.tele.RecordFetch(sourceID, success)
	}
}

func (a *Aggregator) recordCache(result string) {
	if a.tele != nil {
		a.tele.RecordCacheLookup(result)
	}
}

func sortBySource(items map[string][]item.RawItem) {
	for id := range items {
		list := items[id]
		sort.Slice(list, func(i, j int) bool { return list[i].PublishedAt.After(list[j].PublishedAt) })
		items[id] = list
	}
}
