package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/polisight/config"
)

// Prometheus collectors, shared process-wide.
var (
	fetchCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polisight_fetch_requests_total",
		Help: "Outbound fetch attempts by source and outcome.",
	}, []string{"source", "outcome"})
	cacheHitCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polisight_cache_lookups_total",
		Help: "Cache lookups by result (fresh, stale, miss).",
	}, []string{"result"})
	dedupCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polisight_dedup_dropped_total",
		Help: "Items dropped as near-duplicates.",
	})
	predictionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "polisight_prediction_duration_seconds",
		Help:    "Prediction latency by type.",
		Buckets: prometheus.DefBuckets,
	}, []string{"type"})
	scoredCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polisight_items_scored_total",
		Help: "Items scored, by path (classifier, heuristic).",
	}, []string{"path"})
)

// Telemetry tracks collection and forecasting activity. Counters are mirrored
// into Prometheus collectors; the local copy feeds the periodic log report.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger
	mu     sync.RWMutex

	fetchRequests  map[string]int64
	fetchFailures  map[string]int64
	cacheHits      int64
	cacheStale     int64
	cacheMisses    int64
	dedupDropped   int64
	itemsScored    int64
	heuristicItems int64
	predictions    map[string]int64

	stop chan struct{}
}

// New creates a telemetry instance and, when enabled, starts the periodic
// report loop.
func New(cfg config.TelemetryConfig) *Telemetry {
	t := &Telemetry{
		config:        cfg,
		logger:        log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		fetchRequests: make(map[string]int64),
		fetchFailures: make(map[string]int64),
		predictions:   make(map[string]int64),
		stop:          make(chan struct{}),
	}
	if cfg.Enabled {
		go t.reportLoop()
	}
	return t
}

// Close stops the report loop.
func (t *Telemetry) Close() { close(t.stop) }

// RecordFetch records one fetch attempt for a source.
func (t *Telemetry) RecordFetch(sourceID string, success bool) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	fetchCounter.WithLabelValues(sourceID, outcome).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.fetchRequests[sourceID]++
	if !success {
		t.fetchFailures[sourceID]++
	}
}

// RecordCacheLookup records a cache lookup result: "fresh", "stale" or "miss".
func (t *Telemetry) RecordCacheLookup(result string) {
	cacheHitCounter.WithLabelValues(result).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	switch result {
	case "fresh":
		t.cacheHits++
	case "stale":
		t.cacheStale++
	default:
		t.cacheMisses++
	}
}

// RecordDedup records items dropped as duplicates.
func (t *Telemetry) RecordDedup(count int) {
	dedupCounter.Add(float64(count))

	t.mu.Lock()
	defer t.mu.Unlock()
	t.dedupDropped += int64(count)
}

// RecordScored records one scored item and whether the heuristic path was used.
func (t *Telemetry) RecordScored(heuristic bool) {
	path := "classifier"
	if heuristic {
		path = "heuristic"
	}
	scoredCounter.WithLabelValues(path).Inc()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.itemsScored++
	if heuristic {
		t.heuristicItems++
	}
}

// RecordPrediction records one forecast with its latency.
func (t *Telemetry) RecordPrediction(typ string, duration time.Duration) {
	predictionLatency.WithLabelValues(typ).Observe(duration.Seconds())

	t.mu.Lock()
	defer t.mu.Unlock()
	t.predictions[typ]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	FetchRequests  map[string]int64 `json:"fetch_requests"`
	FetchFailures  map[string]int64 `json:"fetch_failures"`
	CacheHits      int64            `json:"cache_hits"`
	CacheStale     int64            `json:"cache_stale"`
	CacheMisses    int64            `json:"cache_misses"`
	DedupDropped   int64            `json:"dedup_dropped"`
	ItemsScored    int64            `json:"items_scored"`
	HeuristicItems int64            `json:"heuristic_items"`
	Predictions    map[string]int64 `json:"predictions"`
}

// Stats returns a copy of the current counters.
func (t *Telemetry) Stats() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := Snapshot{
		FetchRequests:  make(map[string]int64, len(t.fetchRequests)),
		FetchFailures:  make(map[string]int64, len(t.fetchFailures)),
		CacheHits:      t.cacheHits,
		CacheStale:     t.cacheStale,
		CacheMisses:    t.cacheMisses,
		DedupDropped:   t.dedupDropped,
		ItemsScored:    t.itemsScored,
		HeuristicItems: t.heuristicItems,
		Predictions:    make(map[string]int64, len(t.predictions)),
	}
	for k, v := range t.fetchRequests {
		s.FetchRequests[k] = v
	}
	for k, v := range t.fetchFailures {
		s.FetchFailures[k] = v
	}
	for k, v := range t.predictions {
		s.Predictions[k] = v
	}
	return s
}

func (t *Telemetry) reportLoop() {
	ticker := time.NewTicker(t.config.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s := t.Stats()
			t.logger.Printf("cache hits=%d stale=%d misses=%d, dedup dropped=%d, scored=%d (heuristic=%d)",
				s.CacheHits, s.CacheStale, s.CacheMisses, s.DedupDropped, s.ItemsScored, s.HeuristicItems)
		case <-t.stop:
			return
		}
	}
}
