package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/mohammad-safakhou/polisight/config"
	"github.com/mohammad-safakhou/polisight/internal/aggregate"
	"github.com/mohammad-safakhou/polisight/internal/cache"
	"github.com/mohammad-safakhou/polisight/internal/fetch"
	"github.com/mohammad-safakhou/polisight/internal/history"
	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/predict"
	"github.com/mohammad-safakhou/polisight/internal/scoring"
	"github.com/mohammad-safakhou/polisight/internal/source"
	"github.com/mohammad-safakhou/polisight/internal/telemetry"
)

// app bundles the pipeline components a CLI command needs. The history store
// is optional; commands degrade to request-supplied baselines without it.
type app struct {
	cfg       *config.Config
	registry  *source.Registry
	cache     *cache.Cache
	agg       *aggregate.Aggregator
	scorer    *scoring.Engine
	predictor *predict.Engine
	store     *history.Store
	tele      *telemetry.Telemetry
	logger    *log.Logger
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg := config.LoadConfig(cfgPath)

	registry, err := cfg.Registry()
	if err != nil {
		return nil, err
	}

	rdb, err := cache.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
		cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
	if err != nil {
		return nil, err
	}
	store, err := cache.New(ctx, cache.NewRedisPersistence(rdb))
	if err != nil {
		return nil, err
	}

	tele := telemetry.New(cfg.Telemetry)

	fetcher := fetch.NewFetcher(cfg.General.DefaultTimeout,
		fetch.WithRenderer(&fetch.ChromeRenderer{}),
		fetch.WithExtractor(&fetch.ReadabilityExtractor{}))
	agg := aggregate.New(fetcher, store, cfg.Cache.TTL, aggregate.WithRecorder(tele))

	var classifier scoring.Classifier
	if cfg.Classifier.Provider == "openai" {
		oc := scoring.NewOpenAIClassifier(cfg.Classifier.APIKey, cfg.Classifier.Model, cfg.Classifier.Timeout)
		oc.Temperature = cfg.Classifier.Temperature
		classifier = oc
	}
	scorer := scoring.NewEngine(classifier, registry, cfg.Classifier.Timeout)

	a := &app{
		cfg:      cfg,
		registry: registry,
		cache:    store,
		agg:      agg,
		scorer:   scorer,
		tele:     tele,
		logger:   log.New(log.Writer(), "[CLI] ", log.LstdFlags),
	}

	// Predictions can run without Postgres; coalition stability then uses the
	// neutral default.
	predictOpts := []predict.Option{
		predict.WithTotalSeats(cfg.Prediction.TotalSeats),
		predict.WithRulingParties(cfg.Prediction.RulingParties),
	}
	hist, err := history.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		a.logger.Printf("history store unavailable: %v", err)
		a.predictor = predict.NewEngine(registry, nil, predictOpts...)
	} else {
		a.store = hist
		a.predictor = predict.NewEngine(registry, hist, predictOpts...)
	}
	return a, nil
}

func (a *app) close(ctx context.Context) {
	if err := a.cache.Close(ctx); err != nil {
		a.logger.Printf("cache flush failed: %v", err)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	a.tele.Close()
}

// collectScored runs collection and scoring for a query.
func (a *app) collectScored(ctx context.Context, query string, maxPerSource int) ([]item.ScoredItem, error) {
	if maxPerSource <= 0 {
		maxPerSource = 20
	}
	res, err := a.agg.Collect(ctx, query, a.registry.All(), maxPerSource)
	if err != nil {
		return nil, err
	}
	var raws []item.RawItem
	for _, items := range res.Items {
		raws = append(raws, items...)
	}
	return a.scorer.ScoreBatch(ctx, raws), nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return nil
}
