package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/mohammad-safakhou/polisight/config"
	"github.com/mohammad-safakhou/polisight/internal/aggregate"
	"github.com/mohammad-safakhou/polisight/internal/cache"
	"github.com/mohammad-safakhou/polisight/internal/fetch"
	"github.com/mohammad-safakhou/polisight/internal/history"
	"github.com/mohammad-safakhou/polisight/internal/index"
	"github.com/mohammad-safakhou/polisight/internal/predict"
	"github.com/mohammad-safakhou/polisight/internal/scoring"
	"github.com/mohammad-safakhou/polisight/internal/telemetry"
)

// Run wires the whole pipeline behind the HTTP API and blocks serving it.
func Run(cfg *appconfig.Config, addr string) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]interface{}{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	if err := Migrate("file://migrations", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
		log.Printf("auto-migration failed, schema may be out of date: %v", err)
	}

	ctx := context.Background()
	st, err := history.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
	if err != nil {
		return err
	}

	rdb, err := cache.Conn(ctx, cfg.Storage.Redis.Host, cfg.Storage.Redis.Port,
		cfg.Storage.Redis.Password, cfg.Storage.Redis.DB, cfg.Storage.Redis.Timeout)
	if err != nil {
		return err
	}
	store, err := cache.New(ctx, cache.NewRedisPersistence(rdb))
	if err != nil {
		return err
	}

	registry, err := cfg.Registry()
	if err != nil {
		return err
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
	predictor := predict.NewEngine(registry, st,
		predict.WithTotalSeats(cfg.Prediction.TotalSeats),
		predict.WithRulingParties(cfg.Prediction.RulingParties))

	idx, err := index.New()
	if err != nil {
		return err
	}

	secret := cfg.General.JWTSecret
	if secret == "" {
		return fmt.Errorf("jwt secret not configured (general.jwt_secret)")
	}
	auth := &AuthHandler{Store: st, Secret: []byte(secret)}

	api := e.Group("/api")
	auth.Register(api.Group("/auth"))

	h := &Handlers{
		Cfg:       cfg,
		Registry:  registry,
		Agg:       agg,
		Scorer:    scorer,
		Predictor: predictor,
		Store:     st,
		Cache:     store,
		Index:     idx,
		Tele:      tele,
	}
	h.Register(api, auth.Secret)

	sweeper := &cache.SweepScheduler{
		Cache:    store,
		Rdb:      rdb,
		CronSpec: cfg.Cache.SweepCron,
		Stop:     make(chan struct{}),
	}
	sweeper.Start()

	if addr == "" {
		addr = cfg.General.Listen
		if addr != "" && addr[0] != ':' {
			addr = ":" + addr
		}
		if addr == "" {
			addr = ":10002"
		}
	}
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}
