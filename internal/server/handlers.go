package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/polisight/config"
	"github.com/mohammad-safakhou/polisight/internal/aggregate"
	"github.com/mohammad-safakhou/polisight/internal/cache"
	"github.com/mohammad-safakhou/polisight/internal/history"
	"github.com/mohammad-safakhou/polisight/internal/index"
	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/predict"
	"github.com/mohammad-safakhou/polisight/internal/scoring"
	"github.com/mohammad-safakhou/polisight/internal/source"
	"github.com/mohammad-safakhou/polisight/internal/telemetry"
)

// Handlers wires the core pipeline behind the HTTP API.
type Handlers struct {
	Cfg       *config.Config
	Registry  *source.Registry
	Agg       *aggregate.Aggregator
	Scorer    *scoring.Engine
	Predictor *predict.Engine
	Store     *history.Store
	Cache     *cache.Cache
	Index     *index.Index
	Tele      *telemetry.Telemetry
}

// Register mounts the API routes. Mutating routes sit behind the JWT
// middleware; search and cache stats are open.
func (h *Handlers) Register(api *echo.Group, secret []byte) {
	protected := api.Group("")
	protected.Use(authMiddleware(secret))
	protected.POST("/collect", h.collect)
	protected.POST("/score", h.score)
	protected.POST("/predict/support", h.predictSupport)
	protected.POST("/predict/election", h.predictElection)
	protected.POST("/predict/policy", h.predictPolicy)
	protected.POST("/predict/scandal", h.predictScandal)
	protected.POST("/analyze", h.analyze)
	protected.POST("/cache/cleanup", h.cacheCleanup)
	protected.POST("/cache/clear", h.cacheClear)

	api.GET("/cache/stats", h.cacheStats)
	api.GET("/search", h.search)
	api.GET("/history", h.history)
}

// collectAndScore runs the full pipeline for a query and returns scored items.
func (h *Handlers) collectAndScore(c echo.Context, query string, maxPerSource int) ([]item.ScoredItem, *aggregate.Result, error) {
	if maxPerSource <= 0 {
		maxPerSource = 20
	}
	ctx := c.Request().Context()
	res, err := h.Agg.Collect(ctx, query, h.Registry.All(), maxPerSource)
	if err != nil {
		return nil, nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	var raws []item.RawItem
	for _, items := range res.Items {
		raws = append(raws, items...)
	}
	if h.Index != nil {
		_ = h.Index.AddBatch(raws)
	}
	scored := h.Scorer.ScoreBatch(ctx, raws)
	if h.Tele != nil {
		for _, s := range scored {
			h.Tele.RecordScored(s.Heuristic)
		}
	}
	return scored, &res, nil
}

func (h *Handlers) collect(c echo.Context) error {
	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	if req.MaxPerSource <= 0 {
		req.MaxPerSource = 20
	}
	res, err := h.Agg.Collect(c.Request().Context(), req.Query, h.Registry.All(), req.MaxPerSource)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.Index != nil {
		for _, items := range res.Items {
			_ = h.Index.AddBatch(items)
		}
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) score(c echo.Context) error {
	var req ScoreRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	ctx := c.Request().Context()

	if req.Text != "" {
		raw := item.RawItem{
			ID:          "inline",
			SourceID:    req.SourceID,
			Text:        req.Text,
			PublishedAt: time.Now(),
			CollectedAt: time.Now(),
		}
		scored, err := h.Scorer.Score(ctx, raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return c.JSON(http.StatusOK, scored)
	}

	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query or text required")
	}
	scored, res, err := h.collectAndScore(c, req.Query, req.MaxPerSource)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"query":    req.Query,
		"items":    scored,
		"failures": res.Failures,
	})
}

func (h *Handlers) predictSupport(c echo.Context) error {
	var req PredictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.applyDefaults(c, &req.Baseline, &req.HorizonDays, "support_rating", "cabinet")

	scored, _, err := h.collectAndScore(c, req.Query, 0)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := h.Predictor.Support(req.Baseline, scored, req.HorizonDays)
	if err != nil {
		return predictionHTTPError(err)
	}
	h.record(c, predict.TypeSupportRating, result, start)
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) predictPolicy(c echo.Context) error {
	var req PredictRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.applyDefaults(c, &req.Baseline, &req.HorizonDays, "policy_approval", req.Query)

	scored, _, err := h.collectAndScore(c, req.Query, 0)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := h.Predictor.Policy(req.Baseline, scored, req.HorizonDays)
	if err != nil {
		return predictionHTTPError(err)
	}
	h.record(c, predict.TypePolicyImpact, result, start)
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) predictElection(c echo.Context) error {
	var req ElectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.HorizonDays <= 0 {
		req.HorizonDays = h.Cfg.Prediction.DefaultHorizonDays
	}
	if len(req.Shares) == 0 && h.Store != nil {
		shares, err := h.Store.LoadBaselines(c.Request().Context(), "vote_share")
		if err == nil {
			req.Shares = shares
		}
	}

	scored, _, err := h.collectAndScore(c, req.Query, 0)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := h.Predictor.Election(req.Shares, scored, req.HorizonDays, nil)
	if err != nil {
		return predictionHTTPError(err)
	}
	h.record(c, predict.TypeElectionOutcome, result.PredictionResult, start)
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) predictScandal(c echo.Context) error {
	var req ScandalRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.applyDefaults(c, &req.Baseline, &req.HorizonDays, "support_rating", "cabinet")

	scored, _, err := h.collectAndScore(c, req.Query, 0)
	if err != nil {
		return err
	}
	start := time.Now()
	result, err := h.Predictor.Scandal(req.Baseline, scored, req.HorizonDays, req.Severity)
	if err != nil {
		return predictionHTTPError(err)
	}
	h.record(c, predict.TypeScandalImpact, result.PredictionResult, start)
	return c.JSON(http.StatusOK, result)
}

func (h *Handlers) analyze(c echo.Context) error {
	var req AnalyzeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	h.applyDefaults(c, &req.BaselineSupport, &req.HorizonDays, "support_rating", "cabinet")
	if len(req.Shares) == 0 && h.Store != nil {
		shares, err := h.Store.LoadBaselines(c.Request().Context(), "vote_share")
		if err == nil {
			req.Shares = shares
		}
	}

	scored, _, err := h.collectAndScore(c, req.Query, 0)
	if err != nil {
		return err
	}
	report, err := h.Predictor.Comprehensive(predict.ComprehensiveInput{
		BaselineSupport: req.BaselineSupport,
		BaselineShares:  req.Shares,
		Items:           scored,
		HorizonDays:     req.HorizonDays,
		ScandalSeverity: req.ScandalSeverity,
		PolicyBaseline:  req.PolicyBaseline,
	})
	if err != nil {
		return predictionHTTPError(err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *Handlers) cacheStats(c echo.Context) error {
	stats := h.Cache.Stats()
	out := map[string]interface{}{"cache": stats}
	if h.Tele != nil {
		out["telemetry"] = h.Tele.Stats()
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handlers) cacheCleanup(c echo.Context) error {
	res, err := h.Cache.Sweep(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handlers) cacheClear(c echo.Context) error {
	n, err := h.Cache.Clear(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"cleared": n})
}

func (h *Handlers) search(c echo.Context) error {
	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q required")
	}
	k, _ := strconv.Atoi(c.QueryParam("k"))
	if k <= 0 {
		k = 10
	}
	hits, err := h.Index.Search(q, k)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"query": q, "hits": hits})
}

func (h *Handlers) history(c echo.Context) error {
	if h.Store == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "history store not configured")
	}
	filter := history.HistoryFilter{Type: predict.Type(c.QueryParam("type"))}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil {
		filter.Limit = limit
	}
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	records, err := h.Store.QueryPredictions(c.Request().Context(), filter)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

// applyDefaults fills baseline and horizon from config and the stored
// baselines when the request leaves them unset.
func (h *Handlers) applyDefaults(c echo.Context, baseline *float64, horizon *int, kind, name string) {
	if *horizon <= 0 {
		*horizon = h.Cfg.Prediction.DefaultHorizonDays
	}
	if *baseline == 0 && h.Store != nil {
		if v, err := h.Store.LoadBaseline(c.Request().Context(), kind, name); err == nil {
			*baseline = v
		}
	}
}

// record appends the forecast to the history store and the latency metric.
func (h *Handlers) record(c echo.Context, typ predict.Type, result predict.PredictionResult, start time.Time) {
	if h.Tele != nil {
		h.Tele.RecordPrediction(string(typ), time.Since(start))
	}
	if h.Store == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	_, _ = h.Store.AppendPrediction(c.Request().Context(), history.PredictionRecord{
		Type:        typ,
		Baseline:    result.Baseline,
		Predicted:   result.Predicted,
		HorizonDays: result.HorizonDays,
		Confidence:  result.Confidence,
		Result:      payload,
	})
}

func predictionHTTPError(err error) error {
	if pe, ok := err.(*predict.PredictionError); ok {
		return echo.NewHTTPError(http.StatusBadRequest, pe.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
