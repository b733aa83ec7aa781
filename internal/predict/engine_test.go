package predict

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

var testNow = time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := source.NewRegistry([]source.Source{
		{ID: "media-1", Category: source.CategoryMedia, Weight: 0.9, MinInterval: time.Second, MaxRetries: 1},
		{ID: "gov-1", Category: source.CategoryGovernment, Weight: 1, MinInterval: time.Second, MaxRetries: 1},
		{ID: "social-1", Category: source.CategorySocial, Weight: 0.3, MinInterval: time.Second, MaxRetries: 1},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	e := NewEngine(reg, nil)
	e.now = func() time.Time { return testNow }
	return e
}

func scoredItem(sourceID string, sentiment, reliability, confidence float64, ageDays int) item.ScoredItem {
	return item.ScoredItem{
		Item: item.RawItem{
			ID:          sourceID + "-item",
			SourceID:    sourceID,
			PublishedAt: testNow.AddDate(0, 0, -ageDays),
		},
		Sentiment:   sentiment,
		Reliability: reliability,
		Confidence:  confidence,
	}
}

func TestPredictEmptyWindowReturnsBaseline(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	res, err := e.Support(0.45, nil, 30)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	if res.Predicted != 0.45 {
		t.Fatalf("Predicted = %v, want baseline unchanged", res.Predicted)
	}
	if res.Confidence != 0 || res.ConfidenceLabel != ConfidenceVeryLow {
		t.Fatalf("Confidence = %v (%s), want 0 very_low", res.Confidence, res.ConfidenceLabel)
	}
}

func TestPredictValidatesInput(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	tests := []struct {
		name     string
		baseline float64
		horizon  int
	}{
		{name: "baseline above one", baseline: 1.5, horizon: 30},
		{name: "baseline negative", baseline: -0.1, horizon: 30},
		{name: "zero horizon", baseline: 0.5, horizon: 0},
		{name: "negative horizon", baseline: 0.5, horizon: -7},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := e.Support(tt.baseline, nil, tt.horizon)
			var pe *PredictionError
			if !errors.As(err, &pe) || pe.Kind != KindInvalidInput {
				t.Fatalf("error = %v, want invalid_input", err)
			}
		})
	}
}

func TestPredictClampsToUnitInterval(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	low, err := e.Predict(TypeScandalImpact, 0.05, nil, 7, -0.5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if low.Predicted != 0 {
		t.Fatalf("Predicted = %v, want clamp at 0", low.Predicted)
	}

	high, err := e.Predict(TypeSupportRating, 0.95, nil, 7, 0.5)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if high.Predicted != 1 {
		t.Fatalf("Predicted = %v, want clamp at 1", high.Predicted)
	}
}

func TestPredictDirectionFollowsSentiment(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	positive := []item.ScoredItem{
		scoredItem("media-1", 0.8, 0.9, 0.8, 0),
		scoredItem("gov-1", 0.6, 1, 0.9, 1),
	}
	negative := []item.ScoredItem{
		scoredItem("media-1", -0.8, 0.9, 0.8, 0),
		scoredItem("social-1", -0.5, 0.3, 0.4, 1),
	}

	up, err := e.Support(0.5, positive, 30)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	down, err := e.Support(0.5, negative, 30)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	if up.Predicted <= 0.5 {
		t.Fatalf("positive window did not raise the forecast: %v", up.Predicted)
	}
	if down.Predicted >= 0.5 {
		t.Fatalf("negative window did not lower the forecast: %v", down.Predicted)
	}
}

func TestPredictFactorsSumToDelta(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	items := []item.ScoredItem{
		scoredItem("media-1", 0.7, 0.9, 0.8, 0),
		scoredItem("gov-1", 0.4, 1, 0.9, 2),
		scoredItem("social-1", -0.2, 0.3, 0.4, 5),
	}
	res, err := e.Support(0.5, items, 30)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	sum := 0.0
	for _, f := range res.Factors {
		sum += f.Contribution
	}
	if math.Abs((0.5+sum)-res.Predicted) > 1e-9 {
		t.Fatalf("contributions sum %v does not explain predicted %v", sum, res.Predicted)
	}
}

func TestPredictLongerHorizonLowersConfidence(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	items := []item.ScoredItem{scoredItem("media-1", 0.5, 0.9, 0.8, 0)}

	near, err := e.Support(0.5, items, 7)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	far, err := e.Support(0.5, items, 365)
	if err != nil {
		t.Fatalf("Support() error = %v", err)
	}
	if far.Confidence >= near.Confidence {
		t.Fatalf("confidence near=%v far=%v, want the long horizon lower", near.Confidence, far.Confidence)
	}
	if math.Abs(far.Predicted-0.5) >= math.Abs(near.Predicted-0.5) {
		t.Fatalf("delta near=%v far=%v, want the long horizon discounted", near.Predicted, far.Predicted)
	}
}

func TestElection(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	shares := map[string]float64{"ldp": 0.35, "komeito": 0.07, "cdp": 0.30, "ishin": 0.18, "jcp": 0.10}

	res, err := e.Election(shares, nil, 30, nil)
	if err != nil {
		t.Fatalf("Election() error = %v", err)
	}
	if res.TotalSeats != 465 || res.Majority != 233 {
		t.Fatalf("chamber = %d/%d, want 465/233", res.TotalSeats, res.Majority)
	}
	if got := seatSum(res.Seats); got != 465 {
		t.Fatalf("seats sum = %d, want 465", got)
	}
	// Empty window: shares pass through unshifted up to renormalization.
	if math.Abs(res.Shares["ldp"]-0.35) > 1e-9 {
		t.Fatalf("ldp share = %v, want 0.35", res.Shares["ldp"])
	}
	if len(res.Coalitions) == 0 {
		t.Fatal("no coalitions analyzed")
	}
	for _, c := range res.Coalitions {
		if c.Majority != (c.Seats >= 233) {
			t.Fatalf("majority flag wrong: %+v", c)
		}
		if c.Stability != defaultStability {
			t.Fatalf("stability without lookup = %v, want default", c.Stability)
		}
	}
}

func TestEngineOptionsOverrideChamber(t *testing.T) {
	t.Parallel()
	reg, err := source.NewRegistry([]source.Source{
		{ID: "media-1", Category: source.CategoryMedia, Weight: 0.9, MinInterval: time.Second, MaxRetries: 1},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	e := NewEngine(reg, nil, WithTotalSeats(100), WithRulingParties([]string{"alpha"}))
	e.now = func() time.Time { return testNow }

	res, err := e.Election(map[string]float64{"alpha": 0.55, "beta": 0.45}, nil, 30, nil)
	if err != nil {
		t.Fatalf("Election() error = %v", err)
	}
	if res.TotalSeats != 100 || res.Majority != 51 {
		t.Fatalf("chamber = %d/%d, want 100/51", res.TotalSeats, res.Majority)
	}
	if got := seatSum(res.Seats); got != 100 {
		t.Fatalf("seats sum = %d, want 100", got)
	}
	if len(res.Coalitions) == 0 || len(res.Coalitions[len(res.Coalitions)-1].Parties) == 0 {
		t.Fatal("no coalitions analyzed")
	}
	var rulingBloc *Coalition
	for i := range res.Coalitions {
		if len(res.Coalitions[i].Parties) == 1 && res.Coalitions[i].Parties[0] == "alpha" {
			rulingBloc = &res.Coalitions[i]
		}
	}
	if rulingBloc == nil {
		t.Fatalf("configured ruling bloc missing from groupings: %+v", res.Coalitions)
	}
	if rulingBloc.Seats != 55 || !rulingBloc.Majority {
		t.Fatalf("ruling bloc = %+v, want 55 seats with majority", rulingBloc)
	}
}

func TestElectionRequiresShares(t *testing.T) {
	t.Parallel()
	e := testEngine(t)
	_, err := e.Election(nil, nil, 30, nil)
	var pe *PredictionError
	if !errors.As(err, &pe) || pe.Kind != KindInsufficientData {
		t.Fatalf("error = %v, want insufficient_data", err)
	}
}

func TestScandal(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	res, err := e.Scandal(0.5, nil, 30, 1)
	if err != nil {
		t.Fatalf("Scandal() error = %v", err)
	}
	// shock -0.15 discounted by the 30d horizon accuracy 0.75.
	if math.Abs(res.SupportDecline-0.1125) > 1e-9 {
		t.Fatalf("SupportDecline = %v, want 0.1125", res.SupportDecline)
	}
	if res.RecoveryDays != 120 {
		t.Fatalf("RecoveryDays = %d, want 120", res.RecoveryDays)
	}

	mild, err := e.Scandal(0.5, nil, 30, 0.2)
	if err != nil {
		t.Fatalf("Scandal() error = %v", err)
	}
	if mild.SupportDecline >= res.SupportDecline {
		t.Fatalf("mild scandal declined more: %v vs %v", mild.SupportDecline, res.SupportDecline)
	}
	if mild.RecoveryDays != 48 {
		t.Fatalf("RecoveryDays = %d, want 48", mild.RecoveryDays)
	}

	if _, err := e.Scandal(0.5, nil, 30, 1.5); err == nil {
		t.Fatal("severity above 1 accepted")
	}
}

func TestComprehensive(t *testing.T) {
	t.Parallel()
	e := testEngine(t)

	report, err := e.Comprehensive(ComprehensiveInput{
		BaselineSupport: 0.5,
		BaselineShares:  map[string]float64{"ldp": 0.35, "komeito": 0.07, "cdp": 0.30, "ishin": 0.18, "jcp": 0.10},
		HorizonDays:     30,
		ScandalSeverity: 0.6,
		PolicyBaseline:  0.4,
	})
	if err != nil {
		t.Fatalf("Comprehensive() error = %v", err)
	}
	if report.Policy == nil || report.Scandal == nil {
		t.Fatal("optional sections missing despite inputs")
	}
	// Support at 0.5 contributes 0.25, the ruling bloc misses the majority
	// (+0.3) and the scandal adds 0.12.
	if math.Abs(report.RiskScore-0.67) > 1e-9 {
		t.Fatalf("RiskScore = %v, want 0.67", report.RiskScore)
	}

	calm, err := e.Comprehensive(ComprehensiveInput{
		BaselineSupport: 0.5,
		BaselineShares:  map[string]float64{"ldp": 0.5, "komeito": 0.1, "cdp": 0.4},
		HorizonDays:     30,
	})
	if err != nil {
		t.Fatalf("Comprehensive() error = %v", err)
	}
	if calm.Policy != nil || calm.Scandal != nil {
		t.Fatal("optional sections present without inputs")
	}
	if calm.RiskScore >= report.RiskScore {
		t.Fatalf("risk calm=%v crisis=%v, want calm lower", calm.RiskScore, report.RiskScore)
	}
}

func TestShiftShares(t *testing.T) {
	t.Parallel()
	baseline := map[string]float64{"ldp": 0.4, "komeito": 0.1, "cdp": 0.5}
	out := shiftShares(baseline, []string{"ldp", "komeito"}, 0.1)

	total := 0.0
	for _, s := range out {
		total += s
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("shares sum = %v, want 1", total)
	}
	if out["ldp"] <= 0.4 || out["komeito"] <= 0.1 {
		t.Fatalf("ruling bloc did not gain: %v", out)
	}
	if out["cdp"] >= 0.5 {
		t.Fatalf("opposition did not cede share: %v", out)
	}
	// The within-bloc ratio is preserved.
	if math.Abs(out["ldp"]/out["komeito"]-4) > 1e-9 {
		t.Fatalf("bloc ratio drifted: %v", out)
	}
}
