package predict

import (
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// PredictionErrorKind classifies prediction failures.
type PredictionErrorKind string

const (
	KindInsufficientData PredictionErrorKind = "insufficient_data"
	KindInvalidInput     PredictionErrorKind = "invalid_input"
)

// PredictionError is the typed prediction failure. InsufficientData is only
// used for structurally unusable input; an empty item window is NOT an error,
// it yields a neutral no-op forecast instead.
type PredictionError struct {
	Kind PredictionErrorKind
	Err  error
}

func (e *PredictionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("predict: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("predict: %s", e.Kind)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// PredictionResult is a forecast with its factor breakdown. Factor
// contributions sum to Predicted minus Baseline before clamping.
type PredictionResult struct {
	Type            Type                 `json:"type"`
	Baseline        float64              `json:"baseline"`
	Predicted       float64              `json:"predicted"`
	HorizonDays     int                  `json:"horizon_days"`
	Confidence      float64              `json:"confidence"`
	ConfidenceLabel ConfidenceLabel      `json:"confidence_label"`
	Factors         []FactorContribution `json:"factors"`
	ItemCount       int                  `json:"item_count"`
	GeneratedAt     time.Time            `json:"generated_at"`
}

// ElectionResult extends a forecast with the seat projection.
type ElectionResult struct {
	PredictionResult
	Shares     map[string]float64 `json:"shares"`
	Seats      []SeatAllocation   `json:"seats"`
	TotalSeats int                `json:"total_seats"`
	Majority   int                `json:"majority_threshold"`
	Coalitions []Coalition        `json:"coalitions"`
}

// ScandalResult extends a forecast with the estimated support decline and
// recovery horizon.
type ScandalResult struct {
	PredictionResult
	Severity       float64 `json:"severity"`
	SupportDecline float64 `json:"support_decline"`
	RecoveryDays   int     `json:"recovery_days"`
}

// ComprehensiveReport combines the individual forecasts into one document
// with an overall risk score.
type ComprehensiveReport struct {
	Support     PredictionResult  `json:"support"`
	Election    ElectionResult    `json:"election"`
	Policy      *PredictionResult `json:"policy,omitempty"`
	Scandal     *ScandalResult    `json:"scandal,omitempty"`
	RiskScore   float64           `json:"risk_score"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Scandal tuning. Each point of severity-weighted impact shaves
// supportDeclineRate off the rating; recovery scales with severity.
const (
	supportDeclineRate  = 0.15
	recoveryBaseDays    = 30
	recoveryPerSeverity = 90
)

// Engine combines time-windowed scored items into forecasts. Pure over its
// inputs; safe for concurrent use.
type Engine struct {
	registry      *source.Registry
	stability     StabilityLookup
	totalSeats    int
	rulingParties []string
	now           func() time.Time
	logger        *log.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTotalSeats overrides the size of the chamber being forecast.
func WithTotalSeats(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.totalSeats = n
		}
	}
}

// WithRulingParties overrides the ruling bloc used for share shifting,
// coalition groupings and the risk score.
func WithRulingParties(parties []string) Option {
	return func(e *Engine) {
		if len(parties) > 0 {
			e.rulingParties = append([]string(nil), parties...)
		}
	}
}

// NewEngine builds a prediction engine. stability may be nil; unknown
// coalitions then carry the neutral default stability.
func NewEngine(registry *source.Registry, stability StabilityLookup, opts ...Option) *Engine {
	e := &Engine{
		registry:      registry,
		stability:     stability,
		totalSeats:    TotalSeats,
		rulingParties: []string{"ldp", "komeito"},
		now:           time.Now,
		logger:        log.New(log.Writer(), "[PREDICT] ", log.LstdFlags),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Predict runs the generic rate-type forecast. The predicted value is always
// clamped to [0,1]. Zero items in the window produce predicted == baseline
// with confidence 0 rather than a fabricated trend.
func (e *Engine) Predict(typ Type, baseline float64, items []item.ScoredItem, horizonDays int, eventShock float64) (PredictionResult, error) {
	if baseline < 0 || baseline > 1 {
		return PredictionResult{}, &PredictionError{Kind: KindInvalidInput,
			Err: fmt.Errorf("baseline %v outside [0,1]", baseline)}
	}
	if horizonDays <= 0 {
		return PredictionResult{}, &PredictionError{Kind: KindInvalidInput,
			Err: fmt.Errorf("horizon must be positive, got %d", horizonDays)}
	}

	now := e.now()
	res := PredictionResult{
		Type:        typ,
		Baseline:    baseline,
		Predicted:   baseline,
		HorizonDays: horizonDays,
		ItemCount:   len(items),
		GeneratedAt: now,
	}
	if len(items) == 0 && eventShock == 0 {
		res.ConfidenceLabel = Label(0)
		e.logger.Printf("%s: empty window, returning baseline %v with zero confidence", typ, baseline)
		return res, nil
	}

	in := BuildInput(typ, items, e.registry, horizonDays, eventShock, now)
	res.Factors = in.Factors
	res.Predicted = clamp01(baseline + in.TotalDelta())
	res.Confidence = confidence(in.AvgItemConf, in.Categories, in.ItemCount, horizonDays)
	res.ConfidenceLabel = Label(res.Confidence)
	e.logger.Printf("%s: baseline %.3f -> %.3f over %dd (%d items, confidence %.2f %s)",
		typ, baseline, res.Predicted, horizonDays, len(items), res.Confidence, res.ConfidenceLabel)
	return res, nil
}

// Support forecasts the approval-rating trajectory.
func (e *Engine) Support(baseline float64, items []item.ScoredItem, horizonDays int) (PredictionResult, error) {
	return e.Predict(TypeSupportRating, baseline, items, horizonDays, 0)
}

// Policy forecasts the public-approval trajectory of a policy.
func (e *Engine) Policy(baseline float64, items []item.ScoredItem, horizonDays int) (PredictionResult, error) {
	return e.Predict(TypePolicyImpact, baseline, items, horizonDays, 0)
}

// Election forecasts vote shares and allocates seats. baselineShares maps
// party to current share; the forecast delta moves the ruling bloc against
// the rest, then shares are renormalized before allocation.
func (e *Engine) Election(baselineShares map[string]float64, items []item.ScoredItem, horizonDays int, groupings [][]string) (ElectionResult, error) {
	if len(baselineShares) == 0 {
		return ElectionResult{}, &PredictionError{Kind: KindInsufficientData,
			Err: fmt.Errorf("no baseline vote shares")}
	}

	ruling := 0.0
	for _, p := range e.rulingParties {
		ruling += baselineShares[p]
	}
	base, err := e.Predict(TypeElectionOutcome, clamp01(ruling), items, horizonDays, 0)
	if err != nil {
		return ElectionResult{}, err
	}

	shares := shiftShares(baselineShares, e.rulingParties, base.Predicted-base.Baseline)
	seats := AllocateSeats(shares, e.totalSeats)
	if groupings == nil {
		groupings = e.defaultGroupings(seats)
	}

	return ElectionResult{
		PredictionResult: base,
		Shares:           shares,
		Seats:            seats,
		TotalSeats:       e.totalSeats,
		Majority:         MajorityThreshold(e.totalSeats),
		Coalitions:       AnalyzeCoalitions(seats, groupings, e.totalSeats, e.stability),
	}, nil
}

// Scandal forecasts the support hit of a scandal. severity is in [0,1]; the
// decline scales with severity and the media reaction in the window.
func (e *Engine) Scandal(baseline float64, items []item.ScoredItem, horizonDays int, severity float64) (ScandalResult, error) {
	if severity < 0 || severity > 1 {
		return ScandalResult{}, &PredictionError{Kind: KindInvalidInput,
			Err: fmt.Errorf("severity %v outside [0,1]", severity)}
	}

	shock := -severity * supportDeclineRate
	base, err := e.Predict(TypeScandalImpact, baseline, items, horizonDays, shock)
	if err != nil {
		return ScandalResult{}, err
	}
	return ScandalResult{
		PredictionResult: base,
		Severity:         severity,
		SupportDecline:   baseline - base.Predicted,
		RecoveryDays:     recoveryBaseDays + int(severity*recoveryPerSeverity),
	}, nil
}

// ComprehensiveInput carries everything the combined analysis needs.
type ComprehensiveInput struct {
	BaselineSupport float64
	BaselineShares  map[string]float64
	Items           []item.ScoredItem
	HorizonDays     int
	ScandalSeverity float64 // 0 when no scandal is in play
	PolicyBaseline  float64 // 0 skips the policy forecast
}

// Comprehensive runs support and election forecasts, plus policy and scandal
// when their inputs are provided, and derives an overall risk score. Risk
// rises with low predicted support, a ruling bloc short of a majority, and
// active scandal impact.
func (e *Engine) Comprehensive(in ComprehensiveInput) (ComprehensiveReport, error) {
	support, err := e.Support(in.BaselineSupport, in.Items, in.HorizonDays)
	if err != nil {
		return ComprehensiveReport{}, err
	}
	election, err := e.Election(in.BaselineShares, in.Items, in.HorizonDays, nil)
	if err != nil {
		return ComprehensiveReport{}, err
	}

	report := ComprehensiveReport{
		Support:     support,
		Election:    election,
		GeneratedAt: e.now(),
	}
	if in.PolicyBaseline > 0 {
		policy, err := e.Policy(in.PolicyBaseline, in.Items, in.HorizonDays)
		if err != nil {
			return ComprehensiveReport{}, err
		}
		report.Policy = &policy
	}
	if in.ScandalSeverity > 0 {
		scandal, err := e.Scandal(in.BaselineSupport, in.Items, in.HorizonDays, in.ScandalSeverity)
		if err != nil {
			return ComprehensiveReport{}, err
		}
		report.Scandal = &scandal
	}

	risk := (1 - support.Predicted) * 0.5
	rulingSeats := 0
	seatsBy := make(map[string]int)
	for _, a := range election.Seats {
		seatsBy[a.Party] = a.Seats
	}
	for _, p := range e.rulingParties {
		rulingSeats += seatsBy[p]
	}
	if rulingSeats < election.Majority {
		risk += 0.3
	}
	if report.Scandal != nil {
		risk += report.Scandal.Severity * 0.2
	}
	report.RiskScore = clamp01(risk)
	return report, nil
}

// defaultGroupings enumerates the ruling bloc, the combined opposition and
// each grand-coalition pairing of the two largest parties.
func (e *Engine) defaultGroupings(seats []SeatAllocation) [][]string {
	groupings := [][]string{append([]string(nil), e.rulingParties...)}
	rulingSet := make(map[string]bool, len(e.rulingParties))
	for _, p := range e.rulingParties {
		rulingSet[p] = true
	}
	var opposition []string
	for _, a := range seats {
		if !rulingSet[a.Party] {
			opposition = append(opposition, a.Party)
		}
	}
	if len(opposition) > 0 {
		groupings = append(groupings, opposition)
	}
	if len(seats) >= 2 {
		groupings = append(groupings, []string{seats[0].Party, seats[1].Party})
	}
	return groupings
}

// shiftShares moves delta from the non-ruling parties to the ruling bloc
// proportionally, keeping every share non-negative and the total at 1.
func shiftShares(baseline map[string]float64, rulingParties []string, delta float64) map[string]float64 {
	rulingSet := make(map[string]bool, len(rulingParties))
	for _, p := range rulingParties {
		rulingSet[p] = true
	}
	rulingTotal, otherTotal := 0.0, 0.0
	for p, s := range baseline {
		if rulingSet[p] {
			rulingTotal += s
		} else {
			otherTotal += s
		}
	}

	out := make(map[string]float64, len(baseline))
	for p, s := range baseline {
		adjusted := s
		if rulingSet[p] && rulingTotal > 0 {
			adjusted = s + delta*(s/rulingTotal)
		} else if !rulingSet[p] && otherTotal > 0 {
			adjusted = s - delta*(s/otherTotal)
		}
		if adjusted < 0 {
			adjusted = 0
		}
		out[p] = adjusted
	}
	// Renormalize so the allocation sees shares summing to 1.
	total := 0.0
	for _, s := range out {
		total += s
	}
	if total > 0 {
		for p := range out {
			out[p] /= total
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
