package predict

import (
	"math"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// Type selects the forecasting model.
type Type string

const (
	TypeSupportRating   Type = "support_rating"
	TypeElectionOutcome Type = "election_outcome"
	TypePolicyImpact    Type = "policy_impact"
	TypeScandalImpact   Type = "scandal_impact"
)

// Factor names the signal groups a prediction is built from.
type Factor string

const (
	FactorSentiment  Factor = "sentiment"
	FactorMedia      Factor = "media"
	FactorGovernment Factor = "government"
	FactorSocial     Factor = "social"
	FactorHistorical Factor = "historical"
	FactorPolicy     Factor = "policy"
	FactorExpert     Factor = "expert"
	FactorPublic     Factor = "public"
	FactorEventShock Factor = "event_shock"
)

// factorWeights gives each prediction type its fixed factor mix. Weights sum
// to 1 per type.
var factorWeights = map[Type]map[Factor]float64{
	TypeSupportRating: {
		FactorSentiment:  0.4,
		FactorMedia:      0.3,
		FactorGovernment: 0.2,
		FactorSocial:     0.1,
	},
	TypeElectionOutcome: {
		FactorHistorical: 0.35,
		FactorSentiment:  0.25,
		FactorPolicy:     0.2,
		FactorMedia:      0.15,
		FactorSocial:     0.05,
	},
	TypePolicyImpact: {
		FactorGovernment: 0.4,
		FactorExpert:     0.3,
		FactorMedia:      0.2,
		FactorPublic:     0.1,
	},
	TypeScandalImpact: {
		FactorMedia:      0.4,
		FactorSentiment:  0.3,
		FactorHistorical: 0.2,
		FactorSocial:     0.1,
	},
}

// horizonAccuracy discounts longer forecasts. Interpolated linearly between
// the anchor horizons.
var horizonAnchors = []struct {
	days   int
	factor float64
}{
	{7, 0.90},
	{30, 0.75},
	{90, 0.60},
	{365, 0.45},
}

func horizonAccuracy(horizonDays int) float64 {
	if horizonDays <= horizonAnchors[0].days {
		return horizonAnchors[0].factor
	}
	last := horizonAnchors[len(horizonAnchors)-1]
	if horizonDays >= last.days {
		return last.factor
	}
	for i := 1; i < len(horizonAnchors); i++ {
		lo, hi := horizonAnchors[i-1], horizonAnchors[i]
		if horizonDays <= hi.days {
			span := float64(hi.days - lo.days)
			frac := float64(horizonDays-lo.days) / span
			return lo.factor + frac*(hi.factor-lo.factor)
		}
	}
	return last.factor
}

// dailyDecay is the geometric per-day discount applied to older items.
const dailyDecay = 0.97

// FactorContribution is one named component of the predicted delta.
type FactorContribution struct {
	Factor       Factor  `json:"factor"`
	Value        float64 `json:"value"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	Samples      int     `json:"samples"`
}

// PredictionInput groups a window of scored items into named factors. It is
// ephemeral, rebuilt on every prediction call.
type PredictionInput struct {
	Type        Type
	HorizonDays int
	Factors     []FactorContribution
	ItemCount   int
	Categories  int
	AvgItemConf float64
	EventShock  float64
}

// TotalDelta sums the factor contributions.
func (in PredictionInput) TotalDelta() float64 {
	total := 0.0
	for _, f := range in.Factors {
		total += f.Contribution
	}
	return total
}

// decayedMean averages values with geometric per-day recency weights, so a
// week-old item counts for roughly 80% of a fresh one.
func decayedMean(values []float64, ages []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum, wsum := 0.0, 0.0
	for i, v := range values {
		w := math.Pow(dailyDecay, ages[i])
		sum += v * w
		wsum += w
	}
	if wsum == 0 {
		return 0
	}
	return sum / wsum
}

// BuildInput groups scored items into the factor set of the given prediction
// type. Sentiment draws on every item; category factors draw only on items
// from their matching source category. eventShock is an externally supplied
// impact in [-1,1] (0 when no event is in play).
func BuildInput(typ Type, items []item.ScoredItem, reg *source.Registry, horizonDays int, eventShock float64, now time.Time) PredictionInput {
	in := PredictionInput{Type: typ, HorizonDays: horizonDays, ItemCount: len(items), EventShock: eventShock}

	weights := factorWeights[typ]
	accuracy := horizonAccuracy(horizonDays)

	byFactor := make(map[Factor][]float64)
	ageByFactor := make(map[Factor][]float64)
	cats := make(map[source.Category]struct{})
	confSum := 0.0

	add := func(f Factor, v, age float64) {
		byFactor[f] = append(byFactor[f], v)
		ageByFactor[f] = append(ageByFactor[f], age)
	}

	for _, it := range items {
		confSum += it.Confidence
		age := now.Sub(it.Item.PublishedAt).Hours() / 24
		if age < 0 {
			age = 0
		}
		// Weight each item's sentiment by its reliability so junk content
		// moves the forecast less.
		signal := it.Sentiment * it.Reliability

		add(FactorSentiment, signal, age)
		cat := it.Item.Category
		if src, ok := reg.Get(it.Item.SourceID); ok {
			cat = src.Category
		}
		cats[cat] = struct{}{}
		switch cat {
		case source.CategoryMedia:
			add(FactorMedia, signal, age)
			add(FactorExpert, signal*it.Reliability, age)
		case source.CategoryGovernment:
			add(FactorGovernment, signal, age)
		case source.CategoryParty:
			add(FactorPolicy, signal, age)
			add(FactorHistorical, signal*0.5, age)
		case source.CategorySocial:
			add(FactorSocial, signal, age)
			add(FactorPublic, signal, age)
		}
	}

	in.Categories = len(cats)
	if len(items) > 0 {
		in.AvgItemConf = confSum / float64(len(items))
	}

	for f, w := range weights {
		mean := decayedMean(byFactor[f], ageByFactor[f])
		in.Factors = append(in.Factors, FactorContribution{
			Factor:       f,
			Value:        mean,
			Weight:       w,
			Contribution: mean * w * accuracy,
			Samples:      len(byFactor[f]),
		})
	}
	if eventShock != 0 {
		in.Factors = append(in.Factors, FactorContribution{
			Factor:       FactorEventShock,
			Value:        eventShock,
			Weight:       1,
			Contribution: eventShock * accuracy,
			Samples:      1,
		})
	}
	sortFactors(in.Factors)
	return in
}

func sortFactors(fs []FactorContribution) {
	for i := 1; i < len(fs); i++ {
		for j := i; j > 0 && fs[j].Factor < fs[j-1].Factor; j-- {
			fs[j], fs[j-1] = fs[j-1], fs[j]
		}
	}
}
