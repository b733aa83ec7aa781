package predict

// ConfidenceLabel is the five-level discretization of a confidence scalar.
type ConfidenceLabel string

const (
	ConfidenceVeryHigh ConfidenceLabel = "very_high"
	ConfidenceHigh     ConfidenceLabel = "high"
	ConfidenceMedium   ConfidenceLabel = "medium"
	ConfidenceLow      ConfidenceLabel = "low"
	ConfidenceVeryLow  ConfidenceLabel = "very_low"
)

// Confidence component weights. Item confidence dominates; diversity, sample
// size and horizon each temper it.
const (
	confWeightItems     = 0.35
	confWeightDiversity = 0.25
	confWeightSamples   = 0.20
	confWeightHorizon   = 0.20

	// sampleHalfCount is the diminishing-returns midpoint: at this many items
	// the sample term reaches 0.5.
	sampleHalfCount = 5.0
	// horizonHalfDays halves the horizon term at this many days out.
	horizonHalfDays = 30.0
)

// confidence combines average per-item confidence, source-category diversity,
// sample size with diminishing returns, and inverse horizon length.
func confidence(avgItemConf float64, categories, sampleCount, horizonDays int) float64 {
	if sampleCount == 0 {
		return 0
	}
	diversity := float64(categories) / 4.0
	if diversity > 1 {
		diversity = 1
	}
	samples := float64(sampleCount) / (float64(sampleCount) + sampleHalfCount)
	horizon := 1.0 / (1.0 + float64(horizonDays)/horizonHalfDays)
	return confWeightItems*avgItemConf +
		confWeightDiversity*diversity +
		confWeightSamples*samples +
		confWeightHorizon*horizon
}

// Label maps a confidence scalar onto the fixed five-level set.
func Label(conf float64) ConfidenceLabel {
	switch {
	case conf >= 0.85:
		return ConfidenceVeryHigh
	case conf >= 0.70:
		return ConfidenceHigh
	case conf >= 0.55:
		return ConfidenceMedium
	case conf >= 0.40:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}
