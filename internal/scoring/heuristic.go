package scoring

import (
	"context"
	"strings"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// Heuristic lexicons: additive keyword scoring, clamped to range. This is the
// deterministic fallback when the classifier is unavailable.

var sentimentLexicon = map[string]float64{
	// positive
	"approval": 0.3, "support": 0.3, "praise": 0.4, "success": 0.4,
	"achievement": 0.3, "progress": 0.3, "recovery": 0.3, "growth": 0.3,
	"reform": 0.2, "stability": 0.2, "cooperation": 0.2, "landslide": 0.3,
	// negative
	"scandal": -0.5, "corruption": -0.5, "resignation": -0.4, "crisis": -0.4,
	"failure": -0.4, "criticism": -0.3, "protest": -0.3, "decline": -0.3,
	"controversy": -0.3, "backlash": -0.3, "distrust": -0.4, "coverup": -0.5,
	"fraud": -0.5, "stagnation": -0.3,
}

var rightBiasKeywords = map[string]float64{
	"patriot": 0.3, "sovereignty": 0.2, "traditional values": 0.2,
	"deregulation": 0.2, "defense buildup": 0.3, "constitutional revision": 0.3,
}

var leftBiasKeywords = map[string]float64{
	"redistribution": 0.2, "welfare expansion": 0.2, "pacifist": 0.3,
	"workers rights": 0.2, "social justice": 0.3, "antinuclear": 0.2,
}

var populistKeywords = []string{
	"elites", "establishment", "vested interests", "ordinary people",
	"bureaucrats",
}

var lowTrustMarkers = []string{
	"shocking", "you won't believe", "exposed", "they don't want you to know",
	"!!!", "wake up",
}

var highTrustMarkers = []string{
	"according to", "survey", "poll", "official", "ministry", "statistics",
	"press release", "source:",
}

// heuristicConfidence is the ceiling for lexicon-derived scores: keyword
// matching is a coarse signal, so results are flagged with lowered confidence.
const heuristicConfidence = 0.4

// HeuristicClassifier scores text with pure lexicon lookups. It never fails
// and never consults the network.
type HeuristicClassifier struct{}

// NewHeuristicClassifier returns the local deterministic classifier.
func NewHeuristicClassifier() *HeuristicClassifier { return &HeuristicClassifier{} }

// Classify implements Classifier via additive keyword scoring.
func (HeuristicClassifier) Classify(_ context.Context, text string, _ source.Category) (RawScores, error) {
	lower := strings.ToLower(text)

	sentiment := 0.0
	matched := 0
	for kw, w := range sentimentLexicon {
		if strings.Contains(lower, kw) {
			sentiment += w
			matched++
		}
	}

	right, left := 0.0, 0.0
	for kw, w := range rightBiasKeywords {
		if strings.Contains(lower, kw) {
			right += w
		}
	}
	for kw, w := range leftBiasKeywords {
		if strings.Contains(lower, kw) {
			left += w
		}
	}
	bias := 0.0
	if right > 0 || left > 0 {
		bias = (right - left) / maxf(right+left, 1)
	}

	conf := 0.0
	if matched > 0 || right > 0 || left > 0 {
		conf = heuristicConfidence
	}
	return RawScores{
		Sentiment:  clamp(sentiment, -1, 1),
		Bias:       clamp(bias, -1, 1),
		Factuality: factualityHeuristic(lower),
		Confidence: conf,
	}, nil
}

// DominantBias labels the strongest lexical bias signal in the text.
func DominantBias(text string) item.BiasLabel {
	lower := strings.ToLower(text)
	right, left, populist := 0.0, 0.0, 0.0
	for kw, w := range rightBiasKeywords {
		if strings.Contains(lower, kw) {
			right += w
		}
	}
	for kw, w := range leftBiasKeywords {
		if strings.Contains(lower, kw) {
			left += w
		}
	}
	for _, kw := range populistKeywords {
		if strings.Contains(lower, kw) {
			populist += 0.25
		}
	}
	switch {
	case right == 0 && left == 0 && populist == 0:
		return item.BiasNeutral
	case populist > right && populist > left:
		return item.BiasPopulist
	case right >= left:
		return item.BiasRight
	default:
		return item.BiasLeft
	}
}

// factualityHeuristic estimates factual grounding from trust markers.
func factualityHeuristic(lower string) float64 {
	score := 0.5
	for _, m := range highTrustMarkers {
		if strings.Contains(lower, m) {
			score += 0.08
		}
	}
	for _, m := range lowTrustMarkers {
		if strings.Contains(lower, m) {
			score -= 0.12
		}
	}
	return clamp(score, 0, 1)
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
