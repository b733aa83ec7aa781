package scoring

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// ScoringErrorKind classifies scoring failures.
type ScoringErrorKind string

const (
	KindEmptyInput            ScoringErrorKind = "empty_input"
	KindClassifierUnavailable ScoringErrorKind = "classifier_unavailable"
)

// ScoringError is the typed scoring failure. ClassifierUnavailable is
// recovered via the heuristic fallback and never aborts the caller.
type ScoringError struct {
	Kind ScoringErrorKind
	Err  error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("scoring: %s", e.Kind)
}

func (e *ScoringError) Unwrap() error { return e.Err }

var citationPattern = regexp.MustCompile(`\[\d+\]|https?://|\([12][0-9]{3}\)`)

// Engine turns raw items into structured scores. Semantic judgment is
// delegated to the classifier capability; a deterministic lexicon heuristic
// covers classifier failures with lowered confidence.
type Engine struct {
	classifier Classifier
	fallback   Classifier
	registry   *source.Registry
	timeout    time.Duration
	logger     *log.Logger
}

// NewEngine builds a scoring engine. classifier may be nil, in which case
// every item is scored heuristically.
func NewEngine(classifier Classifier, registry *source.Registry, timeout time.Duration) *Engine {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Engine{
		classifier: classifier,
		fallback:   NewHeuristicClassifier(),
		registry:   registry,
		timeout:    timeout,
		logger:     log.New(log.Writer(), "[SCORE] ", log.LstdFlags),
	}
}

// Score produces a ScoredItem. Empty input is a hard error; classifier
// failure degrades to the heuristic; a fully inconclusive item comes back
// neutral with confidence zero, never omitted.
func (e *Engine) Score(ctx context.Context, raw item.RawItem) (item.ScoredItem, error) {
	if strings.TrimSpace(raw.Text) == "" {
		return item.ScoredItem{}, &ScoringError{Kind: KindEmptyInput}
	}

	sourceWeight := 0.5
	if src, ok := e.registry.Get(raw.SourceID); ok {
		sourceWeight = src.Weight
	}

	scores, heuristic, err := e.classify(ctx, raw)
	if err != nil {
		// Both paths failed: neutral score, zero confidence.
		e.logger.Printf("item %s inconclusive: %v", raw.ID, err)
		return item.ScoredItem{
			Item:        raw,
			BiasLabel:   item.BiasNeutral,
			Reliability: sourceWeight * contentQualityFactor(raw.Text),
			Confidence:  0,
			Heuristic:   true,
			ScoredAt:    time.Now(),
		}, nil
	}

	quality := contentQualityFactor(raw.Text)
	scored := item.ScoredItem{
		Item:      raw,
		Sentiment: scores.Sentiment,
		Bias:      scores.Bias,
		BiasLabel: DominantBias(raw.Text),
		// Never the source weight alone: a low-quality post from a normally
		// reliable source is scored down.
		Reliability: clamp(sourceWeight*quality, 0, 1),
		Confidence:  clamp(sourceWeight*scores.Confidence, 0, 1),
		Heuristic:   heuristic,
		ScoredAt:    time.Now(),
	}
	return scored, nil
}

// ScoreBatch scores a list of items, skipping per-item failures so one bad
// item never aborts the batch.
func (e *Engine) ScoreBatch(ctx context.Context, raws []item.RawItem) []item.ScoredItem {
	out := make([]item.ScoredItem, 0, len(raws))
	for _, raw := range raws {
		scored, err := e.Score(ctx, raw)
		if err != nil {
			e.logger.Printf("skipping item %s: %v", raw.ID, err)
			continue
		}
		out = append(out, scored)
	}
	return out
}

func (e *Engine) classify(ctx context.Context, raw item.RawItem) (RawScores, bool, error) {
	if e.classifier != nil {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		scores, err := e.classifier.Classify(cctx, raw.Text, raw.Category)
		cancel()
		if err == nil {
			return scores, false, nil
		}
		e.logger.Printf("classifier failed for %s, falling back to heuristic: %v", raw.ID, err)
	}
	scores, err := e.fallback.Classify(ctx, raw.Text, raw.Category)
	if err != nil {
		return RawScores{}, true, &ScoringError{Kind: KindClassifierUnavailable, Err: err}
	}
	if scores.Confidence == 0 {
		return RawScores{}, true, &ScoringError{Kind: KindClassifierUnavailable,
			Err: fmt.Errorf("heuristic inconclusive")}
	}
	return scores, true, nil
}

// contentQualityFactor derives structural quality from the text itself:
// citations, length thresholds and known low-trust lexical markers.
func contentQualityFactor(text string) float64 {
	factor := 0.7
	if citationPattern.MatchString(text) {
		factor += 0.15
	}
	switch n := len(text); {
	case n >= 1000:
		factor += 0.15
	case n >= 300:
		factor += 0.08
	case n < 80:
		factor -= 0.2
	}
	lower := strings.ToLower(text)
	for _, m := range lowTrustMarkers {
		if strings.Contains(lower, m) {
			factor -= 0.15
		}
	}
	for _, m := range highTrustMarkers {
		if strings.Contains(lower, m) {
			factor += 0.05
			break
		}
	}
	return clamp(factor, 0.1, 1)
}
