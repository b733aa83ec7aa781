package item

import (
	"fmt"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/source"
)

// RawItem is an unscored piece of collected content with provenance and
// timestamps. Immutable once created; the aggregator owns it until consumed.
type RawItem struct {
	ID          string          `json:"id"`
	SourceID    string          `json:"source_id"`
	Category    source.Category `json:"category"`
	URL         string          `json:"url"` // canonical URL, or stable identity key for non-URL sources
	Title       string          `json:"title,omitempty"`
	Text        string          `json:"text"`
	PublishedAt time.Time       `json:"published_at"`
	CollectedAt time.Time       `json:"collected_at"`
}

// BiasLabel names the dominant political bias detected in an item.
type BiasLabel string

const (
	BiasNeutral  BiasLabel = "neutral"
	BiasRight    BiasLabel = "right_wing"
	BiasLeft     BiasLabel = "left_wing"
	BiasPopulist BiasLabel = "populist"
)

// ScoredItem annotates a RawItem with sentiment, bias, reliability and
// confidence. Sentiment and bias are in [-1,1]; reliability and confidence in
// [0,1]. Confidence is never higher than the source weight or the classifier
// confidence alone.
type ScoredItem struct {
	Item        RawItem   `json:"item"`
	Sentiment   float64   `json:"sentiment"`
	Bias        float64   `json:"bias"`
	BiasLabel   BiasLabel `json:"bias_label"`
	Reliability float64   `json:"reliability"`
	Confidence  float64   `json:"confidence"`
	Heuristic   bool      `json:"heuristic"` // true when the lexicon fallback produced the scores
	ScoredAt    time.Time `json:"scored_at"`
}

// Validate checks that every score sits inside its documented range.
func (s ScoredItem) Validate() error {
	if s.Sentiment < -1 || s.Sentiment > 1 {
		return fmt.Errorf("sentiment out of range: %v", s.Sentiment)
	}
	if s.Bias < -1 || s.Bias > 1 {
		return fmt.Errorf("bias out of range: %v", s.Bias)
	}
	if s.Reliability < 0 || s.Reliability > 1 {
		return fmt.Errorf("reliability out of range: %v", s.Reliability)
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return fmt.Errorf("confidence out of range: %v", s.Confidence)
	}
	return nil
}
