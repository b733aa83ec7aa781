package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// stubClassifier returns fixed scores or a fixed error.
type stubClassifier struct {
	scores RawScores
	err    error
	calls  int
}

func (s *stubClassifier) Classify(context.Context, string, source.Category) (RawScores, error) {
	s.calls++
	return s.scores, s.err
}

func testRegistry(t *testing.T) *source.Registry {
	t.Helper()
	reg, err := source.NewRegistry([]source.Source{
		{ID: "media-1", Category: source.CategoryMedia, Weight: 0.9, MinInterval: time.Second, MaxRetries: 1},
		{ID: "social-1", Category: source.CategorySocial, Weight: 0.3, MinInterval: time.Second, MaxRetries: 1},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func mediaItem(text string) item.RawItem {
	return item.RawItem{ID: "i1", SourceID: "media-1", Category: source.CategoryMedia, Text: text}
}

func TestScoreEmptyInput(t *testing.T) {
	t.Parallel()
	e := NewEngine(nil, testRegistry(t), 0)
	_, err := e.Score(context.Background(), mediaItem("   \n\t"))
	var se *ScoringError
	if !errors.As(err, &se) || se.Kind != KindEmptyInput {
		t.Fatalf("Score(empty) error = %v, want empty_input", err)
	}
}

func TestScoreUsesClassifier(t *testing.T) {
	t.Parallel()
	stub := &stubClassifier{scores: RawScores{Sentiment: 0.6, Bias: 0.2, Factuality: 0.8, Confidence: 0.9}}
	e := NewEngine(stub, testRegistry(t), 0)

	scored, err := e.Score(context.Background(), mediaItem("cabinet announces stimulus package"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scored.Heuristic {
		t.Fatal("Heuristic = true with a working classifier")
	}
	if scored.Sentiment != 0.6 {
		t.Fatalf("Sentiment = %v, want classifier value", scored.Sentiment)
	}
	// Confidence is dampened by the source weight, never above it.
	if scored.Confidence > 0.9 {
		t.Fatalf("Confidence = %v exceeds source weight", scored.Confidence)
	}
	if scored.Confidence != 0.9*0.9 {
		t.Fatalf("Confidence = %v, want sourceWeight*classifierConfidence", scored.Confidence)
	}
}

func TestScoreFallsBackToHeuristic(t *testing.T) {
	t.Parallel()
	stub := &stubClassifier{err: ErrClassifierUnavailable}
	e := NewEngine(stub, testRegistry(t), 0)

	scored, err := e.Score(context.Background(), mediaItem("approval ratings climb after the reform passed"))
	if err != nil {
		t.Fatalf("Score() error = %v, classifier failure must degrade not fail", err)
	}
	if stub.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", stub.calls)
	}
	if !scored.Heuristic {
		t.Fatal("Heuristic flag not set on fallback")
	}
	if scored.Sentiment <= 0 {
		t.Fatalf("Sentiment = %v, want positive from lexicon", scored.Sentiment)
	}
	if scored.Confidence > heuristicConfidence {
		t.Fatalf("Confidence = %v, want at most the heuristic ceiling %v", scored.Confidence, heuristicConfidence)
	}
}

func TestScoreInconclusiveItemKeptNeutral(t *testing.T) {
	t.Parallel()
	stub := &stubClassifier{err: ErrClassifierUnavailable}
	e := NewEngine(stub, testRegistry(t), 0)

	// No lexicon hits either: the item stays in the output, neutral.
	scored, err := e.Score(context.Background(), mediaItem("the committee reconvened on thursday"))
	if err != nil {
		t.Fatalf("Score() error = %v, inconclusive items are returned not dropped", err)
	}
	if scored.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", scored.Confidence)
	}
	if !scored.Heuristic {
		t.Fatal("Heuristic flag not set")
	}
	if scored.BiasLabel != item.BiasNeutral {
		t.Fatalf("BiasLabel = %v, want neutral", scored.BiasLabel)
	}
	if scored.Sentiment != 0 || scored.Bias != 0 {
		t.Fatalf("scores not neutral: sentiment=%v bias=%v", scored.Sentiment, scored.Bias)
	}
}

func TestScoreUnknownSourceGetsDefaultWeight(t *testing.T) {
	t.Parallel()
	stub := &stubClassifier{scores: RawScores{Confidence: 1}}
	e := NewEngine(stub, testRegistry(t), 0)

	scored, err := e.Score(context.Background(), item.RawItem{ID: "x", SourceID: "unknown", Text: "support grows"})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scored.Confidence != 0.5 {
		t.Fatalf("Confidence = %v, want default source weight 0.5", scored.Confidence)
	}
}

func TestScoreReliabilityTracksContentQuality(t *testing.T) {
	t.Parallel()
	stub := &stubClassifier{scores: RawScores{Confidence: 1}}
	e := NewEngine(stub, testRegistry(t), 0)
	ctx := context.Background()

	short, err := e.Score(ctx, mediaItem("brief note"))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	cited, err := e.Score(ctx, mediaItem("According to the ministry survey released today, approval moved three points. Full tables at https://example.com/poll with methodology notes attached, sample size and weighting are both documented in the annex, and the field dates cover the preceding week in full."))
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if cited.Reliability <= short.Reliability {
		t.Fatalf("Reliability cited=%v short=%v, citations and length must raise it", cited.Reliability, short.Reliability)
	}
	if short.Reliability <= 0 || cited.Reliability > 1 {
		t.Fatalf("Reliability out of range: %v, %v", short.Reliability, cited.Reliability)
	}
}

func TestScoreBatchSkipsBadItems(t *testing.T) {
	t.Parallel()
	e := NewEngine(nil, testRegistry(t), 0)
	out := e.ScoreBatch(context.Background(), []item.RawItem{
		mediaItem("approval for the budget grows"),
		{ID: "empty", SourceID: "media-1", Text: ""},
		{ID: "s1", SourceID: "social-1", Text: "protest against the coverup"},
	})
	if len(out) != 2 {
		t.Fatalf("ScoreBatch() kept %d items, want 2", len(out))
	}
	for _, s := range out {
		if s.Item.ID == "empty" {
			t.Fatal("empty item not skipped")
		}
	}
}
