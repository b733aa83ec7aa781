package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/source"
)

// ErrClassifierUnavailable signals that the external classifier failed or
// timed out; callers fall back to the heuristic scorer.
var ErrClassifierUnavailable = errors.New("classifier unavailable")

// RawScores is the classifier capability's output: raw semantic signals plus
// the classifier's own confidence, all before source weighting.
type RawScores struct {
	Sentiment  float64 `json:"sentiment"`  // [-1,1]
	Bias       float64 `json:"bias"`       // [-1,1], negative left / positive right
	Factuality float64 `json:"factuality"` // [0,1]
	Confidence float64 `json:"confidence"` // [0,1]
}

// Classifier is the external semantic-judgment capability. Implementations
// must respect the context deadline and return a typed failure instead of
// hanging.
type Classifier interface {
	Classify(ctx context.Context, text string, category source.Category) (RawScores, error)
}

// OpenAIClassifier calls an OpenAI-compatible chat completions endpoint with
// a bounded timeout.
type OpenAIClassifier struct {
	APIKey      string
	Model       string
	Endpoint    string
	Temperature float64
	httpClient  *http.Client
}

// NewOpenAIClassifier builds the remote classifier with a bounded timeout.
func NewOpenAIClassifier(apiKey, model string, timeout time.Duration) *OpenAIClassifier {
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIClassifier{
		APIKey:     apiKey,
		Model:      model,
		Endpoint:   "https://api.openai.com/v1/chat/completions",
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

const classifySystemPrompt = `You score political text. Respond ONLY with valid JSON:
{"sentiment": <-1..1>, "bias": <-1..1 where negative is left-leaning and positive is right-leaning>, "factuality": <0..1>, "confidence": <0..1>}
Do not include any other text or explanation.`

// Classify sends the text to the chat endpoint and parses the JSON scores.
// Any transport, status or parse failure is reported as
// ErrClassifierUnavailable so the caller can fall back deterministically.
func (c *OpenAIClassifier) Classify(ctx context.Context, text string, category source.Category) (RawScores, error) {
	userPrompt := fmt.Sprintf("SOURCE TYPE: %s\n\nTEXT:\n%s", category, truncate(text, 6000))
	body, err := json.Marshal(chatRequest{
		Model:       c.Model,
		Temperature: c.Temperature,
		Messages: []chatMessage{
			{Role: "system", Content: classifySystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	})
	if err != nil {
		return RawScores{}, fmt.Errorf("%w: marshal request: %v", ErrClassifierUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewBuffer(body))
	if err != nil {
		return RawScores{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return RawScores{}, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return RawScores{}, fmt.Errorf("%w: status %d", ErrClassifierUnavailable, resp.StatusCode)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return RawScores{}, fmt.Errorf("%w: decode: %v", ErrClassifierUnavailable, err)
	}
	if len(chat.Choices) == 0 {
		return RawScores{}, fmt.Errorf("%w: no choices in response", ErrClassifierUnavailable)
	}

	var scores RawScores
	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &scores); err != nil {
		return RawScores{}, fmt.Errorf("%w: parse scores: %v", ErrClassifierUnavailable, err)
	}
	scores.Sentiment = clamp(scores.Sentiment, -1, 1)
	scores.Bias = clamp(scores.Bias, -1, 1)
	scores.Factuality = clamp(scores.Factuality, 0, 1)
	scores.Confidence = clamp(scores.Confidence, 0, 1)
	return scores, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
