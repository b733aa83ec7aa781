package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/polisight/internal/item"
	"github.com/mohammad-safakhou/polisight/internal/source"
)

// Request describes one logical query against a source.
type Request struct {
	Query      string
	Since      time.Time
	MaxResults int
}

// Renderer produces fully rendered HTML for sources that need a headless
// browser (JS-heavy portals, social embeds).
type Renderer interface {
	Render(ctx context.Context, rawURL string) (string, error)
}

// Extractor turns an HTML document into readable article text.
type Extractor interface {
	Extract(html, rawURL string) (title, text string, err error)
}

// Fetcher issues outbound requests under each source's rate budget.
// Same-source requests are serialized through that source's limiter; distinct
// sources never block each other.
type Fetcher struct {
	client   *http.Client
	limiters *limiterPool
	renderer Renderer
	extract  Extractor
	logger   *log.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRenderer installs a headless-browser renderer for rendered sources.
func WithRenderer(r Renderer) Option { return func(f *Fetcher) { f.renderer = r } }

// WithExtractor installs an article text extractor.
func WithExtractor(e Extractor) Option { return func(f *Fetcher) { f.extract = e } }

// NewFetcher builds a Fetcher with the given request timeout.
func NewFetcher(timeout time.Duration, opts ...Option) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	f := &Fetcher{
		client:   &http.Client{Timeout: timeout},
		limiters: newLimiterPool(),
		logger:   log.New(log.Writer(), "[FETCH] ", log.LstdFlags),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

// wire format served by source endpoints
type wireItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	PublishedAt string `json:"published_at"`
}

type wireResponse struct {
	Items []wireItem `json:"items"`
}

// Fetch runs one query against a source and returns the collected items.
// The call suspends while waiting for the source's rate-limit slot and
// retries transient failures per the source's retry budget. On exhaustion a
// *FetchError is returned, never a silently empty result.
func (f *Fetcher) Fetch(ctx context.Context, src source.Source, req Request) ([]item.RawItem, error) {
	policy := DefaultRetryPolicy(src.MaxRetries + 1)
	limiter := f.limiters.get(src.ID, src.MinInterval)

	var items []item.RawItem
	attempts := 0
	err := policy.Do(ctx, func(ctx context.Context) error {
		attempts++
		if err := limiter.Wait(ctx); err != nil {
			return &FetchError{Kind: KindTimeout, SourceID: src.ID, Attempts: attempts, Err: err}
		}
		var err error
		items, err = f.fetchOnce(ctx, src, req)
		return err
	})
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			fe.Attempts = attempts
			return nil, fe
		}
		kind := KindHTTP
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, SourceID: src.ID, Attempts: attempts, Err: err}
	}
	return items, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, src source.Source, req Request) ([]item.RawItem, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	if req.MaxResults > 0 {
		params.Set("limit", fmt.Sprint(req.MaxResults))
	}
	if !req.Since.IsZero() {
		params.Set("since", req.Since.UTC().Format(time.RFC3339))
	}
	reqURL := src.Endpoint
	if strings.Contains(reqURL, "?") {
		reqURL += "&" + params.Encode()
	} else {
		reqURL += "?" + params.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: KindMalformed, SourceID: src.ID, Err: err}
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		kind := KindHTTP
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, SourceID: src.ID, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnavailableForLegalReasons:
		return nil, &FetchError{Kind: KindBlocked, SourceID: src.ID, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Kind: KindHTTP, SourceID: src.ID, Status: resp.StatusCode,
			Err: fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(b)))}
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, &FetchError{Kind: KindMalformed, SourceID: src.ID, Err: err}
	}

	now := time.Now()
	items := make([]item.RawItem, 0, len(wire.Items))
	for _, w := range wire.Items {
		if strings.TrimSpace(w.Text) == "" && strings.TrimSpace(w.Title) == "" {
			continue
		}
		published, _ := time.Parse(time.RFC3339, w.PublishedAt)
		items = append(items, item.RawItem{
			ID:          uuid.NewString(),
			SourceID:    src.ID,
			Category:    src.Category,
			URL:         w.URL,
			Title:       strings.TrimSpace(w.Title),
			Text:        strings.TrimSpace(w.Text),
			PublishedAt: published,
			CollectedAt: now,
		})
		if req.MaxResults > 0 && len(items) >= req.MaxResults {
			break
		}
	}
	return items, nil
}

// FetchURL retrieves a single document and extracts its readable text.
// Rendered sources go through the headless renderer when one is installed.
func (f *Fetcher) FetchURL(ctx context.Context, src source.Source, rawURL string) (item.RawItem, error) {
	limiter := f.limiters.get(src.ID, src.MinInterval)
	if err := limiter.Wait(ctx); err != nil {
		return item.RawItem{}, &FetchError{Kind: KindTimeout, SourceID: src.ID, Attempts: 1, Err: err}
	}

	var html string
	if src.Rendered && f.renderer != nil {
		rendered, err := f.renderer.Render(ctx, rawURL)
		if err != nil {
			return item.RawItem{}, &FetchError{Kind: KindHTTP, SourceID: src.ID, Attempts: 1, Err: err}
		}
		html = rendered
	} else {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return item.RawItem{}, &FetchError{Kind: KindMalformed, SourceID: src.ID, Attempts: 1, Err: err}
		}
		resp, err := f.client.Do(req)
		if err != nil {
			kind := KindHTTP
			if isTimeout(err) {
				kind = KindTimeout
			}
			return item.RawItem{}, &FetchError{Kind: kind, SourceID: src.ID, Attempts: 1, Err: err}
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
			return item.RawItem{}, &FetchError{Kind: KindBlocked, SourceID: src.ID, Attempts: 1, Status: resp.StatusCode}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return item.RawItem{}, &FetchError{Kind: KindHTTP, SourceID: src.ID, Attempts: 1, Status: resp.StatusCode}
		}
		b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
		if err != nil {
			return item.RawItem{}, &FetchError{Kind: KindMalformed, SourceID: src.ID, Attempts: 1, Err: err}
		}
		html = string(b)
	}

	title, text := "", html
	if f.extract != nil {
		t, body, err := f.extract.Extract(html, rawURL)
		if err == nil {
			title, text = t, body
		}
	}
	if strings.TrimSpace(text) == "" {
		return item.RawItem{}, &FetchError{Kind: KindMalformed, SourceID: src.ID, Attempts: 1,
			Err: fmt.Errorf("no readable content at %s", rawURL)}
	}

	return item.RawItem{
		ID:          uuid.NewString(),
		SourceID:    src.ID,
		Category:    src.Category,
		URL:         rawURL,
		Title:       title,
		Text:        strings.TrimSpace(text),
		PublishedAt: time.Now(),
		CollectedAt: time.Now(),
	}, nil
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
