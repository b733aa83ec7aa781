package fetch

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
)

// ChromeRenderer renders a page in headless Chrome. Used for sources whose
// content only materialises after client-side scripts run.
type ChromeRenderer struct {
	Timeout   time.Duration
	UserAgent string
}

// Render navigates to rawURL and returns the rendered outer HTML.
func (r ChromeRenderer) Render(ctx context.Context, rawURL string) (string, error) {
	if strings.TrimSpace(rawURL) == "" {
		return "", errors.New("invalid url")
	}
	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ua := r.UserAgent
	if ua == "" {
		ua = "polisight/1.0 (+contact@example.com)"
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.UserAgent(ua),
	)
	actx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	bctx, cancelBrowser := chromedp.NewContext(actx)
	defer cancelBrowser()

	var html string
	err := chromedp.Run(bctx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	return html, err
}

// ReadabilityExtractor extracts readable article text from HTML.
type ReadabilityExtractor struct {
	MaxChars int
}

// Extract returns the article title and text content.
func (e ReadabilityExtractor) Extract(html, rawURL string) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}
	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return "", "", err
	}
	text := article.TextContent
	if e.MaxChars > 0 && len(text) > e.MaxChars {
		text = text[:e.MaxChars]
	}
	return strings.TrimSpace(article.Title), strings.TrimSpace(text), nil
}
