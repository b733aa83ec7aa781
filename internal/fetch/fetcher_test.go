package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammad-safakhou/polisight/internal/source"
)

func testSource(id, endpoint string) source.Source {
	return source.Source{
		ID:          id,
		Category:    source.CategoryMedia,
		Endpoint:    endpoint,
		Weight:      0.8,
		MinInterval: time.Millisecond,
		MaxRetries:  2,
	}
}

func TestFetchParsesWireItems(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "cabinet approval" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"A","url":"https://example.com/a","text":"cabinet approval rises","published_at":"2026-08-01T10:00:00Z"},
			{"title":"","url":"https://example.com/empty","text":"","published_at":"2026-08-01T09:00:00Z"},
			{"title":"B","url":"https://example.com/b","text":"new poll released","published_at":"2026-08-02T10:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), testSource("media-1", srv.URL), Request{Query: "cabinet approval"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2 (empty item skipped)", len(items))
	}
	for _, it := range items {
		if it.SourceID != "media-1" || it.Category != source.CategoryMedia {
			t.Fatalf("provenance not tagged: %+v", it)
		}
		if it.ID == "" || it.CollectedAt.IsZero() {
			t.Fatalf("identity/collection time missing: %+v", it)
		}
	}
}

func TestFetchBlockedNotRetried(t *testing.T) {
	t.Parallel()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), testSource("gov-1", srv.URL), Request{Query: "budget"})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindBlocked {
		t.Fatalf("Fetch() error = %v, want blocked", err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("server calls = %d, want 1 (blocked is terminal)", got)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	t.Parallel()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"items":[{"title":"ok","url":"https://example.com/x","text":"content","published_at":"2026-08-01T00:00:00Z"}]}`))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), testSource("media-2", srv.URL), Request{Query: "poll"})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if got := atomic.LoadInt64(&calls); got != 3 {
		t.Fatalf("server calls = %d, want 3", got)
	}
}

func TestFetchMalformedBody(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), testSource("media-3", srv.URL), Request{Query: "poll"})
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindMalformed {
		t.Fatalf("Fetch() error = %v, want malformed", err)
	}
}

func TestFetchRespectsMaxResults(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[
			{"title":"1","url":"u1","text":"a","published_at":"2026-08-01T00:00:00Z"},
			{"title":"2","url":"u2","text":"b","published_at":"2026-08-01T00:00:00Z"},
			{"title":"3","url":"u3","text":"c","published_at":"2026-08-01T00:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	f := NewFetcher(5 * time.Second)
	items, err := f.Fetch(context.Background(), testSource("media-4", srv.URL), Request{Query: "q", MaxResults: 2})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
}
