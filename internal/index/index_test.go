package index

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/polisight/internal/item"
)

func TestAddAndSearch(t *testing.T) {
	t.Parallel()
	x, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := x.AddBatch([]item.RawItem{
		{ID: "1", SourceID: "media-1", URL: "https://example.com/1", Title: "Cabinet approval climbs", Text: "the latest poll shows cabinet approval climbing"},
		{ID: "2", SourceID: "media-2", URL: "https://example.com/2", Title: "Budget talks stall", Text: "coalition budget negotiations stall again"},
		{ID: "3", SourceID: "social-1", URL: "https://example.com/3", Title: "Reaction thread", Text: "everyone is talking about the approval numbers"},
	}); err != nil {
		t.Fatalf("AddBatch() error = %v", err)
	}
	if x.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", x.Len())
	}

	hits, err := x.Search("approval", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
	for i, h := range hits {
		if h.Rank != i+1 {
			t.Fatalf("Rank = %d at position %d", h.Rank, i)
		}
		if h.URL == "" || h.SourceID == "" {
			t.Fatalf("hit missing metadata: %+v", h)
		}
	}
}

func TestSearchHonorsLimit(t *testing.T) {
	t.Parallel()
	x, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := x.Add(item.RawItem{ID: id, Title: "election update " + id, Text: "election coverage"}); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	hits, err := x.Search("election", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("len(hits) = %d, want 2", len(hits))
	}
}

func TestAddReplacesDocument(t *testing.T) {
	t.Parallel()
	x, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := x.Add(item.RawItem{ID: "1", Title: "old headline", Text: "stale text"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if err := x.Add(item.RawItem{ID: "1", Title: "revised headline", Text: "updated text"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if x.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 after replacement", x.Len())
	}
	hits, err := x.Search("revised", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 || hits[0].Title != "revised headline" {
		t.Fatalf("hits = %+v, want the revised document", hits)
	}
}

func TestSnippetTruncation(t *testing.T) {
	t.Parallel()
	x, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	long := strings.Repeat("parliament session coverage ", 20)
	if err := x.Add(item.RawItem{ID: "1", Title: "long read", Text: long}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	hits, err := x.Search("parliament", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("len(hits) = %d, want 1", len(hits))
	}
	if !strings.HasSuffix(hits[0].Snippet, "…") || len(hits[0].Snippet) > len(long) {
		t.Fatalf("snippet not truncated: %q", hits[0].Snippet)
	}
}
