package index

import (
	"sync"

	"github.com/blevesearch/bleve"

	"github.com/mohammad-safakhou/polisight/internal/item"
)

// Hit is one full-text search result.
type Hit struct {
	ID       string  `json:"id"`
	SourceID string  `json:"source_id"`
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	Snippet  string  `json:"snippet"`
	Score    float64 `json:"score"`
	Rank     int     `json:"rank"`
}

// Index is an in-memory full-text index over collected items.
type Index struct {
	bleve bleve.Index
	meta  map[string]item.RawItem
	mu    sync.RWMutex
}

// indexDoc limits indexing to the searchable text fields.
type indexDoc struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// New builds an empty in-memory index.
func New() (*Index, error) {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, err
	}
	return &Index{bleve: idx, meta: make(map[string]item.RawItem)}, nil
}

// Add indexes one item, replacing any prior document with the same ID.
func (x *Index) Add(it item.RawItem) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.meta[it.ID] = it
	return x.bleve.Index(it.ID, indexDoc{Title: it.Title, Text: it.Text})
}

// AddBatch indexes a list of items, stopping at the first failure.
func (x *Index) AddBatch(items []item.RawItem) error {
	for _, it := range items {
		if err := x.Add(it); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of indexed items.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.meta)
}

// Search runs a query-string search and returns up to k ranked hits.
func (x *Index) Search(q string, k int) ([]Hit, error) {
	query := bleve.NewQueryStringQuery(q)
	searchReq := bleve.NewSearchRequestOptions(query, k*3, 0, false)
	res, err := x.bleve.Search(searchReq)
	if err != nil {
		return nil, err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []Hit
	for i, hit := range res.Hits {
		doc := x.meta[hit.ID]
		out = append(out, Hit{
			ID: hit.ID, SourceID: doc.SourceID, URL: doc.URL, Title: doc.Title,
			Snippet: snippet(doc.Text),
			Score:   hit.Score, Rank: i + 1,
		})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func snippet(text string) string {
	const max = 200
	if len(text) <= max {
		return text
	}
	return text[:max] + "…"
}
