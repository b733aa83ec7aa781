package source

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Category is the closed set of source categories the system collects from.
type Category string

const (
	CategoryGovernment Category = "government"
	CategoryParty      Category = "party"
	CategoryMedia      Category = "media"
	CategorySocial     Category = "social"
)

// Categories lists every valid category in a fixed order.
func Categories() []Category {
	return []Category{CategoryGovernment, CategoryParty, CategoryMedia, CategorySocial}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryGovernment, CategoryParty, CategoryMedia, CategorySocial:
		return true
	}
	return false
}

// Source is an immutable configuration entity describing one named,
// independently rate-limited origin of political content. Created at startup,
// never mutated afterwards.
type Source struct {
	ID          string        `json:"id"`
	Category    Category      `json:"category"`
	Endpoint    string        `json:"endpoint"`
	Weight      float64       `json:"weight"`       // base reliability weight in [0,1]
	MinInterval time.Duration `json:"min_interval"` // minimum gap between requests
	MaxRetries  int           `json:"max_retries"`
	Rendered    bool          `json:"rendered"` // requires a headless-browser fetch
}

// Validate checks a single source definition.
func (s Source) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("source id required")
	}
	if !s.Category.Valid() {
		return fmt.Errorf("source %s: unknown category %q", s.ID, s.Category)
	}
	if s.Weight < 0 || s.Weight > 1 {
		return fmt.Errorf("source %s: weight must be in [0,1], got %v", s.ID, s.Weight)
	}
	if s.MinInterval <= 0 {
		return fmt.Errorf("source %s: min_interval must be positive", s.ID)
	}
	if s.MaxRetries < 0 {
		return fmt.Errorf("source %s: max_retries cannot be negative", s.ID)
	}
	return nil
}

// Registry holds the validated, read-only set of configured sources.
type Registry struct {
	byID map[string]Source
}

// NewRegistry validates the given sources and builds a registry.
// At least one source is required; duplicate IDs are rejected.
func NewRegistry(sources []Source) (*Registry, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no sources configured")
	}
	byID := make(map[string]Source, len(sources))
	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, ok := byID[s.ID]; ok {
			return nil, fmt.Errorf("duplicate source id %q", s.ID)
		}
		byID[s.ID] = s
	}
	return &Registry{byID: byID}, nil
}

// Get returns the source with the given id.
func (r *Registry) Get(id string) (Source, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// All returns every configured source ordered by id.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByCategory returns the sources belonging to the given category, ordered by id.
func (r *Registry) ByCategory(c Category) []Source {
	var out []Source
	for _, s := range r.All() {
		if s.Category == c {
			out = append(out, s)
		}
	}
	return out
}

// Len returns the number of configured sources.
func (r *Registry) Len() int { return len(r.byID) }
