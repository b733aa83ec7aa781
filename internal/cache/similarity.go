package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"unicode"
)

// DuplicateThreshold is the normalized-token overlap above which two items
// are treated as near-duplicates. The metric is Jaccard similarity over
// token sets, which is deterministic and symmetric.
const DuplicateThreshold = 0.9

var trackingQueryParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"igshid":       {},
}

// CanonicalURL normalises a URL string for comparison: lowercased scheme and
// host, https default, fragment dropped, tracking query parameters removed
// and the rest sorted deterministically.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if parsed.Scheme == "" && parsed.Host == "" {
		if parsed, err = url.Parse("https://" + raw); err != nil {
			return "", err
		}
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Host == "" {
		return "", errors.New("url missing host")
	}
	if h, p, ok := strings.Cut(parsed.Host, ":"); ok {
		if (parsed.Scheme == "http" && p == "80") || (parsed.Scheme == "https" && p == "443") {
			parsed.Host = h
		}
	}
	if parsed.Path == "" {
		parsed.Path = "/"
	}
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		if _, drop := trackingQueryParams[strings.ToLower(key)]; drop {
			query.Del(key)
		}
	}
	if len(query) == 0 {
		parsed.RawQuery = ""
	} else {
		parsed.RawQuery = query.Encode() // Encode sorts keys
	}
	return parsed.String(), nil
}

// KeyHash returns a deterministic SHA-256 hex digest for a cache key
// (normalized query or canonical URL).
func KeyHash(key string) string {
	norm := strings.ToLower(strings.TrimSpace(key))
	sum := sha256.Sum256([]byte(norm))
	return hex.EncodeToString(sum[:])
}

// NormalizeTokens case-folds the text, strips punctuation and collapses
// whitespace, returning the resulting token list.
func NormalizeTokens(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Fields(b.String())
}

// Similarity computes Jaccard similarity between the normalized token sets
// of a and b. Returns a value in [0,1]; symmetric in its arguments. Empty
// token sets carry no evidence of duplication, so they never match anything,
// including each other.
func Similarity(a, b string) float64 {
	setA := tokenSet(NormalizeTokens(a))
	setB := tokenSet(NormalizeTokens(b))
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}
	inter := 0
	for tok := range setA {
		if _, ok := setB[tok]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
