package cache

import (
	"math"
	"strings"
	"testing"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "defaults https for schemeless url",
			in:   "Example.com/news/article",
			want: "https://example.com/news/article",
		},
		{
			name: "drops default port and tracking params",
			in:   "http://news.example.com:80/article?id=123&utm_source=rss#section",
			want: "http://news.example.com/article?id=123",
		},
		{
			name: "sorts remaining query parameters",
			in:   "https://example.com/path?b=2&a=1&fbclid=xyz",
			want: "https://example.com/path?a=1&b=2",
		},
		{
			name: "lowercases host only",
			in:   "HTTPS://Example.COM/Article/Path",
			want: "https://example.com/Article/Path",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CanonicalURL(tt.in)
			if err != nil {
				t.Fatalf("CanonicalURL() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("CanonicalURL() got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCanonicalURLRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := CanonicalURL("   "); err == nil {
		t.Fatal("CanonicalURL(blank) = nil error")
	}
}

func TestNormalizeTokens(t *testing.T) {
	t.Parallel()
	got := NormalizeTokens("The Cabinet's  approval, rating: ROSE!")
	want := []string{"the", "cabinet", "s", "approval", "rating", "rose"}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Fatalf("NormalizeTokens() = %v, want %v", got, want)
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "cabinet approval rises", b: "cabinet approval rises", want: 1.0},
		{name: "case and punctuation ignored", a: "Cabinet Approval Rises!", b: "cabinet approval rises", want: 1.0},
		{name: "disjoint", a: "election results", b: "cabinet approval", want: 0.0},
		{name: "both empty", a: "", b: "", want: 0.0},
		{name: "one empty", a: "poll", b: "", want: 0.0},
		{name: "partial overlap", a: "a b c d", b: "a b c e", want: 3.0 / 5.0},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Similarity() = %v, want %v", got, tt.want)
			}
			if back := Similarity(tt.b, tt.a); back != got {
				t.Fatalf("Similarity not symmetric: %v vs %v", got, back)
			}
		})
	}
}

func TestSimilarityThreshold(t *testing.T) {
	t.Parallel()
	// 8 shared tokens out of a 9-token union is below the 0.9 threshold;
	// 19 of 20 is above it.
	base := "t1 t2 t3 t4 t5 t6 t7 t8"
	below := Similarity(base, base+" extra")
	if below >= DuplicateThreshold {
		t.Fatalf("Similarity = %v, want < %v", below, DuplicateThreshold)
	}
	long := "t1 t2 t3 t4 t5 t6 t7 t8 t9 t10 t11 t12 t13 t14 t15 t16 t17 t18 t19"
	above := Similarity(long, long+" extra")
	if above < DuplicateThreshold {
		t.Fatalf("Similarity = %v, want >= %v", above, DuplicateThreshold)
	}
}

func TestKeyHashDeterministic(t *testing.T) {
	t.Parallel()
	if KeyHash(" Cabinet Approval ") != KeyHash("cabinet approval") {
		t.Fatal("KeyHash not normalized")
	}
	if KeyHash("a") == KeyHash("b") {
		t.Fatal("distinct keys collide")
	}
}
