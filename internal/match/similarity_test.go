package match

import (
	"math"
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

func normRec(site domain.Site, id, title string) domain.NormalizedRecord {
	return Normalize(domain.RawRecord{Site: site, ProductID: id, Title: title})
}

func TestTokenSetRatio(t *testing.T) {
	t.Run("identical titles score 1", func(t *testing.T) {
		if got := tokenSetRatio("btc above 100k", "btc above 100k"); got != 1 {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("word reorderings score 1", func(t *testing.T) {
		if got := tokenSetRatio("wins trump 2028", "trump wins 2028"); got != 1 {
			t.Fatalf("got %v", got)
		}
	})

	t.Run("empty title scores 0", func(t *testing.T) {
		if got := tokenSetRatio("", "anything"); got != 0 {
			t.Fatalf("got %v", got)
		}
		if got := tokenSetRatio("", ""); got != 0 {
			t.Fatalf("empty vs empty = %v", got)
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		a, b := "fed cuts rates in march", "fed rate cut march decision"
		if tokenSetRatio(a, b) != tokenSetRatio(b, a) {
			t.Fatal("not symmetric")
		}
	})

	t.Run("unrelated titles score low", func(t *testing.T) {
		got := tokenSetRatio("will it rain in london", "btc above 100k by june")
		if got >= 0.5 {
			t.Fatalf("got %v, want < 0.5", got)
		}
	})

	t.Run("superset phrasing scores high", func(t *testing.T) {
		got := tokenSetRatio("trump wins 2028", "will trump wins 2028 election happen")
		if got < 0.9 {
			t.Fatalf("got %v, want >= 0.9", got)
		}
	})
}

func TestIndelRatio(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want float64
	}{
		{"both empty", "", "", 1},
		{"one empty", "abc", "", 0},
		{"equal", "abc", "abc", 1},
		{"disjoint", "abc", "xyz", 0},
		{"partial", "abcd", "abxd", 0.75},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := indelRatio(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("indelRatio(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{1, 2, 3}, []float64{1, 2, 3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0},
		{"zero vector", []float64{0, 0}, []float64{1, 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := cosineSimilarity(tc.a, tc.b)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestScorer(t *testing.T) {
	a := normRec(domain.SitePolymarket, "1", "btc above 100k")
	b := normRec(domain.SiteManifold, "2", "btc above 100k")

	t.Run("lexical only when semantic disabled", func(t *testing.T) {
		s := NewScorer(DefaultConfig(), map[string][]float64{
			a.ID: {1, 0},
			b.ID: {0, 1},
		})
		if got := s.Score(a, b); got != 1 {
			t.Fatalf("got %v, want 1 (vectors must be ignored)", got)
		}
	})

	t.Run("blends cosine when enabled", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SemanticEnabled = true
		cfg.SemanticWeight = 0.5
		s := NewScorer(cfg, map[string][]float64{
			a.ID: {1, 0},
			b.ID: {0, 1},
		})
		// lex 1.0 at weight 0.5, cosine 0 at weight 0.5.
		if got := s.Score(a, b); math.Abs(got-0.5) > 1e-9 {
			t.Fatalf("got %v, want 0.5", got)
		}
	})

	t.Run("degrades to lexical when a vector is missing", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SemanticEnabled = true
		s := NewScorer(cfg, map[string][]float64{a.ID: {1, 0}})
		if got := s.Score(a, b); got != 1 {
			t.Fatalf("got %v, want 1", got)
		}
	})

	t.Run("negative cosine floored at zero", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SemanticEnabled = true
		cfg.SemanticWeight = 0
		s := NewScorer(cfg, map[string][]float64{
			a.ID: {1, 0},
			b.ID: {-1, 0},
		})
		if got := s.Score(a, b); got != 0 {
			t.Fatalf("got %v, want 0", got)
		}
	})

	t.Run("score stays within bounds", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.SemanticEnabled = true
		cfg.SemanticWeight = 0.7
		s := NewScorer(cfg, map[string][]float64{
			a.ID: {3, 4},
			b.ID: {3, 4},
		})
		got := s.Score(a, b)
		if got < 0 || got > 1 {
			t.Fatalf("score %v outside [0,1]", got)
		}
	})
}
