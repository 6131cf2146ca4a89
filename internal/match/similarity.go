package match

import (
	"math"
	"sort"
	"strings"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Scorer computes pairwise similarity between normalized records. The
// lexical term is a token-set ratio over canonical titles; when semantic
// blending is enabled and both records have an embedding vector, the cosine
// similarity of the vectors is blended in. The scorer is site-agnostic:
// same-site exclusion is the grouping engine's job.
type Scorer struct {
	semantic   bool
	weight     float64
	embeddings map[string][]float64
}

// NewScorer creates a Scorer. embeddings maps record IDs to title vectors
// and may be nil; scoring then degrades to the lexical term alone.
func NewScorer(cfg Config, embeddings map[string][]float64) *Scorer {
	return &Scorer{
		semantic:   cfg.SemanticEnabled,
		weight:     cfg.SemanticWeight,
		embeddings: embeddings,
	}
}

// Score returns the similarity of a and b in [0,1]. It is symmetric.
func (s *Scorer) Score(a, b domain.NormalizedRecord) float64 {
	lex := tokenSetRatio(a.CanonTitle, b.CanonTitle)
	if !s.semantic {
		return lex
	}

	va, okA := s.embeddings[a.ID]
	vb, okB := s.embeddings[b.ID]
	if !okA || !okB {
		return lex
	}

	cos := cosineSimilarity(va, vb)
	if cos < 0 {
		cos = 0
	}
	blended := s.weight*lex + (1-s.weight)*cos
	if blended > 1 {
		blended = 1
	}
	return blended
}

// tokenSetRatio compares two canonical titles by splitting them into token
// sets and scoring the intersection against each side's remainder, taking
// the best of the three pairings. Titles that are word reorderings of each
// other score 1.0; an empty title scores 0 against everything.
func tokenSetRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	setA := tokenSet(a)
	setB := tokenSet(b)

	var inter, diffA, diffB []string
	for _, t := range setA {
		if contains(setB, t) {
			inter = append(inter, t)
		} else {
			diffA = append(diffA, t)
		}
	}
	for _, t := range setB {
		if !contains(setA, t) {
			diffB = append(diffB, t)
		}
	}

	base := strings.Join(inter, " ")
	combA := joinSections(base, strings.Join(diffA, " "))
	combB := joinSections(base, strings.Join(diffB, " "))

	best := indelRatio(combA, combB)
	if base != "" {
		if r := indelRatio(base, combA); r > best {
			best = r
		}
		if r := indelRatio(base, combB); r > best {
			best = r
		}
	}
	return best
}

// tokenSet returns the sorted, de-duplicated tokens of a canonical title.
func tokenSet(s string) []string {
	fields := strings.Fields(s)
	seen := make(map[string]bool, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	sort.Strings(out)
	return out
}

func contains(sorted []string, t string) bool {
	i := sort.SearchStrings(sorted, t)
	return i < len(sorted) && sorted[i] == t
}

func joinSections(base, rest string) string {
	switch {
	case base == "":
		return rest
	case rest == "":
		return base
	default:
		return base + " " + rest
	}
}

// indelRatio is the normalized insert/delete similarity of two strings:
// 2*LCS / (len(a)+len(b)), computed over runes. Two empty strings are
// identical (1.0).
func indelRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Single-row LCS dynamic program.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]

	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// cosineSimilarity returns the cosine of two vectors, or 0 when either has
// zero magnitude or the lengths differ.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
