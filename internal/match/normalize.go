package match

import (
	"math"
	"strings"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// titleReplacer maps title punctuation to spaces so that "Will X win?" and
// "Will X win" compare equal after whitespace collapsing.
var titleReplacer = strings.NewReplacer(
	"?", " ",
	"!", " ",
	",", " ",
	".", " ",
	":", " ",
	";", " ",
	"(", " ",
	")", " ",
	"[", " ",
	"]", " ",
)

// CanonicalTitle lower-cases a title, replaces punctuation with spaces, and
// collapses runs of whitespace. It is idempotent: applying it to its own
// output returns the same string.
func CanonicalTitle(title string) string {
	t := strings.ToLower(title)
	t = titleReplacer.Replace(t)
	return strings.Join(strings.Fields(t), " ")
}

// Normalize canonicalizes a raw record for comparison. It is a total
// function: a missing or out-of-range price is clamped into [0,1] and a
// missing title becomes the empty string, which scores 0 against everything
// and therefore never joins a group.
func Normalize(raw domain.RawRecord) domain.NormalizedRecord {
	n := domain.NormalizedRecord{
		Raw:        raw,
		ID:         raw.ID(),
		CanonTitle: CanonicalTitle(raw.Title),
	}
	if raw.Price != nil && !math.IsNaN(*raw.Price) {
		n.HasPrice = true
		n.Price = domain.ClampPrice(*raw.Price)
	}
	return n
}

// NormalizeAll normalizes a batch of records, preserving order.
func NormalizeAll(records []domain.RawRecord) []domain.NormalizedRecord {
	out := make([]domain.NormalizedRecord, 0, len(records))
	for _, r := range records {
		out = append(out, Normalize(r))
	}
	return out
}
