package match

import "github.com/crowdwisdom/marketfuse/internal/domain"

// Result bundles the outputs of one matching run.
type Result struct {
	Records []domain.NormalizedRecord
	Groups  []domain.Group
	Rows    []domain.OutputRow
}

// Unify is the engine entry point: normalize the raw records, cluster them
// across sites, summarize each group, and flatten to output rows.
//
// embeddings maps record IDs ("site:product_id") to title vectors and may be
// nil; scoring then uses the lexical term alone. The only error surface is
// an invalid configuration, which is rejected before any record is touched.
// Malformed record fields are clamped or defaulted, never fatal, and empty
// input produces an empty Result.
func Unify(records []domain.RawRecord, embeddings map[string][]float64, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	normalized := NormalizeAll(records)
	scorer := NewScorer(cfg, embeddings)
	engine := NewEngine(cfg, scorer)

	groups := engine.Group(normalized)
	for i := range groups {
		groups[i] = engine.Summarize(groups[i])
	}

	return &Result{
		Records: normalized,
		Groups:  groups,
		Rows:    Aggregate(groups),
	}, nil
}
