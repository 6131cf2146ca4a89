// Package match implements the cross-site record-matching engine: it decides
// which per-site market records denote the same real-world market, merges
// them into groups, and flattens the groups into export rows. The package is
// pure in-memory computation; collectors, stores, and exporters live
// elsewhere.
package match

import (
	"fmt"
	"strings"
)

// SingletonPolicy controls the confidence assigned to groups with a single
// member. A singleton carries no intra-group similarity evidence, so the
// value is a policy decision, not a measurement.
type SingletonPolicy string

const (
	// SingletonNeutralHigh treats an unmatched record as fully confident
	// that it is its own entity (confidence 1.0).
	SingletonNeutralHigh SingletonPolicy = "neutral-high"

	// SingletonFlagLow flags unmatched records with a configurable low
	// confidence so downstream consumers can filter them.
	SingletonFlagLow SingletonPolicy = "flag-low"
)

// Config holds every knob of the matching engine. It is passed explicitly
// into Unify; the package keeps no global state.
type Config struct {
	// Threshold is the minimum pairwise similarity for two records to be
	// considered the same market. Higher values favor precision.
	Threshold float64

	// SingletonPolicy selects the confidence assigned to single-member
	// groups.
	SingletonPolicy SingletonPolicy

	// SingletonLowConfidence is the confidence used under SingletonFlagLow.
	SingletonLowConfidence float64

	// SemanticEnabled blends embedding cosine similarity into the lexical
	// score when vectors are available for both records.
	SemanticEnabled bool

	// SemanticWeight is the weight of the lexical term in the blend; the
	// semantic term receives 1-SemanticWeight.
	SemanticWeight float64

	// Workers bounds the goroutines used for pairwise scoring.
	Workers int
}

// DefaultConfig returns the engine defaults: τ=0.75 favoring precision,
// singletons treated as their own fully-confident entities, semantic
// blending off, an even lexical/semantic split when it is on.
func DefaultConfig() Config {
	return Config{
		Threshold:              0.75,
		SingletonPolicy:        SingletonNeutralHigh,
		SingletonLowConfidence: 0.25,
		SemanticEnabled:        false,
		SemanticWeight:         0.5,
		Workers:                4,
	}
}

// Validate checks the configuration and returns a combined error naming
// every invalid field. It must pass before any record is processed.
func (c Config) Validate() error {
	var errs []string

	if c.Threshold < 0 || c.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("threshold must be within [0,1], got %g", c.Threshold))
	}
	switch c.SingletonPolicy {
	case SingletonNeutralHigh, SingletonFlagLow:
	default:
		errs = append(errs, fmt.Sprintf("singleton_policy must be %q or %q, got %q",
			SingletonNeutralHigh, SingletonFlagLow, c.SingletonPolicy))
	}
	if c.SingletonLowConfidence < 0 || c.SingletonLowConfidence > 1 {
		errs = append(errs, fmt.Sprintf("singleton_low_confidence must be within [0,1], got %g", c.SingletonLowConfidence))
	}
	if c.SemanticWeight < 0 || c.SemanticWeight > 1 {
		errs = append(errs, fmt.Sprintf("semantic_weight must be within [0,1], got %g", c.SemanticWeight))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Sprintf("workers must be >= 1, got %d", c.Workers))
	}

	if len(errs) > 0 {
		return fmt.Errorf("match: invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// singletonConfidence resolves the configured policy to a concrete value.
func (c Config) singletonConfidence() float64 {
	if c.SingletonPolicy == SingletonFlagLow {
		return c.SingletonLowConfidence
	}
	return 1.0
}
