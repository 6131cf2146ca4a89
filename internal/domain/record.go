package domain

import (
	"math"
	"time"
)

// RawRecord is a single market listing as collected from one site. It is
// immutable once produced by a collector; the matcher never mutates it.
type RawRecord struct {
	Site        Site
	ProductID   string // site-local identifier, unique within the site
	Title       string
	Price       *float64 // probability in [0,1] when the site reports one
	URL         string
	Metadata    map[string]string // category, volume, close-date, ...
	CollectedAt time.Time
}

// ID returns the cross-site record identifier "site:product_id".
func (r RawRecord) ID() string {
	return string(r.Site) + ":" + r.ProductID
}

// NormalizedRecord is a RawRecord with canonical comparison fields attached.
// One NormalizedRecord exists per RawRecord for the lifetime of a run.
type NormalizedRecord struct {
	Raw RawRecord

	// ID is Raw.ID(), cached because grouping keys on it constantly.
	ID string

	// CanonTitle is the lower-cased, punctuation-stripped, whitespace-
	// collapsed title used for similarity scoring.
	CanonTitle string

	// Price is the canonical price clamped to [0,1]; 0 when HasPrice is
	// false.
	Price    float64
	HasPrice bool
}

// ClampPrice forces p into [0,1]. NaN is treated as the lower bound.
func ClampPrice(p float64) float64 {
	switch {
	case math.IsNaN(p), p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}
