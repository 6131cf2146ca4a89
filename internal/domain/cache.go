package domain

import (
	"context"
	"time"
)

// RecordCache provides fast access to the latest collected records per site.
type RecordCache interface {
	SetBatch(ctx context.Context, site Site, records []RawRecord) error
	GetBySite(ctx context.Context, site Site) ([]RawRecord, error)
	Invalidate(ctx context.Context, site Site) error
}

// EmbeddingCache stores title embedding vectors keyed by record ID so that
// repeated runs do not recompute vectors for unchanged titles.
type EmbeddingCache interface {
	SetVector(ctx context.Context, recordID string, vec []float64) error
	GetVector(ctx context.Context, recordID string) ([]float64, error)
	GetVectors(ctx context.Context, recordIDs []string) (map[string][]float64, error)
}

// RateLimiter provides distributed rate limiting for the site collectors.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}

// ChannelRuns is the signal bus channel carrying RunEvent payloads.
const ChannelRuns = "runs"

// SignalBus provides pub/sub messaging between the pipeline and the API
// server's websocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
