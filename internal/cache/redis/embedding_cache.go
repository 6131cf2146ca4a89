package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/redis/go-redis/v9"
)

// EmbeddingCache implements domain.EmbeddingCache using one Redis string per
// record ID holding the JSON-encoded vector. Vectors are cheap to store and
// expensive to recompute, so the TTL is long.
//
// Key schema:
//
//	embedding:{recordID} - JSON []float64
type EmbeddingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewEmbeddingCache creates an EmbeddingCache backed by the given Client.
// ttl <= 0 falls back to 24 hours.
func NewEmbeddingCache(c *Client, ttl time.Duration) *EmbeddingCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &EmbeddingCache{rdb: c.Underlying(), ttl: ttl}
}

func embeddingKey(recordID string) string { return "embedding:" + recordID }

// SetVector stores a vector for a record ID.
func (ec *EmbeddingCache) SetVector(ctx context.Context, recordID string, vec []float64) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("redis: marshal vector %s: %w", recordID, err)
	}
	if err := ec.rdb.Set(ctx, embeddingKey(recordID), data, ec.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set vector %s: %w", recordID, err)
	}
	return nil
}

// GetVector retrieves the vector for a record ID. It returns
// domain.ErrNotFound when no vector is cached.
func (ec *EmbeddingCache) GetVector(ctx context.Context, recordID string) ([]float64, error) {
	data, err := ec.rdb.Get(ctx, embeddingKey(recordID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get vector %s: %w", recordID, err)
	}

	var vec []float64
	if err := json.Unmarshal(data, &vec); err != nil {
		return nil, fmt.Errorf("redis: unmarshal vector %s: %w", recordID, err)
	}
	return vec, nil
}

// GetVectors retrieves vectors for many record IDs in one MGET. Missing IDs
// are simply absent from the result map; only transport and decode failures
// are errors.
func (ec *EmbeddingCache) GetVectors(ctx context.Context, recordIDs []string) (map[string][]float64, error) {
	if len(recordIDs) == 0 {
		return map[string][]float64{}, nil
	}

	keys := make([]string, len(recordIDs))
	for i, id := range recordIDs {
		keys[i] = embeddingKey(id)
	}

	values, err := ec.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: mget %d vectors: %w", len(keys), err)
	}

	out := make(map[string][]float64, len(recordIDs))
	for i, v := range values {
		if v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			continue
		}
		var vec []float64
		if err := json.Unmarshal([]byte(s), &vec); err != nil {
			return nil, fmt.Errorf("redis: unmarshal vector %s: %w", recordIDs[i], err)
		}
		out[recordIDs[i]] = vec
	}
	return out, nil
}

// Compile-time interface check.
var _ domain.EmbeddingCache = (*EmbeddingCache)(nil)
