package embed

import (
	"context"
	"fmt"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// CachedProvider resolves record-title vectors through an embedding cache,
// calling the underlying provider only for cache misses. Vectors are keyed by
// record ID, so a title change under the same ID reuses the stale vector
// until the cache entry expires.
type CachedProvider struct {
	provider Provider
	cache    domain.EmbeddingCache
}

// NewCachedProvider wraps provider with cache.
func NewCachedProvider(provider Provider, cache domain.EmbeddingCache) *CachedProvider {
	return &CachedProvider{provider: provider, cache: cache}
}

// Vectors returns an embedding per record ID for the given canonical titles.
// ids and titles run in parallel. A provider failure is returned as-is; cache
// write failures are swallowed since the vectors themselves are already in
// hand.
func (c *CachedProvider) Vectors(ctx context.Context, ids, titles []string) (map[string][]float64, error) {
	if len(ids) != len(titles) {
		return nil, fmt.Errorf("embed: %d ids for %d titles", len(ids), len(titles))
	}
	if len(ids) == 0 {
		return map[string][]float64{}, nil
	}

	cached, err := c.cache.GetVectors(ctx, ids)
	if err != nil {
		// A cold or unreachable cache degrades to computing everything.
		cached = map[string][]float64{}
	}

	var missIDs, missTitles []string
	for i, id := range ids {
		if _, ok := cached[id]; !ok {
			missIDs = append(missIDs, id)
			missTitles = append(missTitles, titles[i])
		}
	}
	if len(missIDs) == 0 {
		return cached, nil
	}

	vecs, err := c.provider.Embed(ctx, missTitles)
	if err != nil {
		return nil, fmt.Errorf("embed: compute %d missing vectors: %w", len(missIDs), err)
	}
	if len(vecs) != len(missIDs) {
		return nil, fmt.Errorf("embed: provider returned %d vectors for %d texts", len(vecs), len(missIDs))
	}

	for i, id := range missIDs {
		cached[id] = vecs[i]
		_ = c.cache.SetVector(ctx, id, vecs[i])
	}
	return cached, nil
}
