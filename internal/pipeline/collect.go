// Package pipeline coordinates the collect-and-unify cycle: fetch records
// from every enabled site, cluster them into unified groups, persist the
// results, and fan out run events.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Collector retrieves the current listings from one prediction site. The
// platform clients implement it.
type Collector interface {
	Site() domain.Site
	Fetch(ctx context.Context, limit int) ([]domain.RawRecord, error)
}

// CollectRunner fans out to all site collectors concurrently, persists what
// it gets, and tolerates partial failure: a site that is down contributes
// its cached records when available, or nothing.
type CollectRunner struct {
	collectors []Collector
	records    domain.RecordStore
	cache      domain.RecordCache
	limiter    domain.RateLimiter
	ratePerMin int
	fetchLimit int
	logger     *slog.Logger
}

// NewCollectRunner creates a CollectRunner. cache and limiter may be nil.
func NewCollectRunner(
	collectors []Collector,
	records domain.RecordStore,
	cache domain.RecordCache,
	limiter domain.RateLimiter,
	ratePerMin int,
	fetchLimit int,
	logger *slog.Logger,
) *CollectRunner {
	return &CollectRunner{
		collectors: collectors,
		records:    records,
		cache:      cache,
		limiter:    limiter,
		ratePerMin: ratePerMin,
		fetchLimit: fetchLimit,
		logger:     logger.With(slog.String("component", "collect")),
	}
}

// Run fetches from every site concurrently and returns the combined records.
// It fails only when every site fails and no cached fallback exists; partial
// outages are logged and the cycle continues with what was gathered.
func (r *CollectRunner) Run(ctx context.Context) ([]domain.RawRecord, error) {
	if len(r.collectors) == 0 {
		return nil, fmt.Errorf("pipeline: no collectors configured")
	}

	var (
		mu       sync.Mutex
		all      []domain.RawRecord
		siteErrs []error
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, c := range r.collectors {
		g.Go(func() error {
			records, err := r.collectSite(ctx, c)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				siteErrs = append(siteErrs, err)
				return nil
			}
			all = append(all, records...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("pipeline: collect: %w", err)
	}

	if len(siteErrs) == len(r.collectors) {
		return nil, fmt.Errorf("pipeline: all sites failed: %w", errors.Join(siteErrs...))
	}

	if r.records != nil && len(all) > 0 {
		if err := r.records.UpsertBatch(ctx, all); err != nil {
			return nil, fmt.Errorf("pipeline: persist records: %w", err)
		}
	}

	r.logger.InfoContext(ctx, "collect complete",
		slog.Int("records", len(all)),
		slog.Int("sites_failed", len(siteErrs)),
	)
	return all, nil
}

// collectSite fetches one site's records, respecting the shared rate limit,
// and refreshes the cache on success. On failure it falls back to the cached
// snapshot so a transient outage does not drop the site from the run.
func (r *CollectRunner) collectSite(ctx context.Context, c Collector) ([]domain.RawRecord, error) {
	site := c.Site()
	logger := r.logger.With(slog.String("site", string(site)))

	if r.limiter != nil && r.ratePerMin > 0 {
		key := "collect:" + string(site)
		allowed, err := r.limiter.Allow(ctx, key, r.ratePerMin, time.Minute)
		if err != nil {
			// Fail open; the limiter protects upstream APIs, it is not
			// load-bearing for correctness.
			logger.WarnContext(ctx, "rate limiter unavailable", slog.String("error", err.Error()))
		} else if !allowed {
			logger.WarnContext(ctx, "rate limited, using cached records")
			return r.cachedSite(ctx, site)
		}
	}

	records, err := c.Fetch(ctx, r.fetchLimit)
	if err != nil {
		logger.ErrorContext(ctx, "fetch failed, trying cache", slog.String("error", err.Error()))
		if cached, cacheErr := r.cachedSite(ctx, site); cacheErr == nil {
			return cached, nil
		}
		return nil, fmt.Errorf("collect %s: %w", site, err)
	}

	logger.InfoContext(ctx, "fetched records", slog.Int("count", len(records)))

	if r.cache != nil && len(records) > 0 {
		if err := r.cache.SetBatch(ctx, site, records); err != nil {
			logger.WarnContext(ctx, "cache refresh failed", slog.String("error", err.Error()))
		}
	}
	return records, nil
}

// cachedSite returns the cached snapshot for a site, or an error when the
// cache is absent or empty.
func (r *CollectRunner) cachedSite(ctx context.Context, site domain.Site) ([]domain.RawRecord, error) {
	if r.cache == nil {
		return nil, fmt.Errorf("collect %s: no cache configured: %w", site, domain.ErrNotFound)
	}
	records, err := r.cache.GetBySite(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("collect %s: cache read: %w", site, err)
	}
	return records, nil
}
