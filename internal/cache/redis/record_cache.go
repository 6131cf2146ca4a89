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

const recordTTL = 30 * time.Minute

// RecordCache implements domain.RecordCache using one Redis hash per site
// with JSON-serialized records, so the API server can answer "latest listings
// for site X" without touching Postgres.
//
// Key schema:
//
//	records:{site}       - hash of product_id -> JSON RawRecord
//	records:{site}:at    - string RFC3339 timestamp of the last SetBatch
type RecordCache struct {
	rdb *redis.Client
}

// NewRecordCache creates a RecordCache backed by the given Client.
func NewRecordCache(c *Client) *RecordCache {
	return &RecordCache{rdb: c.Underlying()}
}

func recordsKey(site domain.Site) string   { return "records:" + string(site) }
func recordsAtKey(site domain.Site) string { return "records:" + string(site) + ":at" }

// SetBatch replaces the cached record set for a site. The old hash is dropped
// in the same transaction so a crash cannot leave a half-replaced snapshot.
func (rc *RecordCache) SetBatch(ctx context.Context, site domain.Site, records []domain.RawRecord) error {
	fields := make(map[string]interface{}, len(records))
	for i := range records {
		data, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("redis: marshal record %s: %w", records[i].ID(), err)
		}
		fields[records[i].ProductID] = data
	}

	key := recordsKey(site)

	pipe := rc.rdb.TxPipeline()
	pipe.Del(ctx, key)
	if len(fields) > 0 {
		pipe.HSet(ctx, key, fields)
	}
	pipe.Expire(ctx, key, recordTTL)
	pipe.Set(ctx, recordsAtKey(site), time.Now().UTC().Format(time.RFC3339), recordTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set records for %s: %w", site, err)
	}
	return nil
}

// GetBySite returns the cached record set for a site. It returns
// domain.ErrNotFound when no snapshot is cached.
func (rc *RecordCache) GetBySite(ctx context.Context, site domain.Site) ([]domain.RawRecord, error) {
	fields, err := rc.rdb.HGetAll(ctx, recordsKey(site)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get records for %s: %w", site, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	records := make([]domain.RawRecord, 0, len(fields))
	for id, data := range fields {
		var rec domain.RawRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("redis: unmarshal record %s:%s: %w", site, id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Invalidate removes the cached record set for a site.
func (rc *RecordCache) Invalidate(ctx context.Context, site domain.Site) error {
	if err := rc.rdb.Del(ctx, recordsKey(site), recordsAtKey(site)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate records for %s: %w", site, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.RecordCache = (*RecordCache)(nil)
