package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// RecordStore implements domain.RecordStore using PostgreSQL.
type RecordStore struct {
	pool *pgxpool.Pool
}

// NewRecordStore creates a new RecordStore backed by the given connection pool.
func NewRecordStore(pool *pgxpool.Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

const upsertRecordQuery = `
	INSERT INTO records (
		site, product_id, title, price, url, metadata, collected_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, NOW()
	)
	ON CONFLICT (site, product_id) DO UPDATE SET
		title        = EXCLUDED.title,
		price        = EXCLUDED.price,
		url          = EXCLUDED.url,
		metadata     = EXCLUDED.metadata,
		collected_at = EXCLUDED.collected_at,
		updated_at   = NOW()`

// UpsertBatch inserts or updates multiple records in a single batch operation.
func (s *RecordStore) UpsertBatch(ctx context.Context, records []domain.RawRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		meta := r.Metadata
		if meta == nil {
			meta = map[string]string{}
		}
		batch.Queue(upsertRecordQuery,
			string(r.Site), r.ProductID, r.Title, r.Price, r.URL, meta, r.CollectedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert record batch item %d: %w", i, err)
		}
	}
	return nil
}

const recordCols = `site, product_id, title, price, url, metadata, collected_at`

func scanRecordRows(rows pgx.Rows) ([]domain.RawRecord, error) {
	var records []domain.RawRecord
	for rows.Next() {
		var r domain.RawRecord
		var site string
		if err := rows.Scan(
			&site, &r.ProductID, &r.Title, &r.Price, &r.URL, &r.Metadata, &r.CollectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		r.Site = domain.Site(site)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: record rows: %w", err)
	}
	return records, nil
}

// ListBySite returns records for one site with pagination and optional time
// filtering on collected_at.
func (s *RecordStore) ListBySite(ctx context.Context, site domain.Site, opts domain.ListOpts) ([]domain.RawRecord, error) {
	query := `SELECT ` + recordCols + ` FROM records WHERE site = $1`
	args := []any{string(site)}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND collected_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND collected_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY collected_at DESC, product_id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records for %s: %w", site, err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// ListBefore returns all records last collected before the given time. The
// retention sweep uses it to find stale listings.
func (s *RecordStore) ListBefore(ctx context.Context, before time.Time) ([]domain.RawRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordCols+` FROM records WHERE collected_at < $1 ORDER BY collected_at`, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records before %s: %w", before, err)
	}
	defer rows.Close()

	return scanRecordRows(rows)
}

// Count returns the total number of records in the database.
func (s *RecordStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count records: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.RecordStore = (*RecordStore)(nil)
