package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// RunStore implements domain.RunStore using PostgreSQL.
type RunStore struct {
	pool *pgxpool.Pool
}

// NewRunStore creates a new RunStore backed by the given connection pool.
func NewRunStore(pool *pgxpool.Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Create inserts a new pipeline run, typically in the running state.
func (s *RunStore) Create(ctx context.Context, run domain.PipelineRun) error {
	const query = `
		INSERT INTO pipeline_runs (id, status, record_count, group_count, row_count, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.RecordCount, run.GroupCount, run.RowCount,
		run.Error, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: create run %s: %w", run.ID, err)
	}
	return nil
}

// Finish updates a run's terminal state and counters.
func (s *RunStore) Finish(ctx context.Context, run domain.PipelineRun) error {
	const query = `
		UPDATE pipeline_runs SET
			status       = $2,
			record_count = $3,
			group_count  = $4,
			row_count    = $5,
			error        = $6,
			finished_at  = $7
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		run.ID, string(run.Status), run.RecordCount, run.GroupCount, run.RowCount,
		run.Error, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: finish run %s: %w", run.ID, domain.ErrNotFound)
	}
	return nil
}

const runCols = `id, status, record_count, group_count, row_count, error, started_at, finished_at`

func scanRun(row pgx.Row) (domain.PipelineRun, error) {
	var r domain.PipelineRun
	var status string
	err := row.Scan(&r.ID, &status, &r.RecordCount, &r.GroupCount, &r.RowCount,
		&r.Error, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		return domain.PipelineRun{}, err
	}
	r.Status = domain.RunStatus(status)
	return r, nil
}

// GetByID retrieves a run by its primary key.
func (s *RunStore) GetByID(ctx context.Context, id string) (domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runCols+` FROM pipeline_runs WHERE id = $1`, id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PipelineRun{}, domain.ErrNotFound
		}
		return domain.PipelineRun{}, fmt.Errorf("postgres: get run %s: %w", id, err)
	}
	return r, nil
}

// GetLatest retrieves the most recently started run.
func (s *RunStore) GetLatest(ctx context.Context) (domain.PipelineRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runCols+` FROM pipeline_runs ORDER BY started_at DESC LIMIT 1`)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PipelineRun{}, domain.ErrNotFound
		}
		return domain.PipelineRun{}, fmt.Errorf("postgres: get latest run: %w", err)
	}
	return r, nil
}

// List returns runs newest first, with pagination and optional time filtering.
func (s *RunStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.PipelineRun, error) {
	query := `SELECT ` + runCols + ` FROM pipeline_runs`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" WHERE started_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY started_at DESC"

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
		return nil, fmt.Errorf("postgres: list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.PipelineRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: run rows: %w", err)
	}
	return runs, nil
}

// Compile-time interface check.
var _ domain.RunStore = (*RunStore)(nil)
