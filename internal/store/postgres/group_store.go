package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// GroupStore implements domain.GroupStore using PostgreSQL.
type GroupStore struct {
	pool *pgxpool.Pool
}

// NewGroupStore creates a new GroupStore backed by the given connection pool.
func NewGroupStore(pool *pgxpool.Pool) *GroupStore {
	return &GroupStore{pool: pool}
}

// InsertRun stores the groups and members of one pipeline run in a single
// transaction, so readers never observe a run with half its groups.
func (s *GroupStore) InsertRun(ctx context.Context, groups []domain.UnifiedGroup, members []domain.GroupMember) error {
	if len(groups) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin insert run: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	const groupQuery = `
		INSERT INTO unified_groups (id, run_id, title, confidence, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, g := range groups {
		batch.Queue(groupQuery, g.ID, g.RunID, g.Title, g.Confidence, g.Size, g.CreatedAt)
	}

	const memberQuery = `
		INSERT INTO group_members (group_id, site, product_id, title, price, url)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for _, m := range members {
		batch.Queue(memberQuery, m.GroupID, string(m.Site), m.ProductID, m.Title, m.Price, m.URL)
	}

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < len(groups)+len(members); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("postgres: insert run batch item %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("postgres: close insert run batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit insert run: %w", err)
	}
	return nil
}

const groupCols = `id, run_id, title, confidence, size, created_at`

func scanGroup(row pgx.Row) (domain.UnifiedGroup, error) {
	var g domain.UnifiedGroup
	err := row.Scan(&g.ID, &g.RunID, &g.Title, &g.Confidence, &g.Size, &g.CreatedAt)
	return g, err
}

// GetByID retrieves a unified group by its primary key.
func (s *GroupStore) GetByID(ctx context.Context, id string) (domain.UnifiedGroup, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+groupCols+` FROM unified_groups WHERE id = $1`, id)
	g, err := scanGroup(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UnifiedGroup{}, domain.ErrNotFound
		}
		return domain.UnifiedGroup{}, fmt.Errorf("postgres: get group %s: %w", id, err)
	}
	return g, nil
}

func (s *GroupStore) listGroups(ctx context.Context, query string, args []any) ([]domain.UnifiedGroup, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []domain.UnifiedGroup
	for rows.Next() {
		g, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListByRun returns the groups of one pipeline run ordered by confidence.
func (s *GroupStore) ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.UnifiedGroup, error) {
	query := `SELECT ` + groupCols + ` FROM unified_groups WHERE run_id = $1 ORDER BY confidence DESC, title`
	args := []any{runID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	groups, err := s.listGroups(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("postgres: list groups for run %s: %w", runID, err)
	}
	return groups, nil
}

// ListMembers returns the member records of one group ordered by site.
func (s *GroupStore) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT group_id, site, product_id, title, price, url
		 FROM group_members WHERE group_id = $1 ORDER BY site, product_id`, groupID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list members for group %s: %w", groupID, err)
	}
	defer rows.Close()

	var members []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		var site string
		if err := rows.Scan(&m.GroupID, &site, &m.ProductID, &m.Title, &m.Price, &m.URL); err != nil {
			return nil, fmt.Errorf("postgres: scan member: %w", err)
		}
		m.Site = domain.Site(site)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: member rows: %w", err)
	}
	return members, nil
}

// ListRecent returns groups across runs, newest first.
func (s *GroupStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.UnifiedGroup, error) {
	query := `SELECT ` + groupCols + ` FROM unified_groups`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" WHERE created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC, confidence DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	groups, err := s.listGroups(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent groups: %w", err)
	}
	return groups, nil
}

// Compile-time interface check.
var _ domain.GroupStore = (*GroupStore)(nil)
