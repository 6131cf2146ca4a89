package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/export"
	"github.com/crowdwisdom/marketfuse/internal/match"
)

// Embedder supplies title vectors keyed by record ID. The cached Gemini
// provider implements it.
type Embedder interface {
	Vectors(ctx context.Context, ids, titles []string) (map[string][]float64, error)
}

// UnifyRunner turns one collect cycle's records into persisted unified
// groups, the exported CSV, and optional S3 archives.
type UnifyRunner struct {
	matchCfg   match.Config
	embedder   Embedder          // nil disables the semantic term
	groups     domain.GroupStore
	archiver   domain.Archiver   // nil disables archiving
	exportPath string            // empty disables the CSV export
	logger     *slog.Logger
}

// NewUnifyRunner creates a UnifyRunner. embedder and archiver may be nil and
// exportPath may be empty; each feature is skipped when unset.
func NewUnifyRunner(
	matchCfg match.Config,
	embedder Embedder,
	groups domain.GroupStore,
	archiver domain.Archiver,
	exportPath string,
	logger *slog.Logger,
) *UnifyRunner {
	return &UnifyRunner{
		matchCfg:   matchCfg,
		embedder:   embedder,
		groups:     groups,
		archiver:   archiver,
		exportPath: exportPath,
		logger:     logger.With(slog.String("component", "unify")),
	}
}

// Outcome bundles the results of one unify cycle.
type Outcome struct {
	Groups []domain.UnifiedGroup
	Rows   []domain.OutputRow
}

// Run clusters the records, persists the resulting groups under runID, and
// writes the export artifacts. Embedding and archive failures degrade (the
// run continues without them); store failures are fatal for the run.
func (u *UnifyRunner) Run(ctx context.Context, runID string, records []domain.RawRecord) (*Outcome, error) {
	embeddings := u.embedVectors(ctx, records)

	result, err := match.Unify(records, embeddings, u.matchCfg)
	if err != nil {
		return nil, fmt.Errorf("pipeline: unify: %w", err)
	}

	groups, members := persistedGroups(runID, result.Groups)
	if err := u.groups.InsertRun(ctx, groups, members); err != nil {
		return nil, fmt.Errorf("pipeline: persist groups: %w", err)
	}

	if u.exportPath != "" {
		if err := export.WriteCSVFile(u.exportPath, result.Rows); err != nil {
			return nil, fmt.Errorf("pipeline: export: %w", err)
		}
		u.logger.InfoContext(ctx, "wrote export",
			slog.String("path", u.exportPath),
			slog.Int("rows", len(result.Rows)),
		)
	}

	u.archive(ctx, runID, records, result.Rows)

	u.logger.InfoContext(ctx, "unify complete",
		slog.String("run_id", runID),
		slog.Int("records", len(records)),
		slog.Int("groups", len(groups)),
		slog.Int("rows", len(result.Rows)),
	)
	return &Outcome{Groups: groups, Rows: result.Rows}, nil
}

// embedVectors fetches title embeddings for all records. A failing embedding
// provider degrades scoring to the lexical term alone rather than failing
// the run.
func (u *UnifyRunner) embedVectors(ctx context.Context, records []domain.RawRecord) map[string][]float64 {
	if u.embedder == nil || len(records) == 0 {
		return nil
	}

	ids := make([]string, len(records))
	titles := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID()
		titles[i] = match.CanonicalTitle(r.Title)
	}

	vectors, err := u.embedder.Vectors(ctx, ids, titles)
	if err != nil {
		u.logger.WarnContext(ctx, "embeddings unavailable, scoring lexically",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return vectors
}

// archive uploads the run's inputs and outputs when an archiver is wired.
// Archive failures are logged, not fatal.
func (u *UnifyRunner) archive(ctx context.Context, runID string, records []domain.RawRecord, rows []domain.OutputRow) {
	if u.archiver == nil {
		return
	}

	if path, err := u.archiver.ArchiveRows(ctx, runID, rows); err != nil {
		u.logger.WarnContext(ctx, "row archive failed", slog.String("error", err.Error()))
	} else {
		u.logger.InfoContext(ctx, "archived rows", slog.String("path", path))
	}

	if path, err := u.archiver.ArchiveRecords(ctx, runID, records); err != nil {
		u.logger.WarnContext(ctx, "record archive failed", slog.String("error", err.Error()))
	} else {
		u.logger.InfoContext(ctx, "archived records", slog.String("path", path))
	}
}

// persistedGroups converts the engine's in-memory groups into their stored
// form: one UnifiedGroup row per group plus the member junction rows.
func persistedGroups(runID string, groups []domain.Group) ([]domain.UnifiedGroup, []domain.GroupMember) {
	now := time.Now().UTC()

	unified := make([]domain.UnifiedGroup, 0, len(groups))
	var members []domain.GroupMember
	for _, g := range groups {
		id := uuid.NewString()
		unified = append(unified, domain.UnifiedGroup{
			ID:         id,
			RunID:      runID,
			Title:      g.Title,
			Confidence: g.Confidence,
			Size:       len(g.Members),
			CreatedAt:  now,
		})
		for _, m := range g.Members {
			members = append(members, domain.GroupMember{
				GroupID:   id,
				Site:      m.Raw.Site,
				ProductID: m.Raw.ProductID,
				Title:     m.Raw.Title,
				Price:     m.Raw.Price,
				URL:       m.Raw.URL,
			})
		}
	}
	return unified, members
}
