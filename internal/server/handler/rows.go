package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// RowService defines what the row handler needs to rebuild the unified table
// for a run: the run itself plus its groups and members.
type RowService interface {
	GetLatest(ctx context.Context) (domain.PipelineRun, error)
	GetByID(ctx context.Context, id string) (domain.PipelineRun, error)
	ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.UnifiedGroup, error)
	ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)
}

// RowHandler serves the flattened unified-table view of a run.
type RowHandler struct {
	rows   RowService
	logger *slog.Logger
}

// NewRowHandler creates a RowHandler with the given service and logger.
func NewRowHandler(rows RowService, logger *slog.Logger) *RowHandler {
	return &RowHandler{rows: rows, logger: logger}
}

// rowDTO is one unified-table line. Price is null when the source site did
// not publish one.
type rowDTO struct {
	UnifiedTitle string      `json:"unified_title"`
	Site         domain.Site `json:"site"`
	ProductID    string      `json:"product_id"`
	Price        *float64    `json:"price"`
	Confidence   float64     `json:"confidence"`
}

// listRowsResponse wraps the rows of a single run.
type listRowsResponse struct {
	RunID string   `json:"run_id"`
	Rows  []rowDTO `json:"rows"`
}

// ListRows returns the unified table for a run, one row per group member,
// ordered by group confidence descending then site. Defaults to the most
// recent run when run_id is omitted.
// GET /api/rows?run_id=...
func (h *RowHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		run, err := h.rows.GetLatest(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "no runs recorded yet")
				return
			}
			h.logger.ErrorContext(ctx, "handler: get latest run failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to resolve latest run")
			return
		}
		runID = run.ID
	}

	groups, err := h.rows.ListByRun(ctx, runID, domain.ListOpts{Limit: 10000})
	if err != nil {
		h.logger.ErrorContext(ctx, "handler: list groups failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	rows := make([]rowDTO, 0, len(groups))
	for _, g := range groups {
		members, err := h.rows.ListMembers(ctx, g.ID)
		if err != nil {
			h.logger.ErrorContext(ctx, "handler: list members failed",
				slog.String("group_id", g.ID),
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "failed to list members")
			return
		}
		for _, m := range members {
			rows = append(rows, rowDTO{
				UnifiedTitle: g.Title,
				Site:         m.Site,
				ProductID:    m.ProductID,
				Price:        m.Price,
				Confidence:   g.Confidence,
			})
		}
	}

	writeJSON(w, http.StatusOK, listRowsResponse{RunID: runID, Rows: rows})
}
