package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// RunService defines what the run handler needs from the storage layer.
type RunService interface {
	GetByID(ctx context.Context, id string) (domain.PipelineRun, error)
	GetLatest(ctx context.Context) (domain.PipelineRun, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.PipelineRun, error)
}

// TriggerFunc starts a pipeline run out of band and returns its ID.
type TriggerFunc func(ctx context.Context) (string, error)

// RunHandler serves pipeline-run endpoints.
type RunHandler struct {
	runs    RunService
	trigger TriggerFunc
	logger  *slog.Logger
}

// NewRunHandler creates a RunHandler. The trigger may be nil, in which case
// the trigger endpoint responds 503.
func NewRunHandler(runs RunService, trigger TriggerFunc, logger *slog.Logger) *RunHandler {
	return &RunHandler{runs: runs, trigger: trigger, logger: logger}
}

// listRunsResponse wraps the list endpoint output with paging metadata.
type listRunsResponse struct {
	Runs   []domain.PipelineRun `json:"runs"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

// ListRuns returns run history, most recent first.
// GET /api/runs?limit=50&offset=0
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	runs, err := h.runs.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list runs failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	writeJSON(w, http.StatusOK, listRunsResponse{
		Runs:   runs,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetLatestRun returns the most recently started run.
// GET /api/runs/latest
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no runs recorded yet")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get latest run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get latest run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetRun returns a single run by ID.
// GET /api/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing run id")
		return
	}

	run, err := h.runs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get run failed",
			slog.String("run_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// TriggerRun starts a pipeline run immediately instead of waiting for the
// next scheduled tick. The run executes in the background; the response
// carries the new run's ID.
// POST /api/runs/trigger
func (h *RunHandler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if h.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline not available in this mode")
		return
	}

	runID, err := h.trigger(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: trigger run failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to trigger run")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status": "triggered",
		"run_id": runID,
	})
}
