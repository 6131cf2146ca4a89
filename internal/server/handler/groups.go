package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// GroupService defines what the group handler needs from the storage layer.
// Declared locally so the handler package does not depend on the concrete
// store implementation.
type GroupService interface {
	GetByID(ctx context.Context, id string) (domain.UnifiedGroup, error)
	ListByRun(ctx context.Context, runID string, opts domain.ListOpts) ([]domain.UnifiedGroup, error)
	ListMembers(ctx context.Context, groupID string) ([]domain.GroupMember, error)
	ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.UnifiedGroup, error)
}

// GroupHandler serves unified-group endpoints.
type GroupHandler struct {
	groups GroupService
	logger *slog.Logger
}

// NewGroupHandler creates a GroupHandler with the given service and logger.
func NewGroupHandler(groups GroupService, logger *slog.Logger) *GroupHandler {
	return &GroupHandler{groups: groups, logger: logger}
}

// listGroupsResponse wraps the list endpoint output with paging metadata.
type listGroupsResponse struct {
	Groups []domain.UnifiedGroup `json:"groups"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ListGroups returns unified groups ordered by confidence. When run_id is
// given only that run's groups are returned; otherwise the most recent
// groups across runs.
// GET /api/groups?run_id=...&limit=50&offset=0
func (h *GroupHandler) ListGroups(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	runID := r.URL.Query().Get("run_id")

	var (
		groups []domain.UnifiedGroup
		err    error
	)
	if runID != "" {
		groups, err = h.groups.ListByRun(r.Context(), runID, opts)
	} else {
		groups, err = h.groups.ListRecent(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list groups failed",
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list groups")
		return
	}

	writeJSON(w, http.StatusOK, listGroupsResponse{
		Groups: groups,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// groupResponse is a single group together with its per-site members.
type groupResponse struct {
	Group   domain.UnifiedGroup  `json:"group"`
	Members []domain.GroupMember `json:"members"`
}

// GetGroup returns a single unified group with its members.
// GET /api/groups/{id}
func (h *GroupHandler) GetGroup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing group id")
		return
	}

	group, err := h.groups.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "group not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get group failed",
			slog.String("group_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get group")
		return
	}

	members, err := h.groups.ListMembers(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list members failed",
			slog.String("group_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}

	writeJSON(w, http.StatusOK, groupResponse{Group: group, Members: members})
}
