package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

type fakeGroupService struct {
	groups  map[string]domain.UnifiedGroup
	members map[string][]domain.GroupMember
	recent  []domain.UnifiedGroup
}

func (f *fakeGroupService) GetByID(_ context.Context, id string) (domain.UnifiedGroup, error) {
	g, ok := f.groups[id]
	if !ok {
		return domain.UnifiedGroup{}, fmt.Errorf("fake: %w", domain.ErrNotFound)
	}
	return g, nil
}

func (f *fakeGroupService) ListByRun(_ context.Context, runID string, _ domain.ListOpts) ([]domain.UnifiedGroup, error) {
	var out []domain.UnifiedGroup
	for _, g := range f.groups {
		if g.RunID == runID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupService) ListMembers(_ context.Context, groupID string) ([]domain.GroupMember, error) {
	return f.members[groupID], nil
}

func (f *fakeGroupService) ListRecent(_ context.Context, _ domain.ListOpts) ([]domain.UnifiedGroup, error) {
	return f.recent, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGroupMux(svc GroupService) *http.ServeMux {
	h := NewGroupHandler(svc, testLogger())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/groups", h.ListGroups)
	mux.HandleFunc("GET /api/groups/{id}", h.GetGroup)
	return mux
}

func TestListGroupsRecent(t *testing.T) {
	svc := &fakeGroupService{
		recent: []domain.UnifiedGroup{
			{ID: "g1", Title: "BTC above 100k", Confidence: 0.91, Size: 2},
		},
	}
	rec := httptest.NewRecorder()
	newGroupMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp listGroupsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Groups) != 1 || resp.Groups[0].ID != "g1" {
		t.Fatalf("groups = %+v", resp.Groups)
	}
	if resp.Limit != 50 || resp.Offset != 0 {
		t.Fatalf("paging = %d/%d", resp.Limit, resp.Offset)
	}
}

func TestGetGroupWithMembers(t *testing.T) {
	price := 0.58
	svc := &fakeGroupService{
		groups: map[string]domain.UnifiedGroup{
			"g1": {ID: "g1", RunID: "r1", Title: "BTC above 100k", Confidence: 0.91, Size: 2},
		},
		members: map[string][]domain.GroupMember{
			"g1": {
				{GroupID: "g1", Site: domain.SiteManifold, ProductID: "m1", Price: &price},
				{GroupID: "g1", Site: domain.SitePolymarket, ProductID: "p1"},
			},
		},
	}
	rec := httptest.NewRecorder()
	newGroupMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups/g1", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp groupResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Group.ID != "g1" || len(resp.Members) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestGetGroupNotFound(t *testing.T) {
	svc := &fakeGroupService{groups: map[string]domain.UnifiedGroup{}}
	rec := httptest.NewRecorder()
	newGroupMux(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/groups/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestParseListOptsClampsLimit(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/groups?limit=9999&offset=20", nil)
	opts := parseListOpts(r)
	if opts.Limit != 500 {
		t.Fatalf("limit = %d", opts.Limit)
	}
	if opts.Offset != 20 {
		t.Fatalf("offset = %d", opts.Offset)
	}
}
