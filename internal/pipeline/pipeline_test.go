package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
	"github.com/crowdwisdom/marketfuse/internal/match"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCollector struct {
	site    domain.Site
	records []domain.RawRecord
	err     error
}

func (f *fakeCollector) Site() domain.Site { return f.site }

func (f *fakeCollector) Fetch(_ context.Context, _ int) ([]domain.RawRecord, error) {
	return f.records, f.err
}

type memRecordStore struct {
	mu       sync.Mutex
	upserted []domain.RawRecord
}

func (m *memRecordStore) UpsertBatch(_ context.Context, records []domain.RawRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserted = append(m.upserted, records...)
	return nil
}

func (m *memRecordStore) ListBySite(context.Context, domain.Site, domain.ListOpts) ([]domain.RawRecord, error) {
	return nil, nil
}

func (m *memRecordStore) ListBefore(context.Context, time.Time) ([]domain.RawRecord, error) {
	return nil, nil
}

func (m *memRecordStore) Count(context.Context) (int64, error) { return 0, nil }

type memRecordCache struct {
	mu    sync.Mutex
	sites map[domain.Site][]domain.RawRecord
}

func newMemRecordCache() *memRecordCache {
	return &memRecordCache{sites: make(map[domain.Site][]domain.RawRecord)}
}

func (m *memRecordCache) SetBatch(_ context.Context, site domain.Site, records []domain.RawRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sites[site] = records
	return nil
}

func (m *memRecordCache) GetBySite(_ context.Context, site domain.Site) ([]domain.RawRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	records, ok := m.sites[site]
	if !ok {
		return nil, fmt.Errorf("cache: %w", domain.ErrNotFound)
	}
	return records, nil
}

func (m *memRecordCache) Invalidate(_ context.Context, site domain.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sites, site)
	return nil
}

type memGroupStore struct {
	mu      sync.Mutex
	groups  []domain.UnifiedGroup
	members []domain.GroupMember
}

func (m *memGroupStore) InsertRun(_ context.Context, groups []domain.UnifiedGroup, members []domain.GroupMember) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups = append(m.groups, groups...)
	m.members = append(m.members, members...)
	return nil
}

func (m *memGroupStore) GetByID(context.Context, string) (domain.UnifiedGroup, error) {
	return domain.UnifiedGroup{}, domain.ErrNotFound
}

func (m *memGroupStore) ListByRun(context.Context, string, domain.ListOpts) ([]domain.UnifiedGroup, error) {
	return nil, nil
}

func (m *memGroupStore) ListMembers(context.Context, string) ([]domain.GroupMember, error) {
	return nil, nil
}

func (m *memGroupStore) ListRecent(context.Context, domain.ListOpts) ([]domain.UnifiedGroup, error) {
	return nil, nil
}

type memRunStore struct {
	mu       sync.Mutex
	created  []domain.PipelineRun
	finished []domain.PipelineRun
}

func (m *memRunStore) Create(_ context.Context, run domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, run)
	return nil
}

func (m *memRunStore) Finish(_ context.Context, run domain.PipelineRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, run)
	return nil
}

func (m *memRunStore) GetByID(context.Context, string) (domain.PipelineRun, error) {
	return domain.PipelineRun{}, domain.ErrNotFound
}

func (m *memRunStore) GetLatest(context.Context) (domain.PipelineRun, error) {
	return domain.PipelineRun{}, domain.ErrNotFound
}

func (m *memRunStore) List(context.Context, domain.ListOpts) ([]domain.PipelineRun, error) {
	return nil, nil
}

type memBus struct {
	mu       sync.Mutex
	messages map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{messages: make(map[string][][]byte)}
}

func (m *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[channel] = append(m.messages[channel], payload)
	return nil
}

func (m *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func price(p float64) *float64 { return &p }

func rawRec(site domain.Site, id, title string) domain.RawRecord {
	return domain.RawRecord{
		Site:      site,
		ProductID: id,
		Title:     title,
		Price:     price(0.5),
	}
}

func TestCollectRunCombinesSites(t *testing.T) {
	store := &memRecordStore{}
	cache := newMemRecordCache()
	runner := NewCollectRunner(
		[]Collector{
			&fakeCollector{site: domain.SitePolymarket, records: []domain.RawRecord{rawRec(domain.SitePolymarket, "p1", "a")}},
			&fakeCollector{site: domain.SiteManifold, records: []domain.RawRecord{rawRec(domain.SiteManifold, "m1", "b")}},
		},
		store, cache, nil, 0, 500, testLogger(),
	)

	records, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records", len(records))
	}
	if len(store.upserted) != 2 {
		t.Fatalf("store got %d records", len(store.upserted))
	}
	if got, _ := cache.GetBySite(context.Background(), domain.SitePolymarket); len(got) != 1 {
		t.Fatalf("cache not refreshed")
	}
}

func TestCollectFallsBackToCache(t *testing.T) {
	cache := newMemRecordCache()
	cache.SetBatch(context.Background(), domain.SiteManifold, []domain.RawRecord{rawRec(domain.SiteManifold, "m1", "cached")})

	runner := NewCollectRunner(
		[]Collector{
			&fakeCollector{site: domain.SitePolymarket, records: []domain.RawRecord{rawRec(domain.SitePolymarket, "p1", "fresh")}},
			&fakeCollector{site: domain.SiteManifold, err: errors.New("site down")},
		},
		&memRecordStore{}, cache, nil, 0, 500, testLogger(),
	)

	records, err := runner.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want fresh + cached", len(records))
	}
}

func TestCollectFailsWhenAllSitesFail(t *testing.T) {
	runner := NewCollectRunner(
		[]Collector{
			&fakeCollector{site: domain.SitePolymarket, err: errors.New("down")},
			&fakeCollector{site: domain.SiteManifold, err: errors.New("down too")},
		},
		&memRecordStore{}, nil, nil, 0, 500, testLogger(),
	)

	if _, err := runner.Run(context.Background()); err == nil {
		t.Fatal("expected error when every site fails")
	}
}

func TestOrchestratorRunOnce(t *testing.T) {
	groupStore := &memGroupStore{}
	runStore := &memRunStore{}
	bus := newMemBus()
	exportPath := filepath.Join(t.TempDir(), "out.csv")

	collect := NewCollectRunner(
		[]Collector{
			&fakeCollector{site: domain.SitePolymarket, records: []domain.RawRecord{
				rawRec(domain.SitePolymarket, "p1", "Will BTC hit $100k by June?"),
			}},
			&fakeCollector{site: domain.SiteManifold, records: []domain.RawRecord{
				rawRec(domain.SiteManifold, "m1", "Will BTC hit 100k by June"),
				rawRec(domain.SiteManifold, "m2", "Aliens land on Earth"),
			}},
		},
		&memRecordStore{}, nil, nil, 0, 500, testLogger(),
	)
	unify := NewUnifyRunner(match.DefaultConfig(), nil, groupStore, nil, exportPath, testLogger())
	orch := NewOrchestrator(collect, unify, runStore, bus, nil, time.Minute, testLogger())

	run, err := orch.RunOnce(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if run.Status != domain.RunStatusCompleted {
		t.Fatalf("status = %s (%s)", run.Status, run.Error)
	}
	if run.RecordCount != 3 {
		t.Fatalf("record count = %d", run.RecordCount)
	}
	// The two BTC titles merge; the alien market stays a singleton.
	if run.GroupCount != 2 {
		t.Fatalf("group count = %d", run.GroupCount)
	}
	if run.RowCount != 3 {
		t.Fatalf("row count = %d", run.RowCount)
	}

	if len(runStore.created) != 1 || len(runStore.finished) != 1 {
		t.Fatalf("run store calls = %d/%d", len(runStore.created), len(runStore.finished))
	}
	if len(groupStore.groups) != 2 || len(groupStore.members) != 3 {
		t.Fatalf("persisted %d groups / %d members", len(groupStore.groups), len(groupStore.members))
	}
	if len(bus.messages[domain.ChannelRuns]) != 1 {
		t.Fatalf("bus got %d messages", len(bus.messages[domain.ChannelRuns]))
	}

	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "unified_title,site,site_product_id,price,confidence\n") {
		t.Fatalf("export header wrong:\n%s", data)
	}
}

func TestOrchestratorRecordsFailure(t *testing.T) {
	runStore := &memRunStore{}
	collect := NewCollectRunner(
		[]Collector{&fakeCollector{site: domain.SitePolymarket, err: errors.New("down")}},
		&memRecordStore{}, nil, nil, 0, 500, testLogger(),
	)
	unify := NewUnifyRunner(match.DefaultConfig(), nil, &memGroupStore{}, nil, "", testLogger())
	orch := NewOrchestrator(collect, unify, runStore, nil, nil, time.Minute, testLogger())

	run, err := orch.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s", run.Status)
	}
	if len(runStore.finished) != 1 || runStore.finished[0].Error == "" {
		t.Fatal("failure not recorded")
	}
}
