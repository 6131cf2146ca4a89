package match

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

func rawRec(site domain.Site, id, title string) domain.RawRecord {
	return domain.RawRecord{Site: site, ProductID: id, Title: title}
}

func newTestEngine(cfg Config) *Engine {
	return NewEngine(cfg, NewScorer(cfg, nil))
}

// memberIDs returns the record IDs of a group, for comparing group shapes.
func memberIDs(g domain.Group) []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

func groupShapes(groups []domain.Group) [][]string {
	out := make([][]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, memberIDs(g))
	}
	return out
}

func TestEngineGroup(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("empty input yields no groups", func(t *testing.T) {
		e := newTestEngine(cfg)
		if got := e.Group(nil); got != nil {
			t.Fatalf("got %d groups, want none", len(got))
		}
	})

	t.Run("matching cross-site records merge", func(t *testing.T) {
		e := newTestEngine(cfg)
		groups := e.Group(NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Will BTC hit $100k by June?"),
			rawRec(domain.SiteManifold, "m1", "Will BTC hit $100k by June"),
		}))
		if len(groups) != 1 {
			t.Fatalf("got %d groups, want 1", len(groups))
		}
		if len(groups[0].Members) != 2 {
			t.Fatalf("got %d members, want 2", len(groups[0].Members))
		}
	})

	t.Run("unrelated records stay singletons", func(t *testing.T) {
		e := newTestEngine(cfg)
		groups := e.Group(NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Will it rain in London tomorrow?"),
			rawRec(domain.SiteManifold, "m1", "Fed cuts interest rates in March"),
		}))
		if len(groups) != 2 {
			t.Fatalf("got %d groups, want 2", len(groups))
		}
	})

	t.Run("transitive closure spans three sites", func(t *testing.T) {
		e := newTestEngine(cfg)
		groups := e.Group(NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Trump wins the 2028 election"),
			rawRec(domain.SiteManifold, "m1", "Trump wins 2028 election"),
			rawRec(domain.SitePredictIt, "i1", "Will Trump win the 2028 election?"),
		}))
		if len(groups) != 1 {
			t.Fatalf("got %d groups, want 1: %v", len(groups), groupShapes(groups))
		}
		if len(groups[0].Members) != 3 {
			t.Fatalf("got %d members, want 3", len(groups[0].Members))
		}
	})

	t.Run("same-site records never share a group", func(t *testing.T) {
		e := newTestEngine(cfg)
		groups := e.Group(NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Will BTC hit $100k?"),
			rawRec(domain.SitePolymarket, "p2", "Will BTC hit $100k?"),
			rawRec(domain.SiteManifold, "m1", "Will BTC hit $100k?"),
		}))
		for _, g := range groups {
			seen := make(map[domain.Site]bool)
			for _, m := range g.Members {
				if seen[m.Raw.Site] {
					t.Fatalf("group %v holds two records from %s", memberIDs(g), m.Raw.Site)
				}
				seen[m.Raw.Site] = true
			}
		}
	})

	t.Run("output independent of input order", func(t *testing.T) {
		records := []domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Will BTC hit $100k by June?"),
			rawRec(domain.SiteManifold, "m1", "BTC hits $100k by June"),
			rawRec(domain.SitePredictIt, "i1", "Will it rain in London?"),
			rawRec(domain.SiteManifold, "m2", "Rain in London"),
			rawRec(domain.SitePolymarket, "p2", "Fed cuts rates in March"),
		}

		e := newTestEngine(cfg)
		want := groupShapes(e.Group(NormalizeAll(records)))

		rng := rand.New(rand.NewSource(7))
		for i := 0; i < 20; i++ {
			shuffled := make([]domain.RawRecord, len(records))
			copy(shuffled, records)
			rng.Shuffle(len(shuffled), func(a, b int) {
				shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
			})
			got := groupShapes(e.Group(NormalizeAll(shuffled)))
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("shuffle %d changed grouping:\ngot  %v\nwant %v", i, got, want)
			}
		}
	})

	t.Run("stable across worker counts", func(t *testing.T) {
		records := NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Trump wins 2028"),
			rawRec(domain.SiteManifold, "m1", "Trump wins 2028 election"),
			rawRec(domain.SitePredictIt, "i1", "Will Trump win in 2028?"),
			rawRec(domain.SiteKalshi, "k1", "Fed cuts rates March"),
			rawRec(domain.SitePolymarket, "p2", "Fed cuts interest rates in March"),
		})

		base := cfg
		base.Workers = 1
		want := groupShapes(newTestEngine(base).Group(records))
		for _, w := range []int{2, 3, 8} {
			c := cfg
			c.Workers = w
			got := groupShapes(newTestEngine(c).Group(records))
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("workers=%d changed grouping:\ngot  %v\nwant %v", w, got, want)
			}
		}
	})

	t.Run("raising the threshold only splits groups", func(t *testing.T) {
		records := NormalizeAll([]domain.RawRecord{
			rawRec(domain.SitePolymarket, "p1", "Will BTC hit $100k by June?"),
			rawRec(domain.SiteManifold, "m1", "BTC above $100k in June"),
			rawRec(domain.SitePredictIt, "i1", "Will BTC hit $100k by June"),
			rawRec(domain.SiteManifold, "m2", "Fed cuts rates in March"),
			rawRec(domain.SitePolymarket, "p2", "Fed rate cut March"),
		})

		low := cfg
		low.Threshold = 0.6
		high := cfg
		high.Threshold = 0.9

		loose := newTestEngine(low).Group(records)
		strict := newTestEngine(high).Group(records)

		// Every strict group must be contained in some loose group.
		looseOf := make(map[string]int)
		for gi, g := range loose {
			for _, m := range g.Members {
				looseOf[m.ID] = gi
			}
		}
		for _, g := range strict {
			first := looseOf[g.Members[0].ID]
			for _, m := range g.Members[1:] {
				if looseOf[m.ID] != first {
					t.Fatalf("strict group %v spans loose groups", memberIDs(g))
				}
			}
		}
		if len(strict) < len(loose) {
			t.Fatalf("strict grouping has fewer groups (%d) than loose (%d)", len(strict), len(loose))
		}
	})
}
