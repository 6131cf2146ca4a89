package match

import (
	"sort"
	"sync"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// edge is a scored pair of record indices. Edges exist only while grouping.
type edge struct {
	a, b  int
	score float64
}

// Engine clusters records across sites into equivalence groups.
//
// Grouping is threshold clustering over the cross-site similarity graph:
// score every unordered pair of records from different sites, drop edges
// below the threshold, and take connected components via union-find. Edges
// are merged in a fixed order (descending score, then record-ID pair), so
// for identical input the output is identical across runs regardless of how
// the scoring work was sharded.
type Engine struct {
	cfg    Config
	scorer *Scorer
}

// NewEngine creates an Engine with the given configuration and scorer. The
// configuration must already be validated.
func NewEngine(cfg Config, scorer *Scorer) *Engine {
	return &Engine{cfg: cfg, scorer: scorer}
}

// Group clusters the records into groups. Records that match nothing become
// singleton groups; empty input yields nil. Two records from the same site
// are never placed in one group: an edge that would merge components holding
// the same site is skipped, leaving the record in the component it reached
// first under the deterministic edge order.
func (e *Engine) Group(records []domain.NormalizedRecord) []domain.Group {
	if len(records) == 0 {
		return nil
	}

	// Operate on an ID-sorted copy so output does not depend on caller
	// ordering.
	recs := make([]domain.NormalizedRecord, len(records))
	copy(recs, records)
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })

	edges := e.scoreCrossSitePairs(recs)

	kept := edges[:0]
	for _, ed := range edges {
		if ed.score >= e.cfg.Threshold {
			kept = append(kept, ed)
		}
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		if kept[i].a != kept[j].a {
			return recs[kept[i].a].ID < recs[kept[j].a].ID
		}
		return recs[kept[i].b].ID < recs[kept[j].b].ID
	})

	uf := newUnionFind(recs)
	for _, ed := range kept {
		uf.union(ed.a, ed.b)
	}

	// Collect components preserving record order within each group.
	byRoot := make(map[int][]domain.NormalizedRecord)
	var roots []int
	for i := range recs {
		r := uf.find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], recs[i])
	}
	sort.Ints(roots)

	groups := make([]domain.Group, 0, len(roots))
	for _, r := range roots {
		groups = append(groups, domain.Group{Members: byRoot[r]})
	}
	return groups
}

// scoreCrossSitePairs computes similarity edges for every unordered pair of
// records from different sites. The pair list is sharded across a bounded
// worker pool; each worker writes into its own pre-assigned slots, so
// scheduling never changes the result.
func (e *Engine) scoreCrossSitePairs(recs []domain.NormalizedRecord) []edge {
	var pairs []edge
	for i := 0; i < len(recs); i++ {
		for j := i + 1; j < len(recs); j++ {
			if recs[i].Raw.Site == recs[j].Raw.Site {
				continue
			}
			pairs = append(pairs, edge{a: i, b: j})
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	workers := e.cfg.Workers
	if workers > len(pairs) {
		workers = len(pairs)
	}

	var wg sync.WaitGroup
	chunk := (len(pairs) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(pairs) {
			hi = len(pairs)
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for k := lo; k < hi; k++ {
				pairs[k].score = e.scorer.Score(recs[pairs[k].a], recs[pairs[k].b])
			}
		}(lo, hi)
	}
	wg.Wait()

	return pairs
}

// unionFind is a union-by-rank disjoint-set that additionally tracks the
// sites present in each component, so a union that would collide two records
// from the same site can be refused.
type unionFind struct {
	parent []int
	rank   []int
	sites  []map[domain.Site]bool
}

func newUnionFind(recs []domain.NormalizedRecord) *unionFind {
	uf := &unionFind{
		parent: make([]int, len(recs)),
		rank:   make([]int, len(recs)),
		sites:  make([]map[domain.Site]bool, len(recs)),
	}
	for i := range recs {
		uf.parent[i] = i
		uf.sites[i] = map[domain.Site]bool{recs[i].Raw.Site: true}
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	for uf.parent[i] != i {
		uf.parent[i] = uf.parent[uf.parent[i]]
		i = uf.parent[i]
	}
	return i
}

// union merges the components of a and b unless they share a site. Returns
// true when a merge happened.
func (uf *unionFind) union(a, b int) bool {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return false
	}
	for s := range uf.sites[rb] {
		if uf.sites[ra][s] {
			return false
		}
	}

	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
	for s := range uf.sites[rb] {
		uf.sites[ra][s] = true
	}
	uf.sites[rb] = nil
	return true
}
