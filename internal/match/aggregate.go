package match

import (
	"sort"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Aggregate flattens finalized groups into output rows, one per (group,
// member). Groups are ordered by descending confidence then unified title;
// members within a group by site name. Pure function, no I/O.
func Aggregate(groups []domain.Group) []domain.OutputRow {
	ordered := make([]domain.Group, len(groups))
	copy(ordered, groups)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Confidence != ordered[j].Confidence {
			return ordered[i].Confidence > ordered[j].Confidence
		}
		return ordered[i].Title < ordered[j].Title
	})

	var rows []domain.OutputRow
	for _, g := range ordered {
		members := make([]domain.NormalizedRecord, len(g.Members))
		copy(members, g.Members)
		sort.Slice(members, func(i, j int) bool {
			return members[i].Raw.Site < members[j].Raw.Site
		})

		for _, m := range members {
			rows = append(rows, domain.OutputRow{
				UnifiedTitle: g.Title,
				Site:         m.Raw.Site,
				ProductID:    m.Raw.ProductID,
				Price:        m.Price,
				HasPrice:     m.HasPrice,
				Confidence:   g.Confidence,
			})
		}
	}
	return rows
}
