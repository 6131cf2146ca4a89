package domain

// OutputRow is one line of the unified table: one row per (group, member)
// pair. All rows of a group share UnifiedTitle and Confidence; Site,
// ProductID, and Price vary per member.
type OutputRow struct {
	UnifiedTitle string
	Site         Site
	ProductID    string
	Price        float64
	HasPrice     bool
	Confidence   float64
}
