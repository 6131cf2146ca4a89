package domain

// Site identifies one of the supported prediction-market websites.
type Site string

const (
	SitePolymarket Site = "polymarket"
	SiteManifold   Site = "manifold"
	SitePredictIt  Site = "predictit"
	SiteKalshi     Site = "kalshi"
)

// KnownSites enumerates every site a collector can produce records for.
var KnownSites = []Site{SitePolymarket, SiteManifold, SitePredictIt, SiteKalshi}

// Valid reports whether s is one of the known sites.
func (s Site) Valid() bool {
	for _, k := range KnownSites {
		if s == k {
			return true
		}
	}
	return false
}
