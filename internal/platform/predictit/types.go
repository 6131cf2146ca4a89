package predictit

import (
	"strconv"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// apiResponse is the envelope of the /all marketdata endpoint.
type apiResponse struct {
	Markets []apiMarket `json:"markets"`
}

// apiMarket represents one PredictIt market. IDs are numeric on this site.
type apiMarket struct {
	ID        int           `json:"id"`
	Name      string        `json:"name"`
	ShortName string        `json:"shortName"`
	URL       string        `json:"url"`
	Contracts []apiContract `json:"contracts"`
}

// apiContract is one tradeable outcome within a market.
type apiContract struct {
	ID             int      `json:"id"`
	Name           string   `json:"name"`
	LastTradePrice *float64 `json:"lastTradePrice"`
	Status         string   `json:"status"`
}

// toRecord converts the market to a raw record. For single-contract markets
// the contract's last trade price is the market price; multi-contract markets
// use the leading contract (highest last trade price), matching how the site
// itself headlines them. Markets with no traded contract carry no price.
func (m *apiMarket) toRecord(collectedAt time.Time) domain.RawRecord {
	rec := domain.RawRecord{
		Site:        domain.SitePredictIt,
		ProductID:   strconv.Itoa(m.ID),
		Title:       m.Name,
		URL:         m.URL,
		CollectedAt: collectedAt,
		Metadata: map[string]string{
			"short_name": m.ShortName,
			"contracts":  strconv.Itoa(len(m.Contracts)),
		},
	}

	var best *float64
	for i := range m.Contracts {
		p := m.Contracts[i].LastTradePrice
		if p == nil {
			continue
		}
		if best == nil || *p > *best {
			best = p
		}
	}
	if best != nil {
		p := *best
		rec.Price = &p
	}
	return rec
}
