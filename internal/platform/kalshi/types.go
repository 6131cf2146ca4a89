package kalshi

import (
	"strconv"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// apiMarketsResponse is the envelope of the /markets endpoint.
type apiMarketsResponse struct {
	Markets []apiMarket `json:"markets"`
	Cursor  string      `json:"cursor"`
}

// apiMarket represents one Kalshi market. Prices are integer cents.
type apiMarket struct {
	Ticker    string `json:"ticker"`
	Title     string `json:"title"`
	Category  string `json:"category"`
	LastPrice int    `json:"last_price"`
	YesBid    int    `json:"yes_bid"`
	YesAsk    int    `json:"yes_ask"`
	Volume    int64  `json:"volume"`
}

// toRecord converts the market to a raw record. The last traded price in
// cents becomes a [0,1] probability; an untraded market falls back to the
// bid/ask midpoint when a two-sided book exists.
func (m *apiMarket) toRecord(collectedAt time.Time) domain.RawRecord {
	rec := domain.RawRecord{
		Site:        domain.SiteKalshi,
		ProductID:   m.Ticker,
		Title:       m.Title,
		URL:         "https://kalshi.com/markets/" + m.Ticker,
		CollectedAt: collectedAt,
		Metadata: map[string]string{
			"category": m.Category,
			"volume":   strconv.FormatInt(m.Volume, 10),
		},
	}

	switch {
	case m.LastPrice > 0:
		p := float64(m.LastPrice) / 100
		rec.Price = &p
	case m.YesBid > 0 && m.YesAsk > 0:
		p := float64(m.YesBid+m.YesAsk) / 200
		rec.Price = &p
	}
	return rec
}
