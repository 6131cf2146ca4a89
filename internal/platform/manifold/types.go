package manifold

import (
	"strconv"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// apiMarket represents a LiteMarket as returned by the Manifold v0 API.
type apiMarket struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	URL         string   `json:"url"`
	OutcomeType string   `json:"outcomeType"` // "BINARY", "MULTIPLE_CHOICE", ...
	Probability *float64 `json:"probability"` // present for binary markets
	Volume      float64  `json:"volume"`
	CloseTime   int64    `json:"closeTime"` // epoch millis
	IsResolved  bool     `json:"isResolved"`
}

// Closed reports whether the market's close time has passed.
func (m *apiMarket) Closed() bool {
	return m.CloseTime > 0 && time.UnixMilli(m.CloseTime).Before(time.Now())
}

// toRecord converts the API market to a raw record. Only binary markets carry
// a probability; other outcome types produce a priceless record.
func (m *apiMarket) toRecord(collectedAt time.Time) domain.RawRecord {
	rec := domain.RawRecord{
		Site:        domain.SiteManifold,
		ProductID:   m.ID,
		Title:       m.Question,
		URL:         m.URL,
		CollectedAt: collectedAt,
		Metadata: map[string]string{
			"outcome_type": m.OutcomeType,
			"volume":       strconv.FormatFloat(m.Volume, 'f', 2, 64),
		},
	}
	if m.OutcomeType == "BINARY" && m.Probability != nil {
		p := *m.Probability
		rec.Price = &p
	}
	return rec
}
