package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// flexBool unmarshals from JSON bool or string ("true"/"false") so Gamma API
// responses work whether "active" is sent as bool or string.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = flexBool(b)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// apiMarket represents a market as returned by the Polymarket Gamma API.
type apiMarket struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Slug          string   `json:"slug"`
	Active        flexBool `json:"active"`
	Closed        bool     `json:"closed"`
	Category      string   `json:"category"`
	Outcomes      string   `json:"outcomes"`      // JSON-encoded: e.g. "[\"Yes\",\"No\"]"
	OutcomePrices string   `json:"outcomePrices"` // JSON-encoded: e.g. "[\"0.5\",\"0.5\"]"
	Volume        string   `json:"volume"`
}

// toRecord converts the API market to a raw record. The Yes price comes from
// the first entry of outcomePrices; markets without a parseable price carry
// no price at all.
func (m *apiMarket) toRecord(collectedAt time.Time) domain.RawRecord {
	rec := domain.RawRecord{
		Site:        domain.SitePolymarket,
		ProductID:   m.ID,
		Title:       m.Question,
		URL:         "https://polymarket.com/market/" + m.Slug,
		CollectedAt: collectedAt,
		Metadata:    map[string]string{},
	}
	if m.Category != "" {
		rec.Metadata["category"] = m.Category
	}
	if m.Volume != "" {
		rec.Metadata["volume"] = m.Volume
	}

	if p, ok := m.yesPrice(); ok {
		rec.Price = &p
	}
	return rec
}

// yesPrice decodes the JSON-encoded outcomePrices array and returns its first
// entry.
func (m *apiMarket) yesPrice() (float64, bool) {
	if m.OutcomePrices == "" {
		return 0, false
	}
	var prices []string
	if err := json.Unmarshal([]byte(m.OutcomePrices), &prices); err != nil || len(prices) == 0 {
		return 0, false
	}
	p, err := strconv.ParseFloat(prices[0], 64)
	if err != nil {
		return 0, false
	}
	return p, true
}
