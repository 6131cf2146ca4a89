package polymarket

import (
	"encoding/json"
	"testing"
	"time"
)

func TestAPIMarketToRecord(t *testing.T) {
	raw := `{
		"id": "514061",
		"question": "Will BTC hit $100k by June?",
		"slug": "will-btc-hit-100k-by-june",
		"active": "true",
		"closed": false,
		"category": "Crypto",
		"outcomePrices": "[\"0.55\", \"0.45\"]",
		"volume": "123456.78"
	}`
	var m apiMarket
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	if !bool(m.Active) {
		t.Fatal("string \"true\" must decode as active")
	}

	rec := m.toRecord(time.Now())
	if rec.ProductID != "514061" {
		t.Fatalf("ProductID = %q", rec.ProductID)
	}
	if rec.Price == nil || *rec.Price != 0.55 {
		t.Fatalf("Price = %v", rec.Price)
	}
	if rec.URL != "https://polymarket.com/market/will-btc-hit-100k-by-june" {
		t.Fatalf("URL = %q", rec.URL)
	}
	if rec.Metadata["category"] != "Crypto" {
		t.Fatalf("Metadata = %v", rec.Metadata)
	}
}

func TestYesPriceMalformed(t *testing.T) {
	cases := []struct {
		name   string
		prices string
	}{
		{"empty", ""},
		{"not json", "0.55"},
		{"empty array", "[]"},
		{"non numeric", `["abc"]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := apiMarket{OutcomePrices: tc.prices}
			rec := m.toRecord(time.Now())
			if rec.Price != nil {
				t.Fatalf("Price = %v, want nil", *rec.Price)
			}
		})
	}
}
