package kalshi

import (
	"testing"
	"time"
)

func TestAPIMarketToRecord(t *testing.T) {
	t.Run("last price in cents", func(t *testing.T) {
		m := apiMarket{Ticker: "FED-25DEC", Title: "Fed cuts in December", LastPrice: 37}
		rec := m.toRecord(time.Now())
		if rec.ProductID != "FED-25DEC" {
			t.Fatalf("ProductID = %q", rec.ProductID)
		}
		if rec.Price == nil || *rec.Price != 0.37 {
			t.Fatalf("Price = %v", rec.Price)
		}
	})

	t.Run("untraded market uses midpoint", func(t *testing.T) {
		m := apiMarket{Ticker: "X", Title: "x", YesBid: 30, YesAsk: 40}
		rec := m.toRecord(time.Now())
		if rec.Price == nil || *rec.Price != 0.35 {
			t.Fatalf("Price = %v", rec.Price)
		}
	})

	t.Run("no book means no price", func(t *testing.T) {
		m := apiMarket{Ticker: "X", Title: "x"}
		if rec := m.toRecord(time.Now()); rec.Price != nil {
			t.Fatalf("Price = %v, want nil", *rec.Price)
		}
	})
}
