package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

func TestWriteCSV(t *testing.T) {
	t.Run("empty rows still produce a header", func(t *testing.T) {
		var sb strings.Builder
		if err := WriteCSV(&sb, nil); err != nil {
			t.Fatal(err)
		}
		if sb.String() != "unified_title,site,site_product_id,price,confidence\n" {
			t.Fatalf("got %q", sb.String())
		}
	})

	t.Run("formats prices and confidence", func(t *testing.T) {
		rows := []domain.OutputRow{
			{
				UnifiedTitle: "Will BTC hit $100k by June?",
				Site:         domain.SiteManifold,
				ProductID:    "m1",
				Price:        0.58,
				HasPrice:     true,
				Confidence:   0.9234,
			},
			{
				UnifiedTitle: "Will BTC hit $100k by June?",
				Site:         domain.SitePolymarket,
				ProductID:    "p1",
				HasPrice:     false,
				Confidence:   0.9234,
			},
		}

		var sb strings.Builder
		if err := WriteCSV(&sb, rows); err != nil {
			t.Fatal(err)
		}
		lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("got %d lines", len(lines))
		}
		if lines[1] != "Will BTC hit $100k by June?,manifold,m1,0.5800,0.923" {
			t.Fatalf("line 1 = %q", lines[1])
		}
		if lines[2] != "Will BTC hit $100k by June?,polymarket,p1,,0.923" {
			t.Fatalf("line 2 = %q", lines[2])
		}
	})

	t.Run("quotes titles containing commas", func(t *testing.T) {
		rows := []domain.OutputRow{{
			UnifiedTitle: "Rates, inflation, and the Fed",
			Site:         domain.SiteKalshi,
			ProductID:    "k1",
			Confidence:   1,
		}}
		var sb strings.Builder
		if err := WriteCSV(&sb, rows); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(sb.String(), `"Rates, inflation, and the Fed"`) {
			t.Fatalf("got %q", sb.String())
		}
	})
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	rows := []domain.OutputRow{{
		UnifiedTitle: "x",
		Site:         domain.SitePolymarket,
		ProductID:    "1",
		Price:        0.5,
		HasPrice:     true,
		Confidence:   1,
	}}
	if err := WriteCSVFile(path, rows); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "unified_title,") {
		t.Fatalf("got %q", string(data))
	}
}
