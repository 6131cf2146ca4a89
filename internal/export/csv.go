// Package export renders matching results to their on-disk formats.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/crowdwisdom/marketfuse/internal/domain"
)

// Header is the fixed column order of the unified CSV export.
var Header = []string{"unified_title", "site", "site_product_id", "price", "confidence"}

// WriteCSV writes output rows to w in the unified CSV format. Prices render
// with four decimals, empty when the record carried none; confidence with
// three. The header row is always written, so an empty run still produces a
// parseable file.
func WriteCSV(w io.Writer, rows []domain.OutputRow) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("export: write header: %w", err)
	}
	for _, r := range rows {
		price := ""
		if r.HasPrice {
			price = fmt.Sprintf("%.4f", r.Price)
		}
		rec := []string{
			r.UnifiedTitle,
			string(r.Site),
			r.ProductID,
			price,
			fmt.Sprintf("%.3f", r.Confidence),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export: write row: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export: flush: %w", err)
	}
	return nil
}

// WriteCSVFile writes output rows to a file at path, creating or truncating
// it.
func WriteCSVFile(path string, rows []domain.OutputRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteCSV(f, rows); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}
