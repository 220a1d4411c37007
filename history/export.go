package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"assetlens/asset"
)

var csvHeader = []string{
	"Name", "Entity", "Type", "Macro Category", "Currency", "Original Amount", "Converted Amount (CNY)", "Description",
}

// ExportCSV writes one row per breakdown item, in breakdown order, followed by a total row
func ExportCSV(w io.Writer, r *asset.AnalysisResult) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, item := range r.Breakdown {
		row := []string{
			item.Name,
			item.Entity,
			string(item.Type),
			string(item.MacroCategory),
			item.Currency,
			item.OriginalAmount.String(),
			item.ConvertedAmountCNY.StringFixed(2),
			item.Description,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	if err := cw.Write([]string{"Total", "", "", "", asset.ReportingCurrency, "", r.TotalNetWorthCNY.StringFixed(2), ""}); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

// WriteCSVFile exports r to path, overwriting any existing file
func WriteCSVFile(path string, r *asset.AnalysisResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := ExportCSV(f, r); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
