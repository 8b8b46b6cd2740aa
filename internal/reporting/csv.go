package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteTradesCSVFile writes the trades of every report to a CSV file.
func WriteTradesCSVFile(path string, reports []Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trades file: %w", err)
	}
	defer f.Close()

	return WriteTradesCSV(f, reports)
}

// WriteTradesCSV writes one row per proposed trade to any io.Writer.
// You can pass os.Stdout for debugging, or a file.
func WriteTradesCSV(w io.Writer, reports []Report) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"run_id",
		"portfolio_id",
		"seq",
		"asset_id",
		"side",
		"quantity",
		"order_type",
		"reference_price",
		"notional",
		"stage",
		"limit",
		"reason",
		"generated_at", // RFC3339
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range reports {
		for i, t := range r.Result.Trades {
			record := []string{
				r.RunID,
				r.PortfolioID,
				strconv.Itoa(i),
				t.AssetID,
				t.Side.String(),
				t.Quantity.String(),
				t.OrderType.String(),
				t.ReferencePrice.String(),
				t.Notional().String(),
				t.Stage.String(),
				t.Limit.String(),
				t.Reason,
				r.GeneratedAt.UTC().Format(time.RFC3339),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
