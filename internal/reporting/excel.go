package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	tradesSheet  = "Trades"
	metricsSheet = "Metrics"
)

var (
	tradeHeaders  = []string{"Run", "Portfolio", "#", "Asset", "Side", "Quantity", "Order Type", "Ref Price", "Notional", "Stage", "Limit", "Reason"}
	metricHeaders = []string{"Run", "Portfolio", "Generated", "Equity", "Gross Notional", "Gross Exposure", "Leverage", "Post-trade Leverage", "Unrealized P&L", "Trades"}
)

type excelStyles struct {
	header int
	number int
	ratio  int
}

// WriteXLSX writes a workbook with a Trades sheet and a Metrics sheet
// covering every report.
func WriteXLSX(path string, reports []Report) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	if err := fx.SetSheetName(fx.GetSheetName(0), tradesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(metricsSheet); err != nil {
		return err
	}

	styles, err := createExcelStyles(fx)
	if err != nil {
		return err
	}
	if err := writeTradesSheet(fx, reports, styles); err != nil {
		return err
	}
	if err := writeMetricsSheet(fx, reports, styles); err != nil {
		return err
	}
	return fx.SaveAs(path)
}

func createExcelStyles(fx *excelize.File) (excelStyles, error) {
	var s excelStyles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}

	s.header, err = fx.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2F4F4F"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    border,
	})
	if err != nil {
		return s, err
	}
	fmtNumber := "#,##0.00"
	s.number, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtNumber,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	if err != nil {
		return s, err
	}
	fmtRatio := "0.0000"
	s.ratio, err = fx.NewStyle(&excelize.Style{
		CustomNumFmt: &fmtRatio,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
		Border:       border,
	})
	return s, err
}

func writeHeader(fx *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := fx.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, "A1", last, style)
}

func writeTradesSheet(fx *excelize.File, reports []Report, s excelStyles) error {
	if err := writeHeader(fx, tradesSheet, tradeHeaders, s.header); err != nil {
		return err
	}
	row := 2
	for _, r := range reports {
		for i, t := range r.Result.Trades {
			values := []any{
				r.RunID,
				r.PortfolioID,
				i + 1,
				t.AssetID,
				t.Side.String(),
				t.Quantity.InexactFloat64(),
				t.OrderType.String(),
				t.ReferencePrice.InexactFloat64(),
				t.Notional().InexactFloat64(),
				t.Stage.String(),
				t.Limit.String(),
				t.Reason,
			}
			if err := setRow(fx, tradesSheet, row, values); err != nil {
				return err
			}
			if err := styleRange(fx, tradesSheet, 8, 9, row, s.number); err != nil {
				return err
			}
			row++
		}
	}
	return fx.SetColWidth(tradesSheet, "A", "A", 38)
}

func writeMetricsSheet(fx *excelize.File, reports []Report, s excelStyles) error {
	if err := writeHeader(fx, metricsSheet, metricHeaders, s.header); err != nil {
		return err
	}
	for i, r := range reports {
		row := i + 2
		risk := r.Result.Risk
		var postLeverage any = ""
		if r.ProForma != nil {
			postLeverage = r.ProForma.Leverage.InexactFloat64()
		}
		values := []any{
			r.RunID,
			r.PortfolioID,
			r.GeneratedAt.UTC().Format(time.RFC3339),
			risk.Equity.InexactFloat64(),
			risk.GrossNotional.InexactFloat64(),
			risk.GrossExposure.InexactFloat64(),
			risk.Leverage.InexactFloat64(),
			postLeverage,
			r.Result.PnL.UnrealizedPnL.InexactFloat64(),
			len(r.Result.Trades),
		}
		if err := setRow(fx, metricsSheet, row, values); err != nil {
			return err
		}
		if err := styleRange(fx, metricsSheet, 4, 5, row, s.number); err != nil {
			return err
		}
		if err := styleRange(fx, metricsSheet, 6, 8, row, s.ratio); err != nil {
			return err
		}
		if err := styleRange(fx, metricsSheet, 9, 9, row, s.number); err != nil {
			return err
		}
	}
	return fx.SetColWidth(metricsSheet, "A", "A", 38)
}

func setRow(fx *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return fx.SetSheetRow(sheet, cell, &values)
}

func styleRange(fx *excelize.File, sheet string, fromCol, toCol, row, style int) error {
	from, err := excelize.CoordinatesToCellName(fromCol, row)
	if err != nil {
		return err
	}
	to, err := excelize.CoordinatesToCellName(toCol, row)
	if err != nil {
		return err
	}
	return fx.SetCellStyle(sheet, from, to, style)
}
