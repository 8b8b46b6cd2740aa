package reporting

import (
	"bytes"
	"encoding/csv"
	"path/filepath"
	"testing"
	"time"

	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleReports() []Report {
	proForma := types.RiskMetrics{GrossExposure: d("0.4"), Leverage: d("0.4")}
	return []Report{
		{
			RunID:       "run-1",
			PortfolioID: "alpha",
			GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Result: engine.Result{
				Trades: []types.ProposedTrade{
					{AssetID: "BTC", Side: types.SideBuy, Quantity: d("0.02"), OrderType: types.OrderTypeMarket,
						ReferencePrice: d("50000"), Stage: types.StageLimitClamped, Limit: types.LimitPositionNotional, Reason: "clamped"},
					{AssetID: "ETH", Side: types.SideSell, Quantity: d("1.5"), OrderType: types.OrderTypeMarket,
						ReferencePrice: d("2000"), Stage: types.StageSignal, Reason: "signal"},
				},
				Risk: types.RiskMetrics{
					Equity: d("100000"), GrossNotional: d("10000"), GrossExposure: d("0.1"), Leverage: d("0.1"),
					Weights: map[string]decimal.Decimal{"ETH": d("0.1")},
				},
				PnL: types.PnLMetrics{UnrealizedPnL: d("1000"), PerAsset: map[string]decimal.Decimal{"ETH": d("1000")}},
			},
			ProForma: &proForma,
		},
		{
			RunID:       "run-2",
			PortfolioID: "beta",
			GeneratedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			Result: engine.Result{
				Trades: []types.ProposedTrade{},
				Risk:   types.RiskMetrics{Equity: d("5000"), Weights: map[string]decimal.Decimal{}},
			},
		},
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, sampleReports()[0])
	out := buf.String()

	assert.Contains(t, out, "PROPOSED TRADES")
	assert.Contains(t, out, "max_position_size_notional")
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "Post-trade Leverage")
	assert.Contains(t, out, "not tracked")
	assert.Contains(t, out, "Weight ETH")

	buf.Reset()
	PrintReport(&buf, sampleReports()[1])
	assert.Contains(t, buf.String(), "no trades")
	assert.NotContains(t, buf.String(), "Post-trade")
}

func TestWriteTradesCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTradesCSV(&buf, sampleReports()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "run_id", records[0][0])
	assert.Equal(t, []string{"run-1", "alpha", "0", "BTC", "BUY", "0.02", "MARKET", "50000", "1000", "limit-clamped", "max_position_size_notional", "clamped", "2024-03-01T12:00:00Z"}, records[1])
	assert.Equal(t, "none", records[2][10])
}

func TestWriteTradesCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	require.NoError(t, WriteTradesCSVFile(path, sampleReports()))
	assert.FileExists(t, path)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	require.NoError(t, WriteXLSX(path, sampleReports()))

	fx, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer fx.Close()

	assert.Equal(t, []string{tradesSheet, metricsSheet}, fx.GetSheetList())

	asset, err := fx.GetCellValue(tradesSheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "ETH", asset)

	notional, err := fx.GetCellValue(tradesSheet, "I2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1000", notional)

	portfolio, err := fx.GetCellValue(metricsSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "beta", portfolio)

	trades, err := fx.GetCellValue(metricsSheet, "J2")
	require.NoError(t, err)
	assert.Equal(t, "2", trades)
}
