package reporting

import (
	"fmt"
	"io"
	"sort"
	"time"

	"tradeengine/internal/engine"
	"tradeengine/types"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/shopspring/decimal"
)

const displayPlaces = 8

// Report is one engine run for one portfolio.
type Report struct {
	RunID       string        `json:"run_id"`
	PortfolioID string        `json:"portfolio_id"`
	GeneratedAt time.Time     `json:"generated_at"`
	Result      engine.Result `json:"result"`
	// ProForma is the risk picture after the proposed trades, when known.
	ProForma *types.RiskMetrics `json:"pro_forma,omitempty"`
}

// PrintReport renders the trade and metric tables to w.
func PrintReport(w io.Writer, r Report) {
	fmt.Fprintf(w, "===== Run %s | portfolio %s | %s =====\n",
		r.RunID, r.PortfolioID, r.GeneratedAt.UTC().Format(time.RFC3339))

	printTrades(w, r.Result.Trades)
	printMetrics(w, r)
}

func printTrades(w io.Writer, trades []types.ProposedTrade) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("PROPOSED TRADES")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Asset", "Side", "Quantity", "Ref Price", "Notional", "Stage", "Limit"})
	for i, tr := range trades {
		limit := ""
		if tr.Limit != types.LimitNone {
			limit = tr.Limit.String()
		}
		t.AppendRow(table.Row{
			i + 1,
			tr.AssetID,
			tr.Side.String(),
			tr.Quantity.String(),
			tr.ReferencePrice.String(),
			tr.Notional().StringFixed(2),
			tr.Stage.String(),
			limit,
		})
	}
	if len(trades) == 0 {
		t.AppendRow(table.Row{"-", "no trades", "", "", "", "", "", ""})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	t.Render()
}

func printMetrics(w io.Writer, r Report) {
	risk, pnl := r.Result.Risk, r.Result.PnL

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("PORTFOLIO METRICS")
	t.SetStyle(table.StyleRounded)
	t.AppendRows([]table.Row{
		{"Equity", risk.Equity.StringFixed(2)},
		{"Gross Notional", risk.GrossNotional.StringFixed(2)},
		{"Gross Exposure", fmtRatio(risk.GrossExposure)},
		{"Leverage", fmtRatio(risk.Leverage)},
		{"Unrealized P&L", pnl.UnrealizedPnL.StringFixed(2)},
		{"Realized P&L", realized(pnl)},
	})
	if r.ProForma != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Post-trade Gross Exposure", fmtRatio(r.ProForma.GrossExposure)},
			{"Post-trade Leverage", fmtRatio(r.ProForma.Leverage)},
		})
	}
	t.AppendSeparator()
	for _, asset := range sortedKeys(risk.Weights) {
		t.AppendRow(table.Row{"Weight " + asset, fmtRatio(risk.Weights[asset])})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 20, Align: text.AlignLeft},
		{Number: 2, WidthMin: 18, Align: text.AlignRight},
	})
	t.Render()
}

func realized(pnl types.PnLMetrics) string {
	if !pnl.RealizedTracked {
		return "not tracked"
	}
	return pnl.RealizedPnL.StringFixed(2)
}

func fmtRatio(d decimal.Decimal) string {
	return d.StringFixed(displayPlaces)
}

func sortedKeys(m map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
