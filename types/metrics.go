package types

import "github.com/shopspring/decimal"

// RiskMetrics is derived read-only from a portfolio and prices.
//
// GrossExposure and Leverage share the numerator sum(|notional|) and the
// equity denominator. They are kept as separate fields because limit
// checks reference Leverage specifically.
type RiskMetrics struct {
	Equity        decimal.Decimal            `json:"equity"`
	GrossNotional decimal.Decimal            `json:"gross_notional"`
	GrossExposure decimal.Decimal            `json:"gross_exposure"`
	Leverage      decimal.Decimal            `json:"leverage"`
	Weights       map[string]decimal.Decimal `json:"weights"`
}

// PnLMetrics carries unrealized P&L. Realized P&L needs closed-trade
// history, which the engine does not have, so RealizedPnL is always zero
// and RealizedTracked is always false.
type PnLMetrics struct {
	UnrealizedPnL   decimal.Decimal            `json:"unrealized_pnl"`
	PerAsset        map[string]decimal.Decimal `json:"per_asset"`
	RealizedPnL     decimal.Decimal            `json:"realized_pnl"`
	RealizedTracked bool                       `json:"realized_tracked"`
}

// RealizedPnLPlaceholder is the fixed realized P&L reported until trade
// history is available.
var RealizedPnLPlaceholder = decimal.Zero
