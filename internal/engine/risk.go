package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// ComputeRiskMetrics reports exposure and weights for the portfolio as held.
func ComputeRiskMetrics(portfolio types.PortfolioState, prices types.Prices) (types.RiskMetrics, error) {
	return newBook(portfolio).riskMetrics(prices)
}

// ProFormaRiskMetrics reports exposure and weights as if trades had been
// filled at their reference price.
func ProFormaRiskMetrics(portfolio types.PortfolioState, trades []types.ProposedTrade, prices types.Prices) (types.RiskMetrics, error) {
	bk := newBook(portfolio)
	if err := bk.apply(trades); err != nil {
		return types.RiskMetrics{}, err
	}
	return bk.riskMetrics(prices)
}

func (b *book) riskMetrics(prices types.Prices) (types.RiskMetrics, error) {
	equity, err := b.equity(prices)
	if err != nil {
		return types.RiskMetrics{}, err
	}
	if !equity.IsPositive() {
		return types.RiskMetrics{}, &types.InsufficientCapitalError{Equity: equity}
	}

	gross := decimal.Zero
	weights := make(map[string]decimal.Decimal, len(b.order))
	for _, asset := range b.order {
		px, _ := prices.Get(asset)
		notional := b.positions[asset].Mul(px)
		gross = gross.Add(notional.Abs())
		weights[asset] = notional.Div(equity)
	}

	exposure := gross.Div(equity)
	return types.RiskMetrics{
		Equity:        equity,
		GrossNotional: gross,
		GrossExposure: exposure,
		Leverage:      gross.Div(equity),
		Weights:       weights,
	}, nil
}
