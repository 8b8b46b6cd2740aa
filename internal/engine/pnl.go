package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// ComputeUnrealizedPnL marks every position to its current price.
// RealizedPnL stays at the placeholder; there is no trade history here.
func ComputeUnrealizedPnL(portfolio types.PortfolioState, prices types.Prices) (types.PnLMetrics, error) {
	total := decimal.Zero
	perAsset := make(map[string]decimal.Decimal, portfolio.PositionCount())
	for i := 0; i < portfolio.PositionCount(); i++ {
		pos := portfolio.PositionAt(i)
		px, err := prices.Require(pos.AssetID())
		if err != nil {
			return types.PnLMetrics{}, err
		}
		pnl := px.Sub(pos.EntryPrice()).Mul(pos.Quantity())
		perAsset[pos.AssetID()] = pnl
		total = total.Add(pnl)
	}
	return types.PnLMetrics{
		UnrealizedPnL:   total,
		PerAsset:        perAsset,
		RealizedPnL:     types.RealizedPnLPlaceholder,
		RealizedTracked: false,
	}, nil
}
