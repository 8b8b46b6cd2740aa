package types

import (
	"github.com/shopspring/decimal"
)

// ProposedTrade is an output record. The engine never applies it to a
// PortfolioState.
type ProposedTrade struct {
	AssetID        string          `json:"asset_id"`
	Side           Side            `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	OrderType      OrderType       `json:"order_type"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	Stage          SizingStage     `json:"stage"`
	Limit          LimitKind       `json:"limit"`
	Reason         string          `json:"reason"`
}

// Notional is quantity times the reference price.
func (t ProposedTrade) Notional() decimal.Decimal {
	return t.Quantity.Mul(t.ReferencePrice)
}

// SignedQuantity is positive for buys and negative for sells.
func (t ProposedTrade) SignedQuantity() decimal.Decimal {
	if t.Side == SideSell {
		return t.Quantity.Neg()
	}
	return t.Quantity
}
