package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// book is a scratch copy of a portfolio that proposed trades can be
// applied to. The caller's PortfolioState is never touched.
type book struct {
	cash      decimal.Decimal
	positions map[string]decimal.Decimal
	order     []string
}

func newBook(p types.PortfolioState) *book {
	b := &book{
		cash:      p.Cash(),
		positions: make(map[string]decimal.Decimal, p.PositionCount()),
		order:     make([]string, 0, p.PositionCount()),
	}
	for i := 0; i < p.PositionCount(); i++ {
		pos := p.PositionAt(i)
		b.positions[pos.AssetID()] = pos.Quantity()
		b.order = append(b.order, pos.AssetID())
	}
	return b
}

func (b *book) quantity(assetID string) decimal.Decimal {
	return b.positions[assetID]
}

func (b *book) equity(prices types.Prices) (decimal.Decimal, error) {
	equity := b.cash
	for _, asset := range b.order {
		px, err := prices.Require(asset)
		if err != nil {
			return decimal.Zero, err
		}
		equity = equity.Add(b.positions[asset].Mul(px))
	}
	return equity, nil
}

// grossNotionalExcluding sums |quantity x price| over every position
// except assetID.
func (b *book) grossNotionalExcluding(assetID string, prices types.Prices) (decimal.Decimal, error) {
	gross := decimal.Zero
	for _, asset := range b.order {
		if asset == assetID {
			continue
		}
		px, err := prices.Require(asset)
		if err != nil {
			return decimal.Zero, err
		}
		gross = gross.Add(b.positions[asset].Mul(px).Abs())
	}
	return gross, nil
}

// apply settles trades at their reference price. A closed position stays
// in the book at zero so asset order is stable.
func (b *book) apply(trades []types.ProposedTrade) error {
	for _, t := range trades {
		if t.Side != types.SideBuy && t.Side != types.SideSell {
			return &types.ValidationError{Field: "side", Reason: "unknown side on trade for " + t.AssetID}
		}
		quantity := t.SignedQuantity()
		b.cash = b.cash.Sub(quantity.Mul(t.ReferencePrice))

		held, ok := b.positions[t.AssetID]
		if !ok {
			b.order = append(b.order, t.AssetID)
		}
		b.positions[t.AssetID] = held.Add(quantity)
	}
	return nil
}
