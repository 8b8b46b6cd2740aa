package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a signed holding of one asset. Negative quantity is short.
type Position struct {
	assetID    string
	quantity   decimal.Decimal
	entryPrice decimal.Decimal
}

func NewPosition(assetID string, quantity, entryPrice decimal.Decimal) (Position, error) {
	if assetID == "" {
		return Position{}, validationErr("asset_id", "must not be empty")
	}
	if entryPrice.IsNegative() {
		return Position{}, validationErr("entry_price", "%s is negative (asset %s)", entryPrice, assetID)
	}
	return Position{assetID: assetID, quantity: quantity, entryPrice: entryPrice}, nil
}

func (p Position) AssetID() string             { return p.assetID }
func (p Position) Quantity() decimal.Decimal   { return p.quantity }
func (p Position) EntryPrice() decimal.Decimal { return p.entryPrice }

// PortfolioState is one snapshot of cash and positions. Equity is always
// derived from prices and never stored.
type PortfolioState struct {
	timestamp    time.Time
	cash         decimal.Decimal
	positions    []Position
	index        map[string]int
	baseCurrency string
	limits       RiskLimits
}

// NewPortfolioState keeps positions in the given order and rejects a
// duplicated asset id.
func NewPortfolioState(
	timestamp time.Time,
	cash decimal.Decimal,
	positions []Position,
	baseCurrency string,
	limits RiskLimits,
) (PortfolioState, error) {
	if baseCurrency == "" {
		return PortfolioState{}, validationErr("base_currency", "must not be empty")
	}
	if limits.IsZero() {
		return PortfolioState{}, configErr("risk_limits", "must be built with NewRiskLimits")
	}
	index := make(map[string]int, len(positions))
	for i, p := range positions {
		if p.assetID == "" {
			return PortfolioState{}, validationErr("positions", "entry %d has no asset id", i)
		}
		if _, dup := index[p.assetID]; dup {
			return PortfolioState{}, validationErr("positions", "asset %s appears more than once", p.assetID)
		}
		index[p.assetID] = i
	}
	return PortfolioState{
		timestamp:    timestamp,
		cash:         cash,
		positions:    append([]Position(nil), positions...),
		index:        index,
		baseCurrency: baseCurrency,
		limits:       limits,
	}, nil
}

func (p PortfolioState) Timestamp() time.Time      { return p.timestamp }
func (p PortfolioState) Cash() decimal.Decimal     { return p.cash }
func (p PortfolioState) BaseCurrency() string      { return p.baseCurrency }
func (p PortfolioState) RiskLimits() RiskLimits    { return p.limits }
func (p PortfolioState) Positions() []Position     { return append([]Position(nil), p.positions...) }
func (p PortfolioState) PositionCount() int        { return len(p.positions) }
func (p PortfolioState) PositionAt(i int) Position { return p.positions[i] }

// Position returns the holding for assetID, if any.
func (p PortfolioState) Position(assetID string) (Position, bool) {
	i, ok := p.index[assetID]
	if !ok {
		return Position{}, false
	}
	return p.positions[i], true
}

// Quantity returns the held quantity of assetID, zero when flat.
func (p PortfolioState) Quantity(assetID string) decimal.Decimal {
	if pos, ok := p.Position(assetID); ok {
		return pos.quantity
	}
	return decimal.Zero
}

// Equity is cash plus the marked value of every position.
func (p PortfolioState) Equity(prices Prices) (decimal.Decimal, error) {
	equity := p.cash
	for _, pos := range p.positions {
		px, err := prices.Require(pos.assetID)
		if err != nil {
			return decimal.Zero, err
		}
		equity = equity.Add(pos.quantity.Mul(px))
	}
	return equity, nil
}

// Prices maps asset id to a strictly positive price.
type Prices struct {
	m map[string]decimal.Decimal
}

func NewPrices(m map[string]decimal.Decimal) (Prices, error) {
	out := make(map[string]decimal.Decimal, len(m))
	for asset, px := range m {
		if asset == "" {
			return Prices{}, validationErr("prices", "empty asset id")
		}
		if !px.IsPositive() {
			return Prices{}, validationErr("prices", "price for %s must be > 0, got %s", asset, px)
		}
		out[asset] = px
	}
	return Prices{m: out}, nil
}

func (p Prices) Get(assetID string) (decimal.Decimal, bool) {
	px, ok := p.m[assetID]
	return px, ok
}

// Require returns the price of assetID or a MissingPriceError.
func (p Prices) Require(assetID string) (decimal.Decimal, error) {
	px, ok := p.m[assetID]
	if !ok {
		return decimal.Zero, &MissingPriceError{AssetID: assetID}
	}
	return px, nil
}

func (p Prices) Len() int { return len(p.m) }
