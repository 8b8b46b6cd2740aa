package queries

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID           string
	Cash         decimal.Decimal
	BaseCurrency string
	AsOf         time.Time
}

type Position struct {
	PortfolioID string
	AssetID     string
	Quantity    decimal.Decimal
	EntryPrice  decimal.Decimal
}

type Signal struct {
	SignalID    string
	PortfolioID string
	AssetID     string
	SignalTs    time.Time
	Name        string
	Value       decimal.Decimal
	Confidence  decimal.Decimal
	Regime      *string
	Metadata    []byte
}

type LatestPrice struct {
	AssetID string
	Price   decimal.Decimal
}

type InsertRunParams struct {
	RunID         uuid.UUID
	PortfolioID   string
	CreatedAt     time.Time
	Equity        decimal.Decimal
	GrossNotional decimal.Decimal
	GrossExposure decimal.Decimal
	Leverage      decimal.Decimal
	UnrealizedPnl decimal.Decimal
	TradeCount    int32
}

type InsertProposedTradeParams struct {
	RunID          uuid.UUID
	Seq            int32
	AssetID        string
	Side           string
	Quantity       decimal.Decimal
	OrderType      string
	ReferencePrice decimal.Decimal
	Stage          string
	LimitKind      string
	Reason         string
}
