package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"tradeengine/internal/repository/queries"
	"tradeengine/internal/snapshot"
	"tradeengine/types"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// PortfolioIDs lists every stored portfolio.
func (db *Database) PortfolioIDs(ctx context.Context) ([]string, error) {
	ids, err := db.portfolios.ListPortfolioIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list portfolios: %w", err)
	}
	return ids, nil
}

// Load reads the portfolio, its positions, the signals inside the signal
// window ending at the portfolio timestamp and the latest price per asset
// at that timestamp.
func (db *Database) Load(ctx context.Context, portfolioID string) (snapshot.Snapshot, error) {
	p, err := db.portfolios.GetPortfolio(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return snapshot.Snapshot{}, fmt.Errorf("portfolio %s %w", portfolioID, ErrPortfolioNotFound)
		}
		return snapshot.Snapshot{}, fmt.Errorf("get portfolio %s: %w", portfolioID, err)
	}
	positionRows, err := db.portfolios.ListPositions(ctx, portfolioID)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list positions %s: %w", portfolioID, err)
	}
	signalRows, err := db.signals.ListSignals(ctx, queries.ListSignalsParams{
		PortfolioID: portfolioID,
		Since:       p.AsOf.Add(-db.signalWindow),
		Until:       p.AsOf,
	})
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list signals %s: %w", portfolioID, err)
	}
	priceRows, err := db.prices.ListLatestPrices(ctx, p.AsOf)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("list prices: %w", err)
	}
	if len(priceRows) == 0 {
		return snapshot.Snapshot{}, fmt.Errorf("as of %s: %w", p.AsOf, ErrNoPrices)
	}

	portfolio, err := convertPortfolio(p, positionRows, db.limits)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	signals, err := convertSignals(signalRows)
	if err != nil {
		return snapshot.Snapshot{}, err
	}
	prices, err := convertPrices(priceRows)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	log.Debug().
		Str("portfolio", portfolioID).
		Int("positions", len(positionRows)).
		Int("signals", len(signalRows)).
		Int("prices", len(priceRows)).
		Msg("snapshot loaded")

	return snapshot.Snapshot{
		PortfolioID: portfolioID,
		Portfolio:   portfolio,
		Signals:     signals,
		Prices:      prices,
	}, nil
}

func convertPortfolio(p queries.Portfolio, rows []queries.Position, limits types.RiskLimits) (types.PortfolioState, error) {
	positions := make([]types.Position, 0, len(rows))
	for _, row := range rows {
		pos, err := types.NewPosition(row.AssetID, row.Quantity, row.EntryPrice)
		if err != nil {
			return types.PortfolioState{}, err
		}
		positions = append(positions, pos)
	}
	return types.NewPortfolioState(p.AsOf, p.Cash, positions, p.BaseCurrency, limits)
}

func convertSignals(rows []queries.Signal) ([]types.SignalSnapshot, error) {
	signals := make([]types.SignalSnapshot, 0, len(rows))
	for _, row := range rows {
		var opts []types.SignalOption
		if row.Regime != nil && *row.Regime != "" {
			opts = append(opts, types.WithRegime(*row.Regime))
		}
		if len(row.Metadata) > 0 {
			md, err := convertMetadata(row.SignalID, row.Metadata)
			if err != nil {
				return nil, err
			}
			opts = append(opts, types.WithMetadata(md))
		}
		s, err := types.NewSignalSnapshot(row.SignalID, row.AssetID, row.SignalTs, row.Name, row.Value, row.Confidence, opts...)
		if err != nil {
			return nil, err
		}
		signals = append(signals, s)
	}
	return signals, nil
}

// convertMetadata decodes a JSONB object. Values other than strings,
// numbers and booleans are rejected.
func convertMetadata(signalID string, raw []byte) (types.Metadata, error) {
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return types.Metadata{}, &types.ValidationError{Field: "metadata", Reason: fmt.Sprintf("signal %s: %v", signalID, err)}
	}
	entries := make(map[string]types.MetadataValue, len(obj))
	for k, v := range obj {
		switch x := v.(type) {
		case string:
			entries[k] = types.StringValue(x)
		case float64:
			entries[k] = types.NumberValue(x)
		case bool:
			entries[k] = types.BoolValue(x)
		default:
			return types.Metadata{}, &types.ValidationError{Field: "metadata", Reason: fmt.Sprintf("signal %s: key %q has unsupported type %T", signalID, k, v)}
		}
	}
	return types.NewMetadata(entries)
}

func convertPrices(rows []queries.LatestPrice) (types.Prices, error) {
	m := make(map[string]decimal.Decimal, len(rows))
	for _, row := range rows {
		m[row.AssetID] = row.Price
	}
	return types.NewPrices(m)
}
