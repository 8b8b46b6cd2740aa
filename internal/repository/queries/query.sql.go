package queries

import (
	"context"
	"time"
)

const getPortfolio = `-- name: GetPortfolio :one
SELECT id, cash, base_currency, as_of FROM portfolios
WHERE id = $1
`

func (q *Queries) GetPortfolio(ctx context.Context, id string) (Portfolio, error) {
	row := q.db.QueryRow(ctx, getPortfolio, id)
	var i Portfolio
	err := row.Scan(
		&i.ID,
		&i.Cash,
		&i.BaseCurrency,
		&i.AsOf,
	)
	return i, err
}

const listPortfolioIDs = `-- name: ListPortfolioIDs :many
SELECT id FROM portfolios
ORDER BY id
`

func (q *Queries) ListPortfolioIDs(ctx context.Context) ([]string, error) {
	rows, err := q.db.Query(ctx, listPortfolioIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		items = append(items, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPositions = `-- name: ListPositions :many
SELECT portfolio_id, asset_id, quantity, entry_price FROM positions
WHERE portfolio_id = $1
ORDER BY asset_id
`

func (q *Queries) ListPositions(ctx context.Context, portfolioID string) ([]Position, error) {
	rows, err := q.db.Query(ctx, listPositions, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Position
	for rows.Next() {
		var i Position
		if err := rows.Scan(
			&i.PortfolioID,
			&i.AssetID,
			&i.Quantity,
			&i.EntryPrice,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSignals = `-- name: ListSignals :many
SELECT signal_id, portfolio_id, asset_id, signal_ts, name, value, confidence, regime, metadata FROM signals
WHERE portfolio_id = $1
  AND signal_ts > $2
  AND signal_ts <= $3
ORDER BY signal_ts, signal_id
`

type ListSignalsParams struct {
	PortfolioID string
	Since       time.Time
	Until       time.Time
}

func (q *Queries) ListSignals(ctx context.Context, arg ListSignalsParams) ([]Signal, error) {
	rows, err := q.db.Query(ctx, listSignals, arg.PortfolioID, arg.Since, arg.Until)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Signal
	for rows.Next() {
		var i Signal
		if err := rows.Scan(
			&i.SignalID,
			&i.PortfolioID,
			&i.AssetID,
			&i.SignalTs,
			&i.Name,
			&i.Value,
			&i.Confidence,
			&i.Regime,
			&i.Metadata,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLatestPrices = `-- name: ListLatestPrices :many
SELECT DISTINCT ON (asset_id) asset_id, price FROM prices
WHERE as_of <= $1
ORDER BY asset_id, as_of DESC
`

func (q *Queries) ListLatestPrices(ctx context.Context, asOf time.Time) ([]LatestPrice, error) {
	rows, err := q.db.Query(ctx, listLatestPrices, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []LatestPrice
	for rows.Next() {
		var i LatestPrice
		if err := rows.Scan(&i.AssetID, &i.Price); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertRun = `-- name: InsertRun :exec
INSERT INTO engine_runs (
    run_id, portfolio_id, created_at, equity, gross_notional, gross_exposure, leverage, unrealized_pnl, trade_count
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9
)
`

func (q *Queries) InsertRun(ctx context.Context, arg InsertRunParams) error {
	_, err := q.db.Exec(ctx, insertRun,
		arg.RunID,
		arg.PortfolioID,
		arg.CreatedAt,
		arg.Equity,
		arg.GrossNotional,
		arg.GrossExposure,
		arg.Leverage,
		arg.UnrealizedPnl,
		arg.TradeCount,
	)
	return err
}

const insertProposedTrade = `-- name: InsertProposedTrade :exec
INSERT INTO proposed_trades (
    run_id, seq, asset_id, side, quantity, order_type, reference_price, stage, limit_kind, reason
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
`

func (q *Queries) InsertProposedTrade(ctx context.Context, arg InsertProposedTradeParams) error {
	_, err := q.db.Exec(ctx, insertProposedTrade,
		arg.RunID,
		arg.Seq,
		arg.AssetID,
		arg.Side,
		arg.Quantity,
		arg.OrderType,
		arg.ReferencePrice,
		arg.Stage,
		arg.LimitKind,
		arg.Reason,
	)
	return err
}
