package repository

import (
	"context"
	"fmt"
	"time"

	"tradeengine/internal/engine"
	"tradeengine/internal/repository/queries"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SaveRun stores the run metrics and its proposed trades in a single
// transaction. Nothing is written if any insert fails.
func (db *Database) SaveRun(ctx context.Context, runID uuid.UUID, portfolioID string, at time.Time, res engine.Result) error {
	err := db.inTx(ctx, func(q runsRepository) error {
		if err := q.InsertRun(ctx, queries.InsertRunParams{
			RunID:         runID,
			PortfolioID:   portfolioID,
			CreatedAt:     at,
			Equity:        res.Risk.Equity,
			GrossNotional: res.Risk.GrossNotional,
			GrossExposure: res.Risk.GrossExposure,
			Leverage:      res.Risk.Leverage,
			UnrealizedPnl: res.PnL.UnrealizedPnL,
			TradeCount:    int32(len(res.Trades)),
		}); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for i, t := range res.Trades {
			if err := q.InsertProposedTrade(ctx, queries.InsertProposedTradeParams{
				RunID:          runID,
				Seq:            int32(i),
				AssetID:        t.AssetID,
				Side:           t.Side.String(),
				Quantity:       t.Quantity,
				OrderType:      t.OrderType.String(),
				ReferencePrice: t.ReferencePrice,
				Stage:          t.Stage.String(),
				LimitKind:      t.Limit.String(),
				Reason:         t.Reason,
			}); err != nil {
				return fmt.Errorf("insert trade %d (%s): %w", i, t.AssetID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", runID, err)
	}
	log.Debug().
		Str("run_id", runID.String()).
		Str("portfolio", portfolioID).
		Int("trades", len(res.Trades)).
		Msg("run saved")
	return nil
}
