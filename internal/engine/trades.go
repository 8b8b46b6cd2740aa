package engine

import (
	"fmt"

	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// GenerateProposedTrades diffs every target against the current portfolio.
// Held assets without a target produce nothing.
func GenerateProposedTrades(
	targets []TargetPosition,
	portfolio types.PortfolioState,
	limits types.RiskLimits,
	cfg types.RiskConfig,
) []types.ProposedTrade {
	trades := make([]types.ProposedTrade, 0, len(targets))
	for _, target := range targets {
		if trade, ok := proposeTrade(target, portfolio.Quantity(target.AssetID), limits, cfg); ok {
			trades = append(trades, trade)
		}
	}
	return trades
}

// proposeTrade returns the trade moving current toward target, or false
// when the move is suppressed by the minimum trade notional.
func proposeTrade(
	target TargetPosition,
	current decimal.Decimal,
	limits types.RiskLimits,
	cfg types.RiskConfig,
) (types.ProposedTrade, bool) {
	price := target.Price
	minNotional := cfg.MinTradeNotional()

	delta := target.Quantity.Sub(current)
	if delta.IsZero() || delta.Mul(price).Abs().LessThan(minNotional) {
		return types.ProposedTrade{}, false
	}

	stage := target.Stage
	limit := target.Limit

	// A single trade never carries more than the per-position notional cap,
	// so a long-to-short flip may take more than one run.
	maxTrade := limits.MaxPositionSizeNotional()
	if delta.Mul(price).Abs().GreaterThan(maxTrade) {
		capped, _ := maxTrade.QuoRem(price, quantityPrecision)
		if delta.IsNegative() {
			capped = capped.Neg()
		}
		delta = capped
		stage = types.StageLimitClamped
		limit = types.LimitPositionNotional
	}

	if step, ok := cfg.RoundingStep(); ok {
		steps, _ := delta.QuoRem(step, 0)
		rounded := steps.Mul(step)
		if !rounded.Equal(delta) {
			stage = types.StageRounding
		}
		delta = rounded
		if delta.IsZero() || delta.Mul(price).Abs().LessThan(minNotional) {
			return types.ProposedTrade{}, false
		}
	}

	side := types.SideBuy
	if delta.IsNegative() {
		side = types.SideSell
	}
	quantity := delta.Abs()

	return types.ProposedTrade{
		AssetID:        target.AssetID,
		Side:           side,
		Quantity:       quantity,
		OrderType:      cfg.OrderType(),
		ReferencePrice: price,
		Stage:          stage,
		Limit:          limit,
		Reason:         tradeReason(target, stage, limit, quantity.Mul(price), cfg),
	}, true
}

func tradeReason(target TargetPosition, stage types.SizingStage, limit types.LimitKind, notional decimal.Decimal, cfg types.RiskConfig) string {
	signal := fmt.Sprintf("exposure %s at confidence %s", target.Exposure.StringFixed(4), target.Confidence.StringFixed(4))
	switch stage {
	case types.StageLimitClamped:
		return fmt.Sprintf("%s by %s: requested %s, trade notional %s (%s)",
			stage, limit, target.Requested.Abs().StringFixed(2), notional.StringFixed(2), signal)
	case types.StageRounding:
		step, _ := cfg.RoundingStep()
		if limit != types.LimitNone {
			return fmt.Sprintf("%s to step %s after %s clamp: trade notional %s (%s)",
				stage, step, limit, notional.StringFixed(2), signal)
		}
		return fmt.Sprintf("%s to step %s: trade notional %s (%s)", stage, step, notional.StringFixed(2), signal)
	default:
		return fmt.Sprintf("%s: %s, trade notional %s", stage, signal, notional.StringFixed(2))
	}
}
