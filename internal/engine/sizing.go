package engine

import (
	"fmt"

	"tradeengine/types"

	"github.com/shopspring/decimal"
)

// quantityPrecision is the number of decimal places quantities are
// truncated to when converting a notional into units of the asset.
const quantityPrecision = 16

// TargetPosition is the signed quantity the sizer wants to hold.
type TargetPosition struct {
	AssetID  string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	// Notional is the signed currency value after clamping.
	Notional decimal.Decimal
	// Requested is the signed currency value before any limit applied.
	Requested  decimal.Decimal
	Exposure   decimal.Decimal
	Confidence decimal.Decimal
	Stage      types.SizingStage
	Limit      types.LimitKind
}

// DeriveTargetPosition sizes assetID against the portfolio as it stands.
func DeriveTargetPosition(
	interp Interpretation,
	assetID string,
	portfolio types.PortfolioState,
	prices types.Prices,
	limits types.RiskLimits,
	cfg types.RiskConfig,
) (TargetPosition, error) {
	if err := checkSettings(limits, cfg); err != nil {
		return TargetPosition{}, err
	}
	bk := newBook(portfolio)
	equity, err := bk.equity(prices)
	if err != nil {
		return TargetPosition{}, err
	}
	return deriveTarget(interp, assetID, bk, equity, prices, limits, cfg)
}

func deriveTarget(
	interp Interpretation,
	assetID string,
	bk *book,
	equity decimal.Decimal,
	prices types.Prices,
	limits types.RiskLimits,
	cfg types.RiskConfig,
) (TargetPosition, error) {
	if !equity.IsPositive() {
		return TargetPosition{}, &types.InsufficientCapitalError{Equity: equity}
	}
	price, err := prices.Require(assetID)
	if err != nil {
		return TargetPosition{}, err
	}

	requested := equity.
		Mul(cfg.BaseBetFraction()).
		Mul(interp.Exposure).
		Mul(interp.Confidence).
		Mul(decimal.Min(cfg.KellyFractionCap(), interp.Exposure.Abs()))

	bound, limit, err := notionalBound(assetID, bk, equity, prices, limits)
	if err != nil {
		return TargetPosition{}, err
	}

	notional := requested
	stage := types.StageSignal
	if requested.Abs().GreaterThan(bound) {
		notional = bound
		if requested.IsNegative() {
			notional = bound.Neg()
		}
		stage = types.StageLimitClamped
	} else {
		limit = types.LimitNone
	}

	quantity, _ := notional.QuoRem(price, quantityPrecision)
	return TargetPosition{
		AssetID:    assetID,
		Quantity:   quantity,
		Price:      price,
		Notional:   quantity.Mul(price),
		Requested:  requested,
		Exposure:   interp.Exposure,
		Confidence: interp.Confidence,
		Stage:      stage,
		Limit:      limit,
	}, nil
}

// notionalBound returns the largest absolute notional assetID may hold and
// the limit that sets it. The smallest bound wins; on a tie the earlier
// limit in the list below is reported.
func notionalBound(
	assetID string,
	bk *book,
	equity decimal.Decimal,
	prices types.Prices,
	limits types.RiskLimits,
) (decimal.Decimal, types.LimitKind, error) {
	otherGross, err := bk.grossNotionalExcluding(assetID, prices)
	if err != nil {
		return decimal.Zero, types.LimitNone, err
	}

	candidates := []struct {
		kind  types.LimitKind
		bound decimal.Decimal
	}{
		{types.LimitSingleAssetWeight, limits.MaxSingleAssetWeight().Mul(equity)},
		{types.LimitPositionNotional, limits.MaxPositionSizeNotional()},
		{types.LimitGrossExposure, limits.MaxGrossExposure().Mul(equity).Sub(otherGross)},
		{types.LimitLeverage, limits.MaxLeverage().Mul(equity).Sub(otherGross)},
	}

	best := candidates[0]
	for _, c := range candidates {
		if c.bound.IsNegative() {
			return decimal.Zero, c.kind, &types.RiskLimitViolation{
				Limit:   c.kind,
				AssetID: assetID,
				Detail: fmt.Sprintf("other positions already carry %s notional against equity %s",
					otherGross.StringFixed(2), equity.StringFixed(2)),
			}
		}
		if c.bound.LessThan(best.bound) {
			best = c
		}
	}
	return best.bound, best.kind, nil
}

func checkSettings(limits types.RiskLimits, cfg types.RiskConfig) error {
	if limits.IsZero() {
		return &types.ConfigurationError{Field: "risk_limits", Reason: "must be built with NewRiskLimits"}
	}
	if cfg.IsZero() {
		return &types.ConfigurationError{Field: "risk_config", Reason: "must be built with NewRiskConfig"}
	}
	return nil
}
