package types

import "github.com/shopspring/decimal"

// RiskLimits are the portfolio-wide caps applied during sizing.
type RiskLimits struct {
	maxGrossExposure        decimal.Decimal
	maxSingleAssetWeight    decimal.Decimal
	maxLeverage             decimal.Decimal
	maxPositionSizeNotional decimal.Decimal
}

// NewRiskLimits requires every limit to be strictly positive.
func NewRiskLimits(maxGrossExposure, maxSingleAssetWeight, maxLeverage, maxPositionSizeNotional decimal.Decimal) (RiskLimits, error) {
	checks := []struct {
		field string
		v     decimal.Decimal
	}{
		{"max_gross_exposure", maxGrossExposure},
		{"max_single_asset_weight", maxSingleAssetWeight},
		{"max_leverage", maxLeverage},
		{"max_position_size_notional", maxPositionSizeNotional},
	}
	for _, c := range checks {
		if !c.v.IsPositive() {
			return RiskLimits{}, configErr(c.field, "must be > 0, got %s", c.v)
		}
	}
	return RiskLimits{
		maxGrossExposure:        maxGrossExposure,
		maxSingleAssetWeight:    maxSingleAssetWeight,
		maxLeverage:             maxLeverage,
		maxPositionSizeNotional: maxPositionSizeNotional,
	}, nil
}

func (l RiskLimits) MaxGrossExposure() decimal.Decimal        { return l.maxGrossExposure }
func (l RiskLimits) MaxSingleAssetWeight() decimal.Decimal    { return l.maxSingleAssetWeight }
func (l RiskLimits) MaxLeverage() decimal.Decimal             { return l.maxLeverage }
func (l RiskLimits) MaxPositionSizeNotional() decimal.Decimal { return l.maxPositionSizeNotional }

// IsZero reports whether l was never built through NewRiskLimits.
func (l RiskLimits) IsZero() bool { return !l.maxGrossExposure.IsPositive() }

// RiskConfig holds the sizing parameters.
type RiskConfig struct {
	baseBetFraction  decimal.Decimal
	kellyFractionCap decimal.Decimal
	minTradeNotional decimal.Decimal
	roundingStep     decimal.Decimal
	hasRoundingStep  bool
	orderType        OrderType
	err              error
}

type RiskConfigOption func(*RiskConfig)

// WithRoundingStep sets the quantity granularity trades are truncated to.
func WithRoundingStep(step decimal.Decimal) RiskConfigOption {
	return func(c *RiskConfig) {
		if !step.IsPositive() {
			c.err = configErr("rounding_step", "must be > 0, got %s", step)
			return
		}
		c.roundingStep = step
		c.hasRoundingStep = true
	}
}

func WithOrderType(t OrderType) RiskConfigOption {
	return func(c *RiskConfig) {
		if _, ok := orderTypeNames[t]; !ok {
			c.err = configErr("order_type", "unknown value %d", uint8(t))
			return
		}
		c.orderType = t
	}
}

// NewRiskConfig requires base_bet_fraction > 0, kelly_fraction_cap in
// (0, 1] and min_trade_notional >= 0.
func NewRiskConfig(baseBetFraction, kellyFractionCap, minTradeNotional decimal.Decimal, opts ...RiskConfigOption) (RiskConfig, error) {
	if !baseBetFraction.IsPositive() {
		return RiskConfig{}, configErr("base_bet_fraction", "must be > 0, got %s", baseBetFraction)
	}
	if !kellyFractionCap.IsPositive() || kellyFractionCap.GreaterThan(one) {
		return RiskConfig{}, configErr("kelly_fraction_cap", "must be in (0, 1], got %s", kellyFractionCap)
	}
	if minTradeNotional.IsNegative() {
		return RiskConfig{}, configErr("min_trade_notional", "must be >= 0, got %s", minTradeNotional)
	}
	c := RiskConfig{
		baseBetFraction:  baseBetFraction,
		kellyFractionCap: kellyFractionCap,
		minTradeNotional: minTradeNotional,
		orderType:        OrderTypeMarket,
	}
	for _, opt := range opts {
		opt(&c)
		if c.err != nil {
			return RiskConfig{}, c.err
		}
	}
	return c, nil
}

func (c RiskConfig) BaseBetFraction() decimal.Decimal  { return c.baseBetFraction }
func (c RiskConfig) KellyFractionCap() decimal.Decimal { return c.kellyFractionCap }
func (c RiskConfig) MinTradeNotional() decimal.Decimal { return c.minTradeNotional }
func (c RiskConfig) OrderType() OrderType              { return c.orderType }

// RoundingStep returns the quantity step and whether one is configured.
func (c RiskConfig) RoundingStep() (decimal.Decimal, bool) { return c.roundingStep, c.hasRoundingStep }

// IsZero reports whether c was never built through NewRiskConfig.
func (c RiskConfig) IsZero() bool { return !c.baseBetFraction.IsPositive() }
