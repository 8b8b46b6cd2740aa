package engine

import (
	"encoding/json"
	"errors"
	"testing"

	"tradeengine/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunTradeEngine_SingleSignalBuy(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	require.Len(t, got.Trades, 1)
	trade := got.Trades[0]
	assert.Equal(t, "BTC", trade.AssetID)
	assert.Equal(t, types.SideBuy, trade.Side)
	requireDecEqual(t, "0.0072", trade.Quantity)
	requireDecEqual(t, "360", trade.Notional())
	assert.Equal(t, types.StageSignal, trade.Stage)
	assert.Contains(t, trade.Reason, "signal-driven")

	requireDecEqual(t, "100000", got.Risk.Equity)
	requireDecEqual(t, "0", got.Risk.GrossExposure)
	requireDecEqual(t, "0", got.PnL.UnrealizedPnL)
}

func TestRunTradeEngine_WeightClampToOnePercent(t *testing.T) {
	limits := newLimits(t, "10", "0.01", "10", "100000000")
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.1", "0.25", "0")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	require.Len(t, got.Trades, 1)
	requireDecEqual(t, "1000", got.Trades[0].Notional())
	assert.Equal(t, types.StageLimitClamped, got.Trades[0].Stage)
	assert.Equal(t, types.LimitSingleAssetWeight, got.Trades[0].Limit)
}

func TestRunTradeEngine_ZeroEquity(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "0", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	assert.ErrorIs(t, err, types.ErrInsufficientCapital)
	assert.Empty(t, got.Trades)
}

func TestRunTradeEngine_HeldAssetWithoutPrice(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "100000", limits, newPosition(t, "ETH", "2", "2000"))
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	var priceErr *types.MissingPriceError
	require.True(t, errors.As(err, &priceErr))
	assert.Equal(t, "ETH", priceErr.AssetID)
	assert.Empty(t, got.Trades)
}

func TestRunTradeEngine_SmallDeltaSuppressed(t *testing.T) {
	limits := looseLimits(t)
	// holds 310 of BTC, target is 360: delta notional 50
	portfolio := newPortfolio(t, "99690", limits, newPosition(t, "BTC", "0.0062", "50000"))
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "100")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)
	assert.Empty(t, got.Trades)
	assert.NotNil(t, got.Trades)
	requireDecEqual(t, "100000", got.Risk.Equity)
}

func TestRunTradeEngine_OpposingSignalsCombine(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{
		newSignal(t, "s1", "BTC", "1.0", "0.9"),
		newSignal(t, "s2", "BTC", "-1.0", "0.1"),
	}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	// exposure 0.8, confidence 0.82: 100000*0.02*0.8*0.82*0.25 = 328
	require.Len(t, got.Trades, 1)
	requireDecEqual(t, "328", got.Trades[0].Notional())
}

func TestRunTradeEngine_UnsignalledHoldingIsHeld(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "90000", limits, newPosition(t, "ETH", "5", "1800"))
	prices := newPrices(t, map[string]string{"BTC": "50000", "ETH": "2000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{newSignal(t, "s1", "BTC", "0.8", "0.9")}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	require.Len(t, got.Trades, 1)
	assert.Equal(t, "BTC", got.Trades[0].AssetID)
	requireDecEqual(t, "1000", got.PnL.UnrealizedPnL)
	requireDecEqual(t, "0.1", got.Risk.Weights["ETH"])
}

func TestRunTradeEngine_AllOrNothing(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})
	cfg := newConfig(t, "0.02", "0.25", "0")
	signals := []types.SignalSnapshot{
		newSignal(t, "s1", "BTC", "0.8", "0.9"),
		newSignal(t, "s2", "XRP", "0.5", "0.9"),
	}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	assert.ErrorIs(t, err, types.ErrMissingPrice)
	assert.Nil(t, got.Trades)
	assert.Nil(t, got.Risk.Weights)
	assert.Nil(t, got.PnL.PerAsset)
}

func TestRunTradeEngine_UnbuiltSettings(t *testing.T) {
	limits := looseLimits(t)
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000"})

	_, err := RunTradeEngine(nil, portfolio, prices, types.RiskLimits{}, newConfig(t, "0.02", "0.25", "0"))
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestRunTradeEngine_LeverageHeldAcrossBatch(t *testing.T) {
	// weight caps each asset at 60000, leverage caps the book at 120000
	limits := newLimits(t, "1.5", "0.6", "1.2", "1000000")
	portfolio := newPortfolio(t, "100000", limits)
	prices := newPrices(t, map[string]string{"BTC": "50000", "ETH": "2000", "SOL": "100"})
	cfg := newConfig(t, "1", "1", "0")
	signals := []types.SignalSnapshot{
		newSignal(t, "s1", "BTC", "1", "1"),
		newSignal(t, "s2", "ETH", "1", "1"),
		newSignal(t, "s3", "SOL", "1", "1"),
	}

	got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	require.Len(t, got.Trades, 2)
	assert.Equal(t, "BTC", got.Trades[0].AssetID)
	requireDecEqual(t, "1.2", got.Trades[0].Quantity)
	assert.Equal(t, "ETH", got.Trades[1].AssetID)
	requireDecEqual(t, "30", got.Trades[1].Quantity)

	post, err := ProFormaRiskMetrics(portfolio, got.Trades, prices)
	require.NoError(t, err)
	assert.True(t, post.Leverage.LessThanOrEqual(limits.MaxLeverage()), "leverage %s", post.Leverage)
	assert.True(t, post.GrossExposure.LessThanOrEqual(limits.MaxGrossExposure()))
}

func TestRunTradeEngine_RangeAndLeverageBounds(t *testing.T) {
	cases := []struct {
		name      string
		limits    [4]string
		cash      string
		positions []types.Position
		signals   [][3]string // asset, value, confidence
		step      string
	}{
		{
			name:    "tight notional cap",
			limits:  [4]string{"2", "0.5", "2", "2500"},
			cash:    "100000",
			signals: [][3]string{{"BTC", "1", "1"}, {"ETH", "-1", "0.7"}, {"SOL", "0.4", "0.9"}},
		},
		{
			name:      "flip from long to short",
			limits:    [4]string{"2", "0.3", "1.5", "20000"},
			cash:      "70000",
			positions: []types.Position{mustPosition("ETH", "10", "1500")},
			signals:   [][3]string{{"ETH", "-1", "1"}},
		},
		{
			name:      "existing book near leverage limit",
			limits:    [4]string{"1", "0.5", "0.9", "1000000"},
			cash:      "20000",
			positions: []types.Position{mustPosition("BTC", "1.6", "45000"), mustPosition("SOL", "-20", "120")},
			signals:   [][3]string{{"ETH", "1", "1"}, {"SOL", "-0.5", "0.5"}},
			step:      "0.01",
		},
	}
	prices := newPrices(t, map[string]string{"BTC": "50000", "ETH": "2000", "SOL": "100"})

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			limits := newLimits(t, tc.limits[0], tc.limits[1], tc.limits[2], tc.limits[3])
			portfolio := newPortfolio(t, tc.cash, limits, tc.positions...)
			var opts []types.RiskConfigOption
			if tc.step != "" {
				opts = append(opts, types.WithRoundingStep(d(tc.step)))
			}
			cfg := newConfig(t, "0.5", "1", "10", opts...)
			var signals []types.SignalSnapshot
			for i, s := range tc.signals {
				signals = append(signals, newSignal(t, string(rune('a'+i)), s[0], s[1], s[2]))
			}

			got, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
			require.NoError(t, err)

			for _, trade := range got.Trades {
				assert.False(t, trade.Quantity.IsNegative())
				assert.Truef(t, trade.Notional().LessThanOrEqual(limits.MaxPositionSizeNotional()),
					"%s notional %s", trade.AssetID, trade.Notional())
				assert.True(t, trade.Notional().GreaterThanOrEqual(cfg.MinTradeNotional()))
			}
			post, err := ProFormaRiskMetrics(portfolio, got.Trades, prices)
			require.NoError(t, err)
			assert.Truef(t, post.Leverage.LessThanOrEqual(limits.MaxLeverage()), "leverage %s", post.Leverage)
		})
	}
}

func TestRunTradeEngine_Idempotent(t *testing.T) {
	limits := newLimits(t, "1.5", "0.2", "1.2", "50000")
	portfolio := newPortfolio(t, "60000", limits,
		newPosition(t, "ETH", "10", "1800"),
		newPosition(t, "SOL", "-50", "150"),
	)
	prices := newPrices(t, map[string]string{"BTC": "50000", "ETH": "2000", "SOL": "100"})
	cfg := newConfig(t, "0.2", "0.5", "25", types.WithRoundingStep(d("0.001")))
	signals := []types.SignalSnapshot{
		newSignal(t, "s1", "SOL", "0.3", "0.4", types.WithRegime("chop")),
		newSignal(t, "s2", "BTC", "0.9", "0.8"),
		newSignal(t, "s3", "ETH", "-0.2", "0.6"),
		newSignal(t, "s4", "BTC", "0.5", "0.3"),
	}

	first, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)
	second, err := RunTradeEngine(signals, portfolio, prices, limits, cfg)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.NotEmpty(t, first.Trades)
}
