package engine

import (
	"testing"
	"time"

	"tradeengine/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecEqual(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "want %s, got %s %v", want, got, msgAndArgs)
}

func newLimits(t *testing.T, gross, weight, leverage, notional string) types.RiskLimits {
	t.Helper()
	l, err := types.NewRiskLimits(d(gross), d(weight), d(leverage), d(notional))
	require.NoError(t, err)
	return l
}

// looseLimits never bind for the portfolios used in these tests.
func looseLimits(t *testing.T) types.RiskLimits {
	return newLimits(t, "10", "1", "10", "100000000")
}

func newConfig(t *testing.T, baseBet, kellyCap, minNotional string, opts ...types.RiskConfigOption) types.RiskConfig {
	t.Helper()
	c, err := types.NewRiskConfig(d(baseBet), d(kellyCap), d(minNotional), opts...)
	require.NoError(t, err)
	return c
}

func newPosition(t *testing.T, asset, qty, entry string) types.Position {
	t.Helper()
	p, err := types.NewPosition(asset, d(qty), d(entry))
	require.NoError(t, err)
	return p
}

func newPortfolio(t *testing.T, cash string, limits types.RiskLimits, positions ...types.Position) types.PortfolioState {
	t.Helper()
	p, err := types.NewPortfolioState(testTime, d(cash), positions, "USD", limits)
	require.NoError(t, err)
	return p
}

func newPrices(t *testing.T, m map[string]string) types.Prices {
	t.Helper()
	in := make(map[string]decimal.Decimal, len(m))
	for k, v := range m {
		in[k] = d(v)
	}
	p, err := types.NewPrices(in)
	require.NoError(t, err)
	return p
}

func newSignal(t *testing.T, id, asset, value, confidence string, opts ...types.SignalOption) types.SignalSnapshot {
	t.Helper()
	s, err := types.NewSignalSnapshot(id, asset, testTime, "momentum", d(value), d(confidence), opts...)
	require.NoError(t, err)
	return s
}
