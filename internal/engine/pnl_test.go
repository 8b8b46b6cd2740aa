package engine

import (
	"testing"

	"tradeengine/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeUnrealizedPnL(t *testing.T) {
	portfolio, prices := mixedPortfolio(t)

	got, err := ComputeUnrealizedPnL(portfolio, prices)
	require.NoError(t, err)

	// BTC (40000-30000)*1 = 10000 ; ETH (2000-2500)*-10 = 5000
	requireDecEqual(t, "10000", got.PerAsset["BTC"])
	requireDecEqual(t, "5000", got.PerAsset["ETH"])
	requireDecEqual(t, "15000", got.UnrealizedPnL)
	requireDecEqual(t, "0", got.RealizedPnL)
	assert.False(t, got.RealizedTracked)
}

func TestComputeUnrealizedPnL_MissingPrice(t *testing.T) {
	portfolio, _ := mixedPortfolio(t)
	prices := newPrices(t, map[string]string{"ETH": "2000"})

	_, err := ComputeUnrealizedPnL(portfolio, prices)
	var priceErr *types.MissingPriceError
	require.ErrorAs(t, err, &priceErr)
	assert.Equal(t, "BTC", priceErr.AssetID)
}
