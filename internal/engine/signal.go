package engine

import (
	"tradeengine/types"

	"github.com/shopspring/decimal"
)

var (
	one    = decimal.NewFromInt(1)
	negOne = decimal.NewFromInt(-1)
)

// Interpretation is the combined reading of every signal for one asset.
type Interpretation struct {
	AssetID string
	// Exposure is the desired directional exposure in [-1, 1].
	Exposure decimal.Decimal
	// Confidence is the confidence-weighted mean confidence, sum(c^2)/sum(c).
	Confidence  decimal.Decimal
	Regime      string
	SignalCount int
}

// InterpretSignals combines signals by confidence-weighted averaging of
// their values. With zero total confidence there is no conviction and the
// exposure is zero. regime is carried through but not used.
func InterpretSignals(signals []types.SignalSnapshot, regime string) Interpretation {
	out := Interpretation{
		Exposure:    decimal.Zero,
		Confidence:  decimal.Zero,
		Regime:      regime,
		SignalCount: len(signals),
	}
	if len(signals) == 0 {
		return out
	}
	out.AssetID = signals[0].AssetID()

	weightSum := decimal.Zero
	weightedValue := decimal.Zero
	weightedConfidence := decimal.Zero
	for _, s := range signals {
		c := s.Confidence()
		weightSum = weightSum.Add(c)
		weightedValue = weightedValue.Add(s.Value().Mul(c))
		weightedConfidence = weightedConfidence.Add(c.Mul(c))
	}
	if weightSum.IsZero() {
		return out
	}

	out.Exposure = clamp(weightedValue.Div(weightSum), negOne, one)
	out.Confidence = clamp(weightedConfidence.Div(weightSum), decimal.Zero, one)
	return out
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// groupSignals buckets signals by asset, keeping assets in order of first
// appearance.
func groupSignals(signals []types.SignalSnapshot) ([]string, map[string][]types.SignalSnapshot) {
	order := make([]string, 0)
	grouped := make(map[string][]types.SignalSnapshot)
	for _, s := range signals {
		if _, seen := grouped[s.AssetID()]; !seen {
			order = append(order, s.AssetID())
		}
		grouped[s.AssetID()] = append(grouped[s.AssetID()], s)
	}
	return order, grouped
}

// latestRegime returns the regime label of the last signal that has one.
func latestRegime(signals []types.SignalSnapshot) string {
	for i := len(signals) - 1; i >= 0; i-- {
		if label, ok := signals[i].Regime(); ok {
			return label
		}
	}
	return ""
}
