package engine

import (
	"tradeengine/types"
)

// Result holds the three outputs of one engine run. They are returned
// together or not at all.
type Result struct {
	Trades []types.ProposedTrade `json:"trades"`
	Risk   types.RiskMetrics     `json:"risk"`
	PnL    types.PnLMetrics      `json:"pnl"`
}

// RunTradeEngine turns one batch of signals into proposed trades against
// a single portfolio snapshot.
//
// Assets are processed in order of first appearance in signals. Each
// asset's post-trade quantity is written into a scratch copy of the
// portfolio before the next asset is sized, so gross exposure and leverage
// headroom account for trades already proposed in the batch. Risk and P&L
// metrics describe the portfolio as supplied. The first error aborts the
// run and no partial result is returned.
func RunTradeEngine(
	signals []types.SignalSnapshot,
	portfolio types.PortfolioState,
	prices types.Prices,
	limits types.RiskLimits,
	cfg types.RiskConfig,
) (Result, error) {
	if err := checkSettings(limits, cfg); err != nil {
		return Result{}, err
	}

	bk := newBook(portfolio)
	equity, err := bk.equity(prices)
	if err != nil {
		return Result{}, err
	}

	assets, grouped := groupSignals(signals)
	trades := make([]types.ProposedTrade, 0, len(assets))
	for _, asset := range assets {
		interp := InterpretSignals(grouped[asset], latestRegime(grouped[asset]))
		target, err := deriveTarget(interp, asset, bk, equity, prices, limits, cfg)
		if err != nil {
			return Result{}, err
		}
		trade, ok := proposeTrade(target, bk.quantity(asset), limits, cfg)
		if !ok {
			continue
		}
		if err := bk.apply([]types.ProposedTrade{trade}); err != nil {
			return Result{}, err
		}
		trades = append(trades, trade)
	}

	risk, err := ComputeRiskMetrics(portfolio, prices)
	if err != nil {
		return Result{}, err
	}
	pnl, err := ComputeUnrealizedPnL(portfolio, prices)
	if err != nil {
		return Result{}, err
	}

	return Result{Trades: trades, Risk: risk, PnL: pnl}, nil
}
