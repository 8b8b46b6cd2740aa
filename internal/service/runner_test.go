package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tradeengine/internal/engine"
	"tradeengine/internal/repository"
	"tradeengine/internal/snapshot"
	"tradeengine/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

type fakeSource struct {
	snapshots map[string]snapshot.Snapshot
}

func (f fakeSource) Load(_ context.Context, id string) (snapshot.Snapshot, error) {
	s, ok := f.snapshots[id]
	if !ok {
		return snapshot.Snapshot{}, fmt.Errorf("%s: %w", id, snapshot.ErrSnapshotNotFound)
	}
	return s, nil
}

type savedRun struct {
	runID       uuid.UUID
	portfolioID string
	trades      int
}

type fakeSink struct {
	mu     sync.Mutex
	failOn string
	saved  []savedRun
}

func (f *fakeSink) SaveRun(_ context.Context, runID uuid.UUID, portfolioID string, _ time.Time, res engine.Result) error {
	if portfolioID == f.failOn {
		return errors.New("connection reset")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedRun{runID: runID, portfolioID: portfolioID, trades: len(res.Trades)})
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testConfig(t *testing.T) types.RiskConfig {
	t.Helper()
	cfg, err := types.NewRiskConfig(d("0.02"), d("0.25"), d("0"))
	require.NoError(t, err)
	return cfg
}

// buildSnapshot returns a flat portfolio with one BTC signal.
func buildSnapshot(t *testing.T, id string, prices map[string]string) snapshot.Snapshot {
	t.Helper()
	limits, err := types.NewRiskLimits(d("1.5"), d("0.2"), d("1.2"), d("100000"))
	require.NoError(t, err)
	portfolio, err := types.NewPortfolioState(fixedTime, d("100000"), nil, "USD", limits)
	require.NoError(t, err)
	sig, err := types.NewSignalSnapshot("s-"+id, "BTC", fixedTime, "momentum", d("0.8"), d("0.9"))
	require.NoError(t, err)
	raw := make(map[string]decimal.Decimal, len(prices))
	for k, v := range prices {
		raw[k] = d(v)
	}
	px, err := types.NewPrices(raw)
	require.NoError(t, err)
	return snapshot.Snapshot{PortfolioID: id, Portfolio: portfolio, Signals: []types.SignalSnapshot{sig}, Prices: px}
}

func newTestRunner(t *testing.T, sink *fakeSink, opts ...Option) *Runner {
	t.Helper()
	source := fakeSource{snapshots: map[string]snapshot.Snapshot{
		"alpha": buildSnapshot(t, "alpha", map[string]string{"BTC": "50000"}),
		"beta":  buildSnapshot(t, "beta", map[string]string{"ETH": "2000"}),
		"gamma": buildSnapshot(t, "gamma", map[string]string{"BTC": "40000"}),
	}}
	var next atomic.Uint32
	base := []Option{
		WithSink(sink),
		withClock(func() time.Time { return fixedTime }),
		withIDs(func() uuid.UUID {
			return uuid.UUID{byte(next.Add(1))}
		}),
	}
	r, err := NewRunner(source, testConfig(t), append(base, opts...)...)
	require.NoError(t, err)
	return r
}

func TestRunner_RunOnce(t *testing.T) {
	sink := &fakeSink{}
	r := newTestRunner(t, sink)

	report, err := r.RunOnce(context.Background(), "alpha")
	require.NoError(t, err)

	require.Len(t, report.Result.Trades, 1)
	trade := report.Result.Trades[0]
	assert.Equal(t, types.SideBuy, trade.Side)
	assert.True(t, trade.Quantity.Equal(d("0.0072")), "quantity %s", trade.Quantity)
	assert.Equal(t, "alpha", report.PortfolioID)
	assert.Equal(t, fixedTime, report.GeneratedAt)
	require.NotNil(t, report.ProForma)
	assert.True(t, report.ProForma.Leverage.Equal(d("0.0036")), "pro forma leverage %s", report.ProForma.Leverage)

	require.Len(t, sink.saved, 1)
	assert.Equal(t, report.RunID, sink.saved[0].runID.String())
}

func TestRunner_RunOnce_Errors(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		failOn   string
		wantErr  error
		wantKind string
	}{
		{"missing price", "beta", "", types.ErrMissingPrice, "missing_price"},
		{"unknown portfolio", "delta", "", snapshot.ErrSnapshotNotFound, "not_found"},
		{"sink failure", "gamma", "gamma", nil, "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &fakeSink{failOn: tt.failOn}
			r := newTestRunner(t, sink)

			_, err := r.RunOnce(context.Background(), tt.id)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantKind, ErrorKind(err))
			assert.Empty(t, sink.saved)
		})
	}
}

func TestRunner_RunBatch(t *testing.T) {
	sink := &fakeSink{failOn: "gamma"}
	var progress bytes.Buffer
	r := newTestRunner(t, sink, WithParallelism(2), WithProgress(&progress))

	ids := []string{"gamma", "alpha", "beta", "delta"}
	res, err := r.RunBatch(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, res.Reports, 1)
	assert.Equal(t, "alpha", res.Reports[0].PortfolioID)

	require.Len(t, res.Failures, 3)
	assert.Equal(t, "gamma", res.Failures[0].PortfolioID)
	assert.Equal(t, "beta", res.Failures[1].PortfolioID)
	assert.ErrorIs(t, res.Failures[1].Err, types.ErrMissingPrice)
	assert.Equal(t, "delta", res.Failures[2].PortfolioID)

	require.Len(t, sink.saved, 1)
	assert.NotEmpty(t, progress.String())
}

func TestRunner_RunBatch_Cancelled(t *testing.T) {
	r := newTestRunner(t, &fakeSink{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.RunBatch(ctx, []string{"alpha", "gamma"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewRunner_RejectsZeroConfig(t *testing.T) {
	_, err := NewRunner(fakeSource{}, types.RiskConfig{})
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"risk limit", fmt.Errorf("wrap: %w", &types.RiskLimitViolation{Limit: types.LimitLeverage}), "risk_limit_violation"},
		{"insufficient capital", &types.InsufficientCapitalError{}, "insufficient_capital"},
		{"deadline", context.DeadlineExceeded, "cancelled"},
		{"snapshot missing", fmt.Errorf("alpha: %w", snapshot.ErrSnapshotNotFound), "not_found"},
		{"portfolio missing in database", fmt.Errorf("get portfolio alpha: %w", repository.ErrPortfolioNotFound), "not_found"},
		{"no prices in database", fmt.Errorf("as of today: %w", repository.ErrNoPrices), "missing_price"},
		{"missing price", &types.MissingPriceError{AssetID: "BTC"}, "missing_price"},
		{"other", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorKind(tt.err))
		})
	}
}
