package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"tradeengine/internal/engine"
	"tradeengine/internal/monitoring"
	"tradeengine/internal/reporting"
	"tradeengine/internal/repository"
	"tradeengine/internal/snapshot"
	"tradeengine/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// Source loads the inputs of one engine run.
type Source interface {
	Load(ctx context.Context, portfolioID string) (snapshot.Snapshot, error)
}

// Sink persists the outputs of one engine run.
type Sink interface {
	SaveRun(ctx context.Context, runID uuid.UUID, portfolioID string, at time.Time, res engine.Result) error
}

type Runner struct {
	source      Source
	sink        Sink
	cfg         types.RiskConfig
	parallelism int
	progress    io.Writer
	now         func() time.Time
	newID       func() uuid.UUID
}

type Option func(*Runner)

// WithSink persists every successful run. Without it runs are dry.
func WithSink(s Sink) Option { return func(r *Runner) { r.sink = s } }

// WithParallelism bounds the number of portfolios sized at once in RunBatch.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithProgress draws a progress bar for RunBatch on w.
func WithProgress(w io.Writer) Option { return func(r *Runner) { r.progress = w } }

func withClock(now func() time.Time) Option { return func(r *Runner) { r.now = now } }

func withIDs(newID func() uuid.UUID) Option { return func(r *Runner) { r.newID = newID } }

func NewRunner(source Source, cfg types.RiskConfig, opts ...Option) (*Runner, error) {
	if source == nil {
		return nil, errors.New("runner: nil source")
	}
	if cfg.IsZero() {
		return nil, &types.ConfigurationError{Field: "risk_config", Reason: "must be built with NewRiskConfig"}
	}
	r := &Runner{
		source:      source,
		cfg:         cfg,
		parallelism: 1,
		now:         time.Now,
		newID:       uuid.New,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RunOnce loads one portfolio, runs the engine against it and persists the
// result when a sink is configured.
func (r *Runner) RunOnce(ctx context.Context, portfolioID string) (reporting.Report, error) {
	start := time.Now()
	runID := r.newID()
	logger := log.With().Str("run_id", runID.String()).Str("portfolio", portfolioID).Logger()

	report, err := r.run(ctx, runID, portfolioID)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		monitoring.RecordRun(false, elapsed)
		monitoring.RecordError(ErrorKind(err))
		logger.Error().Err(err).Str("kind", ErrorKind(err)).Msg("engine run failed")
		return reporting.Report{}, err
	}
	monitoring.RecordRun(true, elapsed)

	logger.Info().
		Int("trades", len(report.Result.Trades)).
		Str("equity", report.Result.Risk.Equity.StringFixed(2)).
		Str("leverage", report.Result.Risk.Leverage.StringFixed(4)).
		Float64("seconds", elapsed).
		Msg("engine run complete")
	return report, nil
}

func (r *Runner) run(ctx context.Context, runID uuid.UUID, portfolioID string) (reporting.Report, error) {
	snap, err := r.source.Load(ctx, portfolioID)
	if err != nil {
		return reporting.Report{}, fmt.Errorf("load %s: %w", portfolioID, err)
	}
	if snap.PortfolioID != "" {
		portfolioID = snap.PortfolioID
	}

	res, err := engine.RunTradeEngine(snap.Signals, snap.Portfolio, snap.Prices, snap.Portfolio.RiskLimits(), r.cfg)
	if err != nil {
		return reporting.Report{}, fmt.Errorf("size %s: %w", portfolioID, err)
	}

	proForma, err := engine.ProFormaRiskMetrics(snap.Portfolio, res.Trades, snap.Prices)
	if err != nil {
		return reporting.Report{}, fmt.Errorf("pro forma %s: %w", portfolioID, err)
	}
	monitoring.UpdateLeverage(portfolioID, proForma.Leverage.InexactFloat64())
	for _, t := range res.Trades {
		limit := ""
		if t.Limit != types.LimitNone {
			limit = t.Limit.String()
		}
		monitoring.RecordTrade(t.Side.String(), t.Stage.String(), limit)
		log.Debug().
			Str("run_id", runID.String()).
			Str("portfolio", portfolioID).
			Str("asset", t.AssetID).
			Str("side", t.Side.String()).
			Str("quantity", t.Quantity.String()).
			Str("stage", t.Stage.String()).
			Msg(t.Reason)
	}

	at := r.now()
	if r.sink != nil {
		if err := r.sink.SaveRun(ctx, runID, portfolioID, at, res); err != nil {
			return reporting.Report{}, fmt.Errorf("persist %s: %w", portfolioID, err)
		}
	}

	return reporting.Report{
		RunID:       runID.String(),
		PortfolioID: portfolioID,
		GeneratedAt: at,
		Result:      res,
		ProForma:    &proForma,
	}, nil
}

// Failure is a portfolio whose run did not complete.
type Failure struct {
	PortfolioID string
	Err         error
}

// BatchResult lists successful reports and failures, each in the order
// the portfolio ids were given.
type BatchResult struct {
	Reports  []reporting.Report
	Failures []Failure
}

// RunBatch runs every portfolio concurrently, at most parallelism at a
// time. A failing portfolio is recorded and does not stop the others; only
// context cancellation aborts the batch.
func (r *Runner) RunBatch(ctx context.Context, portfolioIDs []string) (BatchResult, error) {
	var bar *progressbar.ProgressBar
	if r.progress != nil {
		bar = initProgressBar(r.progress, len(portfolioIDs))
	}

	reports := make([]*reporting.Report, len(portfolioIDs))
	errs := make([]error, len(portfolioIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, id := range portfolioIDs {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := r.RunOnce(gctx, id)
			if err != nil {
				errs[i] = err
			} else {
				reports[i] = &report
			}
			if bar != nil {
				_ = bar.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BatchResult{}, err
	}
	if bar != nil {
		_ = bar.Finish()
	}

	var out BatchResult
	for i, id := range portfolioIDs {
		if errs[i] != nil {
			out.Failures = append(out.Failures, Failure{PortfolioID: id, Err: errs[i]})
			continue
		}
		if reports[i] != nil {
			out.Reports = append(out.Reports, *reports[i])
		}
	}
	log.Info().
		Int("portfolios", len(portfolioIDs)).
		Int("succeeded", len(out.Reports)).
		Int("failed", len(out.Failures)).
		Msg("batch complete")
	return out, nil
}

// ErrorKind maps an error to a short label for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, types.ErrValidation):
		return "validation"
	case errors.Is(err, types.ErrMissingPrice), errors.Is(err, repository.ErrNoPrices):
		return "missing_price"
	case errors.Is(err, types.ErrInsufficientCapital):
		return "insufficient_capital"
	case errors.Is(err, types.ErrRiskLimitViolation):
		return "risk_limit_violation"
	case errors.Is(err, types.ErrConfiguration):
		return "configuration"
	case errors.Is(err, snapshot.ErrSnapshotNotFound), errors.Is(err, repository.ErrPortfolioNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "internal"
}

func initProgressBar(w io.Writer, maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Sizing portfolios..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
