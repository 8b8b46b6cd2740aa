package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"tradeengine/internal/config"
	"tradeengine/internal/monitoring"
	"tradeengine/internal/reporting"
	"tradeengine/internal/repository"
	"tradeengine/internal/service"
	"tradeengine/internal/snapshot"
	"tradeengine/types"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type settings struct {
	cfg    *config.Config
	limits types.RiskLimits
	risk   types.RiskConfig
}

// loadSettings reads the env file and config, configures logging and
// builds the validated limits and sizing parameters.
func loadSettings(flags *globalFlags) (*settings, error) {
	if err := config.LoadEnvFile(flags.envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.logJSON {
		cfg.Log.JSON = true
	}
	if err := setupLogging(cfg); err != nil {
		return nil, err
	}

	limits, err := cfg.RiskLimits()
	if err != nil {
		return nil, err
	}
	risk, err := cfg.RiskConfig()
	if err != nil {
		return nil, err
	}
	return &settings{cfg: cfg, limits: limits, risk: risk}, nil
}

func setupLogging(cfg *config.Config) error {
	lvl, err := cfg.LogLevel()
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(lvl)
	if cfg.Log.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	return nil
}

func openDatabase(ctx context.Context, s *settings) (*repository.Database, error) {
	if s.cfg.Database.URL == "" {
		return nil, fmt.Errorf("database url not set (config database.url or %s)", config.EnvDatabaseURL)
	}
	window, err := s.cfg.SignalWindow()
	if err != nil {
		return nil, err
	}
	db, err := repository.NewDatabase(ctx, s.cfg.Database.URL, s.limits)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	db.SetSignalWindow(window)
	return db, nil
}

type outputFlags struct {
	dryRun bool
	csv    string
	xlsx   string
	asJSON bool
	quiet  bool
}

func (o *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Do not store runs in the database")
	cmd.Flags().StringVar(&o.csv, "csv", "", "Write proposed trades to this CSV file")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Write trades and metrics to this XLSX workbook")
	cmd.Flags().BoolVar(&o.asJSON, "json", false, "Print results as JSON instead of tables")
	cmd.Flags().BoolVar(&o.quiet, "quiet", false, "Skip printing results")
}

func (o *outputFlags) emit(reports []reporting.Report) error {
	if !o.quiet {
		if o.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			for _, r := range reports {
				if err := enc.Encode(r); err != nil {
					return fmt.Errorf("encode report: %w", err)
				}
			}
		} else {
			for _, r := range reports {
				reporting.PrintReport(os.Stdout, r)
			}
		}
	}
	if o.csv != "" {
		if err := reporting.WriteTradesCSVFile(o.csv, reports); err != nil {
			return err
		}
		log.Info().Str("path", o.csv).Msg("trades CSV written")
	}
	if o.xlsx != "" {
		if err := reporting.WriteXLSX(o.xlsx, reports); err != nil {
			return fmt.Errorf("write xlsx: %w", err)
		}
		log.Info().Str("path", o.xlsx).Msg("XLSX report written")
	}
	return nil
}

func newRunCmd(flags *globalFlags) *cobra.Command {
	var (
		portfolioID  string
		snapshotPath string
		out          outputFlags
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Size one portfolio",
		Long:  "Load one portfolio with its signals and prices, propose trades and report risk and P&L",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}

			var (
				source service.Source
				opts   []service.Option
			)
			if snapshotPath != "" {
				source = snapshot.File{Path: snapshotPath, Limits: s.limits}
			}
			if snapshotPath == "" || (!out.dryRun && s.cfg.Database.URL != "") {
				db, err := openDatabase(ctx, s)
				if err != nil {
					return err
				}
				defer db.Close()
				if source == nil {
					source = db
				}
				if !out.dryRun {
					opts = append(opts, service.WithSink(db))
				}
			}
			if snapshotPath == "" && portfolioID == "" {
				return errors.New("--portfolio is required without --snapshot")
			}

			runner, err := service.NewRunner(source, s.risk, opts...)
			if err != nil {
				return err
			}
			report, err := runner.RunOnce(ctx, portfolioID)
			if err != nil {
				return err
			}
			return out.emit([]reporting.Report{report})
		},
	}
	cmd.Flags().StringVar(&portfolioID, "portfolio", "", "Portfolio id")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "Read inputs from a YAML/JSON snapshot file instead of the database")
	out.register(cmd)
	return cmd
}

func newBatchCmd(flags *globalFlags) *cobra.Command {
	var (
		portfolioIDs []string
		snapshotDir  string
		parallelism  int
		metricsAddr  string
		out          outputFlags
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Size many portfolios concurrently",
		Long:  "Run the engine for every listed portfolio (all known portfolios by default); failures are reported per portfolio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}
			if metricsAddr == "" {
				metricsAddr = s.cfg.Metrics.Addr
			}
			if parallelism <= 0 {
				parallelism = s.cfg.Batch.Parallelism
			}
			if metricsAddr != "" {
				srv := startMetricsServer(metricsAddr)
				defer shutdownMetricsServer(srv)
			}

			var (
				source service.Source
				list   func(context.Context) ([]string, error)
				opts   = []service.Option{service.WithParallelism(parallelism), service.WithProgress(os.Stderr)}
			)
			if snapshotDir != "" {
				dir := snapshot.Dir{Root: snapshotDir, Limits: s.limits}
				source, list = dir, dir.PortfolioIDs
			}
			if snapshotDir == "" || (!out.dryRun && s.cfg.Database.URL != "") {
				db, err := openDatabase(ctx, s)
				if err != nil {
					return err
				}
				defer db.Close()
				if source == nil {
					source, list = db, db.PortfolioIDs
				}
				if !out.dryRun {
					opts = append(opts, service.WithSink(db))
				}
			}

			if len(portfolioIDs) == 0 {
				if portfolioIDs, err = list(ctx); err != nil {
					return err
				}
			}
			if len(portfolioIDs) == 0 {
				log.Warn().Msg("no portfolios to size")
				return nil
			}

			runner, err := service.NewRunner(source, s.risk, opts...)
			if err != nil {
				return err
			}
			res, err := runner.RunBatch(ctx, portfolioIDs)
			if err != nil {
				return err
			}
			if err := out.emit(res.Reports); err != nil {
				return err
			}
			for _, f := range res.Failures {
				log.Warn().Str("portfolio", f.PortfolioID).Str("kind", service.ErrorKind(f.Err)).Err(f.Err).Msg("portfolio skipped")
			}
			if n := len(res.Failures); n > 0 {
				return fmt.Errorf("%d of %d portfolios failed", n, len(portfolioIDs))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&portfolioIDs, "portfolios", nil, "Comma-separated portfolio ids (default: all)")
	cmd.Flags().StringVar(&snapshotDir, "snapshot-dir", "", "Read inputs from <dir>/<portfolio>.yaml|.json instead of the database")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "Portfolios sized at once (default from config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address while the batch runs")
	out.register(cmd)
	return cmd
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var snapshotPaths []string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check config and snapshot files without sizing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := loadSettings(flags)
			if err != nil {
				return err
			}
			if err := s.cfg.Validate(); err != nil {
				return err
			}
			log.Info().
				Str("max_leverage", s.limits.MaxLeverage().String()).
				Str("base_bet_fraction", s.risk.BaseBetFraction().String()).
				Str("order_type", s.risk.OrderType().String()).
				Msg("config ok")

			var failed int
			for _, path := range snapshotPaths {
				snap, err := snapshot.LoadFile(path, s.limits)
				if err != nil {
					failed++
					log.Error().Str("path", path).Str("kind", service.ErrorKind(err)).Err(err).Msg("snapshot invalid")
					continue
				}
				log.Info().
					Str("path", path).
					Str("portfolio", snap.PortfolioID).
					Int("positions", snap.Portfolio.PositionCount()).
					Int("signals", len(snap.Signals)).
					Int("prices", snap.Prices.Len()).
					Msg("snapshot ok")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d snapshots invalid", failed, len(snapshotPaths))
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&snapshotPaths, "snapshot", nil, "Snapshot files to validate (repeatable)")
	return cmd
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", monitoring.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("addr", addr).Msg("metrics server stopped")
		}
	}()
	log.Info().Str("addr", addr).Msg("serving /metrics")
	return srv
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown")
	}
}
