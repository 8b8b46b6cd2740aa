package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "tradeengine"
	version = "v0.3.0"
)

type globalFlags struct {
	configPath string
	envFile    string
	logLevel   string
	logJSON    bool
}

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg(appName + " failed")
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Turn trading signals into risk-limited proposed trades",
		Version: version,
		Long: `tradeengine sizes positions from per-asset signals with a capped
Kelly-style rule, clamps them to portfolio risk limits and emits the
trades needed to reach the targets, together with risk and P&L metrics.

Inputs come from Postgres or from snapshot files; outputs are printed,
exported to CSV/XLSX and optionally stored back in Postgres.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "tradeengine.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env-file", ".env", "Optional .env file loaded before the config")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "Emit JSON logs instead of console output")

	rootCmd.AddCommand(newRunCmd(flags))
	rootCmd.AddCommand(newBatchCmd(flags))
	rootCmd.AddCommand(newValidateCmd(flags))
	return rootCmd
}
