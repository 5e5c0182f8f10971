package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "traintick"
	version = "v1.3.0"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Offline strategy backtesting and parameter optimization",
		Version: version,
		Long: `traintick replays historical futures bars through trading strategies,
searches parameter spaces per market session, and promotes candidates
only when they beat the production baseline on held-out data with
statistical significance.`,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level, _ := cmd.Flags().GetString("log-level")
			setupLogging(level)
		},
	}
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")

	rootCmd.AddCommand(newOptimizeCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newDatasetCmd())
	rootCmd.AddCommand(newScheduleCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// setupLogging writes human-readable logs on a terminal and JSON when
// piped, so cron captures structured output.
func setupLogging(level string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log.Logger = log.Output(os.Stderr)
	}

	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
}
