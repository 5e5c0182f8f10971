package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stratforge/traintick/internal/ledger"
	"github.com/stratforge/traintick/internal/search"
	"github.com/stratforge/traintick/internal/train"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run parameter optimization for configured strategies",
		Long: `Loads bar data, optimizes each strategy per market session, validates
winning candidates against the baseline on held-out data, and writes
manifests for candidates that pass the gate.`,
		RunE: runOptimize,
	}
	cmd.Flags().String("config", "configs/train.yaml", "Training configuration file")
	cmd.Flags().String("mode", "", "Override search mode (grid|bayes)")
	return cmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	mode, _ := cmd.Flags().GetString("mode")

	cfg, err := train.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if mode != "" {
		cfg.Session.Mode = search.Mode(mode)
	}

	lg, err := openLedger(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer lg.Close()

	runner := train.NewRunner(cfg, lg, nil)
	summaries, err := runner.Run(cmd.Context())
	if err != nil {
		return err
	}

	for _, summary := range summaries {
		verdict := "rejected"
		if len(summary.Manifests) > 0 {
			verdict = fmt.Sprintf("%d manifest(s) staged", len(summary.Manifests))
		}
		fmt.Fprintf(os.Stdout, "%s: %s (run %s)\n", summary.Strategy, verdict, summary.RunID)
	}
	return nil
}

func openLedger(path string) (ledger.Ledger, error) {
	if path == "" {
		return ledger.NewNoopLedger(), nil
	}
	return ledger.NewSQLiteLedger(path)
}
