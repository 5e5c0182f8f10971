package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/gate"
	"github.com/stratforge/traintick/internal/market"
	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/search"
	"github.com/stratforge/traintick/internal/sim"
	"github.com/stratforge/traintick/internal/strategy"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate candidate parameters against the baseline",
		Long: `Runs the full promotion gate for one candidate parameter file: bounds
checks, holdout backtests against the baseline, and the bootstrap
significance test. Exits non-zero when the candidate is rejected.`,
		RunE: runValidate,
	}
	cmd.Flags().String("dataset", "", "Holdout bar file (parquet)")
	cmd.Flags().String("baseline", "", "Baseline parameter file (JSON)")
	cmd.Flags().String("candidate", "", "Candidate parameter file (JSON)")
	cmd.Flags().String("strategy", "S2", "Strategy name for bounds lookup")
	cmd.Flags().String("session", "RTH", "Market session to validate")
	cmd.Flags().String("timezone", "America/New_York", "Exchange timezone")
	cmd.Flags().String("staging", "", "Staging directory for the manifest; empty skips writing")
	cmd.MarkFlagRequired("dataset")
	cmd.MarkFlagRequired("baseline")
	cmd.MarkFlagRequired("candidate")
	return cmd
}

func runValidate(cmd *cobra.Command, _ []string) error {
	datasetPath, _ := cmd.Flags().GetString("dataset")
	baselinePath, _ := cmd.Flags().GetString("baseline")
	candidatePath, _ := cmd.Flags().GetString("candidate")
	strategyName, _ := cmd.Flags().GetString("strategy")
	session, _ := cmd.Flags().GetString("session")
	timezone, _ := cmd.Flags().GetString("timezone")
	staging, _ := cmd.Flags().GetString("staging")

	baseline, err := strategy.LoadParameterFile(baselinePath)
	if err != nil {
		return err
	}
	candidate, err := strategy.LoadParameterFile(candidatePath)
	if err != nil {
		return err
	}
	bounds, ok := strategy.DefaultBoundsTable()[strategyName]
	if !ok {
		return fmt.Errorf("no bounds defined for strategy %s", strategyName)
	}

	part, err := loadSessionBars(datasetPath, timezone, calendar.Session(session))
	if err != nil {
		return err
	}

	scorer, err := search.NewScorer(part, search.DefaultIndicatorConfig(), sim.DefaultConfig(), search.DefaultObjectiveConfig())
	if err != nil {
		return err
	}
	backtest := func(params map[string]float64) ([]float64, perf.Metrics, error) {
		return scorer.Returns(params)
	}

	result := gate.Run(bounds, baseline.ForSession(session), candidate.ForSession(session), backtest, gate.DefaultThresholds())
	printGateResult(result)

	if !result.Passed {
		return fmt.Errorf("candidate rejected: %s", result.Reason)
	}
	if staging != "" {
		manifest, err := gate.NewManifest(strategyName, session, candidate.ForSession(session), result,
			gate.DefaultThresholds(), part.Times[0], part.Times[part.Len()-1])
		if err != nil {
			return err
		}
		path, err := manifest.Write(staging)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "manifest: %s\n", path)
	}
	return nil
}

// loadSessionBars loads, checks, classifies, and filters a bar file down
// to one session's bars.
func loadSessionBars(path, timezone string, session calendar.Session) (*market.Dataset, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	classifier, err := calendar.NewClassifier(calendar.DefaultConfig(), loc)
	if err != nil {
		return nil, err
	}

	dataset, err := market.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := dataset.Check(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	dataset.Classify(classifier)
	dataset, err = dataset.DropMaintenance()
	if err != nil {
		return nil, err
	}

	parts, err := dataset.PartitionBySession()
	if err != nil {
		return nil, err
	}
	part, ok := parts[session]
	if !ok || part.Len() == 0 {
		return nil, fmt.Errorf("dataset has no %s bars", session)
	}
	return part, nil
}

func printGateResult(result gate.Result) {
	verdict := "REJECTED"
	if result.Passed {
		verdict = "PASSED"
	}
	fmt.Fprintf(os.Stdout, "verdict:        %s\n", verdict)
	fmt.Fprintf(os.Stdout, "reason:         %s\n", result.Reason)
	fmt.Fprintf(os.Stdout, "win rate:       %.1f%% -> %.1f%% (%+.1f pts)\n",
		result.Baseline.WinRate*100, result.Candidate.WinRate*100, result.WinRateDelta*100)
	fmt.Fprintf(os.Stdout, "sharpe:         %.2f -> %.2f (%+.2f)\n",
		result.Baseline.SharpeRatio, result.Candidate.SharpeRatio, result.SharpeDelta)
	fmt.Fprintf(os.Stdout, "trades:         %d -> %d\n",
		result.Baseline.TotalTrades, result.Candidate.TotalTrades)
	fmt.Fprintf(os.Stdout, "p-value:        %.4f\n", result.PValue)
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stdout, "warning:        %s\n", w)
	}
}
