package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratforge/traintick/internal/ledger"
	"github.com/stratforge/traintick/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Regenerate reports and inspect run history",
	}
	cmd.AddCommand(newReportGenerateCmd())
	cmd.AddCommand(newReportHistoryCmd())
	return cmd
}

func newReportGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Regenerate the markdown report from a run summary artifact",
		RunE:  runReportGenerate,
	}
	cmd.Flags().String("summary", "", "Path to a <strategy>_summary.json artifact")
	cmd.Flags().String("out", "", "Output directory (defaults to the summary's directory)")
	cmd.MarkFlagRequired("summary")
	return cmd
}

func runReportGenerate(cmd *cobra.Command, _ []string) error {
	summaryPath, _ := cmd.Flags().GetString("summary")
	outDir, _ := cmd.Flags().GetString("out")

	path, err := report.Regenerate(summaryPath, outDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "report written to %s\n", path)
	return nil
}

func newReportHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent run history from the ledger",
		RunE:  runReportHistory,
	}
	cmd.Flags().String("ledger", "out/history.db", "Ledger database path")
	cmd.Flags().String("strategy", "S2", "Strategy to report on")
	cmd.Flags().Int("limit", 20, "Maximum runs to show")
	return cmd
}

func runReportHistory(cmd *cobra.Command, _ []string) error {
	ledgerPath, _ := cmd.Flags().GetString("ledger")
	strategyName, _ := cmd.Flags().GetString("strategy")
	limit, _ := cmd.Flags().GetInt("limit")

	lg, err := ledger.NewSQLiteLedger(ledgerPath)
	if err != nil {
		return err
	}
	defer lg.Close()

	runs, err := lg.Runs(strategyName, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintf(os.Stdout, "no runs recorded for %s\n", strategyName)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN ID\tMODE\tBARS\tSTATUS\tNOTE")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			time.Unix(r.StartedAt, 0).UTC().Format("2006-01-02 15:04"),
			r.RunID, r.Mode, r.Bars, r.Status, r.Note)
	}
	return w.Flush()
}
