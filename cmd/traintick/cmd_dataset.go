package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/market"
)

func newDatasetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Bar dataset utilities",
	}

	synthCmd := &cobra.Command{
		Use:   "synth",
		Short: "Generate a synthetic bar file for smoke runs",
		RunE:  runDatasetSynth,
	}
	synthCmd.Flags().String("out", "data/synthetic.parquet", "Output parquet path")
	synthCmd.Flags().Int("days", 10, "Number of trading days to generate")
	synthCmd.Flags().Int64("seed", 42, "Random seed")
	synthCmd.Flags().Float64("base-price", 4500, "Starting price level")
	synthCmd.Flags().Float64("reversion", 0.05, "Mean-reversion pull per bar")

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a bar file and summarize its sessions",
		RunE:  runDatasetCheck,
	}
	checkCmd.Flags().String("file", "", "Bar file to check (parquet)")
	checkCmd.Flags().String("timezone", "America/New_York", "Exchange timezone")
	checkCmd.MarkFlagRequired("file")

	cmd.AddCommand(synthCmd)
	cmd.AddCommand(checkCmd)
	return cmd
}

func runDatasetSynth(cmd *cobra.Command, _ []string) error {
	out, _ := cmd.Flags().GetString("out")
	days, _ := cmd.Flags().GetInt("days")
	seed, _ := cmd.Flags().GetInt64("seed")
	basePrice, _ := cmd.Flags().GetFloat64("base-price")
	reversion, _ := cmd.Flags().GetFloat64("reversion")

	full := market.NewDataset(days * 390)
	start := time.Date(2025, 1, 13, 14, 30, 0, 0, time.UTC) // Monday 09:30 ET
	generated := 0
	for day := start; generated < days; day = day.AddDate(0, 0, 1) {
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		cfg := market.DefaultSyntheticConfig()
		cfg.Start = day
		cfg.Seed = seed + int64(generated)
		cfg.BasePrice = basePrice
		cfg.Reversion = reversion
		d := market.Synthetic(cfg)

		full.Times = append(full.Times, d.Times...)
		full.Open = append(full.Open, d.Open...)
		full.High = append(full.High, d.High...)
		full.Low = append(full.Low, d.Low...)
		full.Close = append(full.Close, d.Close...)
		full.Volume = append(full.Volume, d.Volume...)
		generated++
	}

	if err := full.WriteFile(out); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "wrote %d bars (%d days) to %s\n", full.Len(), days, out)
	return nil
}

func runDatasetCheck(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("file")
	timezone, _ := cmd.Flags().GetString("timezone")

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return fmt.Errorf("load timezone %s: %w", timezone, err)
	}
	classifier, err := calendar.NewClassifier(calendar.DefaultConfig(), loc)
	if err != nil {
		return err
	}

	dataset, err := market.ReadFile(path)
	if err != nil {
		return err
	}
	if err := dataset.Check(); err != nil {
		return fmt.Errorf("dataset invalid: %w", err)
	}
	dataset.Classify(classifier)

	counts := map[calendar.Session]int{}
	maintenance := 0
	for i := range dataset.Sessions {
		counts[dataset.Sessions[i]]++
		if dataset.Maintenance[i] {
			maintenance++
		}
	}

	fmt.Fprintf(os.Stdout, "bars:        %d\n", dataset.Len())
	fmt.Fprintf(os.Stdout, "range:       %s .. %s\n",
		dataset.Times[0].Format(time.RFC3339), dataset.Times[dataset.Len()-1].Format(time.RFC3339))
	for _, session := range calendar.Sessions {
		fmt.Fprintf(os.Stdout, "%-12s %d\n", string(session)+":", counts[session])
	}
	fmt.Fprintf(os.Stdout, "maintenance: %d\n", maintenance)
	return nil
}
