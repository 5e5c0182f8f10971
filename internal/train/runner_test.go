package train

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/ledger"
	"github.com/stratforge/traintick/internal/market"
	"github.com/stratforge/traintick/internal/search"
)

// writeBarFile generates several RTH weekdays of mean-reverting 1-minute
// bars and persists them as parquet.
func writeBarFile(t *testing.T, dir string) (string, int) {
	t.Helper()

	days := []time.Time{
		time.Date(2025, 1, 13, 14, 30, 0, 0, time.UTC), // Mon 09:30 ET
		time.Date(2025, 1, 14, 14, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 15, 14, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 16, 14, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 17, 14, 30, 0, 0, time.UTC),
		time.Date(2025, 1, 20, 14, 30, 0, 0, time.UTC), // next Mon
	}

	full := market.NewDataset(len(days) * 390)
	for i, start := range days {
		cfg := market.DefaultSyntheticConfig()
		cfg.Start = start
		cfg.Seed = int64(100 + i)
		cfg.Reversion = 0.05
		day := market.Synthetic(cfg)
		full.Times = append(full.Times, day.Times...)
		full.Open = append(full.Open, day.Open...)
		full.High = append(full.High, day.High...)
		full.Low = append(full.Low, day.Low...)
		full.Close = append(full.Close, day.Close...)
		full.Volume = append(full.Volume, day.Volume...)
	}

	path := filepath.Join(dir, "bars.parquet")
	require.NoError(t, full.WriteFile(path))
	return path, full.Len()
}

func testConfig(t *testing.T, datasetPath string) Config {
	t.Helper()
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.StagingDir = filepath.Join(dir, "staging")
	cfg.HoldoutRatio = 0.20
	cfg.Session.MinBars = 300
	cfg.Session.Mode = search.ModeBayes
	cfg.Session.Bayes.Trials = 10
	cfg.Session.Bayes.Startup = 5
	cfg.Thresholds.BootstrapIterations = 500
	cfg.Strategies = []StrategyConfig{{Name: "S2", Dataset: datasetPath}}
	return cfg
}

func TestRunner_EndToEnd(t *testing.T) {
	datasetPath, bars := writeBarFile(t, t.TempDir())
	cfg := testConfig(t, datasetPath)

	lg, err := ledger.NewSQLiteLedger(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer lg.Close()

	runner := NewRunner(cfg, lg, nil)
	summaries, err := runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 1)

	summary := summaries[0]
	assert.Equal(t, "S2", summary.Strategy)
	assert.Equal(t, bars, summary.Bars)
	assert.NotEmpty(t, summary.RunID)
	require.Len(t, summary.Sessions, 3)

	bySession := map[calendar.Session]search.SessionOutcome{}
	for _, o := range summary.Sessions {
		bySession[o.Session] = o
	}
	rth := bySession[calendar.SessionRTH]
	assert.False(t, rth.Skipped, "RTH has every bar and must be optimized")
	assert.NotEmpty(t, rth.Trials)
	assert.True(t, bySession[calendar.SessionOvernight].Skipped)
	assert.True(t, bySession[calendar.SessionPostRTH].Skipped)

	// The gate ran even if it rejected the candidate.
	require.NotNil(t, summary.Gate)
	assert.NotEmpty(t, summary.Gate.Reason)

	// Artifacts on disk.
	outDir := runner.writer.OutputDir()
	for _, name := range []string{"S2_trials.jsonl", "S2_summary.json", "S2_report.md"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}

	// Run history recorded.
	runs, err := lg.Runs("S2", 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, summary.RunID, runs[0].RunID)
}

func TestRunner_MissingDatasetIsRecordedNotFatalForBatch(t *testing.T) {
	datasetPath, _ := writeBarFile(t, t.TempDir())
	cfg := testConfig(t, datasetPath)
	cfg.Strategies = append(cfg.Strategies, StrategyConfig{Name: "S6", Dataset: "does/not/exist.parquet"})

	runner := NewRunner(cfg, nil, nil)
	summaries, err := runner.Run(context.Background())
	require.NoError(t, err, "one bad strategy must not fail the batch")
	assert.Len(t, summaries, 1)
}

func TestRunner_AllStrategiesFailing(t *testing.T) {
	cfg := testConfig(t, "does/not/exist.parquet")
	runner := NewRunner(cfg, nil, nil)
	_, err := runner.Run(context.Background())
	require.Error(t, err)
}

func TestLoadConfig_Validation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "train.yaml")

	require.NoError(t, os.WriteFile(path, []byte(`
timezone: America/New_York
holdout_ratio: 0.25
output_dir: out
strategies:
  - name: S2
    dataset: data/bars.parquet
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.HoldoutRatio)
	require.Len(t, cfg.Strategies, 1)
	assert.Equal(t, "data/bars.parquet", cfg.Strategies[0].Dataset)
	// Untouched sections keep defaults.
	assert.Equal(t, search.ModeBayes, cfg.Session.Mode)
	assert.Equal(t, 1000, cfg.Session.MinBars)

	require.NoError(t, os.WriteFile(path, []byte(`
timezone: America/New_York
holdout_ratio: 1.5
strategies:
  - name: S2
    dataset: data/bars.parquet
`), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holdout_ratio")

	require.NoError(t, os.WriteFile(path, []byte(`
timezone: America/New_York
holdout_ratio: 0.2
strategies: []
`), 0o644))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
