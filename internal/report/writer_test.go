package report

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/gate"
	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/search"
)

func sampleSummary() *RunSummary {
	started := time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)
	return &RunSummary{
		RunID:      "run-123",
		Strategy:   "S2",
		Dataset:    "bars.parquet",
		Bars:       5000,
		Mode:       search.ModeBayes,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Minute),
		Baseline:   map[string]float64{"vwap_threshold": 0.15, "rsi_level": 30},
		Sessions: []search.SessionOutcome{
			{
				Session:      calendar.SessionRTH,
				TrainBars:    3200,
				ValidateBars: 800,
				Best: search.Trial{
					Number: 7,
					Params: map[string]float64{"vwap_threshold": 0.12, "rsi_level": 35},
					Score:  1.42,
					Metrics: perf.Metrics{
						TotalTrades: 240, SharpeRatio: 1.42, WinRate: 0.55, MaxDrawdown: 0.08,
					},
				},
				ValidateMetrics: perf.Metrics{TotalTrades: 58, SharpeRatio: 1.10, WinRate: 0.52},
				Trials: []search.Trial{
					{Number: 7, Params: map[string]float64{"vwap_threshold": 0.12}, Score: 1.42},
					{Number: 3, Params: map[string]float64{"vwap_threshold": 0.10}, Score: 0.90},
				},
				ConvergenceCV: 0.12,
			},
			{
				Session:    calendar.SessionOvernight,
				Skipped:    true,
				SkipReason: "insufficient data: 120 bars < 1000",
			},
		},
		Gate: &gate.Result{
			Passed:       true,
			Reason:       "all validation checks passed",
			Baseline:     perf.Metrics{TotalTrades: 260, SharpeRatio: 0.80, WinRate: 0.48},
			Candidate:    perf.Metrics{TotalTrades: 250, SharpeRatio: 1.10, WinRate: 0.54},
			WinRateDelta: 0.06,
			SharpeDelta:  0.30,
			PValue:       0.012,
		},
		Manifests: []string{"out/S2_RTH_manifest.json"},
	}
}

func TestWriter_WriteTrialsJSONL(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	summary := sampleSummary()

	require.NoError(t, w.WriteTrials("S2", summary.Sessions))

	path := filepath.Join(w.OutputDir(), "S2_trials.jsonl")
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var lines []trialLine
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var line trialLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, lines, 2, "one line per completed trial, skipped sessions contribute none")
	assert.Equal(t, "S2", lines[0].Strategy)
	assert.Equal(t, "RTH", lines[0].Session)
	assert.Equal(t, 7, lines[0].Number)
	assert.InDelta(t, 1.42, lines[0].Score, 1e-12)
}

func TestWriter_WriteReportMarkdown(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	summary := sampleSummary()

	require.NoError(t, w.WriteReport(summary))

	data, err := os.ReadFile(filepath.Join(w.OutputDir(), "S2_report.md"))
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "# S2 Optimization Report")
	assert.Contains(t, report, "run-123")
	assert.Contains(t, report, "| RTH | optimized |")
	assert.Contains(t, report, "skipped (insufficient data: 120 bars < 1000)")
	assert.Contains(t, report, "## RTH Parameters")
	assert.Contains(t, report, "vwap_threshold")
	assert.Contains(t, report, "-20.0%") // 0.12 vs baseline 0.15
	assert.Contains(t, report, "✅ PASSED")
	assert.Contains(t, report, "S2_RTH_manifest.json")

	// Skipped sessions get no parameter section.
	assert.False(t, strings.Contains(report, "## Overnight Parameters"))
}

func TestWriter_WriteSummaryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	summary := sampleSummary()

	require.NoError(t, w.WriteSummary(summary))

	data, err := os.ReadFile(filepath.Join(w.OutputDir(), "S2_summary.json"))
	require.NoError(t, err)

	var got RunSummary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, summary.RunID, got.RunID)
	assert.Len(t, got.Sessions, 2)
	require.NotNil(t, got.Gate)
	assert.True(t, got.Gate.Passed)
}

func TestRegenerate_RebuildsReportFromSummaryArtifact(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	summary := sampleSummary()
	require.NoError(t, w.WriteSummary(summary))

	// Regenerate from the artifact alone, into a fresh directory.
	outDir := filepath.Join(dir, "regen")
	path, err := Regenerate(filepath.Join(w.OutputDir(), "S2_summary.json"), outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "S2_report.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)

	assert.Contains(t, report, "# S2 Optimization Report")
	assert.Contains(t, report, "| RTH | optimized |")
	assert.Contains(t, report, "✅ PASSED")

	// Without --out the report lands next to the summary.
	path, err = Regenerate(filepath.Join(w.OutputDir(), "S2_summary.json"), "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(w.OutputDir(), "S2_report.md"), path)
}

func TestRegenerate_RejectsMissingOrMalformedSummary(t *testing.T) {
	dir := t.TempDir()

	_, err := Regenerate(filepath.Join(dir, "absent.json"), "")
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	_, err = Regenerate(bad, "")
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.json")
	require.NoError(t, os.WriteFile(empty, []byte("{}"), 0o644))
	_, err = Regenerate(empty, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing strategy")
}

func TestWriter_OutputDirIsDateStamped(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir)
	assert.Equal(t, filepath.Join(dir, time.Now().Format("2006-01-02")), w.OutputDir())
}
