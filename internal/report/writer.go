// Package report writes run artifacts: a JSONL trial log for machine
// consumption and a markdown report for humans. Artifacts land in a
// date-stamped directory under the configured output root so repeated
// runs never clobber each other within a day boundary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/stratforge/traintick/internal/gate"
	"github.com/stratforge/traintick/internal/search"
)

// RunSummary aggregates everything one training run produced for a
// single strategy.
type RunSummary struct {
	RunID      string                   `json:"run_id"`
	Strategy   string                   `json:"strategy"`
	Dataset    string                   `json:"dataset"`
	Bars       int                      `json:"bars"`
	Mode       search.Mode              `json:"mode"`
	StartedAt  time.Time                `json:"started_at"`
	FinishedAt time.Time                `json:"finished_at"`
	Baseline   map[string]float64       `json:"baseline_parameters"`
	Sessions   []search.SessionOutcome  `json:"sessions"`
	Gate       *gate.Result             `json:"gate,omitempty"`
	Manifests  []string                 `json:"manifests,omitempty"`
	Errors     []string                 `json:"errors,omitempty"`
}

// Writer handles writing run artifacts to disk.
type Writer struct {
	outputDir string
	dateDir   string
}

// NewWriter creates a writer rooted at outputDir/<YYYY-MM-DD>.
func NewWriter(outputDir string) *Writer {
	dateDir := time.Now().Format("2006-01-02")
	return &Writer{
		outputDir: filepath.Join(outputDir, dateDir),
		dateDir:   dateDir,
	}
}

// OutputDir returns the full date-stamped output directory path.
func (w *Writer) OutputDir() string {
	return w.outputDir
}

// trialLine is the JSONL record for one completed trial.
type trialLine struct {
	Strategy string             `json:"strategy"`
	Session  string             `json:"session"`
	Number   int                `json:"number"`
	Params   map[string]float64 `json:"params"`
	Score    float64            `json:"score"`
	Sharpe   float64            `json:"sharpe"`
	Trades   int                `json:"trades"`
	Drawdown float64            `json:"max_drawdown"`
}

// WriteTrials appends every completed trial from every session to
// <strategy>_trials.jsonl, one JSON object per line, best-first within
// each session.
func (w *Writer) WriteTrials(strategyName string, outcomes []search.SessionOutcome) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(w.outputDir, strategyName+"_trials.jsonl")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trials file: %w", err)
	}
	defer file.Close()

	for _, outcome := range outcomes {
		for _, trial := range outcome.Trials {
			line := trialLine{
				Strategy: strategyName,
				Session:  string(outcome.Session),
				Number:   trial.Number,
				Params:   trial.Params,
				Score:    trial.Score,
				Sharpe:   trial.Metrics.SharpeRatio,
				Trades:   trial.Metrics.TotalTrades,
				Drawdown: trial.Metrics.MaxDrawdown,
			}
			data, err := json.Marshal(line)
			if err != nil {
				return fmt.Errorf("marshal trial: %w", err)
			}
			if _, err := file.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("write trial line: %w", err)
			}
		}
	}
	return nil
}

// WriteSummary saves the full run summary as indented JSON.
func (w *Writer) WriteSummary(summary *RunSummary) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	path := filepath.Join(w.outputDir, summary.Strategy+"_summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteReport writes the human-readable markdown report.
func (w *Writer) WriteReport(summary *RunSummary) error {
	if err := os.MkdirAll(w.outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(w.outputDir, summary.Strategy+"_report.md")
	if err := os.WriteFile(path, []byte(renderMarkdown(summary)), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LoadSummary reads a run summary artifact back from disk.
func LoadSummary(path string) (*RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read summary %s: %w", path, err)
	}
	var summary RunSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("parse summary %s: %w", path, err)
	}
	if summary.Strategy == "" {
		return nil, fmt.Errorf("summary %s: missing strategy name", path)
	}
	return &summary, nil
}

// Regenerate re-renders the markdown report from a stored summary
// artifact. An empty outDir writes next to the summary file. Returns the
// report path.
func Regenerate(summaryPath, outDir string) (string, error) {
	summary, err := LoadSummary(summaryPath)
	if err != nil {
		return "", err
	}
	if outDir == "" {
		outDir = filepath.Dir(summaryPath)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(outDir, summary.Strategy+"_report.md")
	if err := os.WriteFile(path, []byte(renderMarkdown(summary)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func renderMarkdown(summary *RunSummary) string {
	var report strings.Builder

	report.WriteString(fmt.Sprintf("# %s Optimization Report\n\n", summary.Strategy))
	report.WriteString(fmt.Sprintf("**Run ID**: %s\n", summary.RunID))
	report.WriteString(fmt.Sprintf("**Generated**: %s\n", summary.FinishedAt.UTC().Format("2006-01-02 15:04:05 UTC")))
	report.WriteString(fmt.Sprintf("**Dataset**: %s (%d bars)\n", summary.Dataset, summary.Bars))
	report.WriteString(fmt.Sprintf("**Search Mode**: %s\n\n", summary.Mode))

	report.WriteString("## Sessions\n\n")
	report.WriteString("| Session | Status | Train Bars | Validate Bars | Best Score | Sharpe | Win Rate | Trades | Max DD | Convergence CV |\n")
	report.WriteString("|---------|--------|-----------:|--------------:|-----------:|-------:|---------:|-------:|-------:|---------------:|\n")
	for _, o := range summary.Sessions {
		if o.Skipped {
			report.WriteString(fmt.Sprintf("| %s | skipped (%s) | - | - | - | - | - | - | - | - |\n",
				o.Session, o.SkipReason))
			continue
		}
		m := o.ValidateMetrics
		report.WriteString(fmt.Sprintf("| %s | optimized | %d | %d | %.4f | %.2f | %.1f%% | %d | %.1f%% | %.3f |\n",
			o.Session, o.TrainBars, o.ValidateBars, o.Best.Score,
			m.SharpeRatio, m.WinRate*100, m.TotalTrades, m.MaxDrawdown*100, o.ConvergenceCV))
	}
	report.WriteString("\n")

	for _, o := range summary.Sessions {
		if o.Skipped {
			continue
		}
		report.WriteString(fmt.Sprintf("## %s Parameters\n\n", o.Session))
		report.WriteString("| Parameter | Baseline | Candidate | Change |\n")
		report.WriteString("|-----------|---------:|----------:|-------:|\n")
		for _, name := range sortedKeys(o.Best.Params) {
			candidate := o.Best.Params[name]
			baseline, ok := summary.Baseline[name]
			change := "-"
			if ok && baseline != 0 {
				change = fmt.Sprintf("%+.1f%%", (candidate-baseline)/baseline*100)
			}
			baseStr := "-"
			if ok {
				baseStr = fmt.Sprintf("%.4g", baseline)
			}
			report.WriteString(fmt.Sprintf("| %s | %s | %.4g | %s |\n", name, baseStr, candidate, change))
		}
		report.WriteString("\n")
		for _, warning := range o.Warnings {
			report.WriteString(fmt.Sprintf("> ⚠️ %s\n", warning))
		}
		if len(o.Warnings) > 0 {
			report.WriteString("\n")
		}
	}

	if summary.Gate != nil {
		report.WriteString("## Validation Gate\n\n")
		verdict := "❌ REJECTED"
		if summary.Gate.Passed {
			verdict = "✅ PASSED"
		}
		report.WriteString(fmt.Sprintf("**Verdict**: %s\n", verdict))
		report.WriteString(fmt.Sprintf("**Reason**: %s\n\n", summary.Gate.Reason))
		report.WriteString("| Metric | Baseline | Candidate | Delta |\n")
		report.WriteString("|--------|---------:|----------:|------:|\n")
		report.WriteString(fmt.Sprintf("| Win Rate | %.1f%% | %.1f%% | %+.1f pts |\n",
			summary.Gate.Baseline.WinRate*100, summary.Gate.Candidate.WinRate*100, summary.Gate.WinRateDelta*100))
		report.WriteString(fmt.Sprintf("| Sharpe Ratio | %.2f | %.2f | %+.2f |\n",
			summary.Gate.Baseline.SharpeRatio, summary.Gate.Candidate.SharpeRatio, summary.Gate.SharpeDelta))
		report.WriteString(fmt.Sprintf("| Trades | %d | %d | - |\n",
			summary.Gate.Baseline.TotalTrades, summary.Gate.Candidate.TotalTrades))
		report.WriteString(fmt.Sprintf("| Bootstrap p-value | - | - | %.4f |\n\n", summary.Gate.PValue))
		for _, warning := range summary.Gate.Warnings {
			report.WriteString(fmt.Sprintf("> ⚠️ %s\n", warning))
		}
		if len(summary.Gate.Warnings) > 0 {
			report.WriteString("\n")
		}
	}

	if len(summary.Manifests) > 0 {
		report.WriteString("## Promotion Manifests\n\n")
		for _, m := range summary.Manifests {
			report.WriteString(fmt.Sprintf("- `%s`\n", m))
		}
		report.WriteString("\n")
	}

	if len(summary.Errors) > 0 {
		report.WriteString("## Errors\n\n")
		for _, e := range summary.Errors {
			report.WriteString(fmt.Sprintf("- %s\n", e))
		}
		report.WriteString("\n")
	}

	report.WriteString("---\n")
	report.WriteString(fmt.Sprintf("*Elapsed: %s*\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second)))

	return report.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
