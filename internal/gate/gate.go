// Package gate decides whether candidate parameters are safe to promote
// to production. Checks run in a fixed order and short-circuit on the
// first hard failure so every rejection has exactly one attributable
// reason. The gate never panics or throws: callers iterate strategies and
// a single failure must not abort the batch.
package gate

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/strategy"
)

// Thresholds are the hard promotion requirements.
type Thresholds struct {
	MinTrades           int     `yaml:"min_trades"`
	MinWinRateDelta     float64 `yaml:"min_win_rate_delta"`
	MinSharpeDelta      float64 `yaml:"min_sharpe_delta"`
	MaxPValue           float64 `yaml:"max_p_value"`
	BootstrapIterations int     `yaml:"bootstrap_iterations"`
	BootstrapSeed       int64   `yaml:"bootstrap_seed"`
}

// DefaultThresholds returns the production promotion requirements.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTrades:           200,
		MinWinRateDelta:     0.02,
		MinSharpeDelta:      0.10,
		MaxPValue:           0.05,
		BootstrapIterations: 10000,
		BootstrapSeed:       42,
	}
}

// Backtester runs one parameter set over the holdout window and returns
// the per-trade returns plus summary metrics. Both parameter sets are run
// through the same backtester so the comparison is apples-to-apples.
type Backtester func(params map[string]float64) (returns []float64, metrics perf.Metrics, err error)

// Result is the immutable outcome of one gate run.
type Result struct {
	Passed       bool         `json:"passed"`
	Reason       string       `json:"reason"`
	Errors       []string     `json:"errors,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	Baseline     perf.Metrics `json:"baseline"`
	Candidate    perf.Metrics `json:"candidate"`
	WinRateDelta float64      `json:"win_rate_delta"`
	SharpeDelta  float64      `json:"sharpe_delta"`
	PValue       float64      `json:"p_value"`
}

func failed(r Result, reason string) Result {
	r.Passed = false
	r.Reason = reason
	r.Errors = append(r.Errors, reason)
	log.Warn().Str("reason", reason).Msg("gate rejected candidate")
	return r
}

// Run validates a candidate parameter set against the baseline on holdout
// data. Check order is fixed: bounds, holdout backtests, sample size,
// improvement deltas, bootstrap significance.
func Run(bounds strategy.Bounds, baseline, candidate map[string]float64, backtest Backtester, th Thresholds) Result {
	var r Result
	r.PValue = 1.0

	// 1. Bounds and cross-field constraints; no backtests run on failure.
	if violations := bounds.Violations(candidate); len(violations) > 0 {
		r.Errors = append(r.Errors, violations...)
		r.Passed = false
		r.Reason = fmt.Sprintf("parameter bounds check failed: %s", violations[0])
		log.Warn().Strs("violations", violations).Msg("gate rejected candidate")
		return r
	}
	r.Warnings = append(r.Warnings, bounds.ChangeWarnings(baseline, candidate)...)

	// 2. Holdout backtests for both parameter sets.
	baselineReturns, baselineMetrics, err := backtest(baseline)
	if err != nil {
		return failed(r, fmt.Sprintf("baseline holdout backtest failed: %v", err))
	}
	candidateReturns, candidateMetrics, err := backtest(candidate)
	if err != nil {
		return failed(r, fmt.Sprintf("candidate holdout backtest failed: %v", err))
	}
	r.Baseline = baselineMetrics
	r.Candidate = candidateMetrics
	r.WinRateDelta = candidateMetrics.WinRate - baselineMetrics.WinRate
	r.SharpeDelta = candidateMetrics.SharpeRatio - baselineMetrics.SharpeRatio

	// 3. Sample size: too few trades and any improvement is noise.
	if candidateMetrics.TotalTrades < th.MinTrades {
		return failed(r, fmt.Sprintf(
			"insufficient trades: %d < %d (sample size too small for statistical reliability)",
			candidateMetrics.TotalTrades, th.MinTrades))
	}

	// 4. Improvement deltas.
	if r.WinRateDelta < th.MinWinRateDelta {
		return failed(r, fmt.Sprintf(
			"win rate improvement insufficient: %+.1f points < %+.1f points required",
			r.WinRateDelta*100, th.MinWinRateDelta*100))
	}
	if r.SharpeDelta < th.MinSharpeDelta {
		return failed(r, fmt.Sprintf(
			"sharpe ratio improvement insufficient: %+.2f < %+.2f required",
			r.SharpeDelta, th.MinSharpeDelta))
	}

	// 5. Bootstrap significance: must be reliably better, not just luckier.
	r.PValue = perf.Bootstrap(baselineReturns, candidateReturns, th.BootstrapIterations, th.BootstrapSeed)
	if r.PValue >= th.MaxPValue {
		return failed(r, fmt.Sprintf(
			"statistical significance test failed: p-value=%.4f >= %.2f (improvement not statistically significant)",
			r.PValue, th.MaxPValue))
	}

	r.Passed = true
	r.Reason = "all validation checks passed"
	log.Info().
		Float64("win_rate_delta", r.WinRateDelta).
		Float64("sharpe_delta", r.SharpeDelta).
		Float64("p_value", r.PValue).
		Msg("gate passed candidate")
	return r
}
