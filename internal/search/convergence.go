package search

import (
	"fmt"
	"math"
)

// ConvergenceConfig controls the advisory convergence check.
type ConvergenceConfig struct {
	TopN  int     `yaml:"top_n"`
	MaxCV float64 `yaml:"max_cv"`
}

// DefaultConvergenceConfig mirrors the production advisory thresholds.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{TopN: 50, MaxCV: 0.20}
}

// Convergence computes the coefficient of variation of the top-N trial
// scores. High variance suggests the search has not settled; the result is
// advisory only and never blocks promotion.
func Convergence(trials []Trial, cfg ConvergenceConfig) (cv float64, warnings []string) {
	if len(trials) < cfg.TopN {
		warnings = append(warnings, fmt.Sprintf(
			"only %d trials available, expected at least %d for convergence check", len(trials), cfg.TopN))
		if len(trials) < 2 {
			return 0, warnings
		}
	}

	n := cfg.TopN
	if n > len(trials) {
		n = len(trials)
	}
	top := trials[:n]

	mean := 0.0
	for _, t := range top {
		mean += t.Score
	}
	mean /= float64(n)

	variance := 0.0
	for _, t := range top {
		dev := t.Score - mean
		variance += dev * dev
	}
	std := math.Sqrt(variance / float64(n))

	if mean > 0 {
		cv = std / mean
		if cv > cfg.MaxCV {
			warnings = append(warnings, fmt.Sprintf(
				"top %d trials have high score variance (CV=%.1f%%), search may not have converged - consider more trials",
				n, cv*100))
		}
	}
	return cv, warnings
}
