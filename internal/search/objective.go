package search

import "github.com/stratforge/traintick/internal/perf"

// ObjectiveConfig shapes the raw Sharpe ratio into the optimization target.
// The multiplicative penalty keeps the search away from statistically thin
// or excessively risky parameter sets.
type ObjectiveConfig struct {
	MinTrades     int     `yaml:"min_trades"`
	MaxDrawdown   float64 `yaml:"max_drawdown"`
	PenaltyFactor float64 `yaml:"penalty_factor"`
}

// DefaultObjectiveConfig returns the production penalties.
func DefaultObjectiveConfig() ObjectiveConfig {
	return ObjectiveConfig{
		MinTrades:     10,
		MaxDrawdown:   0.25,
		PenaltyFactor: 0.5,
	}
}

// Score converts metrics to the value the optimizer maximizes.
func (c ObjectiveConfig) Score(m perf.Metrics) float64 {
	score := m.SharpeRatio
	if m.TotalTrades < c.MinTrades {
		score *= c.PenaltyFactor
	}
	if m.MaxDrawdown > c.MaxDrawdown {
		score *= c.PenaltyFactor
	}
	return score
}
