// Package perf reduces trade lists to summary statistics and provides the
// bootstrap significance test the promotion gate runs. Every reduction is
// total: expected edge cases (no trades, zero variance, empty win or loss
// group) produce exact zeros, never NaN, so downstream comparisons stay
// total-ordered.
package perf

import "math"

// annualization assumes one trading-day equivalent per trade. Inherited
// from the existing baselines; revisit only with a deliberate re-baseline.
const annualization = 252

// Metrics is the read-only summary of one backtest. Recomputed fresh for
// every parameter set.
type Metrics struct {
	TotalTrades  int     `json:"total_trades"`
	TotalReturn  float64 `json:"total_return"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	WinRate      float64 `json:"win_rate"`
	AvgRMultiple float64 `json:"avg_r_multiple"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// TradeList is the minimal trade view perf needs; satisfied by sim.Trades.
type TradeList interface {
	Count() int
	Trade(i int) (entry, exit float64, direction int8)
}

// Returns computes direction-signed per-trade returns: a profitable short
// yields a positive value.
func Returns(trades TradeList) []float64 {
	out := make([]float64, trades.Count())
	for i := range out {
		entry, exit, dir := trades.Trade(i)
		out[i] = (exit - entry) / entry * float64(dir)
	}
	return out
}

// Compute reduces per-trade returns to summary metrics. Zero trades yields
// the all-zero Metrics value.
func Compute(returns []float64) Metrics {
	n := len(returns)
	if n == 0 {
		return Metrics{}
	}

	m := Metrics{TotalTrades: n}

	wins := 0
	winSum, lossSum := 0.0, 0.0
	winCount, lossCount := 0, 0
	for _, r := range returns {
		m.TotalReturn += r
		if r > 0 {
			wins++
			winSum += r
			winCount++
		} else if r < 0 {
			lossSum += r
			lossCount++
		}
	}
	m.WinRate = float64(wins) / float64(n)

	mean := m.TotalReturn / float64(n)
	variance := 0.0
	for _, r := range returns {
		dev := r - mean
		variance += dev * dev
	}
	std := math.Sqrt(variance / float64(n))
	if n > 1 && std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(annualization)
	}

	if winCount > 0 && lossCount > 0 {
		avgWin := winSum / float64(winCount)
		avgLoss := lossSum / float64(lossCount)
		m.AvgRMultiple = avgWin / math.Abs(avgLoss)
	}

	cum := 0.0
	peak := math.Inf(-1)
	for _, r := range returns {
		cum += r
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > m.MaxDrawdown {
			m.MaxDrawdown = dd
		}
	}

	return m
}
