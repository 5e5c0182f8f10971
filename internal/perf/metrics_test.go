package perf

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrades struct {
	entries, exits []float64
	dirs           []int8
}

func (f fakeTrades) Count() int { return len(f.entries) }
func (f fakeTrades) Trade(i int) (float64, float64, int8) {
	return f.entries[i], f.exits[i], f.dirs[i]
}

func TestReturns_DirectionSign(t *testing.T) {
	trades := fakeTrades{
		entries: []float64{100, 100},
		exits:   []float64{110, 90},
		dirs:    []int8{1, -1},
	}
	r := Returns(trades)
	assert.InDelta(t, 0.10, r[0], 1e-12, "winning long is positive")
	assert.InDelta(t, 0.10, r[1], 1e-12, "winning short is positive")
}

func TestCompute_ZeroTradesIsAllZero(t *testing.T) {
	m := Compute(nil)
	assert.Equal(t, Metrics{}, m)
	assert.False(t, math.IsNaN(m.SharpeRatio))
}

func TestCompute_KnownValues(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}
	m := Compute(returns)

	require.Equal(t, 4, m.TotalTrades)
	assert.InDelta(t, 0.02, m.TotalReturn, 1e-12)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)

	// avg win 0.025, avg loss -0.015.
	assert.InDelta(t, 0.025/0.015, m.AvgRMultiple, 1e-9)

	mean := 0.005
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / 4)
	assert.InDelta(t, mean/std*math.Sqrt(252), m.SharpeRatio, 1e-9)

	// Cumulative path: 0.02, 0.01, 0.04, 0.02 -> worst drop 0.02.
	assert.InDelta(t, 0.02, m.MaxDrawdown, 1e-12)
}

func TestCompute_ZeroVarianceSharpeIsZero(t *testing.T) {
	m := Compute([]float64{0.01, 0.01, 0.01})
	assert.Equal(t, 0.0, m.SharpeRatio)
}

func TestCompute_SingleTradeSharpeIsZero(t *testing.T) {
	m := Compute([]float64{0.05})
	assert.Equal(t, 0.0, m.SharpeRatio)
	assert.Equal(t, 1, m.TotalTrades)
}

func TestCompute_AllWinsRMultipleIsZero(t *testing.T) {
	m := Compute([]float64{0.01, 0.02})
	assert.Equal(t, 0.0, m.AvgRMultiple)
}

func TestCompute_FirstLossDrawdown(t *testing.T) {
	// Peak tracking starts at the first cumulative point, so an opening
	// loss alone is not a drawdown.
	m := Compute([]float64{-0.05})
	assert.Equal(t, 0.0, m.MaxDrawdown)

	m = Compute([]float64{-0.05, -0.03})
	assert.InDelta(t, 0.03, m.MaxDrawdown, 1e-12)
}
