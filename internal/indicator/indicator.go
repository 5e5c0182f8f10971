// Package indicator computes technical indicators over flat price/volume
// arrays. Every function is pure, output is aligned index-for-index with
// its input, and entry i depends only on bars at indices <= i. Entries
// before the warm-up window hold the documented sentinel value; the
// simulator skips them via its warm-up offset.
package indicator

import "math"

// ATR computes the Average True Range. The seed at index `period` is the
// simple mean of the first `period` true-range values; later values use
// exponential smoothing with weight 1/period. Zero before warm-up.
func ATR(high, low, close []float64, period int) []float64 {
	n := len(close)
	atr := make([]float64, n)
	if n <= period || period <= 0 {
		return atr
	}

	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	atr[period] = sum / float64(period)

	mult := 1.0 / float64(period)
	for i := period + 1; i < n; i++ {
		atr[i] = atr[i-1] + mult*(tr[i]-atr[i-1])
	}
	return atr
}

// RSI computes the Relative Strength Index with Wilder smoothing.
// Neutral 50 before warm-up; 100 when the average loss is zero.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	rsi := make([]float64, n)
	for i := range rsi {
		rsi[i] = 50.0
	}
	if n < period+1 || period <= 0 {
		return rsi
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		delta := close[i] - close[i-1]
		if delta > 0 {
			gains[i-1] = delta
		} else {
			losses[i-1] = -delta
		}
	}

	avgGain := 0.0
	avgLoss := 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	for i := period; i < n-1; i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)

		if avgLoss == 0 {
			rsi[i+1] = 100.0
		} else {
			rs := avgGain / avgLoss
			rsi[i+1] = 100.0 - 100.0/(1.0+rs)
		}
	}
	return rsi
}

// VWAPDistance computes (close - vwap) / vwap against a rolling
// volume-weighted average over the `window` bars preceding each index.
// Zero before the window fills or when the volume sum is zero.
func VWAPDistance(close, volume []float64, window int) []float64 {
	n := len(close)
	dist := make([]float64, n)
	if window <= 0 {
		return dist
	}
	for i := window; i < n; i++ {
		pvSum := 0.0
		vSum := 0.0
		for j := i - window; j < i; j++ {
			pvSum += close[j] * volume[j]
			vSum += volume[j]
		}
		if vSum > 0 {
			vwap := pvSum / vSum
			if vwap > 0 {
				dist[i] = (close[i] - vwap) / vwap
			}
		}
	}
	return dist
}

// BollingerWidth computes the band width (upper - lower) / middle over a
// rolling window preceding each index, i.e. 2*k*std/mean. Zero before the
// window fills or when the mean is non-positive.
func BollingerWidth(close []float64, period int, stdMult float64) []float64 {
	n := len(close)
	width := make([]float64, n)
	if period <= 0 {
		return width
	}
	for i := period; i < n; i++ {
		mean := 0.0
		for j := i - period; j < i; j++ {
			mean += close[j]
		}
		mean /= float64(period)

		variance := 0.0
		for j := i - period; j < i; j++ {
			dev := close[j] - mean
			variance += dev * dev
		}
		std := math.Sqrt(variance / float64(period))

		if mean > 0 {
			width[i] = 2 * stdMult * std / mean
		}
	}
	return width
}
