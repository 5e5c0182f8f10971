package indicator

import (
	"math"
	"math/rand"
	"testing"
)

func randomSeries(n int, seed int64) (high, low, close, volume []float64) {
	rng := rand.New(rand.NewSource(seed))
	high = make([]float64, n)
	low = make([]float64, n)
	close = make([]float64, n)
	volume = make([]float64, n)
	price := 4500.0
	for i := 0; i < n; i++ {
		price += rng.NormFloat64() * 0.5
		close[i] = price
		high[i] = price + 0.25 + rng.Float64()
		low[i] = price - 0.25 - rng.Float64()
		volume[i] = 100 + float64(rng.Intn(900))
	}
	return
}

func TestATR_WarmupAndSeed(t *testing.T) {
	high := []float64{11, 12, 13, 14, 15, 16}
	low := []float64{9, 10, 11, 12, 13, 14}
	close := []float64{10, 11, 12, 13, 14, 15}
	period := 3

	atr := ATR(high, low, close, period)
	for i := 0; i < period; i++ {
		if atr[i] != 0 {
			t.Errorf("atr[%d] = %f, want 0 before warm-up", i, atr[i])
		}
	}

	// TR is constant 2 here (high-low == 2, |high-prevClose| == 2), so the
	// seed and every smoothed value equal 2.
	for i := period; i < len(close); i++ {
		if math.Abs(atr[i]-2.0) > 1e-12 {
			t.Errorf("atr[%d] = %f, want 2", i, atr[i])
		}
	}
}

func TestATR_ShortSeriesIsAllZero(t *testing.T) {
	atr := ATR([]float64{1, 2}, []float64{1, 2}, []float64{1, 2}, 14)
	for i, v := range atr {
		if v != 0 {
			t.Errorf("atr[%d] = %f, want 0", i, v)
		}
	}
}

func TestRSI_NeutralSentinelAndExtremes(t *testing.T) {
	// Monotonically rising closes: no losses, RSI pins to 100 after warm-up.
	n := 30
	close := make([]float64, n)
	for i := range close {
		close[i] = 100 + float64(i)
	}
	rsi := RSI(close, 14)

	for i := 0; i <= 14; i++ {
		if rsi[i] != 50 {
			t.Errorf("rsi[%d] = %f, want neutral 50 during warm-up", i, rsi[i])
		}
	}
	for i := 15; i < n; i++ {
		if rsi[i] != 100 {
			t.Errorf("rsi[%d] = %f, want 100 with zero losses", i, rsi[i])
		}
	}

	// Too short: all neutral.
	short := RSI([]float64{1, 2, 3}, 14)
	for i, v := range short {
		if v != 50 {
			t.Errorf("short rsi[%d] = %f, want 50", i, v)
		}
	}
}

func TestRSI_Bounded(t *testing.T) {
	_, _, close, _ := randomSeries(500, 7)
	for i, v := range RSI(close, 14) {
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] = %f out of [0,100]", i, v)
		}
	}
}

func TestVWAPDistance_SentinelAndZeroVolume(t *testing.T) {
	n := 50
	close := make([]float64, n)
	volume := make([]float64, n)
	for i := range close {
		close[i] = 100
		volume[i] = 10
	}
	dist := VWAPDistance(close, volume, 20)
	for i := 0; i < 20; i++ {
		if dist[i] != 0 {
			t.Errorf("dist[%d] = %f, want 0 before window fills", i, dist[i])
		}
	}
	// Flat price: distance stays zero after warm-up too.
	for i := 20; i < n; i++ {
		if math.Abs(dist[i]) > 1e-12 {
			t.Errorf("dist[%d] = %f, want 0 on flat prices", i, dist[i])
		}
	}

	// Zero volume keeps the sentinel.
	zero := VWAPDistance(close, make([]float64, n), 20)
	for i, v := range zero {
		if v != 0 {
			t.Errorf("zero-volume dist[%d] = %f, want 0", i, v)
		}
	}
}

func TestBollingerWidth_FlatAndSentinel(t *testing.T) {
	n := 40
	close := make([]float64, n)
	for i := range close {
		close[i] = 250
	}
	width := BollingerWidth(close, 20, 2.0)
	for i, v := range width {
		if v != 0 {
			t.Errorf("width[%d] = %f, want 0 (flat series, zero std)", i, v)
		}
	}
}

// TestNoLookahead verifies indicator values are unchanged when bars beyond
// index i are truncated away.
func TestNoLookahead(t *testing.T) {
	high, low, close, volume := randomSeries(300, 99)
	cut := 180

	type series struct {
		name       string
		full, trim []float64
	}
	cases := []series{
		{"atr", ATR(high, low, close, 14), ATR(high[:cut], low[:cut], close[:cut], 14)},
		{"rsi", RSI(close, 14), RSI(close[:cut], 14)},
		{"vwap", VWAPDistance(close, volume, 20), VWAPDistance(close[:cut], volume[:cut], 20)},
		{"bbw", BollingerWidth(close, 20, 2.0), BollingerWidth(close[:cut], 20, 2.0)},
	}

	for _, c := range cases {
		for i := 0; i < cut; i++ {
			if c.full[i] != c.trim[i] {
				t.Errorf("%s[%d]: full %v != truncated %v", c.name, i, c.full[i], c.trim[i])
			}
		}
	}
}
