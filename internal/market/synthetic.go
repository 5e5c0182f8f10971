package market

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticConfig controls the seeded random-walk generator used by tests
// and the `dataset synth` command.
type SyntheticConfig struct {
	Bars      int
	Seed      int64
	BasePrice float64
	Start     time.Time
	Interval  time.Duration
	// Reversion pulls each step back toward BasePrice, injecting a
	// mean-reverting pattern. Zero produces a pure random walk.
	Reversion float64
}

// DefaultSyntheticConfig returns one RTH day of 1-minute ES-like bars.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Bars:      390,
		Seed:      42,
		BasePrice: 4500,
		Start:     time.Date(2025, 1, 13, 14, 30, 0, 0, time.UTC), // 09:30 ET
		Interval:  time.Minute,
	}
}

// Synthetic generates a deterministic bar series from the seed.
func Synthetic(cfg SyntheticConfig) *Dataset {
	rng := rand.New(rand.NewSource(cfg.Seed))
	d := NewDataset(cfg.Bars)

	price := cfg.BasePrice
	for i := 0; i < cfg.Bars; i++ {
		open := price
		step := rng.NormFloat64() * 0.5
		if cfg.Reversion > 0 {
			step += cfg.Reversion * (cfg.BasePrice - price)
		}
		price += step

		// High and Low bracket the full bar range, open included, so a
		// large step never produces an open outside [Low, High].
		high := math.Max(open, price) + 0.25 + rng.Float64()*1.75
		low := math.Min(open, price) - 0.25 - rng.Float64()*1.75

		d.Times = append(d.Times, cfg.Start.Add(time.Duration(i)*cfg.Interval))
		d.Open = append(d.Open, open)
		d.High = append(d.High, high)
		d.Low = append(d.Low, low)
		d.Close = append(d.Close, price)
		d.Volume = append(d.Volume, 100+rng.Int63n(900))
	}
	return d
}
