package perf

import "math/rand"

// Bootstrap runs a one-tailed resampling test for whether the candidate
// per-trade P&L distribution is reliably better than the baseline's.
//
// Each iteration draws a with-replacement resample of the baseline returns
// and, separately, of the candidate returns, and records the difference of
// the resampled means. The p-value is the fraction of differences at or
// below zero: low means the candidate mean stays above the baseline mean
// across resampling noise, high means the observed improvement does not
// survive it. Identical distributions land near 0.5.
//
// Empty input on either side returns 1.0, the always-fail p-value. The RNG
// is seeded by the caller so gate runs are reproducible.
func Bootstrap(baseline, candidate []float64, iterations int, seed int64) float64 {
	if len(baseline) == 0 || len(candidate) == 0 || iterations <= 0 {
		return 1.0
	}

	nBaseline := len(baseline)
	nCandidate := len(candidate)
	rng := rand.New(rand.NewSource(seed))

	atOrBelowZero := 0
	for it := 0; it < iterations; it++ {
		sumBaseline := 0.0
		for i := 0; i < nBaseline; i++ {
			sumBaseline += baseline[rng.Intn(nBaseline)]
		}
		sumCandidate := 0.0
		for i := 0; i < nCandidate; i++ {
			sumCandidate += candidate[rng.Intn(nCandidate)]
		}

		diff := sumCandidate/float64(nCandidate) - sumBaseline/float64(nBaseline)
		if diff <= 0 {
			atOrBelowZero++
		}
	}

	return float64(atOrBelowZero) / float64(iterations)
}
