package perf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBootstrap_SymmetryOnIdenticalDistributions(t *testing.T) {
	// bootstrap(X, X) has no true difference; p must sit near 0.5.
	rng := rand.New(rand.NewSource(7))
	x := make([]float64, 300)
	for i := range x {
		x[i] = rng.NormFloat64()
	}

	p := Bootstrap(x, x, 4000, 42)
	assert.InDelta(t, 0.5, p, 0.05)
}

func TestBootstrap_ClearImprovementIsSignificant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	baseline := make([]float64, 250)
	candidate := make([]float64, 250)
	for i := range baseline {
		baseline[i] = rng.NormFloat64() * 0.01
		candidate[i] = rng.NormFloat64()*0.01 + 0.01
	}

	p := Bootstrap(baseline, candidate, 4000, 42)
	assert.Less(t, p, 0.05)
}

func TestBootstrap_RegressionIsNotSignificant(t *testing.T) {
	// A clearly worse candidate must push p toward 1, not hover at 0.5:
	// the null distribution has to carry the real group difference.
	rng := rand.New(rand.NewSource(13))
	baseline := make([]float64, 250)
	candidate := make([]float64, 250)
	for i := range baseline {
		baseline[i] = rng.NormFloat64()*0.01 + 0.01
		candidate[i] = rng.NormFloat64() * 0.01
	}

	p := Bootstrap(baseline, candidate, 4000, 42)
	assert.Greater(t, p, 0.95)
}

func TestBootstrap_EmptyInputFails(t *testing.T) {
	assert.Equal(t, 1.0, Bootstrap(nil, []float64{0.1}, 100, 1))
	assert.Equal(t, 1.0, Bootstrap([]float64{0.1}, nil, 100, 1))
}

func TestBootstrap_Reproducible(t *testing.T) {
	x := []float64{0.01, -0.02, 0.03, 0.01, -0.01}
	y := []float64{0.02, 0.01, -0.01, 0.04, 0.00}
	assert.Equal(t, Bootstrap(x, y, 2000, 99), Bootstrap(x, y, 2000, 99))
}
