package search

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratforge/traintick/internal/perf"
)

func TestBayes_ReproducibleWithSameSeed(t *testing.T) {
	space := DefaultS2Space()
	eval := func(p map[string]float64) (float64, perf.Metrics, error) {
		// Smooth unimodal objective peaking at vwap_threshold=0.12.
		score := -math.Abs(p["vwap_threshold"]-0.12) - 0.01*math.Abs(p["stop_atr_mult"]-2)
		return score, perf.Metrics{}, nil
	}

	cfg := DefaultBayesConfig()
	cfg.Trials = 40

	first, err := Bayes(context.Background(), space, eval, cfg)
	require.NoError(t, err)
	second, err := Bayes(context.Background(), space, eval, cfg)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Params, second[i].Params, "trial %d", i)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestBayes_ProposalsStayOnGrid(t *testing.T) {
	space := DefaultS2Space()
	eval := func(p map[string]float64) (float64, perf.Metrics, error) {
		return p["vwap_threshold"], perf.Metrics{}, nil
	}

	cfg := DefaultBayesConfig()
	cfg.Trials = 50

	trials, err := Bayes(context.Background(), space, eval, cfg)
	require.NoError(t, err)

	for _, trial := range trials {
		for _, d := range space {
			v := trial.Params[d.Name]
			assert.GreaterOrEqual(t, v, d.Min, "%s below min", d.Name)
			assert.LessOrEqual(t, v, d.Max, "%s above max", d.Name)
			if d.Integer {
				assert.Equal(t, math.Trunc(v), v, "%s must be integral", d.Name)
			}
			steps := (v - d.Min) / d.Step
			assert.InDelta(t, math.Round(steps), steps, 1e-6, "%s off the step grid", d.Name)
		}
	}
}

func TestBayes_FindsBetterThanStartupAverage(t *testing.T) {
	space := Space{{Name: "x", Min: 0, Max: 10, Step: 0.1}}
	eval := func(p map[string]float64) (float64, perf.Metrics, error) {
		x := p["x"]
		return -(x - 7) * (x - 7), perf.Metrics{}, nil
	}

	cfg := DefaultBayesConfig()
	cfg.Trials = 60

	trials, err := Bayes(context.Background(), space, eval, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, trials[0].Params["x"], 1.0, "should concentrate near the optimum")
}

func TestBayes_CancelledEarly(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	trials, err := Bayes(ctx, DefaultS2Space(), func(p map[string]float64) (float64, perf.Metrics, error) {
		return 0, perf.Metrics{}, nil
	}, DefaultBayesConfig())
	require.NoError(t, err)
	assert.Empty(t, trials)
}
