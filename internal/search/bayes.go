package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"
)

// BayesConfig controls the sequential model-based sampler.
type BayesConfig struct {
	Trials     int     `yaml:"trials"`     // total evaluations
	Startup    int     `yaml:"startup"`    // uniform trials before the model kicks in
	Gamma      float64 `yaml:"gamma"`      // fraction of history treated as "good"
	Candidates int     `yaml:"candidates"` // proposals scored per dimension per trial
	Seed       int64   `yaml:"seed"`       // fixed seed; reproducibility is required
}

// DefaultBayesConfig returns the production sampler settings. The seed is
// fixed so repeated runs over the same data propose identical trials.
func DefaultBayesConfig() BayesConfig {
	return BayesConfig{
		Trials:     100,
		Startup:    15,
		Gamma:      0.25,
		Candidates: 24,
		Seed:       42,
	}
}

// Bayes runs a tree-structured-estimator style search: after a uniform
// startup phase, the history is split at the gamma quantile into good and
// bad trials, and each dimension samples candidates around good values,
// keeping the one whose kernel-density likelihood ratio (good over bad)
// is highest. Trials are proposed and scored one at a time.
//
// Cancellation stops proposing new trials; the trials already scored are
// returned sorted descending by score.
func Bayes(ctx context.Context, space Space, eval Evaluator, cfg BayesConfig) ([]Trial, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}
	if cfg.Trials <= 0 {
		return nil, fmt.Errorf("bayes: trials must be positive")
	}
	if cfg.Startup <= 0 {
		cfg.Startup = 1
	}
	if cfg.Gamma <= 0 || cfg.Gamma >= 1 {
		cfg.Gamma = 0.25
	}
	if cfg.Candidates <= 0 {
		cfg.Candidates = 24
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	history := make([]Trial, 0, cfg.Trials)

	log.Info().Int("trials", cfg.Trials).Int64("seed", cfg.Seed).Msg("bayes search starting")

	for number := 0; number < cfg.Trials; number++ {
		select {
		case <-ctx.Done():
			log.Warn().Int("completed", number).Msg("bayes search cancelled; keeping completed trials")
			out := append([]Trial(nil), history...)
			SortByScore(out)
			return out, nil
		default:
		}

		params := propose(space, history, cfg, rng)
		score, metrics, err := eval(params)
		if err != nil {
			return nil, fmt.Errorf("bayes trial %d failed: %w", number, err)
		}
		history = append(history, Trial{Number: number, Params: params, Score: score, Metrics: metrics})
	}

	out := append([]Trial(nil), history...)
	SortByScore(out)
	log.Info().Float64("best_score", out[0].Score).Msg("bayes search complete")
	return out, nil
}

func propose(space Space, history []Trial, cfg BayesConfig, rng *rand.Rand) map[string]float64 {
	params := make(map[string]float64, len(space))

	if len(history) < cfg.Startup {
		for _, d := range space {
			values := d.Values()
			params[d.Name] = values[rng.Intn(len(values))]
		}
		return params
	}

	ranked := append([]Trial(nil), history...)
	SortByScore(ranked)
	nGood := int(cfg.Gamma * float64(len(ranked)))
	if nGood < 1 {
		nGood = 1
	}
	good := ranked[:nGood]
	bad := ranked[nGood:]

	for _, d := range space {
		bandwidth := (d.Max - d.Min) / 8
		if bandwidth <= 0 {
			params[d.Name] = d.Min
			continue
		}

		best := 0.0
		bestRatio := math.Inf(-1)
		for c := 0; c < cfg.Candidates; c++ {
			anchor := good[rng.Intn(len(good))].Params[d.Name]
			candidate := d.Round(anchor + bandwidth*rng.NormFloat64())
			ratio := kernelLogDensity(candidate, good, d.Name, bandwidth) -
				kernelLogDensity(candidate, bad, d.Name, bandwidth)
			if ratio > bestRatio {
				bestRatio = ratio
				best = candidate
			}
		}
		params[d.Name] = best
	}
	return params
}

// kernelLogDensity is the log of a Gaussian kernel-density estimate over
// the named parameter of the given trials.
func kernelLogDensity(x float64, trials []Trial, name string, bandwidth float64) float64 {
	if len(trials) == 0 {
		return math.Log(1e-12)
	}
	sum := 0.0
	for _, t := range trials {
		z := (x - t.Params[name]) / bandwidth
		sum += math.Exp(-0.5 * z * z)
	}
	return math.Log(sum/float64(len(trials)) + 1e-12)
}
