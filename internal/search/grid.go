package search

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/stratforge/traintick/internal/perf"
)

// Evaluator scores one parameter candidate. It must be a pure function of
// its inputs; grid workers call it concurrently.
type Evaluator func(params map[string]float64) (float64, perf.Metrics, error)

// GridConfig controls the parallel grid search.
type GridConfig struct {
	Workers int `yaml:"workers"` // 0 means one per CPU core
}

// DefaultGridConfig returns one worker per CPU core.
func DefaultGridConfig() GridConfig {
	return GridConfig{Workers: runtime.NumCPU()}
}

// Grid evaluates the full cartesian product of the space's grid points
// across a worker pool and returns trials sorted descending by score
// (ties broken by trial number so ordering is deterministic).
//
// Cancellation stops dispatching new combinations; in-flight evaluations
// complete, so the returned slice never contains partial results.
func Grid(ctx context.Context, space Space, eval Evaluator, cfg GridConfig) ([]Trial, error) {
	if err := space.Validate(); err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	values := make([][]float64, len(space))
	total := 1
	for i, d := range space {
		values[i] = d.Values()
		total *= len(values[i])
	}
	log.Info().Int("combinations", total).Int("workers", workers).Msg("grid search starting")

	jobs := make(chan int)
	trials := make([]Trial, total)
	done := make([]bool, total)
	errs := make(chan error, 1)
	var failed atomic.Bool

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if failed.Load() {
					continue
				}
				params := comboParams(space, values, idx)
				score, metrics, err := eval(params)
				if err != nil {
					failed.Store(true)
					select {
					case errs <- err:
					default:
					}
					continue
				}
				trials[idx] = Trial{Number: idx, Params: params, Score: score, Metrics: metrics}
				done[idx] = true
			}
		}()
	}

dispatch:
	for idx := 0; idx < total; idx++ {
		if failed.Load() {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	select {
	case err := <-errs:
		return nil, fmt.Errorf("grid evaluation failed: %w", err)
	default:
	}

	out := make([]Trial, 0, total)
	for idx, t := range trials {
		if done[idx] {
			out = append(out, t)
		}
	}
	SortByScore(out)

	if len(out) > 0 {
		log.Info().Float64("best_score", out[0].Score).Int("evaluated", len(out)).Msg("grid search complete")
	}
	return out, nil
}

// comboParams decodes a flat combination index into a parameter map.
func comboParams(space Space, values [][]float64, idx int) map[string]float64 {
	params := make(map[string]float64, len(space))
	for i := len(space) - 1; i >= 0; i-- {
		n := len(values[i])
		params[space[i].Name] = values[i][idx%n]
		idx /= n
	}
	return params
}

// SortByScore orders trials best-first with a deterministic tie-break.
func SortByScore(trials []Trial) {
	sort.SliceStable(trials, func(i, j int) bool {
		if trials[i].Score != trials[j].Score {
			return trials[i].Score > trials[j].Score
		}
		return trials[i].Number < trials[j].Number
	})
}
