// Package search explores a bounded parameter space for a strategy,
// scoring candidates through the simulator+metrics pipeline. Two modes are
// supported: an embarrassingly parallel grid search and a sequential
// seeded Bayesian sampler.
package search

import (
	"fmt"
	"math"
	"os"

	"github.com/stratforge/traintick/internal/perf"
	"gopkg.in/yaml.v2"
)

// Dimension is one tunable parameter: an inclusive [Min, Max] range
// sampled on a Step grid. Integer dimensions round to whole values.
type Dimension struct {
	Name    string  `yaml:"name"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Integer bool    `yaml:"integer"`
}

// Space is the full search space for one strategy.
type Space []Dimension

// DefaultS2Space returns the production search space for the VWAP
// mean-reversion strategy.
func DefaultS2Space() Space {
	return Space{
		{Name: "vwap_threshold", Min: 0.05, Max: 0.30, Step: 0.01},
		{Name: "rsi_level", Min: 20, Max: 40, Step: 2, Integer: true},
		{Name: "stop_atr_mult", Min: 1.0, Max: 4.0, Step: 0.25},
		{Name: "target_atr_mult", Min: 2.0, Max: 6.0, Step: 0.5},
		{Name: "min_atr", Min: 0.20, Max: 0.50, Step: 0.05},
		{Name: "max_bars_in_trade", Min: 30, Max: 60, Step: 5, Integer: true},
	}
}

// LoadSpace reads a search space from YAML and validates it.
func LoadSpace(path string) (Space, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read space file %s: %w", path, err)
	}
	var space Space
	if err := yaml.Unmarshal(data, &space); err != nil {
		return nil, fmt.Errorf("parse space file %s: %w", path, err)
	}
	if err := space.Validate(); err != nil {
		return nil, err
	}
	return space, nil
}

// Validate checks the space is well-formed.
func (s Space) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("search space is empty")
	}
	seen := make(map[string]bool, len(s))
	for _, d := range s {
		if d.Name == "" {
			return fmt.Errorf("dimension with empty name")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate dimension %s", d.Name)
		}
		seen[d.Name] = true
		if d.Min > d.Max {
			return fmt.Errorf("dimension %s: min %v exceeds max %v", d.Name, d.Min, d.Max)
		}
		if d.Step <= 0 {
			return fmt.Errorf("dimension %s: step must be positive", d.Name)
		}
	}
	return nil
}

// Values expands one dimension to its grid points.
func (d Dimension) Values() []float64 {
	count := int(math.Floor((d.Max-d.Min)/d.Step+1e-9)) + 1
	out := make([]float64, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, d.Round(d.Min+float64(i)*d.Step))
	}
	return out
}

// Round snaps a value onto the dimension's step grid and clamps it to the
// range.
func (d Dimension) Round(v float64) float64 {
	steps := math.Round((v - d.Min) / d.Step)
	v = d.Min + steps*d.Step
	if v < d.Min {
		v = d.Min
	}
	if v > d.Max {
		v = d.Max
	}
	if d.Integer {
		v = math.Round(v)
	}
	return v
}

// GridSize returns the number of combinations a full grid expansion yields.
func (s Space) GridSize() int {
	total := 1
	for _, d := range s {
		total *= len(d.Values())
	}
	return total
}

// Trial is one scored parameter candidate.
type Trial struct {
	Number  int                `json:"number"`
	Params  map[string]float64 `json:"params"`
	Score   float64            `json:"score"`
	Metrics perf.Metrics       `json:"metrics"`
}
