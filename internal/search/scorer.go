package search

import (
	"fmt"

	"github.com/stratforge/traintick/internal/indicator"
	"github.com/stratforge/traintick/internal/market"
	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/sim"
)

// IndicatorConfig fixes the lookbacks the scorer precomputes. The
// simulator warm-up offset must exceed the longest of these.
type IndicatorConfig struct {
	ATRPeriod       int     `yaml:"atr_period"`
	RSIPeriod       int     `yaml:"rsi_period"`
	VWAPWindow      int     `yaml:"vwap_window"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerK      float64 `yaml:"bollinger_k"`
}

// DefaultIndicatorConfig returns the production lookbacks.
func DefaultIndicatorConfig() IndicatorConfig {
	return IndicatorConfig{
		ATRPeriod:       14,
		RSIPeriod:       14,
		VWAPWindow:      20,
		BollingerPeriod: 20,
		BollingerK:      2.0,
	}
}

// Scorer evaluates parameter candidates against one dataset. Indicators
// are computed once at construction and shared read-only across all
// evaluations, so a scorer is safe for concurrent use by grid workers.
type Scorer struct {
	inputs    sim.Inputs
	simCfg    sim.Config
	objective ObjectiveConfig
}

// NewScorer precomputes indicator series for the dataset. The dataset's
// Approved and Maintenance columns, when present, gate entries.
func NewScorer(d *market.Dataset, ind IndicatorConfig, simCfg sim.Config, objective ObjectiveConfig) (*Scorer, error) {
	longest := ind.ATRPeriod
	for _, p := range []int{ind.RSIPeriod, ind.VWAPWindow, ind.BollingerPeriod} {
		if p > longest {
			longest = p
		}
	}
	if simCfg.WarmupBars <= longest {
		return nil, fmt.Errorf("warm-up offset %d must exceed longest indicator lookback %d", simCfg.WarmupBars, longest)
	}

	inputs := sim.Inputs{
		Close:       d.Close,
		ATR:         indicator.ATR(d.High, d.Low, d.Close, ind.ATRPeriod),
		RSI:         indicator.RSI(d.Close, ind.RSIPeriod),
		VWAPDist:    indicator.VWAPDistance(d.Close, d.VolumeFloat(), ind.VWAPWindow),
		Maintenance: d.Maintenance,
	}
	if len(d.Approved) == d.Len() && d.Len() > 0 {
		inputs.Approved = d.Approved
	}

	return &Scorer{inputs: inputs, simCfg: simCfg, objective: objective}, nil
}

// Evaluate simulates one parameter set and returns its objective score and
// metrics.
func (s *Scorer) Evaluate(params map[string]float64) (float64, perf.Metrics, error) {
	trades, err := sim.Simulate(s.inputs, sim.ParamsFromMap(params), s.simCfg)
	if err != nil {
		return 0, perf.Metrics{}, err
	}
	m := perf.Compute(perf.Returns(trades))
	return s.objective.Score(m), m, nil
}

// Returns simulates one parameter set and exposes the per-trade returns,
// which the validation gate feeds into the bootstrap test.
func (s *Scorer) Returns(params map[string]float64) ([]float64, perf.Metrics, error) {
	trades, err := sim.Simulate(s.inputs, sim.ParamsFromMap(params), s.simCfg)
	if err != nil {
		return nil, perf.Metrics{}, err
	}
	returns := perf.Returns(trades)
	return returns, perf.Compute(returns), nil
}
