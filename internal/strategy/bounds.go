// Package strategy defines parameter sets, their safety bounds, baseline
// parameter files, and the approval-gate capability the simulator consumes.
package strategy

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v2"
)

// Range is an inclusive [min, max] bound for one parameter.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// CrossConstraint requires one parameter to exceed another by a margin,
// e.g. target_atr_mult > stop_atr_mult + 0.5.
type CrossConstraint struct {
	Greater string  `yaml:"greater"`
	Lesser  string  `yaml:"lesser"`
	Margin  float64 `yaml:"margin"`
}

// Bounds is the safety envelope for one strategy: per-parameter ranges,
// cross-field constraints, and the soft per-parameter max-change table used
// for review warnings.
type Bounds struct {
	Ranges       map[string]Range   `yaml:"ranges"`
	Constraints  []CrossConstraint  `yaml:"constraints"`
	MaxChangePct map[string]float64 `yaml:"max_change_pct"`
}

// BoundsTable maps strategy name to its bounds.
type BoundsTable map[string]Bounds

// DefaultBoundsTable returns the production safety bounds per strategy.
func DefaultBoundsTable() BoundsTable {
	targetOverStop := []CrossConstraint{{Greater: "target_atr_mult", Lesser: "stop_atr_mult", Margin: 0.5}}
	uniformChange := map[string]float64{
		"vwap_threshold":    50,
		"rsi_level":         30,
		"stop_atr_mult":     50,
		"target_atr_mult":   50,
		"min_atr":           50,
		"max_bars_in_trade": 50,
	}
	return BoundsTable{
		"S2": {
			Ranges: map[string]Range{
				"vwap_threshold":    {0.05, 0.30},
				"rsi_level":         {20, 40},
				"stop_atr_mult":     {1.0, 4.0},
				"target_atr_mult":   {2.0, 6.0},
				"min_atr":           {0.20, 0.50},
				"max_bars_in_trade": {20, 100},
			},
			Constraints:  targetOverStop,
			MaxChangePct: uniformChange,
		},
		"S6": {
			Ranges: map[string]Range{
				"min_atr":         {0.20, 0.50},
				"stop_atr_mult":   {1.0, 4.0},
				"target_atr_mult": {2.0, 6.0},
			},
			Constraints: targetOverStop,
		},
		"S11": {
			Ranges: map[string]Range{
				"min_atr":         {0.20, 0.50},
				"stop_atr_mult":   {1.0, 4.0},
				"target_atr_mult": {2.0, 6.0},
			},
			Constraints: targetOverStop,
		},
	}
}

// LoadBoundsTable reads a YAML bounds table and validates it.
func LoadBoundsTable(path string) (BoundsTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bounds file %s: %w", path, err)
	}
	var table BoundsTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse bounds file %s: %w", path, err)
	}
	for name, b := range table {
		for param, r := range b.Ranges {
			if r.Min > r.Max {
				return nil, fmt.Errorf("bounds for %s.%s: min %.4f exceeds max %.4f", name, param, r.Min, r.Max)
			}
		}
	}
	return table, nil
}

// Violations returns every bounds and cross-field violation for the given
// parameter values, in deterministic order. An empty slice means the set is
// safe to simulate. Values are never clamped; an out-of-bounds parameter is
// always a rejection.
func (b Bounds) Violations(params map[string]float64) []string {
	var out []string

	names := make([]string, 0, len(b.Ranges))
	for name := range b.Ranges {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value, ok := params[name]
		if !ok {
			continue
		}
		r := b.Ranges[name]
		if value < r.Min || value > r.Max {
			out = append(out, fmt.Sprintf("%s=%v outside safety bounds [%v, %v]", name, value, r.Min, r.Max))
		}
	}

	for _, c := range b.Constraints {
		greater, okG := params[c.Greater]
		lesser, okL := params[c.Lesser]
		if !okG || !okL {
			continue
		}
		if greater <= lesser+c.Margin {
			out = append(out, fmt.Sprintf("%s (%v) must exceed %s (%v) by at least %v",
				c.Greater, greater, c.Lesser, lesser, c.Margin))
		}
	}
	return out
}

// ChangeWarnings flags parameters whose relative change from baseline
// exceeds the per-parameter max-change threshold. These are soft review
// flags, never rejections.
func (b Bounds) ChangeWarnings(baseline, candidate map[string]float64) []string {
	var out []string

	names := make([]string, 0, len(candidate))
	for name := range candidate {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		base, ok := baseline[name]
		if !ok || base == 0 {
			continue
		}
		maxChange, ok := b.MaxChangePct[name]
		if !ok {
			continue
		}
		changePct := (candidate[name] - base) / base * 100
		if changePct < 0 {
			changePct = -changePct
		}
		if changePct > maxChange {
			out = append(out, fmt.Sprintf("%s changed by %.1f%% (%v -> %v), exceeds %.0f%% threshold - may need manual review",
				name, changePct, base, candidate[name], maxChange))
		}
	}
	return out
}
