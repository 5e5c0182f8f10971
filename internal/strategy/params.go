package strategy

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// DefaultS2Params returns the production baseline for the VWAP
// mean-reversion strategy.
func DefaultS2Params() map[string]float64 {
	return map[string]float64{
		"vwap_threshold":    0.15,
		"rsi_level":         30,
		"stop_atr_mult":     2.0,
		"target_atr_mult":   3.5,
		"min_atr":           0.25,
		"max_bars_in_trade": 45,
	}
}

// ParameterFile is the on-disk baseline parameter document: defaults,
// per-session overrides, and the metrics recorded when the parameters were
// last validated.
type ParameterFile struct {
	Strategy         string                        `json:"strategy"`
	Version          string                        `json:"version"`
	Parameters       map[string]float64            `json:"parameters"`
	SessionOverrides map[string]map[string]float64 `json:"session_overrides,omitempty"`
	Validation       map[string]float64            `json:"validation_metrics,omitempty"`
	UpdatedAt        time.Time                     `json:"updated_at"`
}

// LoadParameterFile reads and checks a baseline parameter JSON file.
func LoadParameterFile(path string) (*ParameterFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file %s: %w", path, err)
	}
	var pf ParameterFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse parameter file %s: %w", path, err)
	}
	if pf.Strategy == "" {
		return nil, fmt.Errorf("parameter file %s: missing strategy name", path)
	}
	if len(pf.Parameters) == 0 {
		return nil, fmt.Errorf("parameter file %s: no parameters", path)
	}
	return &pf, nil
}

// Save writes the parameter file as indented JSON.
func (pf *ParameterFile) Save(path string) error {
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal parameter file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write parameter file %s: %w", path, err)
	}
	return nil
}

// ForSession returns the effective parameters for a session: the defaults
// with any session override applied on top. The receiver is not mutated.
func (pf *ParameterFile) ForSession(session string) map[string]float64 {
	out := make(map[string]float64, len(pf.Parameters))
	for k, v := range pf.Parameters {
		out[k] = v
	}
	if override, ok := pf.SessionOverrides[session]; ok {
		for k, v := range override {
			out[k] = v
		}
	}
	return out
}
