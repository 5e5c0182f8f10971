// Package train orchestrates the full optimization pipeline: load bars,
// classify sessions, search parameters per session, validate candidates
// against the baseline on held-out data, and emit manifests plus reports.
package train

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/search"
)

// StrategyConfig names one strategy to optimize and its inputs.
type StrategyConfig struct {
	Name      string `yaml:"name"`
	Dataset   string `yaml:"dataset"`             // parquet bar file
	Baseline  string `yaml:"baseline"`            // baseline parameter JSON
	Space     string `yaml:"space,omitempty"`     // search space YAML; empty uses built-in defaults
	Bounds    string `yaml:"bounds,omitempty"`    // bounds YAML; empty uses built-in defaults
	Approvals string `yaml:"approvals,omitempty"` // approval parquet; empty approves every bar
}

// Config is the top-level training configuration.
type Config struct {
	Timezone     string               `yaml:"timezone"`
	HoldoutRatio float64              `yaml:"holdout_ratio"` // trailing fraction reserved for the gate
	OutputDir    string               `yaml:"output_dir"`
	StagingDir   string               `yaml:"staging_dir"` // passing manifests land here
	LedgerPath   string               `yaml:"ledger_path"` // sqlite file; empty disables history
	Calendar     calendar.Config      `yaml:"calendar"`
	Session      search.SessionConfig `yaml:"session"`
	Thresholds   ThresholdsConfig     `yaml:"thresholds"`
	Strategies   []StrategyConfig     `yaml:"strategies"`
}

// ThresholdsConfig mirrors gate.Thresholds for YAML loading; zero values
// fall back to production defaults at runtime.
type ThresholdsConfig struct {
	MinTrades           int     `yaml:"min_trades"`
	MinWinRateDelta     float64 `yaml:"min_win_rate_delta"`
	MinSharpeDelta      float64 `yaml:"min_sharpe_delta"`
	MaxPValue           float64 `yaml:"max_p_value"`
	BootstrapIterations int     `yaml:"bootstrap_iterations"`
}

// DefaultConfig returns a runnable configuration: synthetic-friendly
// defaults, artifacts under ./out, no ledger.
func DefaultConfig() Config {
	return Config{
		Timezone:     "America/New_York",
		HoldoutRatio: 0.20,
		OutputDir:    "out",
		StagingDir:   "out/staging",
		Calendar:     calendar.DefaultConfig(),
		Session:      search.DefaultSessionConfig(),
	}
}

// LoadConfig reads and validates a training configuration file. Missing
// sections keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks cross-field consistency.
func (c Config) Validate() error {
	if c.HoldoutRatio <= 0 || c.HoldoutRatio >= 1 {
		return fmt.Errorf("holdout_ratio %.2f must be in (0, 1)", c.HoldoutRatio)
	}
	if c.Timezone == "" {
		return fmt.Errorf("timezone is required")
	}
	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	for i, s := range c.Strategies {
		if s.Name == "" {
			return fmt.Errorf("strategy %d: missing name", i)
		}
		if s.Dataset == "" {
			return fmt.Errorf("strategy %s: missing dataset", s.Name)
		}
	}
	return nil
}
