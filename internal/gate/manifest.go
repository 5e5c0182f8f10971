package gate

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/stratforge/traintick/internal/perf"
)

// Manifest is the audit document written when a candidate passes the
// gate. The external promotion process picks it up from the staging
// directory and cross-checks the parameter hash before deploying.
type Manifest struct {
	Strategy       string             `json:"strategy"`
	Session        string             `json:"session,omitempty"`
	RunID          string             `json:"run_id"`
	Version        string             `json:"version"`
	Parameters     map[string]float64 `json:"parameters"`
	ParametersHash string             `json:"parameters_hash"`
	Validation     ManifestValidation `json:"validation"`
	Thresholds     Thresholds         `json:"thresholds"`
	CreatedAt      time.Time          `json:"created_at"`
}

// ManifestValidation captures what the gate measured.
type ManifestValidation struct {
	Status       string       `json:"status"`
	HoldoutStart time.Time    `json:"holdout_start"`
	HoldoutEnd   time.Time    `json:"holdout_end"`
	Baseline     perf.Metrics `json:"baseline_metrics"`
	Candidate    perf.Metrics `json:"candidate_metrics"`
	WinRateDelta float64      `json:"win_rate_improvement"`
	SharpeDelta  float64      `json:"sharpe_improvement"`
	PValue       float64      `json:"p_value"`
}

// ParamsHash returns the SHA-256 of the canonical JSON encoding of the
// parameters. encoding/json sorts map keys, which is the canonical form
// the promotion process recomputes.
func ParamsHash(params map[string]float64) (string, error) {
	data, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("marshal parameters: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// NewManifest assembles a manifest from a passing gate result.
func NewManifest(strategyName, session string, params map[string]float64, result Result, th Thresholds, holdoutStart, holdoutEnd time.Time) (*Manifest, error) {
	if !result.Passed {
		return nil, fmt.Errorf("manifest requires a passing gate result: %s", result.Reason)
	}
	hash, err := ParamsHash(params)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Manifest{
		Strategy:       strategyName,
		Session:        session,
		RunID:          uuid.NewString(),
		Version:        now.Format(time.RFC3339),
		Parameters:     params,
		ParametersHash: hash,
		Validation: ManifestValidation{
			Status:       "passed",
			HoldoutStart: holdoutStart,
			HoldoutEnd:   holdoutEnd,
			Baseline:     result.Baseline,
			Candidate:    result.Candidate,
			WinRateDelta: result.WinRateDelta,
			SharpeDelta:  result.SharpeDelta,
			PValue:       result.PValue,
		},
		Thresholds: th,
		CreatedAt:  now,
	}, nil
}

// Write saves the manifest as indented JSON into the staging directory,
// named <strategy>_<session>_manifest.json.
func (m *Manifest) Write(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}
	name := m.Strategy
	if m.Session != "" {
		name += "_" + m.Session
	}
	path := filepath.Join(dir, name+"_manifest.json")

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write manifest %s: %w", path, err)
	}
	return path, nil
}
