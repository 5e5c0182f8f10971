// Package ledger persists run history so parameter changes stay
// auditable: which run produced which parameters, what the gate measured,
// and why rejected candidates were rejected.
package ledger

// RunRecord holds the data for one training run.
type RunRecord struct {
	RunID      string
	Strategy   string
	Dataset    string
	Mode       string
	Bars       int
	StartedAt  int64
	FinishedAt int64
	Status     string // "completed", "rejected", "failed"
	Note       string
}

// SessionRecord holds the per-session optimization outcome.
type SessionRecord struct {
	RunID          string
	Strategy       string
	Session        string
	Skipped        bool
	SkipReason     string
	TrainBars      int
	ValidateBars   int
	Trials         int
	BestScore      float64
	BestParams     string // JSON
	ValidateSharpe float64
	ValidateTrades int
	ConvergenceCV  float64
}

// GateRecord holds the validation gate verdict for one candidate.
type GateRecord struct {
	RunID        string
	Strategy     string
	Session      string
	Passed       bool
	Reason       string
	WinRateDelta float64
	SharpeDelta  float64
	PValue       float64
	ManifestPath string
}

// Ledger persists run history for later analysis.
type Ledger interface {
	RecordRun(rec *RunRecord) error
	RecordSession(rec *SessionRecord) error
	RecordGate(rec *GateRecord) error
	Close() error
}
