package ledger

// NoopLedger is a no-op implementation used when no database is configured.
type NoopLedger struct{}

func NewNoopLedger() *NoopLedger { return &NoopLedger{} }

func (n *NoopLedger) RecordRun(_ *RunRecord) error         { return nil }
func (n *NoopLedger) RecordSession(_ *SessionRecord) error { return nil }
func (n *NoopLedger) RecordGate(_ *GateRecord) error       { return nil }
func (n *NoopLedger) Close() error                         { return nil }
