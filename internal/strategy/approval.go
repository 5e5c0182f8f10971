package strategy

import (
	"fmt"

	"github.com/parquet-go/parquet-go"
)

// ApprovalSource supplies the per-bar boolean approval gate an upstream
// filter strategy produces. The simulator treats it as opaque: a bar whose
// flag is false can never open a trade.
type ApprovalSource interface {
	Approvals(n int) ([]bool, error)
}

// AllApproved approves every bar; used when no upstream filter is wired.
type AllApproved struct{}

func (AllApproved) Approvals(n int) ([]bool, error) {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out, nil
}

// Static serves a fixed approval series, mainly for tests.
type Static []bool

func (s Static) Approvals(n int) ([]bool, error) {
	if len(s) != n {
		return nil, fmt.Errorf("approval series has %d entries, dataset has %d bars", len(s), n)
	}
	return []bool(s), nil
}

type approvalRow struct {
	Timestamp int64 `parquet:"t"`
	Approved  bool  `parquet:"approved"`
}

// FileApproval loads an approval series from a parquet file aligned
// positionally with the bar dataset.
type FileApproval struct {
	Path string
}

func (f FileApproval) Approvals(n int) ([]bool, error) {
	rows, err := parquet.ReadFile[approvalRow](f.Path)
	if err != nil {
		return nil, fmt.Errorf("read approval file %s: %w", f.Path, err)
	}
	if len(rows) != n {
		return nil, fmt.Errorf("approval file %s has %d entries, dataset has %d bars", f.Path, len(rows), n)
	}
	out := make([]bool, n)
	for i, r := range rows {
		out[i] = r.Approved
	}
	return out, nil
}
