// Package market holds the bar dataset: a column-oriented, read-only view
// of an OHLCV series plus its per-bar session classification. The columns
// are flat slices so the simulator's inner loop never touches per-bar
// objects.
package market

import (
	"fmt"
	"time"

	"github.com/stratforge/traintick/internal/calendar"
)

// Dataset is a time-ordered OHLCV series as parallel columns. Sessions and
// Maintenance are populated by Classify and stay aligned with the bars.
// Once loaded a dataset is never mutated; filtering operations return new
// datasets over fresh slices.
type Dataset struct {
	Times  []time.Time
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []int64

	Sessions    []calendar.Session
	Maintenance []bool
	Approved    []bool
}

// NewDataset allocates an empty dataset with the given capacity.
func NewDataset(capacity int) *Dataset {
	return &Dataset{
		Times:  make([]time.Time, 0, capacity),
		Open:   make([]float64, 0, capacity),
		High:   make([]float64, 0, capacity),
		Low:    make([]float64, 0, capacity),
		Close:  make([]float64, 0, capacity),
		Volume: make([]int64, 0, capacity),
	}
}

// Len returns the bar count.
func (d *Dataset) Len() int { return len(d.Close) }

// Classified reports whether session attributes have been assigned.
func (d *Dataset) Classified() bool { return len(d.Sessions) == d.Len() && d.Len() > 0 }

// Check validates the ordering and value invariants of the series:
// strictly increasing timestamps, positive prices, high >= low, and
// non-negative volume. The downloader enforces the same rules; this is the
// core's last line of defense against a corrupt file.
func (d *Dataset) Check() error {
	for i := 0; i < d.Len(); i++ {
		if i > 0 && !d.Times[i].After(d.Times[i-1]) {
			return fmt.Errorf("bar %d: timestamp %s not after previous %s", i, d.Times[i], d.Times[i-1])
		}
		if d.Open[i] <= 0 || d.High[i] <= 0 || d.Low[i] <= 0 || d.Close[i] <= 0 {
			return fmt.Errorf("bar %d: non-positive price", i)
		}
		if d.High[i] < d.Low[i] {
			return fmt.Errorf("bar %d: high %.4f below low %.4f", i, d.High[i], d.Low[i])
		}
		if d.Volume[i] < 0 {
			return fmt.Errorf("bar %d: negative volume %d", i, d.Volume[i])
		}
	}
	return nil
}

// Classify assigns session and maintenance attributes to every bar.
func (d *Dataset) Classify(c *calendar.Classifier) {
	d.Sessions, d.Maintenance = c.ClassifyAll(d.Times)
}

// SetApprovals attaches the upstream approval-gate series as a column so
// it stays aligned through filtering.
func (d *Dataset) SetApprovals(approved []bool) error {
	if len(approved) != d.Len() {
		return fmt.Errorf("approval series has %d entries, dataset has %d bars", len(approved), d.Len())
	}
	d.Approved = approved
	return nil
}

// Filter returns a new dataset containing the bars where keep is true.
// Classification columns are carried when present.
func (d *Dataset) Filter(keep []bool) *Dataset {
	out := NewDataset(d.Len())
	classified := d.Classified()
	if classified {
		out.Sessions = make([]calendar.Session, 0, d.Len())
		out.Maintenance = make([]bool, 0, d.Len())
	}
	approved := len(d.Approved) == d.Len() && d.Len() > 0
	if approved {
		out.Approved = make([]bool, 0, d.Len())
	}
	for i := 0; i < d.Len(); i++ {
		if !keep[i] {
			continue
		}
		out.Times = append(out.Times, d.Times[i])
		out.Open = append(out.Open, d.Open[i])
		out.High = append(out.High, d.High[i])
		out.Low = append(out.Low, d.Low[i])
		out.Close = append(out.Close, d.Close[i])
		out.Volume = append(out.Volume, d.Volume[i])
		if classified {
			out.Sessions = append(out.Sessions, d.Sessions[i])
			out.Maintenance = append(out.Maintenance, d.Maintenance[i])
		}
		if approved {
			out.Approved = append(out.Approved, d.Approved[i])
		}
	}
	return out
}

// Slice returns a new dataset over bars [from, to).
func (d *Dataset) Slice(from, to int) *Dataset {
	keep := make([]bool, d.Len())
	for i := from; i < to; i++ {
		keep[i] = true
	}
	return d.Filter(keep)
}

// DropMaintenance removes maintenance-break bars so no holding window can
// span the break. Requires classification.
func (d *Dataset) DropMaintenance() (*Dataset, error) {
	if !d.Classified() {
		return nil, fmt.Errorf("dataset not classified")
	}
	keep := make([]bool, d.Len())
	for i, m := range d.Maintenance {
		keep[i] = !m
	}
	return d.Filter(keep), nil
}

// PartitionBySession splits the dataset into one dataset per session
// bucket. Requires classification.
func (d *Dataset) PartitionBySession() (map[calendar.Session]*Dataset, error) {
	if !d.Classified() {
		return nil, fmt.Errorf("dataset not classified")
	}
	out := make(map[calendar.Session]*Dataset, len(calendar.Sessions))
	for _, s := range calendar.Sessions {
		keep := make([]bool, d.Len())
		for i, bs := range d.Sessions {
			keep[i] = bs == s
		}
		out[s] = d.Filter(keep)
	}
	return out, nil
}

// VolumeFloat returns the volume column as float64 for indicator math.
func (d *Dataset) VolumeFloat() []float64 {
	out := make([]float64, d.Len())
	for i, v := range d.Volume {
		out[i] = float64(v)
	}
	return out
}
