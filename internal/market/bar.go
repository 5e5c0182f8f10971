package market

import (
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Bar is the flat OHLCV row used for parquet persistence. Timestamps are
// unix milliseconds in UTC, matching the historical download format.
type Bar struct {
	Timestamp int64   `parquet:"t" json:"t"`
	Open      float64 `parquet:"o" json:"o"`
	High      float64 `parquet:"h" json:"h"`
	Low       float64 `parquet:"l" json:"l"`
	Close     float64 `parquet:"c" json:"c"`
	Volume    int64   `parquet:"v" json:"v"`
}

// ReadFile loads a parquet bar file into a Dataset.
func ReadFile(path string) (*Dataset, error) {
	rows, err := parquet.ReadFile[Bar](path)
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}
	return FromBars(rows), nil
}

// WriteFile persists the dataset as a parquet bar file.
func (d *Dataset) WriteFile(path string) error {
	if err := parquet.WriteFile(path, d.Bars()); err != nil {
		return fmt.Errorf("write bars %s: %w", path, err)
	}
	return nil
}

// FromBars builds a column-oriented dataset from parquet rows.
func FromBars(rows []Bar) *Dataset {
	d := NewDataset(len(rows))
	for _, r := range rows {
		d.Times = append(d.Times, time.UnixMilli(r.Timestamp).UTC())
		d.Open = append(d.Open, r.Open)
		d.High = append(d.High, r.High)
		d.Low = append(d.Low, r.Low)
		d.Close = append(d.Close, r.Close)
		d.Volume = append(d.Volume, r.Volume)
	}
	return d
}

// Bars converts the dataset back to flat rows.
func (d *Dataset) Bars() []Bar {
	rows := make([]Bar, d.Len())
	for i := range rows {
		rows[i] = Bar{
			Timestamp: d.Times[i].UnixMilli(),
			Open:      d.Open[i],
			High:      d.High[i],
			Low:       d.Low[i],
			Close:     d.Close[i],
			Volume:    d.Volume[i],
		}
	}
	return rows
}
