package market

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratforge/traintick/internal/calendar"
)

func etClassifier(t *testing.T) *calendar.Classifier {
	t.Helper()
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	c, err := calendar.NewClassifier(calendar.DefaultConfig(), loc)
	require.NoError(t, err)
	return c
}

func TestCheck_Violations(t *testing.T) {
	base := time.Date(2025, 1, 13, 14, 30, 0, 0, time.UTC)

	good := func() *Dataset {
		d := NewDataset(3)
		for i := 0; i < 3; i++ {
			d.Times = append(d.Times, base.Add(time.Duration(i)*time.Minute))
			d.Open = append(d.Open, 100)
			d.High = append(d.High, 101)
			d.Low = append(d.Low, 99)
			d.Close = append(d.Close, 100.5)
			d.Volume = append(d.Volume, 10)
		}
		return d
	}

	require.NoError(t, good().Check())

	d := good()
	d.Times[2] = d.Times[1] // duplicate timestamp
	assert.Error(t, d.Check())

	d = good()
	d.Close[1] = -5
	assert.Error(t, d.Check())

	d = good()
	d.High[1], d.Low[1] = 99, 101 // inverted range
	assert.Error(t, d.Check())

	d = good()
	d.Volume[1] = -1
	assert.Error(t, d.Check())
}

func TestClassifyAndDropMaintenance(t *testing.T) {
	classifier := etClassifier(t)

	// 16:55-17:05 ET Monday straddles the maintenance break.
	d := NewDataset(11)
	start := time.Date(2025, 1, 13, 21, 55, 0, 0, time.UTC) // 16:55 ET
	for i := 0; i < 11; i++ {
		d.Times = append(d.Times, start.Add(time.Duration(i)*time.Minute))
		d.Open = append(d.Open, 100)
		d.High = append(d.High, 101)
		d.Low = append(d.Low, 99)
		d.Close = append(d.Close, 100)
		d.Volume = append(d.Volume, 1)
	}
	d.Classify(classifier)
	require.True(t, d.Classified())

	kept, err := d.DropMaintenance()
	require.NoError(t, err)
	assert.Equal(t, 5, kept.Len(), "bars at or after 17:00 ET are removed")
	require.NoError(t, calendar.ValidateNoMaintenance(kept.Maintenance))
}

func TestPartitionBySession(t *testing.T) {
	classifier := etClassifier(t)

	d := NewDataset(4)
	for _, utc := range []time.Time{
		time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC),  // 03:00 ET Overnight
		time.Date(2025, 1, 13, 15, 0, 0, 0, time.UTC), // 10:00 ET RTH
		time.Date(2025, 1, 13, 18, 0, 0, 0, time.UTC), // 13:00 ET RTH
		time.Date(2025, 1, 13, 21, 30, 0, 0, time.UTC), // 16:30 ET PostRTH
	} {
		d.Times = append(d.Times, utc)
		d.Open = append(d.Open, 100)
		d.High = append(d.High, 101)
		d.Low = append(d.Low, 99)
		d.Close = append(d.Close, 100)
		d.Volume = append(d.Volume, 1)
	}
	d.Classify(classifier)

	parts, err := d.PartitionBySession()
	require.NoError(t, err)
	assert.Equal(t, 1, parts[calendar.SessionOvernight].Len())
	assert.Equal(t, 2, parts[calendar.SessionRTH].Len())
	assert.Equal(t, 1, parts[calendar.SessionPostRTH].Len())

	_, err = NewDataset(0).PartitionBySession()
	assert.Error(t, err, "unclassified dataset cannot be partitioned")
}

func TestFilterCarriesApprovals(t *testing.T) {
	classifier := etClassifier(t)

	d := Synthetic(DefaultSyntheticConfig())
	d.Classify(classifier)

	approved := make([]bool, d.Len())
	for i := range approved {
		approved[i] = i%2 == 0
	}
	require.NoError(t, d.SetApprovals(approved))
	assert.Error(t, d.SetApprovals(approved[:5]), "length mismatch rejected")

	half := d.Slice(0, d.Len()/2)
	assert.Len(t, half.Approved, half.Len())
	assert.Equal(t, approved[:half.Len()], half.Approved)
}

func TestParquetRoundTrip(t *testing.T) {
	d := Synthetic(DefaultSyntheticConfig())
	path := filepath.Join(t.TempDir(), "bars.parquet")
	require.NoError(t, d.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, d.Len(), got.Len())
	assert.Equal(t, d.Times[0], got.Times[0])
	assert.Equal(t, d.Close, got.Close)
	assert.Equal(t, d.Volume, got.Volume)
}

func TestSyntheticDeterminism(t *testing.T) {
	a := Synthetic(DefaultSyntheticConfig())
	b := Synthetic(DefaultSyntheticConfig())
	assert.Equal(t, a.Close, b.Close)

	cfg := DefaultSyntheticConfig()
	cfg.Seed = 7
	c := Synthetic(cfg)
	assert.NotEqual(t, a.Close, c.Close)
}

func TestSyntheticBarsAreWellFormed(t *testing.T) {
	// Steps regularly exceed the range padding, which is where a bar's
	// open could escape the high/low bracket.
	for _, seed := range []int64{1, 42, 7, 1234} {
		cfg := DefaultSyntheticConfig()
		cfg.Seed = seed
		cfg.Reversion = 0.05
		cfg.BasePrice = 100
		d := Synthetic(cfg)

		for i := 0; i < d.Len(); i++ {
			require.LessOrEqual(t, d.Low[i], d.Open[i], "seed %d bar %d: open below low", seed, i)
			require.GreaterOrEqual(t, d.High[i], d.Open[i], "seed %d bar %d: open above high", seed, i)
			require.LessOrEqual(t, d.Low[i], d.Close[i], "seed %d bar %d: close below low", seed, i)
			require.GreaterOrEqual(t, d.High[i], d.Close[i], "seed %d bar %d: close above high", seed, i)
		}
	}
}
