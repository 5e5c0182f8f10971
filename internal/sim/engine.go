// Package sim replays bars through a strategy's entry/exit rules. The
// per-bar loop operates on flat arrays with no allocation so parameter
// search can run it thousands of times per session. Output is fully
// determined by the inputs: no clock, no randomness.
package sim

import "fmt"

// Params are the tunable inputs of the VWAP mean-reversion rule set.
type Params struct {
	VWAPThreshold float64 // entry when |vwap distance| exceeds this
	RSILevel      float64 // oversold level; overbought mirrors at 100-level
	StopATRMult   float64 // stop distance in ATR multiples at entry
	TargetATRMult float64 // target distance in ATR multiples at entry
	MinATR        float64 // volatility floor for entries
	MaxBarsHeld   int     // holding-period cap
}

// ParamsFromMap builds Params from a named parameter set, substituting the
// production defaults for missing names.
func ParamsFromMap(m map[string]float64) Params {
	get := func(name string, def float64) float64 {
		if v, ok := m[name]; ok {
			return v
		}
		return def
	}
	return Params{
		VWAPThreshold: get("vwap_threshold", 0.15),
		RSILevel:      get("rsi_level", 30),
		StopATRMult:   get("stop_atr_mult", 2.0),
		TargetATRMult: get("target_atr_mult", 3.5),
		MinATR:        get("min_atr", 0.25),
		MaxBarsHeld:   int(get("max_bars_in_trade", 45)),
	}
}

// Config holds the run-level settings shared across parameter candidates.
type Config struct {
	// WarmupBars is the first bar index eligible for entries. It must
	// exceed the longest indicator lookback so no decision reads a
	// sentinel value.
	WarmupBars int `yaml:"warmup_bars"`
}

// DefaultConfig returns the standard warm-up offset.
func DefaultConfig() Config {
	return Config{WarmupBars: 100}
}

// Inputs are the aligned per-bar arrays the simulator consumes. Approved
// and Maintenance may be nil, meaning all-approved and no-maintenance.
type Inputs struct {
	Close       []float64
	ATR         []float64
	RSI         []float64
	VWAPDist    []float64
	Approved    []bool
	Maintenance []bool
}

func (in Inputs) check() error {
	n := len(in.Close)
	if len(in.ATR) != n || len(in.RSI) != n || len(in.VWAPDist) != n {
		return fmt.Errorf("indicator arrays not aligned with %d close bars", n)
	}
	if in.Approved != nil && len(in.Approved) != n {
		return fmt.Errorf("approval series has %d entries, want %d", len(in.Approved), n)
	}
	if in.Maintenance != nil && len(in.Maintenance) != n {
		return fmt.Errorf("maintenance series has %d entries, want %d", len(in.Maintenance), n)
	}
	return nil
}

// Trades holds closed trades as parallel arrays truncated to the actual
// count. Direction is +1 long, -1 short. Immutable once returned.
type Trades struct {
	EntryPrice []float64
	ExitPrice  []float64
	EntryIndex []int
	ExitIndex  []int
	Direction  []int8
}

// Count returns the number of closed trades.
func (t Trades) Count() int { return len(t.EntryPrice) }

// Trade returns the entry price, exit price, and direction of trade i.
func (t Trades) Trade(i int) (entry, exit float64, direction int8) {
	return t.EntryPrice[i], t.ExitPrice[i], t.Direction[i]
}

// Simulate runs the flat/in-trade state machine over the input arrays.
//
// Entries (flat only, one open trade at a time): bar must be at or past the
// warm-up offset, approved, not a maintenance bar, and ATR at or above the
// floor. Price below VWAP beyond the threshold with RSI oversold opens a
// long; the mirrored condition opens a short. Stops and targets are frozen
// at entry from the entry bar's ATR.
//
// Exits: stop hit, target hit, or holding cap reached, all evaluated on
// close. A trade still open at end of data is force-closed at the last
// bar's close, so no open trades survive the run.
func Simulate(in Inputs, p Params, cfg Config) (Trades, error) {
	if err := in.check(); err != nil {
		return Trades{}, err
	}

	n := len(in.Close)
	maxTrades := n/2 + 1
	trades := Trades{
		EntryPrice: make([]float64, 0, maxTrades),
		ExitPrice:  make([]float64, 0, maxTrades),
		EntryIndex: make([]int, 0, maxTrades),
		ExitIndex:  make([]int, 0, maxTrades),
		Direction:  make([]int8, 0, maxTrades),
	}

	inTrade := false
	var entryPrice, stop, target float64
	var entryIndex, barsHeld int
	var direction int8

	for i := cfg.WarmupBars; i < n; i++ {
		if inTrade {
			barsHeld++
			c := in.Close[i]
			exit := false
			if direction == 1 {
				exit = c <= stop || c >= target || barsHeld >= p.MaxBarsHeld
			} else {
				exit = c >= stop || c <= target || barsHeld >= p.MaxBarsHeld
			}
			if exit {
				trades.EntryPrice = append(trades.EntryPrice, entryPrice)
				trades.ExitPrice = append(trades.ExitPrice, c)
				trades.EntryIndex = append(trades.EntryIndex, entryIndex)
				trades.ExitIndex = append(trades.ExitIndex, i)
				trades.Direction = append(trades.Direction, direction)
				inTrade = false
			}
		}

		if inTrade {
			continue
		}
		if in.Approved != nil && !in.Approved[i] {
			continue
		}
		if in.Maintenance != nil && in.Maintenance[i] {
			continue
		}
		if in.ATR[i] < p.MinATR {
			continue
		}

		switch {
		case in.VWAPDist[i] < -p.VWAPThreshold && in.RSI[i] < p.RSILevel:
			// Price stretched below VWAP and oversold: long.
			direction = 1
			entryPrice = in.Close[i]
			stop = entryPrice - p.StopATRMult*in.ATR[i]
			target = entryPrice + p.TargetATRMult*in.ATR[i]
		case in.VWAPDist[i] > p.VWAPThreshold && in.RSI[i] > 100-p.RSILevel:
			// Price stretched above VWAP and overbought: short.
			direction = -1
			entryPrice = in.Close[i]
			stop = entryPrice + p.StopATRMult*in.ATR[i]
			target = entryPrice - p.TargetATRMult*in.ATR[i]
		default:
			continue
		}

		entryIndex = i
		barsHeld = 0
		inTrade = true
	}

	if inTrade {
		last := n - 1
		trades.EntryPrice = append(trades.EntryPrice, entryPrice)
		trades.ExitPrice = append(trades.ExitPrice, in.Close[last])
		trades.EntryIndex = append(trades.EntryIndex, entryIndex)
		trades.ExitIndex = append(trades.ExitIndex, last)
		trades.Direction = append(trades.Direction, direction)
	}

	return trades, nil
}
