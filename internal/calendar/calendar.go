// Package calendar maps timestamps to trading days, market session buckets,
// and the daily maintenance window. The rules must match the exchange
// calendar service bit-for-bit: downstream production code cross-checks it.
package calendar

import (
	"fmt"
	"time"
)

// Session identifies a market session bucket used for per-session
// parameter optimization.
type Session string

const (
	SessionOvernight Session = "Overnight"
	SessionRTH       Session = "RTH"
	SessionPostRTH   Session = "PostRTH"
)

// Sessions lists all buckets in canonical order.
var Sessions = []Session{SessionOvernight, SessionRTH, SessionPostRTH}

// Config holds the exchange schedule in exchange-local minutes of day.
type Config struct {
	MarketOpen       int `yaml:"market_open"`       // RTH open (default 09:30)
	MarketClose      int `yaml:"market_close"`      // RTH close (default 16:00)
	MaintenanceStart int `yaml:"maintenance_start"` // daily break start (default 17:00)
	MaintenanceEnd   int `yaml:"maintenance_end"`   // daily break end, also the session re-open (default 18:00)
	WeekOpen         int `yaml:"week_open"`         // Sunday open (default 18:00)
}

// DefaultConfig returns the CME ES/NQ futures schedule in Eastern Time minutes.
func DefaultConfig() Config {
	return Config{
		MarketOpen:       9*60 + 30,
		MarketClose:      16 * 60,
		MaintenanceStart: 17 * 60,
		MaintenanceEnd:   18 * 60,
		WeekOpen:         18 * 60,
	}
}

// Classification is the derived per-bar attribute set. TradingDay is
// midnight of the trading day in the exchange location. Immutable once
// assigned.
type Classification struct {
	TradingDay  time.Time
	Session     Session
	Maintenance bool
}

// Classifier applies the exchange schedule in a fixed location.
type Classifier struct {
	config Config
	loc    *time.Location
}

// NewClassifier creates a classifier for one exchange location. A nil
// location is a configuration error, not a default.
func NewClassifier(config Config, loc *time.Location) (*Classifier, error) {
	if loc == nil {
		return nil, fmt.Errorf("calendar: exchange location is required")
	}
	if config.MarketOpen >= config.MarketClose {
		return nil, fmt.Errorf("calendar: market open %d must precede close %d", config.MarketOpen, config.MarketClose)
	}
	if config.MaintenanceStart >= config.MaintenanceEnd {
		return nil, fmt.Errorf("calendar: maintenance start %d must precede end %d", config.MaintenanceStart, config.MaintenanceEnd)
	}
	return &Classifier{config: config, loc: loc}, nil
}

// Location returns the exchange location the classifier operates in.
func (c *Classifier) Location() *time.Location { return c.loc }

// Classify maps a timestamp to (trading day, session, maintenance flag).
// The input is converted to the exchange location first; the result is a
// pure function of the timestamp.
func (c *Classifier) Classify(t time.Time) Classification {
	local := t.In(c.loc)
	minute := local.Hour()*60 + local.Minute()

	maintenance := minute >= c.config.MaintenanceStart && minute < c.config.MaintenanceEnd

	var session Session
	switch {
	case minute >= c.config.MarketOpen && minute < c.config.MarketClose:
		session = SessionRTH
	case minute >= c.config.MarketClose && minute < c.config.MaintenanceStart:
		session = SessionPostRTH
	default:
		session = SessionOvernight
	}

	var day time.Time
	switch local.Weekday() {
	case time.Sunday:
		if minute >= c.config.WeekOpen {
			// Sunday evening belongs to Monday's trading day.
			day = midnight(local.AddDate(0, 0, 1))
		} else {
			// Market closed since Friday; still Friday's trading day.
			day = midnight(local.AddDate(0, 0, -2))
		}
	case time.Saturday:
		day = midnight(local.AddDate(0, 0, -1))
	case time.Friday:
		// Friday evening has no next session until Sunday, so the
		// whole day stays on Friday.
		day = midnight(local)
	default:
		if minute >= c.config.MaintenanceEnd {
			day = midnight(local.AddDate(0, 0, 1))
		} else {
			day = midnight(local)
		}
	}

	return Classification{TradingDay: day, Session: session, Maintenance: maintenance}
}

// ClassifyAll classifies a timestamp sequence into parallel session and
// maintenance arrays.
func (c *Classifier) ClassifyAll(times []time.Time) ([]Session, []bool) {
	sessions := make([]Session, len(times))
	maintenance := make([]bool, len(times))
	for i, t := range times {
		cl := c.Classify(t)
		sessions[i] = cl.Session
		maintenance[i] = cl.Maintenance
	}
	return sessions, maintenance
}

// ValidateNoMaintenance returns an error when any flagged bar is present.
// Trade holding windows must never span the maintenance break.
func ValidateNoMaintenance(maintenance []bool) error {
	count := 0
	for _, m := range maintenance {
		if m {
			count++
		}
	}
	if count > 0 {
		return fmt.Errorf("found %d bars inside the daily maintenance break; holding windows must not cross it", count)
	}
	return nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
