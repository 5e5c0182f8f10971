package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/market"
	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/sim"
)

// Mode selects the search algorithm.
type Mode string

const (
	ModeGrid  Mode = "grid"
	ModeBayes Mode = "bayes"
)

// SessionConfig drives per-session optimization. Strategy behavior differs
// materially between Overnight, RTH, and PostRTH, so each session is
// optimized independently on its own bars.
type SessionConfig struct {
	Mode        Mode              `yaml:"mode"`
	MinBars     int               `yaml:"min_bars"`    // sessions below this are skipped
	TrainRatio  float64           `yaml:"train_ratio"` // in-sample fraction; rest validates
	Grid        GridConfig        `yaml:"grid"`
	Bayes       BayesConfig       `yaml:"bayes"`
	Indicators  IndicatorConfig   `yaml:"indicators"`
	Sim         sim.Config        `yaml:"sim"`
	Objective   ObjectiveConfig   `yaml:"objective"`
	Convergence ConvergenceConfig `yaml:"convergence"`

	// OnTrial, when set, is called after each completed evaluation with
	// the session name and the trial's wall-clock duration. Grid workers
	// evaluate concurrently, so the callback must be safe for concurrent
	// use.
	OnTrial func(session string, elapsed time.Duration) `yaml:"-"`
}

// DefaultSessionConfig returns the production per-session settings.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Mode:        ModeBayes,
		MinBars:     1000,
		TrainRatio:  0.80,
		Grid:        DefaultGridConfig(),
		Bayes:       DefaultBayesConfig(),
		Indicators:  DefaultIndicatorConfig(),
		Sim:         sim.DefaultConfig(),
		Objective:   DefaultObjectiveConfig(),
		Convergence: DefaultConvergenceConfig(),
	}
}

// SessionOutcome is the result of optimizing one session bucket.
type SessionOutcome struct {
	Session         calendar.Session   `json:"session"`
	Skipped         bool               `json:"skipped"`
	SkipReason      string             `json:"skip_reason,omitempty"`
	TrainBars       int                `json:"train_bars"`
	ValidateBars    int                `json:"validate_bars"`
	Best            Trial              `json:"best"`
	ValidateMetrics perf.Metrics       `json:"validate_metrics"`
	Trials          []Trial            `json:"-"`
	ConvergenceCV   float64            `json:"convergence_cv"`
	Warnings        []string           `json:"warnings,omitempty"`
	BaselineParams  map[string]float64 `json:"-"`
}

// OptimizeSessions partitions a classified dataset by session and runs the
// configured search on each bucket with enough bars. Sessions short on
// data are skipped with a warning, never an error: "no signal here" is a
// valid outcome for a session.
func OptimizeSessions(ctx context.Context, d *market.Dataset, space Space, cfg SessionConfig) ([]SessionOutcome, error) {
	partitions, err := d.PartitionBySession()
	if err != nil {
		return nil, fmt.Errorf("partition by session: %w", err)
	}

	outcomes := make([]SessionOutcome, 0, len(calendar.Sessions))
	for _, session := range calendar.Sessions {
		part := partitions[session]
		outcome := SessionOutcome{Session: session}

		if part.Len() < cfg.MinBars {
			outcome.Skipped = true
			outcome.SkipReason = fmt.Sprintf("insufficient data: %d bars < %d", part.Len(), cfg.MinBars)
			log.Warn().Str("session", string(session)).Int("bars", part.Len()).Int("min_bars", cfg.MinBars).
				Msg("skipping session")
			outcomes = append(outcomes, outcome)
			continue
		}

		split := int(float64(part.Len()) * cfg.TrainRatio)
		train := part.Slice(0, split)
		validate := part.Slice(split, part.Len())
		outcome.TrainBars = train.Len()
		outcome.ValidateBars = validate.Len()

		trainScorer, err := NewScorer(train, cfg.Indicators, cfg.Sim, cfg.Objective)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", session, err)
		}

		eval := timedEvaluator(trainScorer.Evaluate, string(session), cfg.OnTrial)

		var trials []Trial
		switch cfg.Mode {
		case ModeGrid:
			trials, err = Grid(ctx, space, eval, cfg.Grid)
		case ModeBayes:
			trials, err = Bayes(ctx, space, eval, cfg.Bayes)
		default:
			err = fmt.Errorf("unknown search mode %q", cfg.Mode)
		}
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", session, err)
		}
		if len(trials) == 0 {
			outcome.Skipped = true
			outcome.SkipReason = "search produced no completed trials"
			outcomes = append(outcomes, outcome)
			continue
		}

		outcome.Trials = trials
		outcome.Best = trials[0]
		outcome.ConvergenceCV, outcome.Warnings = Convergence(trials, cfg.Convergence)

		validateScorer, err := NewScorer(validate, cfg.Indicators, cfg.Sim, cfg.Objective)
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", session, err)
		}
		_, outcome.ValidateMetrics, err = validateScorer.Evaluate(outcome.Best.Params)
		if err != nil {
			return nil, fmt.Errorf("session %s validate: %w", session, err)
		}

		log.Info().
			Str("session", string(session)).
			Float64("best_score", outcome.Best.Score).
			Float64("validate_sharpe", outcome.ValidateMetrics.SharpeRatio).
			Int("validate_trades", outcome.ValidateMetrics.TotalTrades).
			Msg("session optimized")

		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// timedEvaluator wraps eval so every call reports its duration through
// onTrial. A nil callback returns eval unchanged.
func timedEvaluator(eval Evaluator, session string, onTrial func(string, time.Duration)) Evaluator {
	if onTrial == nil {
		return eval
	}
	return func(params map[string]float64) (float64, perf.Metrics, error) {
		start := time.Now()
		score, metrics, err := eval(params)
		onTrial(session, time.Since(start))
		return score, metrics, err
	}
}
