// Package schedule runs recurring training on a cron expression, for
// deployments where parameters are re-optimized nightly or weekly as new
// bars arrive.
package schedule

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/stratforge/traintick/internal/ledger"
	"github.com/stratforge/traintick/internal/telemetry"
	"github.com/stratforge/traintick/internal/train"
)

// Scheduler triggers training runs on a cron schedule. Runs never
// overlap: a trigger that fires while a run is in flight is skipped with
// a warning.
type Scheduler struct {
	cron    *cron.Cron
	cfg     train.Config
	ledger  ledger.Ledger
	metrics *telemetry.MetricsRegistry
	ctx     context.Context

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler over the given training configuration.
func NewScheduler(ctx context.Context, cfg train.Config, lg ledger.Ledger, metrics *telemetry.MetricsRegistry) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		cfg:     cfg,
		ledger:  lg,
		metrics: metrics,
		ctx:     ctx,
	}
}

// Register adds the training job under the given cron expression
// (standard five-field format).
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.trainingTask); err != nil {
		return fmt.Errorf("register training task %q: %w", spec, err)
	}
	return nil
}

// Start begins firing registered jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the scheduler; started jobs run to completion.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("scheduler stopped")
}

// RunNow executes the training task immediately, outside the schedule.
func (s *Scheduler) RunNow() {
	s.trainingTask()
}

func (s *Scheduler) trainingTask() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Warn().Msg("previous training run still in flight, skipping trigger")
		return
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	log.Info().Msg("scheduled training run starting")
	runner := train.NewRunner(s.cfg, s.ledger, s.metrics)
	summaries, err := runner.Run(s.ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled training run failed")
		return
	}
	for _, summary := range summaries {
		log.Info().
			Str("strategy", summary.Strategy).
			Str("run_id", summary.RunID).
			Int("manifests", len(summary.Manifests)).
			Msg("scheduled training run finished")
	}
}
