// Package telemetry exposes Prometheus metrics for long-running
// optimization schedules. One-shot CLI runs skip the HTTP server and
// just pay the cheap counter increments.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds all Prometheus metrics for the optimizer.
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Search metrics
	TrialsTotal    *prometheus.CounterVec
	TrialDuration  *prometheus.HistogramVec
	BacktestsTotal *prometheus.CounterVec

	// Gate metrics
	GateResults *prometheus.CounterVec
	GatePValue  *prometheus.HistogramVec

	// Run metrics
	RunsTotal   *prometheus.CounterVec
	RunDuration *prometheus.HistogramVec
	ActiveRuns  prometheus.Gauge
}

// NewMetricsRegistry creates a metrics registry with all optimizer metrics
// registered on a private Prometheus registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		TrialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traintick_trials_total",
				Help: "Total number of parameter trials evaluated",
			},
			[]string{"strategy", "session"},
		),

		TrialDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traintick_trial_duration_seconds",
				Help:    "Duration of one parameter trial in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 10.0},
			},
			[]string{"strategy", "session"},
		),

		BacktestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traintick_backtests_total",
				Help: "Total number of holdout backtests executed",
			},
			[]string{"strategy", "role"},
		),

		GateResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traintick_gate_results_total",
				Help: "Validation gate verdicts by outcome",
			},
			[]string{"strategy", "result"},
		),

		GatePValue: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traintick_gate_p_value",
				Help:    "Bootstrap p-values observed at the gate",
				Buckets: []float64{0.001, 0.01, 0.05, 0.10, 0.25, 0.50, 1.0},
			},
			[]string{"strategy"},
		),

		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traintick_runs_total",
				Help: "Total training runs by final status",
			},
			[]string{"strategy", "status"},
		),

		RunDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traintick_run_duration_seconds",
				Help:    "Wall-clock duration of one training run",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
			},
			[]string{"strategy"},
		),

		ActiveRuns: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "traintick_active_runs",
				Help: "Number of training runs currently executing",
			},
		),
	}

	m.registry.MustRegister(
		m.TrialsTotal,
		m.TrialDuration,
		m.BacktestsTotal,
		m.GateResults,
		m.GatePValue,
		m.RunsTotal,
		m.RunDuration,
		m.ActiveRuns,
	)

	return m
}

// RunTimer tracks execution time for one training run.
type RunTimer struct {
	metrics  *MetricsRegistry
	strategy string
	start    time.Time
}

// StartRun begins timing a training run.
func (m *MetricsRegistry) StartRun(strategyName string) *RunTimer {
	m.ActiveRuns.Inc()
	return &RunTimer{metrics: m, strategy: strategyName, start: time.Now()}
}

// Stop completes the run timing and records the final status.
func (rt *RunTimer) Stop(status string) {
	duration := time.Since(rt.start)
	rt.metrics.ActiveRuns.Dec()
	rt.metrics.RunsTotal.WithLabelValues(rt.strategy, status).Inc()
	rt.metrics.RunDuration.WithLabelValues(rt.strategy).Observe(duration.Seconds())

	log.Debug().
		Str("strategy", rt.strategy).
		Str("status", status).
		Dur("duration", duration).
		Msg("run completed")
}

// RecordTrials adds a batch of completed trials for one session.
func (m *MetricsRegistry) RecordTrials(strategyName, session string, n int) {
	m.TrialsTotal.WithLabelValues(strategyName, session).Add(float64(n))
}

// RecordBacktest counts one holdout backtest; role is "baseline" or
// "candidate".
func (m *MetricsRegistry) RecordBacktest(strategyName, role string) {
	m.BacktestsTotal.WithLabelValues(strategyName, role).Inc()
}

// RecordGate records the gate verdict and its p-value.
func (m *MetricsRegistry) RecordGate(strategyName string, passed bool, pValue float64) {
	result := "rejected"
	if passed {
		result = "passed"
	}
	m.GateResults.WithLabelValues(strategyName, result).Inc()
	m.GatePValue.WithLabelValues(strategyName).Observe(pValue)
}
