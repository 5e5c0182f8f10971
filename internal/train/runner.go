package train

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stratforge/traintick/internal/calendar"
	"github.com/stratforge/traintick/internal/gate"
	"github.com/stratforge/traintick/internal/ledger"
	"github.com/stratforge/traintick/internal/market"
	"github.com/stratforge/traintick/internal/perf"
	"github.com/stratforge/traintick/internal/report"
	"github.com/stratforge/traintick/internal/search"
	"github.com/stratforge/traintick/internal/strategy"
	"github.com/stratforge/traintick/internal/telemetry"
)

// Runner executes the training pipeline for every configured strategy.
type Runner struct {
	cfg     Config
	ledger  ledger.Ledger
	metrics *telemetry.MetricsRegistry
	writer  *report.Writer
}

// NewRunner wires the pipeline. A nil ledger or metrics registry is
// replaced with a no-op so callers only pass what they use.
func NewRunner(cfg Config, lg ledger.Ledger, metrics *telemetry.MetricsRegistry) *Runner {
	if lg == nil {
		lg = ledger.NewNoopLedger()
	}
	if metrics == nil {
		metrics = telemetry.NewMetricsRegistry()
	}
	return &Runner{
		cfg:     cfg,
		ledger:  lg,
		metrics: metrics,
		writer:  report.NewWriter(cfg.OutputDir),
	}
}

// Run optimizes every configured strategy. A single strategy failing is
// recorded and skipped; Run only errors when nothing succeeded.
func (r *Runner) Run(ctx context.Context) ([]*report.RunSummary, error) {
	loc, err := time.LoadLocation(r.cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %s: %w", r.cfg.Timezone, err)
	}
	classifier, err := calendar.NewClassifier(r.cfg.Calendar, loc)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	summaries := make([]*report.RunSummary, 0, len(r.cfg.Strategies))
	failures := 0
	for _, sc := range r.cfg.Strategies {
		if ctx.Err() != nil {
			return summaries, ctx.Err()
		}
		summary, err := r.runStrategy(ctx, sc, classifier)
		if err != nil {
			failures++
			log.Error().Err(err).Str("strategy", sc.Name).Msg("strategy run failed")
			r.recordRun(&report.RunSummary{RunID: uuid.NewString(), Strategy: sc.Name, Dataset: sc.Dataset}, "failed", err.Error())
			continue
		}
		summaries = append(summaries, summary)
	}
	if failures == len(r.cfg.Strategies) {
		return summaries, fmt.Errorf("all %d strategy runs failed", failures)
	}
	return summaries, nil
}

func (r *Runner) runStrategy(ctx context.Context, sc StrategyConfig, classifier *calendar.Classifier) (*report.RunSummary, error) {
	timer := r.metrics.StartRun(sc.Name)
	summary := &report.RunSummary{
		RunID:     uuid.NewString(),
		Strategy:  sc.Name,
		Dataset:   sc.Dataset,
		Mode:      r.cfg.Session.Mode,
		StartedAt: time.Now().UTC(),
	}

	dataset, err := r.loadDataset(sc, classifier)
	if err != nil {
		timer.Stop("failed")
		return nil, err
	}
	summary.Bars = dataset.Len()

	baseline, err := r.loadBaseline(sc)
	if err != nil {
		timer.Stop("failed")
		return nil, err
	}
	summary.Baseline = baseline.Parameters

	bounds, space, err := r.loadBoundsAndSpace(sc)
	if err != nil {
		timer.Stop("failed")
		return nil, err
	}

	// The trailing slice never touches the search; it exists solely so
	// the gate compares baseline and candidate on data neither has seen.
	split := dataset.Len() - int(float64(dataset.Len())*r.cfg.HoldoutRatio)
	optimizeSet := dataset.Slice(0, split)
	holdout := dataset.Slice(split, dataset.Len())

	sessionCfg := r.cfg.Session
	sessionCfg.OnTrial = func(session string, elapsed time.Duration) {
		r.metrics.TrialDuration.WithLabelValues(sc.Name, session).Observe(elapsed.Seconds())
	}

	outcomes, err := search.OptimizeSessions(ctx, optimizeSet, space, sessionCfg)
	if err != nil {
		timer.Stop("failed")
		return nil, fmt.Errorf("optimize sessions: %w", err)
	}
	summary.Sessions = outcomes

	holdoutParts, err := holdout.PartitionBySession()
	if err != nil {
		timer.Stop("failed")
		return nil, fmt.Errorf("partition holdout: %w", err)
	}

	thresholds := r.gateThresholds()
	passed := 0
	for i := range outcomes {
		outcome := &outcomes[i]
		r.recordSession(summary, sc.Name, outcome)
		if outcome.Skipped {
			continue
		}
		r.metrics.RecordTrials(sc.Name, string(outcome.Session), len(outcome.Trials))

		result, manifestPath, err := r.gateSession(sc.Name, outcome, baseline, bounds, holdoutParts[outcome.Session], holdout, thresholds)
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s gate: %v", outcome.Session, err))
			continue
		}
		if summary.Gate == nil || (result.Passed && !summary.Gate.Passed) {
			summary.Gate = result
		}
		if result.Passed {
			passed++
			summary.Manifests = append(summary.Manifests, manifestPath)
		}
		r.recordGate(summary, sc.Name, string(outcome.Session), result, manifestPath)
	}

	summary.FinishedAt = time.Now().UTC()
	status := "rejected"
	if passed > 0 {
		status = "completed"
	}
	timer.Stop(status)
	r.recordRun(summary, status, "")

	if err := r.writer.WriteTrials(sc.Name, outcomes); err != nil {
		return nil, fmt.Errorf("write trials: %w", err)
	}
	if err := r.writer.WriteSummary(summary); err != nil {
		return nil, fmt.Errorf("write summary: %w", err)
	}
	if err := r.writer.WriteReport(summary); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	log.Info().
		Str("strategy", sc.Name).
		Str("run_id", summary.RunID).
		Str("status", status).
		Int("manifests", passed).
		Msg("strategy run finished")
	return summary, nil
}

// gateSession validates one session's best candidate against the baseline
// on that session's holdout bars.
func (r *Runner) gateSession(strategyName string, outcome *search.SessionOutcome, baseline *strategy.ParameterFile,
	bounds strategy.Bounds, holdoutPart *market.Dataset, holdout *market.Dataset, thresholds gate.Thresholds) (*gate.Result, string, error) {

	if holdoutPart == nil || holdoutPart.Len() == 0 {
		return nil, "", fmt.Errorf("no holdout bars for session %s", outcome.Session)
	}
	scorer, err := search.NewScorer(holdoutPart, r.cfg.Session.Indicators, r.cfg.Session.Sim, r.cfg.Session.Objective)
	if err != nil {
		return nil, "", err
	}

	role := "baseline"
	backtest := func(params map[string]float64) ([]float64, perf.Metrics, error) {
		r.metrics.RecordBacktest(strategyName, role)
		role = "candidate"
		return scorer.Returns(params)
	}

	baselineParams := baseline.ForSession(string(outcome.Session))
	outcome.BaselineParams = baselineParams

	result := gate.Run(bounds, baselineParams, outcome.Best.Params, backtest, thresholds)
	r.metrics.RecordGate(strategyName, result.Passed, result.PValue)
	if !result.Passed {
		return &result, "", nil
	}

	manifest, err := gate.NewManifest(strategyName, string(outcome.Session), outcome.Best.Params, result,
		thresholds, holdout.Times[0], holdout.Times[holdout.Len()-1])
	if err != nil {
		return &result, "", err
	}
	path, err := manifest.Write(r.cfg.StagingDir)
	if err != nil {
		return &result, "", err
	}
	return &result, path, nil
}

func (r *Runner) loadDataset(sc StrategyConfig, classifier *calendar.Classifier) (*market.Dataset, error) {
	dataset, err := market.ReadFile(sc.Dataset)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if err := dataset.Check(); err != nil {
		return nil, fmt.Errorf("dataset %s: %w", sc.Dataset, err)
	}
	dataset.Classify(classifier)
	dataset, err = dataset.DropMaintenance()
	if err != nil {
		return nil, err
	}

	var approvals strategy.ApprovalSource = strategy.AllApproved{}
	if sc.Approvals != "" {
		approvals = strategy.FileApproval{Path: sc.Approvals}
	}
	approved, err := approvals.Approvals(dataset.Len())
	if err != nil {
		return nil, fmt.Errorf("load approvals: %w", err)
	}
	if err := dataset.SetApprovals(approved); err != nil {
		return nil, err
	}
	return dataset, nil
}

func (r *Runner) loadBaseline(sc StrategyConfig) (*strategy.ParameterFile, error) {
	if sc.Baseline == "" {
		return &strategy.ParameterFile{
			Strategy:   sc.Name,
			Parameters: strategy.DefaultS2Params(),
		}, nil
	}
	return strategy.LoadParameterFile(sc.Baseline)
}

func (r *Runner) loadBoundsAndSpace(sc StrategyConfig) (strategy.Bounds, search.Space, error) {
	table := strategy.DefaultBoundsTable()
	if sc.Bounds != "" {
		loaded, err := strategy.LoadBoundsTable(sc.Bounds)
		if err != nil {
			return strategy.Bounds{}, nil, err
		}
		table = loaded
	}
	bounds, ok := table[sc.Name]
	if !ok {
		return strategy.Bounds{}, nil, fmt.Errorf("no bounds defined for strategy %s", sc.Name)
	}

	space := search.DefaultS2Space()
	if sc.Space != "" {
		loaded, err := search.LoadSpace(sc.Space)
		if err != nil {
			return strategy.Bounds{}, nil, err
		}
		space = loaded
	}
	if err := space.Validate(); err != nil {
		return strategy.Bounds{}, nil, err
	}
	return bounds, space, nil
}

func (r *Runner) gateThresholds() gate.Thresholds {
	th := gate.DefaultThresholds()
	c := r.cfg.Thresholds
	if c.MinTrades > 0 {
		th.MinTrades = c.MinTrades
	}
	if c.MinWinRateDelta > 0 {
		th.MinWinRateDelta = c.MinWinRateDelta
	}
	if c.MinSharpeDelta > 0 {
		th.MinSharpeDelta = c.MinSharpeDelta
	}
	if c.MaxPValue > 0 {
		th.MaxPValue = c.MaxPValue
	}
	if c.BootstrapIterations > 0 {
		th.BootstrapIterations = c.BootstrapIterations
	}
	return th
}

func (r *Runner) recordRun(summary *report.RunSummary, status, note string) {
	rec := &ledger.RunRecord{
		RunID:      summary.RunID,
		Strategy:   summary.Strategy,
		Dataset:    summary.Dataset,
		Mode:       string(summary.Mode),
		Bars:       summary.Bars,
		StartedAt:  summary.StartedAt.Unix(),
		FinishedAt: summary.FinishedAt.Unix(),
		Status:     status,
		Note:       note,
	}
	if err := r.ledger.RecordRun(rec); err != nil {
		log.Warn().Err(err).Msg("record run in ledger")
	}
}

func (r *Runner) recordSession(summary *report.RunSummary, strategyName string, outcome *search.SessionOutcome) {
	params, _ := json.Marshal(outcome.Best.Params)
	rec := &ledger.SessionRecord{
		RunID:          summary.RunID,
		Strategy:       strategyName,
		Session:        string(outcome.Session),
		Skipped:        outcome.Skipped,
		SkipReason:     outcome.SkipReason,
		TrainBars:      outcome.TrainBars,
		ValidateBars:   outcome.ValidateBars,
		Trials:         len(outcome.Trials),
		BestScore:      outcome.Best.Score,
		BestParams:     string(params),
		ValidateSharpe: outcome.ValidateMetrics.SharpeRatio,
		ValidateTrades: outcome.ValidateMetrics.TotalTrades,
		ConvergenceCV:  outcome.ConvergenceCV,
	}
	if err := r.ledger.RecordSession(rec); err != nil {
		log.Warn().Err(err).Msg("record session in ledger")
	}
}

func (r *Runner) recordGate(summary *report.RunSummary, strategyName, session string, result *gate.Result, manifestPath string) {
	rec := &ledger.GateRecord{
		RunID:        summary.RunID,
		Strategy:     strategyName,
		Session:      session,
		Passed:       result.Passed,
		Reason:       result.Reason,
		WinRateDelta: result.WinRateDelta,
		SharpeDelta:  result.SharpeDelta,
		PValue:       result.PValue,
		ManifestPath: manifestPath,
	}
	if err := r.ledger.RecordGate(rec); err != nil {
		log.Warn().Err(err).Msg("record gate in ledger")
	}
}
