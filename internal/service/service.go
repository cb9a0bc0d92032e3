package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"sheet-probe/internal/alerting"
	"sheet-probe/internal/analysis"
	"sheet-probe/internal/config"
	"sheet-probe/internal/instrument"
	"sheet-probe/internal/scheduler"
	"sheet-probe/internal/storage"
	"sheet-probe/internal/waveform"
)

// ProgressFunc receives one callback per completed forcing level.
type ProgressFunc func(completed, total int, level float64)

// Collaborators bundles the external dependencies of a Service. Nil members
// disable the concern they serve: no store means no persistence, no notifier
// means no alerts, no decider means unsafe levels always abort.
type Collaborators struct {
	Scheduler *scheduler.Scheduler
	Source    instrument.Source
	Decider   waveform.Decider
	Runs      storage.RunStore
	Alerts    storage.AlertStore
	Notifier  alerting.Notifier
	Progress  ProgressFunc
}

// Service orchestrates forcing, acquisition, analysis, persistence, and
// alerting for sheet-resistance tests.
type Service struct {
	scheduler  *scheduler.Scheduler
	source     instrument.Source
	decider    waveform.Decider
	runs       storage.RunStore
	alertStore storage.AlertStore
	notifier   alerting.Notifier
	progress   ProgressFunc
	logger     zerolog.Logger

	params        config.Params
	mode          string
	maxErrorReads int
	alertsOn      bool
	minOhms       decimal.Decimal
	maxOhms       decimal.Decimal
	channels      []string
	cooldown      time.Duration
	lastAlert     time.Time
}

// Outcome couples a run identifier with its analysis result and the raw
// series it was computed from.
type Outcome struct {
	RunID     string
	StartedAt time.Time
	Result    analysis.Result
	Series    []instrument.Series
}

// New constructs the measurement service.
func New(cfg *config.Config, params config.Params, mode string, collab Collaborators, logger zerolog.Logger) *Service {
	minOhms := decimal.Zero
	maxOhms := decimal.Zero
	if cfg.Alerting.Enabled {
		if cfg.Alerting.MinOhmsSq > 0 {
			minOhms = decimal.NewFromFloat(cfg.Alerting.MinOhmsSq)
		}
		if cfg.Alerting.MaxOhmsSq > 0 {
			maxOhms = decimal.NewFromFloat(cfg.Alerting.MaxOhmsSq)
		}
	}

	return &Service{
		scheduler:     collab.Scheduler,
		source:        collab.Source,
		decider:       collab.Decider,
		runs:          collab.Runs,
		alertStore:    collab.Alerts,
		notifier:      collab.Notifier,
		progress:      collab.Progress,
		logger:        logger.With().Str("component", "service").Logger(),
		params:        params,
		mode:          mode,
		maxErrorReads: cfg.Instrument.MaxErrorReads,
		alertsOn:      cfg.Alerting.Enabled,
		minOhms:       minOhms,
		maxOhms:       maxOhms,
		channels:      cfg.Alerting.Channels,
		cooldown:      cfg.Alerting.Cooldown,
	}
}

// Run begins the scheduled watch loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessSlot)
}

// ProcessSlot 执行单个观测槽位的完整测试并评估告警。
func (s *Service) ProcessSlot(ctx context.Context, at time.Time) error {
	outcome, err := s.RunTest(ctx)
	if err != nil {
		return err
	}
	s.EvaluateAlert(ctx, outcome)
	return nil
}

// RunTest executes one full test: safety gate, per-level forcing and
// acquisition, then the numeric pipeline. The run record is persisted even
// when acquisition or analysis fails, carrying the error text.
func (s *Service) RunTest(ctx context.Context) (Outcome, error) {
	outcome := Outcome{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}

	if s.source == nil {
		return outcome, fmt.Errorf("measurement source not configured")
	}

	if err := s.gateLevels(ctx); err != nil {
		return outcome, err
	}

	length := s.params.SequenceLength()
	total := len(s.params.Levels)
	series := make([]instrument.Series, 0, total)
	for i, level := range s.params.Levels {
		got, err := s.acquireLevel(ctx, level, length)
		if err != nil {
			s.persistRun(ctx, outcome, err)
			return outcome, err
		}
		series = append(series, got)
		if s.progress != nil {
			s.progress(i+1, total, level)
		}
	}
	outcome.Series = series

	pipe := analysis.Pipeline{
		Window: analysis.Window{
			InitialZero: s.params.InitialZero,
			Period:      s.params.Period,
			Duty:        s.params.Duty,
		},
		Filter:       analysis.FilterFor(s.params.OutlierStrategy, s.params.OutlierThreshold),
		InvalidLimit: s.params.InvalidLimit,
		Spacing:      s.params.Spacing,
		Sample:       s.params.Sample,
	}

	result, err := pipe.Evaluate(series)
	if err != nil {
		s.persistRun(ctx, outcome, err)
		return outcome, fmt.Errorf("evaluate run: %w", err)
	}
	outcome.Result = result

	s.logger.Info().Str("run_id", outcome.RunID).
		Str("classification", string(result.Classification)).
		Bool("valid", result.Valid).
		Float64("corrected_ohms_sq", result.Corrected).
		Msg("run complete")

	s.persistRun(ctx, outcome, nil)
	return outcome, nil
}

// gateLevels checks every distinct requested level against the safety limit
// before anything is forced. A refused level proceeds only on an explicit
// affirmative from the decider.
func (s *Service) gateLevels(ctx context.Context) error {
	guard := waveform.Guard{Exponent: s.params.Exponent, Threshold: s.params.Threshold}
	seen := make(map[float64]bool, len(s.params.Levels))
	for _, level := range s.params.Levels {
		if seen[level] {
			continue
		}
		seen[level] = true
		if guard.Check(level) {
			continue
		}
		blocked := guard.Blocked(level)
		if s.decider == nil {
			return blocked
		}
		proceed, err := s.decider.Confirm(ctx, *blocked)
		if err != nil {
			return fmt.Errorf("confirm unsafe level: %w", err)
		}
		if !proceed {
			return blocked
		}
		s.logger.Warn().Float64("level", level).
			Float64("amperes", blocked.Scaled).
			Msg("unsafe level confirmed by operator")
	}
	return nil
}

func (s *Service) acquireLevel(ctx context.Context, level float64, length int) (instrument.Series, error) {
	amp := waveform.Scale(level, s.params.Exponent)
	forcing, err := waveform.Square(length, amp, -amp, s.params.Period, s.params.Duty, s.params.InitialZero)
	if err != nil {
		return nil, fmt.Errorf("generate forcing sequence: %w", err)
	}

	got, err := s.source.Acquire(ctx, forcing, s.params.Settings)
	if err != nil {
		s.drainDeviceErrors(ctx, err)
		return nil, fmt.Errorf("acquire level %v: %w", level, err)
	}
	if len(got) != len(forcing) {
		return nil, instrument.NewFailure(instrument.KindProtocol,
			"level %v returned %d samples for %d forced points", level, len(got), len(forcing))
	}
	return got, nil
}

// drainDeviceErrors empties the instrument error queue after a device fault
// so the stale entries surface in the log instead of poisoning the next run.
func (s *Service) drainDeviceErrors(ctx context.Context, cause error) {
	var failure *instrument.Failure
	if !errors.As(cause, &failure) || failure.Kind != instrument.KindDeviceFault {
		return
	}
	queue, ok := s.source.(instrument.ErrorQueue)
	if !ok {
		return
	}

	drained, err := instrument.DrainErrors(ctx, queue, s.maxErrorReads)
	for _, entry := range drained {
		s.logger.Error().Int("code", entry.Code).Str("message", entry.Message).Msg("device error")
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("error queue drain incomplete")
	}
}

func (s *Service) persistRun(ctx context.Context, out Outcome, runErr error) {
	if s.runs == nil {
		return
	}

	record := storage.TestRun{
		ID:              out.RunID,
		StartedAt:       out.StartedAt,
		Mode:            s.mode,
		Surface:         surfaceLabel(s.params),
		Corrected:       decimal.NewFromFloat(out.Result.Corrected),
		Valid:           out.Result.Valid,
		InvalidFraction: decimal.NewFromFloat(out.Result.InvalidFraction),
		ThicknessFactor: decimal.NewFromFloat(out.Result.ThicknessFactor),
		LateralFactor:   decimal.NewFromFloat(out.Result.LateralFactor),
		Classification:  string(out.Result.Classification),
		Levels:          s.params.Levels,
		Ratios:          out.Result.Ratios,
		Filtered:        out.Result.Filtered,
		CreatedAt:       time.Now().UTC(),
	}
	if raw, err := json.Marshal(out.Series); err == nil {
		record.Series = raw
	}
	if runErr != nil {
		msg := runErr.Error()
		record.Error = &msg
	}

	if err := s.runs.InsertRun(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("run_id", out.RunID).Msg("failed to persist run")
	}
}

// EvaluateAlert dispatches a notification when the outcome is invalid or its
// corrected value leaves the configured band. A no-op unless alerting is
// enabled and a notifier is wired; never fails the run.
func (s *Service) EvaluateAlert(ctx context.Context, out Outcome) {
	if !s.alertsOn || s.notifier == nil {
		return
	}
	reason, triggered := s.judge(out.Result)
	if !triggered {
		return
	}
	if s.cooldown > 0 && !s.lastAlert.IsZero() && time.Since(s.lastAlert) < s.cooldown {
		s.logger.Debug().Str("run_id", out.RunID).Str("reason", reason).Msg("alert suppressed by cooldown")
		return
	}

	corrected := decimal.NewFromFloat(out.Result.Corrected)
	note := alerting.Notification{
		RunID:           out.RunID,
		When:            out.StartedAt,
		Corrected:       corrected,
		MinOhmsSq:       s.minOhms,
		MaxOhmsSq:       s.maxOhms,
		Classification:  string(out.Result.Classification),
		Valid:           out.Result.Valid,
		InvalidFraction: decimal.NewFromFloat(out.Result.InvalidFraction),
		Reason:          reason,
		Channels:        s.channels,
	}

	if s.alertStore != nil {
		record := storage.AlertRecord{
			RunID:     out.RunID,
			Corrected: corrected,
			MinOhmsSq: s.minOhms,
			MaxOhmsSq: s.maxOhms,
			Reason:    reason,
			Channels:  s.channels,
		}
		if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
			s.logger.Error().Err(err).Str("run_id", out.RunID).Msg("failed to persist alert record")
		}
	}

	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("run_id", out.RunID).Msg("failed to dispatch alert")
		return
	}
	s.lastAlert = time.Now().UTC()
}

// judge decides whether a completed run warrants an alert.
func (s *Service) judge(result analysis.Result) (string, bool) {
	corrected := decimal.NewFromFloat(result.Corrected)
	switch {
	case !result.Valid:
		return "invalid measurement", true
	case s.minOhms.IsPositive() && corrected.LessThan(s.minOhms):
		return "below band", true
	case s.maxOhms.IsPositive() && corrected.GreaterThan(s.maxOhms):
		return "above band", true
	default:
		return "", false
	}
}

func surfaceLabel(params config.Params) string {
	if params.Surface == "" {
		return "manual"
	}
	return params.Surface
}
