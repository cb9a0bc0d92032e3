package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sheet-probe/internal/alerting"
	"sheet-probe/internal/config"
	"sheet-probe/internal/instrument"
	"sheet-probe/internal/scheduler"
	"sheet-probe/internal/service"
	"sheet-probe/internal/storage"
	"sheet-probe/internal/waveform"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

// newSource resolves the measurement source for the configured instrument
// address. Only the built-in simulator is linked into this binary; bench
// hardware speaks through an external driver.
func (a *App) newSource() (instrument.Source, error) {
	address := a.Config.Instrument.Address
	if address == "" || address == "simulator" {
		return instrument.NewSimulator(instrument.SimulatorOptions{}, a.Logger), nil
	}
	return nil, instrument.NewFailure(instrument.KindCommunication,
		"no driver linked for instrument address %q", address)
}

func (a *App) newDecider(confirmUnsafe bool) waveform.Decider {
	if confirmUnsafe {
		return waveform.StaticDecider{Proceed: true}
	}
	return newPromptDecider()
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// Watch executes the scheduled measurement loop until interrupted. Unsafe
// levels always abort: an unattended loop has nobody to confirm them.
func (a *App) Watch(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params, err := a.Config.TestParameters()
	if err != nil {
		return err
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		a.Logger.Warn().Msg("database.dsn not configured; persistence disabled")
	}
	if closeStore != nil {
		defer closeStore()
	}

	source, err := a.newSource()
	if err != nil {
		return err
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToInterval,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	notifier := a.newNotifier()

	var runStore storage.RunStore
	var alertStore storage.AlertStore
	if store != nil {
		runStore = store
		alertStore = store
	}

	svc := service.New(a.Config, params, "watch", service.Collaborators{
		Scheduler: sched,
		Source:    source,
		Decider:   waveform.StaticDecider{},
		Runs:      runStore,
		Alerts:    alertStore,
		Notifier:  notifier,
	}, a.Logger)

	a.Logger.Info().Msg("starting watch loop")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("watch loop terminated with error")
		return err
	}

	a.Logger.Info().Msg("watch loop stopped")
	return nil
}

// RunOptions configure a single test execution.
type RunOptions struct {
	ConfirmUnsafe bool
	NoProgress    bool
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a stored run.
type ExportOptions struct {
	RunID     string
	CSVPath   string
	PNGPath   string
	MaxPoints int
}

// SimulateOptions shape the built-in measurement simulator.
type SimulateOptions struct {
	Resistance    float64
	OffsetVoltage float64
	NoiseFraction float64
	FailKind      string
	ConfirmUnsafe bool
}

// ReanalyzeOptions configure the reanalysis job.
type ReanalyzeOptions struct {
	Limit int
}
