package instrument

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SimulatorOptions parameterise the simulated instrument.
type SimulatorOptions struct {
	// Resistance is the DUT resistance seen between the sense probes, in
	// ohms. Measured voltage follows V = Resistance*I + OffsetVoltage.
	Resistance float64
	// OffsetVoltage models the thermoelectric offset reversal averaging is
	// meant to cancel, in volts.
	OffsetVoltage float64
	// NoiseFraction is the relative jitter applied to the measured current,
	// 0 for exact readings.
	NoiseFraction float64
	// PointDelay slows acquisition down per sample, 0 for no delay.
	PointDelay time.Duration
	// FailureKind, when set, makes every Acquire fail with that kind.
	FailureKind string
	// QueuedErrors preloads the device error queue.
	QueuedErrors []DeviceError
	// Seed fixes the noise stream; 0 selects a constant default seed.
	Seed int64
}

// Simulator produces deterministic synthetic measurements in place of a
// bench instrument. It also exposes the device error queue so drain logic
// can be exercised without hardware.
type Simulator struct {
	opts   SimulatorOptions
	logger zerolog.Logger

	mu    sync.Mutex
	queue []DeviceError
	rng   *rand.Rand
}

// NewSimulator constructs a simulated instrument.
func NewSimulator(opts SimulatorOptions, logger zerolog.Logger) *Simulator {
	if opts.Resistance == 0 {
		opts.Resistance = 200
	}
	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}

	queue := make([]DeviceError, len(opts.QueuedErrors))
	copy(queue, opts.QueuedErrors)

	return &Simulator{
		opts:   opts,
		logger: logger.With().Str("component", "simulator").Logger(),
		queue:  queue,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Acquire implements Source. One sample is produced per forced value; the
// elapsed column advances by the integration time plus any wait offset.
func (s *Simulator) Acquire(ctx context.Context, forcing []float64, settings Settings) (Series, error) {
	if s.opts.FailureKind != "" {
		return nil, NewFailure(s.opts.FailureKind, "injected simulator failure")
	}

	nplc := settings.NPLC
	if nplc <= 0 {
		nplc = 1
	}
	// One power-line cycle at 50 Hz.
	dt := nplc * 0.02
	if settings.WaitOffset != nil {
		dt += *settings.WaitOffset
	}

	elapsed := 0.0
	series := make(Series, 0, len(forcing))
	for _, forced := range forcing {
		if s.opts.PointDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, NewFailure(KindCommunication, "acquisition cancelled: %v", ctx.Err())
			case <-time.After(s.opts.PointDelay):
			}
		} else if err := ctx.Err(); err != nil {
			return nil, NewFailure(KindCommunication, "acquisition cancelled: %v", err)
		}

		current := forced * (1 + s.jitter())
		voltage := s.opts.Resistance*current + s.opts.OffsetVoltage

		status := 0.0
		if settings.ComplianceVoltage > 0 && math.Abs(voltage) >= settings.ComplianceVoltage {
			voltage = math.Copysign(settings.ComplianceVoltage, voltage)
			status = 1
		}

		resistance := OverflowValue
		if current != 0 {
			resistance = voltage / current
		}

		elapsed += dt
		series = append(series, Sample{
			Voltage:    voltage,
			Current:    current,
			Resistance: resistance,
			Elapsed:    elapsed,
			Status:     status,
			Source:     forced,
		})
	}

	s.logger.Debug().
		Int("points", len(series)).
		Float64("resistance", s.opts.Resistance).
		Str("channel", settings.Channel).
		Msg("simulated acquisition complete")

	return series, nil
}

func (s *Simulator) jitter() float64 {
	if s.opts.NoiseFraction == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return (s.rng.Float64()*2 - 1) * s.opts.NoiseFraction
}

// NextError implements ErrorQueue by draining the preloaded queue, then
// reporting the empty sentinel forever.
func (s *Simulator) NextError(context.Context) (DeviceError, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return DeviceError{Code: 0, Message: "No error"}, nil
	}
	next := s.queue[0]
	s.queue = s.queue[1:]
	return next, nil
}

var (
	_ Source     = (*Simulator)(nil)
	_ ErrorQueue = (*Simulator)(nil)
)
