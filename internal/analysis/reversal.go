package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"sheet-probe/internal/instrument"
)

var (
	// ErrZeroAverageCurrent marks a series whose rectified mean current is
	// zero, which leaves the ratio undefined.
	ErrZeroAverageCurrent = errors.New("analysis: zero average current")

	// ErrWindow marks a reversal window that does not fit the series, for
	// example a duty cycle of 0 or 1 or a series shorter than one period.
	ErrWindow = errors.New("analysis: reversal window does not fit series")
)

// Window locates the first polarity-reversal cycle inside a series.
type Window struct {
	InitialZero int
	Period      int
	Duty        float64
}

// Reversal is the offset-corrected outcome of one series.
type Reversal struct {
	CorrectedVoltage float64
	AverageCurrent   float64
	Ratio            float64
}

// Extract computes the reversal-averaged voltage to current ratio. The mean
// voltage of the negative half-cycle is subtracted from the positive
// half-cycle and halved, cancelling constant offsets; the current is
// averaged rectified over the whole series.
func Extract(series instrument.Series, w Window) (Reversal, error) {
	highEnd := w.InitialZero + int(math.Floor(float64(w.Period)*w.Duty))
	windowEnd := w.InitialZero + w.Period
	if w.InitialZero < 0 || highEnd <= w.InitialZero || windowEnd <= highEnd || windowEnd > len(series) {
		return Reversal{}, fmt.Errorf("window %d..%d..%d over %d samples: %w",
			w.InitialZero, highEnd, windowEnd, len(series), ErrWindow)
	}

	voltages := series.Voltages()
	highMean, err := stats.Mean(voltages[w.InitialZero:highEnd])
	if err != nil {
		return Reversal{}, fmt.Errorf("high half-cycle mean: %w", err)
	}
	lowMean, err := stats.Mean(voltages[highEnd:windowEnd])
	if err != nil {
		return Reversal{}, fmt.Errorf("low half-cycle mean: %w", err)
	}

	rectified := make([]float64, len(series))
	for i, smp := range series {
		rectified[i] = math.Abs(smp.Current)
	}
	averageCurrent, err := stats.Mean(rectified)
	if err != nil {
		return Reversal{}, fmt.Errorf("average current: %w", err)
	}
	if averageCurrent == 0 {
		return Reversal{}, ErrZeroAverageCurrent
	}

	corrected := (highMean - lowMean) / 2
	return Reversal{
		CorrectedVoltage: corrected,
		AverageCurrent:   averageCurrent,
		Ratio:            corrected / averageCurrent,
	}, nil
}
