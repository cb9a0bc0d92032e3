// Package waveform synthesizes the bipolar forcing-current sequences driven
// through a sample and enforces the current safety policy before anything is
// emitted.
package waveform

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidShape marks sequence parameters that cannot describe a
	// well-formed waveform.
	ErrInvalidShape = errors.New("waveform: invalid sequence shape")

	// ErrPulseOutOfBounds marks a pulse that does not fit inside the
	// requested sequence length.
	ErrPulseOutOfBounds = errors.New("waveform: pulse exceeds sequence bounds")
)

// Scale converts a raw forcing level into amperes using the power-of-ten
// magnitude exponent, e.g. exponent -6 for levels entered in microamperes.
func Scale(value float64, exponent int) float64 {
	return value * math.Pow(10, float64(exponent))
}

// SequenceLength returns the total sample count of a forcing sequence:
// the initial-zero prefix plus one period per repeat.
func SequenceLength(period, repeats, initialZeros int) int {
	return period*repeats + initialZeros
}

// Square renders a bipolar square wave of exactly length samples. The first
// initialZeros samples are zero; after that each period holds
// floor(period*duty) samples of high followed by the remainder at low. A
// trailing partial period is truncated at length, never wrapped into a new
// cycle.
func Square(length int, high, low float64, period int, duty float64, initialZeros int) ([]float64, error) {
	if length < 0 {
		return nil, fmt.Errorf("length %d must not be negative: %w", length, ErrInvalidShape)
	}
	if period <= 0 {
		return nil, fmt.Errorf("period %d must be positive: %w", period, ErrInvalidShape)
	}
	if duty < 0 || duty > 1 {
		return nil, fmt.Errorf("duty cycle %v outside [0,1]: %w", duty, ErrInvalidShape)
	}
	if initialZeros < 0 {
		return nil, fmt.Errorf("initial zeros %d must not be negative: %w", initialZeros, ErrInvalidShape)
	}

	seq := make([]float64, length)
	highWidth := int(math.Floor(float64(period) * duty))
	i := initialZeros
	for i < length {
		for j := 0; j < highWidth && i < length; j++ {
			seq[i] = high
			i++
		}
		for j := 0; j < period-highWidth && i < length; j++ {
			seq[i] = low
			i++
		}
	}
	return seq, nil
}

// Pulse renders a zero sequence of the given length carrying a single
// rectangular pulse of the given width starting at position.
func Pulse(length, width, position int, high float64) ([]float64, error) {
	if length < 0 || width < 0 || position < 0 {
		return nil, fmt.Errorf("length %d, width %d and position %d must not be negative: %w",
			length, width, position, ErrInvalidShape)
	}
	if position+width > length {
		return nil, fmt.Errorf("pulse [%d,%d) does not fit in %d samples: %w",
			position, position+width, length, ErrPulseOutOfBounds)
	}
	seq := make([]float64, length)
	for i := position; i < position+width; i++ {
		seq[i] = high
	}
	return seq, nil
}
