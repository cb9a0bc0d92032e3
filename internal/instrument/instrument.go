// Package instrument defines the measurement collaborator contract: the
// synchronized sample tuples an SMU returns for a forcing sequence, the
// structured failures it may report, and a deterministic simulator used when
// no hardware is attached.
package instrument

import "context"

// OverflowValue is the reading a source-measure unit reports when a
// measurement overflows its range, e.g. resistance computed at zero forced
// current.
const OverflowValue = 9.91e37

// Sample is one synchronized acquisition tuple.
type Sample struct {
	Voltage    float64 `json:"voltage"`
	Current    float64 `json:"current"`
	Resistance float64 `json:"resistance"`
	Elapsed    float64 `json:"elapsed"`
	Status     float64 `json:"status"`
	Source     float64 `json:"source"`
}

// Series is an ordered acquisition, one sample per forced value.
type Series []Sample

// Voltages returns the measured voltage column.
func (s Series) Voltages() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Voltage
	}
	return out
}

// Currents returns the measured current column.
func (s Series) Currents() []float64 {
	out := make([]float64, len(s))
	for i, smp := range s {
		out[i] = smp.Current
	}
	return out
}

// Settings carries the per-acquisition device configuration. Nil range
// pointers select device auto-ranging.
type Settings struct {
	Channel           string
	NPLC              float64
	CurrentRange      *float64
	VoltageRange      *float64
	WaitOffset        *float64
	ComplianceVoltage float64
}

// Source produces one measurement series for a forcing-current sequence.
// Implementations return a series with exactly one sample per forced value
// or a *Failure describing why acquisition did not complete. Failures are
// terminal for the run; retrying is the operator's call, never automatic.
type Source interface {
	Acquire(ctx context.Context, forcing []float64, settings Settings) (Series, error)
}
