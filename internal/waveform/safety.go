package waveform

import (
	"context"
	"fmt"
	"math"
)

// Guard evaluates requested forcing levels against the hard current limit
// before scaling or emission.
type Guard struct {
	// Exponent is the power-of-ten magnitude applied to raw levels.
	Exponent int
	// Threshold is the current limit in amperes.
	Threshold float64
}

// Check reports whether the raw level stays strictly below the limit once
// scaled to amperes. A level exactly at the limit is unsafe.
func (g Guard) Check(raw float64) bool {
	return math.Abs(Scale(raw, g.Exponent)) < g.Threshold
}

// Blocked returns a descriptive error for a level the guard refused.
func (g Guard) Blocked(raw float64) *BlockedError {
	return &BlockedError{
		Level:     raw,
		Scaled:    Scale(raw, g.Exponent),
		Threshold: g.Threshold,
	}
}

// BlockedError reports a forcing level refused by the safety policy.
type BlockedError struct {
	Level     float64
	Scaled    float64
	Threshold float64
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("waveform: level %v (%v A) at or above safety limit %v A", e.Level, e.Scaled, e.Threshold)
}

// Decider resolves whether a level the guard refused may proceed anyway.
// Returning false aborts the run; there is no implicit proceed.
type Decider interface {
	Confirm(ctx context.Context, blocked BlockedError) (bool, error)
}

// StaticDecider answers every confirmation request the same way. Unattended
// runs use a declining StaticDecider so unsafe levels always abort.
type StaticDecider struct {
	Proceed bool
}

var _ Decider = StaticDecider{}

// Confirm implements Decider.
func (d StaticDecider) Confirm(context.Context, BlockedError) (bool, error) {
	return d.Proceed, nil
}
