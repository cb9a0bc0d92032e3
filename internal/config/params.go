package config

import (
	"fmt"

	"sheet-probe/internal/geometry"
	"sheet-probe/internal/instrument"
)

// Params is the fully resolved description of one test run, every option
// table applied and every invariant checked.
type Params struct {
	Exponent         int
	Threshold        float64
	Period           int
	Duty             float64
	InitialZero      int
	Repeats          int
	Levels           []float64
	Spacing          float64
	Sample           geometry.Sample
	Settings         instrument.Settings
	Surface          string
	OutlierStrategy  string
	OutlierThreshold float64
	InvalidLimit     float64
}

// SequenceLength is the total forcing sample count for one level.
func (p Params) SequenceLength() int {
	return p.Period*p.Repeats + p.InitialZero
}

// TestParameters resolves the raw test configuration into runtime
// parameters. Every violation is wrapped with ErrInvalidParameters and
// reported at the first offending field.
func (c *Config) TestParameters() (Params, error) {
	t := c.Test

	exponent, err := ExponentFor(t.MagnitudeUnit)
	if err != nil {
		return Params{}, err
	}

	var levels []float64
	voltageRangeName := c.Instrument.VoltageRange
	if t.Surface != "" {
		plan, err := PlanFor(t.Surface)
		if err != nil {
			return Params{}, err
		}
		levels = append(levels, plan.Levels...)
		if voltageRangeName == "" {
			voltageRangeName = plan.VoltageRange
		}
	} else {
		levels = append(levels, t.Levels...)
	}
	if len(levels) == 0 {
		return Params{}, fmt.Errorf("test.levels empty and no test.surface preset selected: %w", ErrInvalidParameters)
	}
	for _, level := range levels {
		if level <= 0 {
			return Params{}, fmt.Errorf("test.levels entries must be positive, got %v: %w", level, ErrInvalidParameters)
		}
	}

	if t.Period < 1 {
		return Params{}, fmt.Errorf("test.period must be at least 1: %w", ErrInvalidParameters)
	}
	if t.DutyCycle < 0 || t.DutyCycle > 1 {
		return Params{}, fmt.Errorf("test.duty_cycle must be within [0,1]: %w", ErrInvalidParameters)
	}
	if t.InitialZero < 0 {
		return Params{}, fmt.Errorf("test.initial_zero cannot be negative: %w", ErrInvalidParameters)
	}
	if t.Repeats < 1 {
		return Params{}, fmt.Errorf("test.repeats must be at least 1: %w", ErrInvalidParameters)
	}
	if t.SafetyThreshold <= 0 {
		return Params{}, fmt.Errorf("test.safety_threshold must be greater than zero: %w", ErrInvalidParameters)
	}
	if t.OutlierThreshold <= 0 {
		return Params{}, fmt.Errorf("test.outlier_threshold must be greater than zero: %w", ErrInvalidParameters)
	}
	if t.InvalidLimit <= 0 || t.InvalidLimit > 1 {
		return Params{}, fmt.Errorf("test.invalid_limit must be within (0,1]: %w", ErrInvalidParameters)
	}
	if !OutlierStrategies[t.OutlierStrategy] {
		return Params{}, fmt.Errorf("test.outlier_strategy %q unknown: %w", t.OutlierStrategy, ErrInvalidParameters)
	}
	if c.Instrument.NPLC <= 0 {
		return Params{}, fmt.Errorf("instrument.nplc must be greater than zero: %w", ErrInvalidParameters)
	}

	spacing := t.Spacing
	if spacing == 0 {
		spacing, err = SpacingFor(t.Probe)
		if err != nil {
			return Params{}, err
		}
	}
	if spacing <= 0 {
		return Params{}, fmt.Errorf("test.spacing must be positive: %w", ErrInvalidParameters)
	}

	sample, err := t.Sample.resolve()
	if err != nil {
		return Params{}, err
	}
	if min := sample.MinDimension(); min < 3*spacing {
		return Params{}, fmt.Errorf("sample dimension %vmm must be at least three probe spacings (%vmm): %w",
			min, 3*spacing, ErrInvalidParameters)
	}

	currentRange, err := CurrentRangeFor(c.Instrument.CurrentRange)
	if err != nil {
		return Params{}, err
	}
	voltageRange, err := VoltageRangeFor(voltageRangeName)
	if err != nil {
		return Params{}, err
	}

	settings := instrument.Settings{
		Channel:           c.Instrument.Channel,
		NPLC:              c.Instrument.NPLC,
		CurrentRange:      currentRange,
		VoltageRange:      voltageRange,
		ComplianceVoltage: c.Instrument.ComplianceVoltage,
	}
	if c.Instrument.WaitOffset > 0 {
		seconds := c.Instrument.WaitOffset.Seconds()
		settings.WaitOffset = &seconds
	}

	return Params{
		Exponent:         exponent,
		Threshold:        t.SafetyThreshold,
		Period:           t.Period,
		Duty:             t.DutyCycle,
		InitialZero:      t.InitialZero,
		Repeats:          t.Repeats,
		Levels:           levels,
		Spacing:          spacing,
		Sample:           sample,
		Settings:         settings,
		Surface:          t.Surface,
		OutlierStrategy:  t.OutlierStrategy,
		OutlierThreshold: t.OutlierThreshold,
		InvalidLimit:     t.InvalidLimit,
	}, nil
}

func (s SampleConfig) resolve() (geometry.Sample, error) {
	if s.ThicknessUM < 0 {
		return geometry.Sample{}, fmt.Errorf("test.sample.thickness_um cannot be negative: %w", ErrInvalidParameters)
	}
	thickness := s.ThicknessUM / 1000

	switch s.Shape {
	case "square":
		if s.SideA <= 0 || s.SideD <= 0 {
			return geometry.Sample{}, fmt.Errorf("test.sample.side_a and test.sample.side_d must be positive for a square sample: %w", ErrInvalidParameters)
		}
		return geometry.Sample{Shape: geometry.ShapeSquare, SideA: s.SideA, SideD: s.SideD, Thickness: thickness}, nil
	case "circular":
		diameter := s.Diameter
		if diameter == 0 && s.Wafer != "" {
			var err error
			diameter, err = DiameterFor(s.Wafer)
			if err != nil {
				return geometry.Sample{}, err
			}
		}
		if diameter <= 0 {
			return geometry.Sample{}, fmt.Errorf("test.sample.diameter or test.sample.wafer required for a circular sample: %w", ErrInvalidParameters)
		}
		return geometry.Sample{Shape: geometry.ShapeCircular, Diameter: diameter, Thickness: thickness}, nil
	default:
		return geometry.Sample{}, fmt.Errorf("test.sample.shape %q unknown: %w", s.Shape, ErrInvalidParameters)
	}
}
