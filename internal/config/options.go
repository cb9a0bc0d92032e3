package config

import "fmt"

// MagnitudeUnits maps level-entry units to power-of-ten exponents.
var MagnitudeUnits = map[string]int{
	"A":  0,
	"mA": -3,
	"uA": -6,
	"µA": -6,
	"nA": -9,
	"pA": -12,
}

// CurrentRanges maps fixed measurement range names to amperes. The name
// "auto" (or an empty value) selects device auto-ranging.
var CurrentRanges = map[string]float64{
	"10nA":  1e-8,
	"100nA": 1e-7,
	"1uA":   1e-6,
	"10uA":  1e-5,
	"100uA": 1e-4,
	"1mA":   1e-3,
	"10mA":  1e-2,
	"100mA": 1e-1,
	"1A":    1,
}

// VoltageRanges maps fixed voltage measurement range names to volts.
var VoltageRanges = map[string]float64{
	"0.2V": 0.2,
	"2V":   2,
	"20V":  20,
	"200V": 200,
}

// Probes maps probe-head designations to tip spacing in millimetres.
var Probes = map[string]float64{
	"1.6mm-colinear": 1.6,
}

// WaferDiameters maps nominal wafer sizes to millimetres.
var WaferDiameters = map[string]float64{
	"2in":  50.8,
	"3in":  76.2,
	"4in":  100,
	"5in":  125,
	"6in":  150,
	"8in":  200,
	"12in": 300,
}

// SurfacePlan bundles the preset forcing levels for an expected surface
// type. Levels are in the default magnitude unit uA.
type SurfacePlan struct {
	Levels       []float64
	VoltageRange string
}

// SurfacePlans maps surface presets to their multi-level sweeps.
var SurfacePlans = map[string]SurfacePlan{
	"semiconductor":                 {Levels: []float64{5, 10, 30, 50, 70, 90, 100}, VoltageRange: "0.2V"},
	"high-resistance-semiconductor": {Levels: []float64{0.1, 0.5, 0.7, 1, 3, 5, 7}, VoltageRange: "2V"},
	"metal":                         {Levels: []float64{150, 200, 250, 300, 350, 400}, VoltageRange: "0.2V"},
	"unknown":                       {Levels: []float64{5, 30, 50, 70, 100, 200, 400}, VoltageRange: "2V"},
}

// OutlierStrategies enumerates the selectable filter strategies.
var OutlierStrategies = map[string]bool{
	"median-deviation": true,
	"interquartile":    true,
}

// ExponentFor resolves a magnitude unit name.
func ExponentFor(unit string) (int, error) {
	exp, ok := MagnitudeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("test.magnitude_unit %q unknown: %w", unit, ErrInvalidParameters)
	}
	return exp, nil
}

// CurrentRangeFor resolves a current range name; nil means auto-ranging.
func CurrentRangeFor(name string) (*float64, error) {
	if name == "" || name == "auto" {
		return nil, nil
	}
	value, ok := CurrentRanges[name]
	if !ok {
		return nil, fmt.Errorf("instrument.current_range %q unknown: %w", name, ErrInvalidParameters)
	}
	return &value, nil
}

// VoltageRangeFor resolves a voltage range name; nil means auto-ranging.
func VoltageRangeFor(name string) (*float64, error) {
	if name == "" || name == "auto" {
		return nil, nil
	}
	value, ok := VoltageRanges[name]
	if !ok {
		return nil, fmt.Errorf("instrument.voltage_range %q unknown: %w", name, ErrInvalidParameters)
	}
	return &value, nil
}

// SpacingFor resolves a probe designation to its tip spacing.
func SpacingFor(probe string) (float64, error) {
	spacing, ok := Probes[probe]
	if !ok {
		return 0, fmt.Errorf("test.probe %q unknown: %w", probe, ErrInvalidParameters)
	}
	return spacing, nil
}

// DiameterFor resolves a nominal wafer size.
func DiameterFor(wafer string) (float64, error) {
	diameter, ok := WaferDiameters[wafer]
	if !ok {
		return 0, fmt.Errorf("test.sample.wafer %q unknown: %w", wafer, ErrInvalidParameters)
	}
	return diameter, nil
}

// PlanFor resolves a surface preset.
func PlanFor(surface string) (SurfacePlan, error) {
	plan, ok := SurfacePlans[surface]
	if !ok {
		return SurfacePlan{}, fmt.Errorf("test.surface %q unknown: %w", surface, ErrInvalidParameters)
	}
	return plan, nil
}
