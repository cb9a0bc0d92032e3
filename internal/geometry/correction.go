// Package geometry computes the thickness and lateral correction factors
// that convert a raw four-point-probe V/I ratio into true sheet resistance
// for finite samples.
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSeriesTerms is the number of series terms used for the square
// lateral correction unless the caller asks for more.
const DefaultSeriesTerms = 50

// ErrDomain marks correction inputs outside the mathematical domain of the
// correction formulas.
var ErrDomain = errors.New("geometry: input outside correction domain")

// ThicknessFactor returns the thickness correction factor
// ln2 / ln(sinh(t/s)/sinh(t/2s)) for sample thickness t and probe spacing s,
// both in the same length unit. Both must be positive; an unknown thickness
// is handled by the caller as a factor of 1, not by this function.
func ThicknessFactor(thickness, spacing float64) (float64, error) {
	if thickness <= 0 {
		return 0, fmt.Errorf("thickness %v must be positive: %w", thickness, ErrDomain)
	}
	if spacing <= 0 {
		return 0, fmt.Errorf("probe spacing %v must be positive: %w", spacing, ErrDomain)
	}
	// ln(sinh(t/s)/sinh(t/2s)) evaluated as logSinh(t/s)-logSinh(t/2s) so
	// thick samples do not overflow sinh.
	ratio := logSinh(thickness/spacing) - logSinh(thickness/(2*spacing))
	return math.Ln2 / ratio, nil
}

// logSinh returns ln(sinh(x)) for x > 0 without computing sinh directly:
// sinh(x) = e^x (1-e^{-2x}) / 2.
func logSinh(x float64) float64 {
	return x - math.Ln2 + math.Log(-math.Expm1(-2*x))
}

// CircleLateralFactor returns the lateral correction factor for a circular
// sample of the given diameter. The formula domain requires (d/s)^2 > 3.
func CircleLateralFactor(diameter, spacing float64) (float64, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("probe spacing %v must be positive: %w", spacing, ErrDomain)
	}
	ds2 := (diameter / spacing) * (diameter / spacing)
	if ds2 <= 3 {
		return 0, fmt.Errorf("diameter %v too small for spacing %v ((d/s)^2 <= 3): %w", diameter, spacing, ErrDomain)
	}
	return math.Ln2 / (math.Ln2 + math.Log((ds2+3)/(ds2-3))), nil
}

// SquareLateralFactor returns the lateral correction factor for a rectangular
// sample with probe-parallel side a and perpendicular side d, via the series
// expansion truncated after terms entries. Sides and spacing share one unit.
// The series only converges for a > 2s; callers validate the stricter
// three-spacings rule before getting here.
func SquareLateralFactor(sideD, sideA, spacing float64, terms int) (float64, error) {
	if spacing <= 0 {
		return 0, fmt.Errorf("probe spacing %v must be positive: %w", spacing, ErrDomain)
	}
	if terms < 1 {
		terms = DefaultSeriesTerms
	}
	a := sideA / spacing
	d := sideD / spacing
	if d <= 0 {
		return 0, fmt.Errorf("side d %v must be positive: %w", sideD, ErrDomain)
	}
	if a <= 2 {
		return 0, fmt.Errorf("side a %v too small for spacing %v (a <= 2s diverges): %w", sideA, spacing, ErrDomain)
	}

	sum := 0.0
	for m := 1; m <= terms; m++ {
		sum += squareSeriesTerm(m, a, d)
	}

	denom := math.Pi/d +
		math.Log(1-math.Exp(-4*math.Pi/d)) -
		math.Log(1-math.Exp(-2*math.Pi/d)) +
		sum
	return math.Ln2 / denom, nil
}

func squareSeriesTerm(m int, a, d float64) float64 {
	fm := float64(m)
	decay := math.Exp(-2 * math.Pi * (a - 2) * fm / d)
	near := 1 - math.Exp(-6*math.Pi*fm/d)
	far := 1 - math.Exp(-2*math.Pi*fm/d)
	mirror := 1 + math.Exp(-2*math.Pi*fm/d)
	return (1 / fm) * decay * near * far / mirror
}
