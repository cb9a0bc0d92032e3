package geometry

import "fmt"

// Shape selects which lateral correction formula applies to a sample.
type Shape string

const (
	ShapeSquare   Shape = "square"
	ShapeCircular Shape = "circular"
)

// Sample describes the physical geometry under test. Lengths are in
// millimetres. Thickness may be zero when unknown, in which case no
// thickness correction is applied.
type Sample struct {
	Shape     Shape
	SideA     float64
	SideD     float64
	Diameter  float64
	Thickness float64
}

// MinDimension returns the smallest lateral dimension of the sample, the
// quantity compared against probe spacing during validation.
func (s Sample) MinDimension() float64 {
	if s.Shape == ShapeCircular {
		return s.Diameter
	}
	if s.SideA < s.SideD {
		return s.SideA
	}
	return s.SideD
}

// LateralFactor returns the finite-sample lateral correction for the given
// probe spacing in millimetres.
func (s Sample) LateralFactor(spacing float64) (float64, error) {
	switch s.Shape {
	case ShapeCircular:
		return CircleLateralFactor(s.Diameter, spacing)
	case ShapeSquare:
		return SquareLateralFactor(s.SideD, s.SideA, spacing, DefaultSeriesTerms)
	default:
		return 0, fmt.Errorf("unknown sample shape %q: %w", s.Shape, ErrDomain)
	}
}

// ThicknessFactor returns the thickness correction for the given probe
// spacing, or exactly 1 when the thickness is unknown.
func (s Sample) ThicknessFactor(spacing float64) (float64, error) {
	if s.Thickness == 0 {
		return 1, nil
	}
	return ThicknessFactor(s.Thickness, spacing)
}
