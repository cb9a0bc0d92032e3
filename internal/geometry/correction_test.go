package geometry

import (
	"errors"
	"math"
	"testing"
)

func TestThicknessFactorThinLimit(t *testing.T) {
	got, err := ThicknessFactor(0.001, 1.6)
	if err != nil {
		t.Fatalf("ThicknessFactor: %v", err)
	}
	if math.Abs(got-1) > 1e-6 {
		t.Fatalf("thin-sample factor = %v, want ~1", got)
	}
}

func TestThicknessFactorMatchesDirectForm(t *testing.T) {
	thickness, spacing := 2.0, 1.6
	got, err := ThicknessFactor(thickness, spacing)
	if err != nil {
		t.Fatalf("ThicknessFactor: %v", err)
	}
	want := math.Ln2 / math.Log(math.Sinh(thickness/spacing)/math.Sinh(thickness/(2*spacing)))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("factor = %v, direct form = %v", got, want)
	}
}

func TestThicknessFactorThickSampleStaysFinite(t *testing.T) {
	// sinh(5000) overflows float64; the log form must not.
	got, err := ThicknessFactor(8000, 1.6)
	if err != nil {
		t.Fatalf("ThicknessFactor: %v", err)
	}
	if math.IsInf(got, 0) || math.IsNaN(got) || got <= 0 {
		t.Fatalf("thick-sample factor = %v, want finite positive", got)
	}
}

func TestThicknessFactorDomain(t *testing.T) {
	cases := []struct {
		name               string
		thickness, spacing float64
	}{
		{"zero thickness", 0, 1.6},
		{"negative thickness", -1, 1.6},
		{"zero spacing", 1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ThicknessFactor(tc.thickness, tc.spacing); !errors.Is(err, ErrDomain) {
				t.Fatalf("expected ErrDomain, got %v", err)
			}
		})
	}
}

func TestCircleLateralFactor(t *testing.T) {
	got, err := CircleLateralFactor(76.2, 1.6)
	if err != nil {
		t.Fatalf("CircleLateralFactor: %v", err)
	}
	if math.Abs(got-0.99620) > 1e-4 {
		t.Fatalf("factor = %v, want ~0.99620", got)
	}
}

func TestCircleLateralFactorDomain(t *testing.T) {
	if _, err := CircleLateralFactor(2, 1.6); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected ErrDomain for (d/s)^2 <= 3, got %v", err)
	}
}

func TestSquareLateralFactorSeriesConverged(t *testing.T) {
	short, err := SquareLateralFactor(76, 76, 1.6, 50)
	if err != nil {
		t.Fatalf("SquareLateralFactor(50 terms): %v", err)
	}
	long, err := SquareLateralFactor(76, 76, 1.6, 200)
	if err != nil {
		t.Fatalf("SquareLateralFactor(200 terms): %v", err)
	}
	if diff := math.Abs(short - long); diff > 1e-6 {
		t.Fatalf("series truncation moved factor by %v, want < 1e-6", diff)
	}
}

func TestSquareLateralFactorLargeSampleNearUnity(t *testing.T) {
	got, err := SquareLateralFactor(76.2, 76.2, 1.6, DefaultSeriesTerms)
	if err != nil {
		t.Fatalf("SquareLateralFactor: %v", err)
	}
	if got <= 0.9 || got > 1.001 {
		t.Fatalf("factor = %v, want just below 1 for a large sample", got)
	}
}

func TestSquareLateralFactorDomain(t *testing.T) {
	if _, err := SquareLateralFactor(76, 3, 1.6, 50); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected ErrDomain for a <= 2s, got %v", err)
	}
}

func TestSampleMinDimension(t *testing.T) {
	square := Sample{Shape: ShapeSquare, SideA: 10, SideD: 25}
	if got := square.MinDimension(); got != 10 {
		t.Fatalf("square MinDimension = %v, want 10", got)
	}
	circle := Sample{Shape: ShapeCircular, Diameter: 50.8}
	if got := circle.MinDimension(); got != 50.8 {
		t.Fatalf("circle MinDimension = %v, want 50.8", got)
	}
}

func TestSampleLateralFactorDispatch(t *testing.T) {
	sq := Sample{Shape: ShapeSquare, SideA: 76, SideD: 76}
	sqFactor, err := sq.LateralFactor(1.6)
	if err != nil {
		t.Fatalf("square LateralFactor: %v", err)
	}
	want, _ := SquareLateralFactor(76, 76, 1.6, DefaultSeriesTerms)
	if sqFactor != want {
		t.Fatalf("square LateralFactor = %v, want %v", sqFactor, want)
	}

	if _, err := (Sample{Shape: "hexagon"}).LateralFactor(1.6); !errors.Is(err, ErrDomain) {
		t.Fatalf("expected ErrDomain for unknown shape, got %v", err)
	}
}

func TestSampleThicknessFactorUnknownThickness(t *testing.T) {
	s := Sample{Shape: ShapeCircular, Diameter: 50.8}
	got, err := s.ThicknessFactor(1.6)
	if err != nil {
		t.Fatalf("ThicknessFactor: %v", err)
	}
	if got != 1 {
		t.Fatalf("unknown thickness factor = %v, want exactly 1", got)
	}
}
