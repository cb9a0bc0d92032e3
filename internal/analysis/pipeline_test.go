package analysis

import (
	"errors"
	"math"
	"testing"

	"sheet-probe/internal/geometry"
	"sheet-probe/internal/instrument"
)

func squarePipeline() Pipeline {
	return Pipeline{
		Window:  Window{InitialZero: 0, Period: 100, Duty: 0.5},
		Spacing: 1.6,
		Sample:  geometry.Sample{Shape: geometry.ShapeSquare, SideA: 76.2, SideD: 76.2},
	}
}

func TestEvaluateSingleLevel(t *testing.T) {
	p := squarePipeline()
	result, err := p.Evaluate([]instrument.Series{bipolarSeries(100, 0.01, 5e-5)})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	lateral, err := geometry.SquareLateralFactor(76.2, 76.2, 1.6, geometry.DefaultSeriesTerms)
	if err != nil {
		t.Fatalf("SquareLateralFactor: %v", err)
	}
	want := 200.0 * math.Pi / math.Ln2 * lateral
	if math.Abs(result.Corrected-want) > 1e-6*want {
		t.Fatalf("Corrected = %v, want %v", result.Corrected, want)
	}
	if !result.Valid {
		t.Fatalf("in-band run flagged invalid: %+v", result)
	}
	if result.ThicknessFactor != 1 {
		t.Fatalf("ThicknessFactor = %v, want 1 for unknown thickness", result.ThicknessFactor)
	}
	if len(result.Ratios) != 1 || result.Filtered != nil {
		t.Fatalf("single level bookkeeping wrong: %+v", result)
	}
	if result.Classification != ClassSemiconductor {
		t.Fatalf("Classification = %v, want %v", result.Classification, ClassSemiconductor)
	}
}

func TestEvaluateMultiLevelFiltersOutlier(t *testing.T) {
	series := []instrument.Series{
		bipolarSeries(100, 0.01, 5e-5),
		bipolarSeries(100, 0.01, 5e-5),
		bipolarSeries(100, 0.01, 5e-5),
		bipolarSeries(100, 0.01, 5e-5),
		bipolarSeries(100, 1.0, 5e-5),
	}
	result, err := squarePipeline().Evaluate(series)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(result.Ratios) != 5 {
		t.Fatalf("Ratios length = %d, want 5", len(result.Ratios))
	}
	if len(result.Filtered) != 4 {
		t.Fatalf("Filtered length = %d, want 4 after dropping the outlier", len(result.Filtered))
	}
	single, err := squarePipeline().Evaluate(series[:1])
	if err != nil {
		t.Fatalf("Evaluate(single): %v", err)
	}
	if math.Abs(result.Corrected-single.Corrected) > 1e-9*single.Corrected {
		t.Fatalf("filtered mean shifted result: %v vs %v", result.Corrected, single.Corrected)
	}
}

func TestEvaluateFlagsOutOfBandRun(t *testing.T) {
	series := bipolarSeries(100, 0.01, 5e-5)
	for i := 0; i < 20; i++ {
		series[i].Current = 5 * series[i].Source
	}
	result, err := squarePipeline().Evaluate([]instrument.Series{series})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Valid {
		t.Fatalf("run with 20%% bad samples should be invalid: %+v", result)
	}
	if result.InvalidFraction != 0.2 {
		t.Fatalf("InvalidFraction = %v, want 0.2", result.InvalidFraction)
	}
	if result.Classification != ClassInsulator {
		t.Fatalf("invalid run must classify insulator-like, got %v", result.Classification)
	}
	if result.Corrected == 0 {
		t.Fatal("invalid run must still report its value")
	}
}

func TestEvaluateNoSeries(t *testing.T) {
	if _, err := squarePipeline().Evaluate(nil); !errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected ErrNoSeries, got %v", err)
	}
}

func TestEvaluateGeometryDomainError(t *testing.T) {
	p := squarePipeline()
	p.Sample = geometry.Sample{Shape: geometry.ShapeCircular, Diameter: 2}
	_, err := p.Evaluate([]instrument.Series{bipolarSeries(100, 0.01, 5e-5)})
	if !errors.Is(err, geometry.ErrDomain) {
		t.Fatalf("expected geometry.ErrDomain, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		corrected float64
		valid     bool
		want      Classification
	}{
		{"metal", 3.2, true, ClassMetal},
		{"semiconductor", 1e5, true, ClassSemiconductor},
		{"insulator by value", 2e6, true, ClassInsulator},
		{"insulator by invalidity", 3.2, false, ClassInsulator},
		{"lower boundary is semiconductor", 5, true, ClassSemiconductor},
		{"upper boundary is semiconductor", 1e6, true, ClassSemiconductor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.corrected, tc.valid); got != tc.want {
				t.Fatalf("Classify(%v, %v) = %v, want %v", tc.corrected, tc.valid, got, tc.want)
			}
		})
	}
}
