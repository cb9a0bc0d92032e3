package analysis

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"sheet-probe/internal/geometry"
	"sheet-probe/internal/instrument"
)

var (
	// ErrNoSeries marks an evaluation invoked without any measurement.
	ErrNoSeries = errors.New("analysis: no measurement series")

	// ErrAllRejected marks a multi-level run whose outlier filter rejected
	// every ratio, leaving nothing to average.
	ErrAllRejected = errors.New("analysis: outlier filter rejected every ratio")
)

// Classification is the informational surface label attached to a result.
type Classification string

const (
	ClassMetal         Classification = "metal-like"
	ClassSemiconductor Classification = "semiconductor-like"
	ClassInsulator     Classification = "insulator-like"
)

// Classify labels a corrected sheet resistance. An invalid run is always
// insulator-like regardless of its value. Never blocks anything.
func Classify(corrected float64, valid bool) Classification {
	switch {
	case !valid:
		return ClassInsulator
	case corrected < 5:
		return ClassMetal
	case corrected <= 1e6:
		return ClassSemiconductor
	default:
		return ClassInsulator
	}
}

// Result is the corrected outcome of one pipeline evaluation.
type Result struct {
	Corrected       float64        `json:"corrected"`
	Valid           bool           `json:"valid"`
	InvalidFraction float64        `json:"invalid_fraction"`
	ThicknessFactor float64        `json:"thickness_factor"`
	LateralFactor   float64        `json:"lateral_factor"`
	Ratios          []float64      `json:"ratios"`
	Filtered        []float64      `json:"filtered,omitempty"`
	Classification  Classification `json:"classification"`
}

// Pipeline computes one corrected sheet resistance from measured series, one
// series per forcing level. It holds no state between evaluations, so
// concurrent runs on different samples need no coordination.
type Pipeline struct {
	// Window locates the reversal cycle in each series.
	Window Window
	// Filter applies to multi-level runs; nil selects MedianDeviation.
	Filter Filter
	// InvalidLimit is the out-of-range fraction that flags a run invalid;
	// 0 selects DefaultInvalidLimit.
	InvalidLimit float64
	// Spacing is the probe spacing in millimetres.
	Spacing float64
	// Sample is the geometry under test.
	Sample geometry.Sample
}

// Evaluate reduces the measured series to a corrected result. A single
// series uses its ratio directly; multiple series are filtered for outliers
// and averaged. Validity is advisory: an out-of-band run still produces a
// value, only flagged.
func (p Pipeline) Evaluate(series []instrument.Series) (Result, error) {
	if len(series) == 0 {
		return Result{}, ErrNoSeries
	}

	ratios := make([]float64, 0, len(series))
	for i, s := range series {
		rev, err := Extract(s, p.Window)
		if err != nil {
			return Result{}, fmt.Errorf("level %d: %w", i, err)
		}
		ratios = append(ratios, rev.Ratio)
	}

	mean := ratios[0]
	var filtered []float64
	if len(ratios) > 1 {
		filter := p.Filter
		if filter == nil {
			filter = MedianDeviation{}
		}
		var err error
		filtered, err = filter.Apply(ratios)
		if err != nil {
			return Result{}, fmt.Errorf("outlier filter: %w", err)
		}
		if len(filtered) == 0 {
			return Result{}, ErrAllRejected
		}
		mean, err = stats.Mean(filtered)
		if err != nil {
			return Result{}, fmt.Errorf("filtered mean: %w", err)
		}
	}

	thickness, err := p.Sample.ThicknessFactor(p.Spacing)
	if err != nil {
		return Result{}, err
	}
	lateral, err := p.Sample.LateralFactor(p.Spacing)
	if err != nil {
		return Result{}, err
	}

	limit := p.InvalidLimit
	if limit <= 0 {
		limit = DefaultInvalidLimit
	}
	fraction := AggregateInvalidFraction(series)
	valid := fraction < limit

	corrected := mean * math.Pi / math.Ln2 * thickness * lateral
	return Result{
		Corrected:       corrected,
		Valid:           valid,
		InvalidFraction: fraction,
		ThicknessFactor: thickness,
		LateralFactor:   lateral,
		Ratios:          ratios,
		Filtered:        filtered,
		Classification:  Classify(corrected, valid),
	}, nil
}
