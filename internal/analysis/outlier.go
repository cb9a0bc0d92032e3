package analysis

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
)

// DefaultOutlierThreshold scales the median absolute deviation when deciding
// which ratios survive. Empirical; override via configuration.
const DefaultOutlierThreshold = 1.6

// Filter rejects anomalous ratios before multi-level averaging.
type Filter interface {
	Apply(values []float64) ([]float64, error)
}

// FilterFor selects the outlier strategy by its configuration name. Empty or
// unknown names fall back to median deviation with the given threshold.
func FilterFor(strategy string, threshold float64) Filter {
	switch strategy {
	case "interquartile":
		return Interquartile{}
	default:
		return MedianDeviation{Threshold: threshold}
	}
}

// MedianDeviation keeps values close to the median as measured by the median
// absolute deviation. With identical inputs the deviation is zero and every
// value survives its own bound.
type MedianDeviation struct {
	Threshold float64
}

var _ Filter = MedianDeviation{}

// Apply implements Filter.
func (f MedianDeviation) Apply(values []float64) ([]float64, error) {
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}

	median, err := stats.Median(values)
	if err != nil {
		return nil, fmt.Errorf("median: %w", err)
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - median)
	}
	mad, err := stats.Median(deviations)
	if err != nil {
		return nil, fmt.Errorf("median deviation: %w", err)
	}

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if math.Abs(v-median) <= threshold*mad {
			kept = append(kept, v)
		}
	}
	return kept, nil
}

// Interquartile keeps values inside inner-percentile bounds widened by a
// fraction of their spread. The zero value selects the 40th and 60th
// percentiles widened by 0.85.
type Interquartile struct {
	LowerPct float64
	UpperPct float64
	Widen    float64
}

var _ Filter = Interquartile{}

// Apply implements Filter.
func (f Interquartile) Apply(values []float64) ([]float64, error) {
	lower, upper, widen := f.LowerPct, f.UpperPct, f.Widen
	if lower <= 0 {
		lower = 40
	}
	if upper <= 0 {
		upper = 60
	}
	if widen <= 0 {
		widen = 0.85
	}

	q1, err := stats.Percentile(values, lower)
	if err != nil {
		return nil, fmt.Errorf("percentile %v: %w", lower, err)
	}
	q3, err := stats.Percentile(values, upper)
	if err != nil {
		return nil, fmt.Errorf("percentile %v: %w", upper, err)
	}
	spread := q3 - q1
	lo, hi := q1-widen*spread, q3+widen*spread

	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= lo && v <= hi {
			kept = append(kept, v)
		}
	}
	return kept, nil
}
