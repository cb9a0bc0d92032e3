// Package analysis turns measured series into a corrected sheet-resistance
// result: per-sample validity checks, reversal averaging, outlier rejection
// across current levels and the final correction arithmetic.
package analysis

import (
	"math"

	"sheet-probe/internal/instrument"
)

// DefaultInvalidLimit is the out-of-range fraction at which a run is flagged
// invalid. Empirical; override via configuration.
const DefaultInvalidLimit = 0.20

// InRange reports whether a measured current sits inside the accepted band
// around its forced value, inclusive at both bounds.
func InRange(source, current float64) bool {
	magnitude := math.Abs(current)
	return 0.7*math.Abs(source) <= magnitude && magnitude <= 1.3*math.Abs(source)
}

// InvalidFraction returns the share of samples whose measured current falls
// outside the accepted band. An empty series has no invalid samples.
func InvalidFraction(series instrument.Series) float64 {
	bad, total := invalidCounts(series)
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

// AggregateInvalidFraction returns the invalid share across every sample of
// every series, the quantity a multi-level run is judged on.
func AggregateInvalidFraction(series []instrument.Series) float64 {
	var bad, total int
	for _, s := range series {
		b, n := invalidCounts(s)
		bad += b
		total += n
	}
	if total == 0 {
		return 0
	}
	return float64(bad) / float64(total)
}

func invalidCounts(series instrument.Series) (bad, total int) {
	for _, smp := range series {
		if !InRange(smp.Source, smp.Current) {
			bad++
		}
	}
	return bad, len(series)
}
