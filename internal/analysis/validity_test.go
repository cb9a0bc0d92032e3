package analysis

import (
	"testing"

	"sheet-probe/internal/instrument"
)

func TestInRange(t *testing.T) {
	cases := []struct {
		name            string
		source, current float64
		want            bool
	}{
		{"exact match", 1e-5, 1e-5, true},
		{"lower bound inclusive", 4, 0.7 * 4, true},
		{"upper bound inclusive", 4, 1.3 * 4, true},
		{"just below band", 4, 0.7*4 - 1e-9, false},
		{"just above band", 4, 1.3*4 + 1e-9, false},
		{"sign ignored", 1e-5, -1e-5, true},
		{"negative source", -1e-5, 1.2e-5, true},
		{"far off", 1e-5, 5e-5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := InRange(tc.source, tc.current); got != tc.want {
				t.Fatalf("InRange(%v, %v) = %v, want %v", tc.source, tc.current, got, tc.want)
			}
		})
	}
}

func seriesWithBadSamples(good, bad int) instrument.Series {
	series := make(instrument.Series, 0, good+bad)
	for i := 0; i < good; i++ {
		series = append(series, instrument.Sample{Source: 1e-5, Current: 1e-5})
	}
	for i := 0; i < bad; i++ {
		series = append(series, instrument.Sample{Source: 1e-5, Current: 5e-5})
	}
	return series
}

func TestInvalidFraction(t *testing.T) {
	if got := InvalidFraction(seriesWithBadSamples(8, 2)); got != 0.2 {
		t.Fatalf("InvalidFraction = %v, want 0.2", got)
	}
	if got := InvalidFraction(nil); got != 0 {
		t.Fatalf("InvalidFraction(empty) = %v, want 0", got)
	}
}

func TestAggregateInvalidFraction(t *testing.T) {
	series := []instrument.Series{
		seriesWithBadSamples(3, 1),
		seriesWithBadSamples(3, 1),
	}
	if got := AggregateInvalidFraction(series); got != 0.25 {
		t.Fatalf("AggregateInvalidFraction = %v, want 0.25", got)
	}
}
