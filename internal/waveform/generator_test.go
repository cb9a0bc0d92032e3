package waveform

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSquareLength(t *testing.T) {
	cases := []struct {
		name                           string
		period, repeats, initial       int
		duty                           float64
	}{
		{"single cycle", 50, 1, 0, 0.5},
		{"three cycles", 50, 3, 0, 0.5},
		{"with settle prefix", 20, 2, 7, 0.5},
		{"odd duty", 33, 4, 5, 0.37},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			length := SequenceLength(tc.period, tc.repeats, tc.initial)
			seq, err := Square(length, 1, -1, tc.period, tc.duty, tc.initial)
			if err != nil {
				t.Fatalf("Square: %v", err)
			}
			if len(seq) != tc.period*tc.repeats+tc.initial {
				t.Fatalf("len = %d, want %d", len(seq), tc.period*tc.repeats+tc.initial)
			}
		})
	}
}

func TestSquareBipolarLevels(t *testing.T) {
	high := Scale(50, -6)
	seq, err := Square(100, high, -high, 100, 0.5, 0)
	if err != nil {
		t.Fatalf("Square: %v", err)
	}
	for i, v := range seq {
		want := high
		if i >= 50 {
			want = -high
		}
		if v != want {
			t.Fatalf("seq[%d] = %v, want %v", i, v, want)
		}
	}
}

func TestSquareSegmentWidths(t *testing.T) {
	// period 10, duty 0.37 -> floor(3.7) = 3 highs then 7 lows per cycle.
	seq, err := Square(20, 1, -1, 10, 0.37, 0)
	if err != nil {
		t.Fatalf("Square: %v", err)
	}
	for cycle := 0; cycle < 2; cycle++ {
		base := cycle * 10
		for i := 0; i < 3; i++ {
			if seq[base+i] != 1 {
				t.Fatalf("cycle %d sample %d = %v, want high", cycle, i, seq[base+i])
			}
		}
		for i := 3; i < 10; i++ {
			if seq[base+i] != -1 {
				t.Fatalf("cycle %d sample %d = %v, want low", cycle, i, seq[base+i])
			}
		}
	}
}

func TestSquareTruncatesTrailingCycle(t *testing.T) {
	seq, err := Square(10, 1, -1, 4, 0.5, 0)
	if err != nil {
		t.Fatalf("Square: %v", err)
	}
	want := []float64{1, 1, -1, -1, 1, 1, -1, -1, 1, 1}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Fatalf("truncated sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestSquareInitialZeros(t *testing.T) {
	seq, err := Square(13, 2, -2, 4, 0.5, 5)
	if err != nil {
		t.Fatalf("Square: %v", err)
	}
	for i := 0; i < 5; i++ {
		if seq[i] != 0 {
			t.Fatalf("seq[%d] = %v, want leading zero", i, seq[i])
		}
	}
	if seq[5] != 2 {
		t.Fatalf("seq[5] = %v, want first high after prefix", seq[5])
	}
}

func TestSquareDutyExtremes(t *testing.T) {
	allLow, err := Square(8, 1, -1, 4, 0, 0)
	if err != nil {
		t.Fatalf("Square(duty 0): %v", err)
	}
	for i, v := range allLow {
		if v != -1 {
			t.Fatalf("duty 0: seq[%d] = %v, want low", i, v)
		}
	}

	allHigh, err := Square(8, 1, -1, 4, 1, 0)
	if err != nil {
		t.Fatalf("Square(duty 1): %v", err)
	}
	for i, v := range allHigh {
		if v != 1 {
			t.Fatalf("duty 1: seq[%d] = %v, want high", i, v)
		}
	}
}

func TestSquareRejectsBadShape(t *testing.T) {
	cases := []struct {
		name            string
		length, period  int
		duty            float64
		initial         int
	}{
		{"zero period", 10, 0, 0.5, 0},
		{"negative length", -1, 4, 0.5, 0},
		{"duty below range", 10, 4, -0.1, 0},
		{"duty above range", 10, 4, 1.1, 0},
		{"negative prefix", 10, 4, 0.5, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Square(tc.length, 1, -1, tc.period, tc.duty, tc.initial); !errors.Is(err, ErrInvalidShape) {
				t.Fatalf("expected ErrInvalidShape, got %v", err)
			}
		})
	}
}

func TestPulse(t *testing.T) {
	seq, err := Pulse(8, 3, 2, 0.5)
	if err != nil {
		t.Fatalf("Pulse: %v", err)
	}
	want := []float64{0, 0, 0.5, 0.5, 0.5, 0, 0, 0}
	if diff := cmp.Diff(want, seq); diff != "" {
		t.Fatalf("pulse mismatch (-want +got):\n%s", diff)
	}
}

func TestPulseOutOfBounds(t *testing.T) {
	if _, err := Pulse(8, 3, 6, 0.5); !errors.Is(err, ErrPulseOutOfBounds) {
		t.Fatalf("expected ErrPulseOutOfBounds, got %v", err)
	}
}

func TestScale(t *testing.T) {
	if got := Scale(50, -6); math.Abs(got-50e-6) > 1e-18 {
		t.Fatalf("Scale(50, -6) = %v, want 50e-6", got)
	}
	if got := Scale(3, 0); got != 3 {
		t.Fatalf("Scale(3, 0) = %v, want 3", got)
	}
}
