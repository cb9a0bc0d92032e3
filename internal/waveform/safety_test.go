package waveform

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestGuardCheck(t *testing.T) {
	cases := []struct {
		name      string
		raw       float64
		exponent  int
		threshold float64
		want      bool
	}{
		{"well below limit", 50, -6, 1, true},
		{"negative level below limit", -50, -6, 1, true},
		{"at limit is unsafe", 1, 0, 1, false},
		{"negative at limit is unsafe", -1, 0, 1, false},
		{"above limit", 2, 0, 1, false},
		{"half at half limit", 0.5, 0, 0.5, false},
		{"scaled microamp level", 400, -6, 1e-3, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := Guard{Exponent: tc.exponent, Threshold: tc.threshold}
			if got := g.Check(tc.raw); got != tc.want {
				t.Fatalf("Check(%v) with exponent %d threshold %v = %v, want %v",
					tc.raw, tc.exponent, tc.threshold, got, tc.want)
			}
		})
	}
}

func TestGuardBlocked(t *testing.T) {
	g := Guard{Exponent: -3, Threshold: 0.1}
	blocked := g.Blocked(400)
	if blocked.Level != 400 || blocked.Threshold != 0.1 {
		t.Fatalf("unexpected blocked details: %+v", blocked)
	}
	if blocked.Scaled != Scale(400, -3) {
		t.Fatalf("Scaled = %v, want %v", blocked.Scaled, Scale(400, -3))
	}

	wrapped := fmt.Errorf("run aborted: %w", blocked)
	var be *BlockedError
	if !errors.As(wrapped, &be) {
		t.Fatalf("BlockedError not extractable from %v", wrapped)
	}
}

func TestStaticDecider(t *testing.T) {
	ctx := context.Background()
	blocked := BlockedError{Level: 1, Scaled: 1, Threshold: 1}

	ok, err := StaticDecider{Proceed: true}.Confirm(ctx, blocked)
	if err != nil || !ok {
		t.Fatalf("affirmative decider: ok=%v err=%v", ok, err)
	}

	ok, err = StaticDecider{}.Confirm(ctx, blocked)
	if err != nil || ok {
		t.Fatalf("declining decider: ok=%v err=%v", ok, err)
	}
}
