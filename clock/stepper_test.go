package clock

import (
	"math"
	"testing"
)

func TestStepperAccumulatorBound(t *testing.T) {
	cases := []struct {
		name   string
		deltas []float64
	}{
		{"steady_60hz", []float64{1.0 / 60, 1.0 / 60, 1.0 / 60}},
		{"jittery", []float64{0.001, 0.03, 0.017, 0.0005, 0.049}},
		{"tab_stall", []float64{5, 0.016, 120}},
		{"negative_and_nan", []float64{-1, math.NaN(), 0.02}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := NewStepper(1.0/60, 0.05, 4)
			for _, dt := range c.deltas {
				tick := s.Advance(dt, nil)
				if tick.Steps > s.MaxSubSteps {
					t.Fatalf("ran %d sub-steps, max is %d", tick.Steps, s.MaxSubSteps)
				}
				acc := s.Accumulator()
				if acc < 0 {
					t.Fatalf("accumulator went negative: %v", acc)
				}
				if acc >= s.Step*float64(s.MaxSubSteps+1) {
					t.Fatalf("accumulator %v exceeds bound", acc)
				}
			}
		})
	}
}

func TestStepperHugeDeltaIsBounded(t *testing.T) {
	// A tiny max-delta clamp is disabled here so the sub-step cap does the work.
	s := NewStepper(0.01, 10, 3)
	calls := 0
	tick := s.Advance(10, func(dt float64) {
		if dt != 0.01 {
			t.Fatalf("expected fixed step 0.01, got %v", dt)
		}
		calls++
	})
	if calls != 3 || tick.Steps != 3 {
		t.Fatalf("expected 3 sub-steps, got calls=%d steps=%d", calls, tick.Steps)
	}
	if tick.Discarded <= 0 {
		t.Fatalf("expected excess time to be discarded")
	}
	if s.Accumulator() != 0 {
		t.Fatalf("expected accumulator reset after discard, got %v", s.Accumulator())
	}
}

func TestStepperClampsDelta(t *testing.T) {
	s := NewStepper(0.125, 0.5, 8)
	tick := s.Advance(1, nil)
	if !tick.Clamped {
		t.Fatalf("expected delta to be clamped")
	}
	if tick.Steps != 4 {
		t.Fatalf("expected the clamped 0.5s to yield 4 steps, got %d", tick.Steps)
	}
}

func TestStepperCarriesRemainder(t *testing.T) {
	s := NewStepper(0.1, 1, 4)
	if tick := s.Advance(0.05, nil); tick.Steps != 0 {
		t.Fatalf("expected no sub-step for half a step, got %d", tick.Steps)
	}
	if tick := s.Advance(0.06, nil); tick.Steps != 1 {
		t.Fatalf("expected one sub-step once a full step accumulated, got %d", tick.Steps)
	}
	if got := s.Accumulator(); math.Abs(got-0.01) > 1e-9 {
		t.Fatalf("expected remainder 0.01, got %v", got)
	}
	if got := s.Elapsed(); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("expected elapsed 0.1, got %v", got)
	}
}
