// Package clock holds the fixed-timestep accumulator and the deferred timers
// that run on the simulation's own time.
package clock

const (
	DefaultStep        = 1.0 / 60.0
	DefaultMaxDelta    = 0.05
	DefaultMaxSubSteps = 4
)

// Tick reports what one call to Stepper.Advance did.
type Tick struct {
	Steps     int
	Clamped   bool
	Discarded float64
}

// Stepper accumulates wall time and drains it in constant sub-steps.
//
// The accumulator never goes negative and is always below Step once Advance
// returns: a frame runs at most MaxSubSteps sub-steps and whatever is left
// over after that is dropped instead of carried into the next frame.
type Stepper struct {
	Step        float64
	MaxDelta    float64
	MaxSubSteps int

	accumulator float64
	elapsed     float64
}

func NewStepper(step, maxDelta float64, maxSubSteps int) *Stepper {
	if step <= 0 {
		step = DefaultStep
	}
	if maxDelta <= 0 {
		maxDelta = DefaultMaxDelta
	}
	if maxSubSteps <= 0 {
		maxSubSteps = DefaultMaxSubSteps
	}
	return &Stepper{Step: step, MaxDelta: maxDelta, MaxSubSteps: maxSubSteps}
}

// Advance adds dt seconds of wall time and calls step once per sub-step.
func (s *Stepper) Advance(dt float64, step func(dt float64)) Tick {
	var tick Tick
	if s == nil {
		return tick
	}
	if dt < 0 || dt != dt {
		dt = 0
	}
	if dt > s.MaxDelta {
		dt = s.MaxDelta
		tick.Clamped = true
	}

	s.accumulator += dt
	for s.accumulator >= s.Step && tick.Steps < s.MaxSubSteps {
		if step != nil {
			step(s.Step)
		}
		s.accumulator -= s.Step
		s.elapsed += s.Step
		tick.Steps++
	}

	if s.accumulator >= s.Step {
		tick.Discarded = s.accumulator
		s.accumulator = 0
	}
	return tick
}

// Accumulator returns the time carried into the next frame.
func (s *Stepper) Accumulator() float64 {
	if s == nil {
		return 0
	}
	return s.accumulator
}

// Elapsed returns the simulated time run so far.
func (s *Stepper) Elapsed() float64 {
	if s == nil {
		return 0
	}
	return s.elapsed
}

// Reset clears the accumulator and elapsed time.
func (s *Stepper) Reset() {
	if s == nil {
		return
	}
	s.accumulator = 0
	s.elapsed = 0
}
