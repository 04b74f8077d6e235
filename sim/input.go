package sim

// Input is what the loop samples once per sub-step.
type Input interface {
	Update()
	// DropRequested reports a drop intent since the last call. Every drop
	// channel a frontend has (button, key, release) reports through it.
	DropRequested() bool
	Pointer() (x, y float64)
}

// NopInput never asks for anything.
type NopInput struct{}

func (NopInput) Update()                 {}
func (NopInput) DropRequested() bool     { return false }
func (NopInput) Pointer() (x, y float64) { return 0, 0 }

// TimedInput requests a drop every Every seconds of simulated time. It drives
// headless runs.
type TimedInput struct {
	Every float64
	Step  float64

	clock   float64
	pending bool
}

func NewTimedInput(every, step float64) *TimedInput {
	return &TimedInput{Every: every, Step: step}
}

func (in *TimedInput) Update() {
	if in == nil || in.Every <= 0 {
		return
	}
	in.clock += in.Step
	if in.clock >= in.Every {
		in.clock -= in.Every
		in.pending = true
	}
}

func (in *TimedInput) DropRequested() bool {
	if in == nil || !in.pending {
		return false
	}
	in.pending = false
	return true
}

func (in *TimedInput) Pointer() (x, y float64) { return 0, 0 }
