package dnc

import (
	"math/rand"

	"github.com/unixpickle/num-analysis/linalg"
)

// A Runner evaluates a Machine one timestep at a time,
// keeping track of the current sequence's state.
type Runner struct {
	Machine *Machine

	curState *MachineState
}

// NewRunner creates a Runner at the start of a sequence.
func NewRunner(m *Machine) *Runner {
	r := &Runner{Machine: m}
	r.NewSequenceReset()
	return r
}

// NewSequenceReset starts a new input sequence.
//
// This zeroes the controller's hidden state, the fed back
// read vectors, and the memory with all of its addressing
// state (usage, links, precedence, and weightings).
// Learned parameters are left alone.
func (r *Runner) NewSequenceReset() {
	r.curState = r.Machine.StartState()
}

// ResetParameters re-initializes the controller's learned
// parameters and then starts a new sequence.
func (r *Runner) ResetParameters(gen *rand.Rand) {
	r.Machine.Controller.ResetParameters(gen)
	r.NewSequenceReset()
}

// StepTime gives an input vector to the Machine in the
// current state and returns the controller's output.
// This updates the Runner's internal state, meaning the
// next StepTime works off of the state caused by this
// StepTime.
func (r *Runner) StepTime(input linalg.Vector) linalg.Vector {
	if r.curState == nil {
		r.NewSequenceReset()
	}
	var out linalg.Vector
	r.curState, out = r.Machine.Step(r.curState, input)
	return out
}

// State returns the current state.
// The result must not be modified.
func (r *Runner) State() *MachineState {
	if r.curState == nil {
		r.NewSequenceReset()
	}
	return r.curState
}

// SetState rewinds or fast-forwards the Runner to a state
// previously obtained from State.
func (r *Runner) SetState(s *MachineState) {
	r.curState = s
}
