package dnc

import (
	"fmt"

	"github.com/unixpickle/num-analysis/linalg"
)

// A StepResult is the outcome of applying one timestep of
// interface parameters to a SequenceState.
type StepResult struct {
	// State is the state after the step.
	State *SequenceState

	// AllocationWeighting is the allocation weighting
	// computed from the updated usage.
	AllocationWeighting linalg.Vector

	// ReadVectors stores one word per read head, read from
	// the memory after this step's write.
	ReadVectors []linalg.Vector
}

// NextState performs a write and then a read for every
// read head, returning the new state and the words read.
//
// The receiver is not modified.
// This panics if p does not fit the state's geometry or if
// any gate, strength, or read mode is out of range.
func (s *SequenceState) NextState(p *InterfaceParams) *StepResult {
	c := s.Config()
	if err := p.Check(c); err != nil {
		panic(fmt.Sprintf("invalid interface parameters: %v", err))
	}

	usage := UpdateUsage(s.Usage, s.WriteWeighting, s.ReadWeightings, p.FreeGates)
	alloc := AllocationWeighting(usage)
	contentWrite := ContentWeighting(s.Memory, p.WriteKey, p.WriteStrength)

	write := make(linalg.Vector, c.MemorySize)
	for i := range write {
		write[i] = p.WriteGate * (p.AllocationGate*alloc[i] +
			(1-p.AllocationGate)*contentWrite[i])
	}

	memory := WriteMemory(s.Memory, write, p.EraseVector, p.WriteVector)
	link, precedence := UpdateLink(s.Link, s.Precedence, write)

	res := &StepResult{
		State: &SequenceState{
			Memory:         memory,
			Usage:          usage,
			Link:           link,
			Precedence:     precedence,
			WriteWeighting: write,
			ReadWeightings: make([]linalg.Vector, c.ReadHeads),
		},
		AllocationWeighting: alloc,
		ReadVectors:         make([]linalg.Vector, c.ReadHeads),
	}
	for r, prev := range s.ReadWeightings {
		modes := p.ReadModes[r]
		content := ContentWeighting(memory, p.ReadKeys[r], p.ReadStrengths[r])
		forward := ForwardWeighting(link, prev)
		backward := BackwardWeighting(link, prev)

		read := make(linalg.Vector, c.MemorySize)
		for i := range read {
			read[i] = modes[BackwardMode]*backward[i] + modes[ContentMode]*content[i] +
				modes[ForwardMode]*forward[i]
		}
		res.State.ReadWeightings[r] = read
		res.ReadVectors[r] = ReadMemory(memory, read)
	}
	return res
}
