package dnc

import "github.com/unixpickle/num-analysis/linalg"

// A SequenceState is the addressing state of a memory
// between two timesteps of a single sequence.
//
// States are values: stepping a state produces a new
// state and leaves the old one intact, so a state may be
// kept around to rewind a sequence.
// Concurrently processed sequences must never share a
// state.
type SequenceState struct {
	Memory     *Matrix
	Usage      linalg.Vector
	Link       *Matrix
	Precedence linalg.Vector

	// WriteWeighting is the weighting used by the most
	// recent write.
	WriteWeighting linalg.Vector

	// ReadWeightings stores the most recent weighting of
	// each read head.
	ReadWeightings []linalg.Vector
}

// NewSequenceState creates the all-zero state which every
// sequence starts from.
func NewSequenceState(c Config) *SequenceState {
	s := &SequenceState{
		Memory:         NewMatrix(c.MemorySize, c.WordSize),
		Usage:          make(linalg.Vector, c.MemorySize),
		Link:           NewMatrix(c.MemorySize, c.MemorySize),
		Precedence:     make(linalg.Vector, c.MemorySize),
		WriteWeighting: make(linalg.Vector, c.MemorySize),
		ReadWeightings: make([]linalg.Vector, c.ReadHeads),
	}
	for i := range s.ReadWeightings {
		s.ReadWeightings[i] = make(linalg.Vector, c.MemorySize)
	}
	return s
}

// Config returns the geometry of the state.
func (s *SequenceState) Config() Config {
	return Config{
		MemorySize: s.Memory.Rows,
		WordSize:   s.Memory.Cols,
		ReadHeads:  len(s.ReadWeightings),
	}
}

// Copy creates a deep copy of the state.
func (s *SequenceState) Copy() *SequenceState {
	res := &SequenceState{
		Memory:         s.Memory.Copy(),
		Usage:          s.Usage.Copy(),
		Link:           s.Link.Copy(),
		Precedence:     s.Precedence.Copy(),
		WriteWeighting: s.WriteWeighting.Copy(),
		ReadWeightings: make([]linalg.Vector, len(s.ReadWeightings)),
	}
	for i, w := range s.ReadWeightings {
		res.ReadWeightings[i] = w.Copy()
	}
	return res
}
