package dnc

import (
	"fmt"
	"math"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

// LayoutVersion identifies the ordering of fields in a
// raw interface vector.
// It changes whenever that ordering changes.
const LayoutVersion = 1

// A ReadMode indexes a read head's mode distribution.
type ReadMode int

// The order of the entries in each head's read-mode
// distribution.
const (
	BackwardMode ReadMode = iota
	ContentMode
	ForwardMode

	readModeCount = 3
)

// simplexSlack is the tolerance used when checking that
// a weighting sums to at most one.
const simplexSlack = 1e-6

type activation int

const (
	identityActivation activation = iota
	softplusActivation
	sigmoidActivation
	modeActivation
)

type field int

const (
	readKeysField field = iota
	readStrengthsField
	writeKeyField
	writeStrengthField
	eraseField
	writeVectorField
	freeGatesField
	allocationGateField
	writeGateField
	readModesField
	fieldCount
)

type segment struct {
	Start      int
	End        int
	Activation activation
}

// A Layout maps the flat interface vector emitted by a
// controller to named memory control parameters.
//
// In order, a raw vector holds the read keys, the read
// strengths, the write key, the write strength, the erase
// vector, the write vector, the free gates, the allocation
// gate, the write gate, and the read modes.
type Layout struct {
	Config   Config
	segments [fieldCount]segment
	size     int
}

// NewLayout creates the layout for a memory geometry.
func NewLayout(c Config) (*Layout, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	w, r := c.WordSize, c.ReadHeads
	sizes := [fieldCount]struct {
		Size       int
		Activation activation
	}{
		readKeysField:       {r * w, identityActivation},
		readStrengthsField:  {r, softplusActivation},
		writeKeyField:       {w, identityActivation},
		writeStrengthField:  {1, softplusActivation},
		eraseField:          {w, sigmoidActivation},
		writeVectorField:    {w, identityActivation},
		freeGatesField:      {r, sigmoidActivation},
		allocationGateField: {1, sigmoidActivation},
		writeGateField:      {1, sigmoidActivation},
		readModesField:      {readModeCount * r, modeActivation},
	}
	l := &Layout{Config: c}
	for f, fs := range sizes {
		l.segments[f] = segment{
			Start:      l.size,
			End:        l.size + fs.Size,
			Activation: fs.Activation,
		}
		l.size += fs.Size
	}
	return l, nil
}

// Size returns the length of raw interface vectors,
// (W+5)*R + 3*W + 3.
func (l *Layout) Size() int {
	return l.size
}

// Parse splits a raw interface vector into parameters and
// squashes each field into its valid range.
func (l *Layout) Parse(raw linalg.Vector) (*InterfaceParams, error) {
	if len(raw) != l.size {
		return nil, fmt.Errorf("%w: expected %d but got %d", ErrInterfaceSize,
			l.size, len(raw))
	}
	var parts [fieldCount]linalg.Vector
	for f, seg := range l.segments {
		parts[f] = seg.apply(raw[seg.Start:seg.End])
	}

	w := l.Config.WordSize
	res := &InterfaceParams{
		ReadStrengths:  parts[readStrengthsField],
		WriteKey:       parts[writeKeyField],
		WriteStrength:  parts[writeStrengthField][0],
		EraseVector:    parts[eraseField],
		WriteVector:    parts[writeVectorField],
		FreeGates:      parts[freeGatesField],
		AllocationGate: parts[allocationGateField][0],
		WriteGate:      parts[writeGateField][0],
	}
	for r := 0; r < l.Config.ReadHeads; r++ {
		res.ReadKeys = append(res.ReadKeys, parts[readKeysField][r*w:(r+1)*w])
		res.ReadModes = append(res.ReadModes,
			parts[readModesField][r*readModeCount:(r+1)*readModeCount])
	}
	return res, nil
}

func (s segment) apply(in linalg.Vector) linalg.Vector {
	res := make(linalg.Vector, len(in))
	switch s.Activation {
	case identityActivation:
		copy(res, in)
	case softplusActivation:
		for i, x := range in {
			res[i] = softplus(x)
		}
	case sigmoidActivation:
		var squash neuralnet.Sigmoid
		copy(res, squash.Apply(&autofunc.Variable{Vector: in}).Output())
	case modeActivation:
		for i := 0; i < len(in); i += readModeCount {
			copy(res[i:], softmax(in[i:i+readModeCount]))
		}
	}
	return res
}

func softplus(x float64) float64 {
	if x > 30 {
		return x
	}
	return math.Log1p(math.Exp(x))
}

// InterfaceParams stores the memory control parameters
// for a single timestep.
type InterfaceParams struct {
	ReadKeys      []linalg.Vector
	ReadStrengths linalg.Vector

	WriteKey      linalg.Vector
	WriteStrength float64

	EraseVector linalg.Vector
	WriteVector linalg.Vector

	FreeGates      linalg.Vector
	AllocationGate float64
	WriteGate      float64

	// ReadModes stores one distribution per read head,
	// indexed by ReadMode.
	ReadModes []linalg.Vector
}

// Check verifies that the parameters have the right
// shapes for c and that every gate, strength, and mode
// lies in its valid range.
func (p *InterfaceParams) Check(c Config) error {
	w, r := c.WordSize, c.ReadHeads
	if len(p.ReadKeys) != r || len(p.ReadStrengths) != r || len(p.FreeGates) != r ||
		len(p.ReadModes) != r {
		return fmt.Errorf("expected %d read heads", r)
	}
	for i, key := range p.ReadKeys {
		if len(key) != w {
			return fmt.Errorf("read key %d: expected width %d but got %d", i, w, len(key))
		}
		if err := checkFinite(fmt.Sprintf("read key %d", i), key); err != nil {
			return err
		}
	}
	for name, v := range map[string]linalg.Vector{
		"write key":    p.WriteKey,
		"erase vector": p.EraseVector,
		"write vector": p.WriteVector,
	} {
		if len(v) != w {
			return fmt.Errorf("%s: expected width %d but got %d", name, w, len(v))
		}
		if err := checkFinite(name, v); err != nil {
			return err
		}
	}

	if !validStrength(p.WriteStrength) {
		return fmt.Errorf("write strength out of range: %f", p.WriteStrength)
	}
	for i, s := range p.ReadStrengths {
		if !validStrength(s) {
			return fmt.Errorf("read strength %d out of range: %f", i, s)
		}
	}
	gates := append(linalg.Vector{p.AllocationGate, p.WriteGate}, p.FreeGates...)
	gates = append(gates, p.EraseVector...)
	for _, g := range gates {
		if !(g >= 0 && g <= 1) {
			return fmt.Errorf("gate out of range: %f", g)
		}
	}

	for i, modes := range p.ReadModes {
		if len(modes) != readModeCount {
			return fmt.Errorf("read modes %d: expected %d entries", i, readModeCount)
		}
		var sum float64
		for _, m := range modes {
			if !(m >= 0) {
				return fmt.Errorf("read modes %d: negative entry %f", i, m)
			}
			sum += m
		}
		if sum > 1+simplexSlack {
			return fmt.Errorf("read modes %d: sum %f exceeds 1", i, sum)
		}
	}
	return nil
}

func validStrength(s float64) bool {
	return s >= 0 && !math.IsInf(s, 1)
}

func checkFinite(name string, v linalg.Vector) error {
	for i, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("%s: entry %d is not finite: %f", name, i, x)
		}
	}
	return nil
}
