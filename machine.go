package dnc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/weakai/rnn"
)

func init() {
	var m Machine
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeMachine)
}

// A Machine couples a Controller with a memory.
//
// A Machine holds no per-sequence state, so one Machine
// may evaluate many sequences at once.
// Per-sequence state lives in MachineStates.
type Machine struct {
	Config     Config
	Controller Controller
	Layout     *Layout
}

// NewMachine creates a Machine, checking that the
// controller emits interface vectors of the right size.
func NewMachine(c Config, ctrl Controller) (*Machine, error) {
	layout, err := NewLayout(c)
	if err != nil {
		return nil, err
	}
	if ctrl.InterfaceSize() != layout.Size() {
		return nil, fmt.Errorf("%w: controller emits %d values but layout v%d needs %d",
			ErrInterfaceSize, ctrl.InterfaceSize(), LayoutVersion, layout.Size())
	}
	return &Machine{Config: c, Controller: ctrl, Layout: layout}, nil
}

// DeserializeMachine deserializes a Machine.
func DeserializeMachine(d []byte) (*Machine, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 4 {
		return nil, errors.New("invalid Machine slice")
	}
	n, ok1 := slice[0].(serializer.Int)
	w, ok2 := slice[1].(serializer.Int)
	r, ok3 := slice[2].(serializer.Int)
	ctrl, ok4 := slice[3].(Controller)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errors.New("invalid Machine slice")
	}
	c := Config{MemorySize: int(n), WordSize: int(w), ReadHeads: int(r)}
	return NewMachine(c, ctrl)
}

// A MachineState is everything a Machine carries from one
// timestep of a sequence to the next.
type MachineState struct {
	Controller rnn.State
	Sequence   *SequenceState

	// ReadVectors are the words read during the previous
	// timestep, fed back to the controller.
	ReadVectors []linalg.Vector

	// Allocation is the allocation weighting computed
	// during the previous timestep, if any.
	Allocation linalg.Vector
}

// StartState returns the state at the start of a
// sequence, with zeroed memory, addressing state, and
// read vectors.
func (m *Machine) StartState() *MachineState {
	reads := make([]linalg.Vector, m.Config.ReadHeads)
	for i := range reads {
		reads[i] = make(linalg.Vector, m.Config.WordSize)
	}
	return &MachineState{
		Controller:  m.Controller.StartState(),
		Sequence:    NewSequenceState(m.Config),
		ReadVectors: reads,
	}
}

// Step runs one timestep.
// It returns the new state and the controller's output.
// The old state is not modified.
//
// This panics if the input does not have the length
// given by the controller's InputSize.
func (m *Machine) Step(s *MachineState, input linalg.Vector) (*MachineState, linalg.Vector) {
	states, outs := m.batchStep([]*MachineState{s}, []linalg.Vector{input})
	return states[0], outs[0]
}

// RunAll applies the Machine to a batch of independent
// sequences, each starting from StartState().
// The sequences may have different lengths.
func (m *Machine) RunAll(seqs [][]linalg.Vector) [][]linalg.Vector {
	res := make([][]linalg.Vector, len(seqs))
	states := make([]*MachineState, len(seqs))
	for l := range seqs {
		states[l] = m.StartState()
	}

	for t := 0; ; t++ {
		var lanes []int
		var inStates []*MachineState
		var inputs []linalg.Vector
		for l, seq := range seqs {
			if len(seq) <= t {
				continue
			}
			lanes = append(lanes, l)
			inStates = append(inStates, states[l])
			inputs = append(inputs, seq[t])
		}
		if len(lanes) == 0 {
			break
		}
		outStates, outs := m.batchStep(inStates, inputs)
		for i, l := range lanes {
			states[l] = outStates[i]
			res[l] = append(res[l], outs[i])
		}
	}

	return res
}

// Parameters returns the controller's parameters.
func (m *Machine) Parameters() []*autofunc.Variable {
	return m.Controller.Parameters()
}

// SerializerType returns the unique ID used to serialize
// Machines with the serializer package.
func (m *Machine) SerializerType() string {
	return "github.com/unixpickle/dnc.Machine"
}

// Serialize serializes the memory geometry and the
// controller.
// This fails if the controller is not a
// serializer.Serializer.
func (m *Machine) Serialize() ([]byte, error) {
	ctrlSerializer, ok := m.Controller.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("controller is not a Serializer: %T", m.Controller)
	}
	list := []serializer.Serializer{
		serializer.Int(m.Config.MemorySize),
		serializer.Int(m.Config.WordSize),
		serializer.Int(m.Config.ReadHeads),
		ctrlSerializer,
	}
	return serializer.SerializeSlice(list)
}

func (m *Machine) batchStep(states []*MachineState,
	inputs []linalg.Vector) ([]*MachineState, []linalg.Vector) {
	ctrlStates := make([]rnn.State, len(states))
	ctrlIns := make([]linalg.Vector, len(states))
	for i, s := range states {
		if len(inputs[i]) != m.Controller.InputSize() {
			panic(fmt.Sprintf("input should have length %d but has %d",
				m.Controller.InputSize(), len(inputs[i])))
		}
		ctrlStates[i] = s.Controller
		ctrlIns[i] = joinReads(inputs[i], s.ReadVectors)
	}
	ctrlOuts := m.Controller.Step(ctrlStates, ctrlIns)

	newStates := make([]*MachineState, len(states))
	outputs := make([]linalg.Vector, len(states))
	stepLane := func(i int) {
		out := ctrlOuts[i]
		params, err := m.Layout.Parse(out.Interface)
		if err != nil {
			panic(err)
		}
		step := states[i].Sequence.NextState(params)
		newStates[i] = &MachineState{
			Controller:  out.State,
			Sequence:    step.State,
			ReadVectors: step.ReadVectors,
			Allocation:  step.AllocationWeighting,
		}
		outputs[i] = out.Output
	}

	if len(states) == 1 {
		stepLane(0)
		return newStates, outputs
	}
	// Lane panics are re-raised on the calling goroutine,
	// where callers can recover them.
	panics := make([]any, len(states))
	var wg sync.WaitGroup
	for i := range states {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() {
				panics[i] = recover()
			}()
			stepLane(i)
		}(i)
	}
	wg.Wait()
	for _, p := range panics {
		if p != nil {
			panic(p)
		}
	}
	return newStates, outputs
}

// joinReads concatenates an input with the flattened read
// vectors, head by head.
func joinReads(input linalg.Vector, reads []linalg.Vector) linalg.Vector {
	size := len(input)
	for _, r := range reads {
		size += len(r)
	}
	res := make(linalg.Vector, 0, size)
	res = append(res, input...)
	for _, r := range reads {
		res = append(res, r...)
	}
	return res
}
