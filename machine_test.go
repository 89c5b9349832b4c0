package dnc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/rnn"
)

const machineTestSeqLen = 5

// scriptedController emits a fixed interface vector at
// each timestep and echoes its input as output.
type scriptedController struct {
	InputCount int
	Script     []linalg.Vector
	Inputs     []linalg.Vector
}

func (s *scriptedController) StartState() rnn.State {
	return 0
}

func (s *scriptedController) InputSize() int {
	return s.InputCount
}

func (s *scriptedController) InterfaceSize() int {
	return len(s.Script[0])
}

func (s *scriptedController) OutputSize() int {
	return 0
}

func (s *scriptedController) Step(states []rnn.State, inputs []linalg.Vector) []ControllerOutput {
	res := make([]ControllerOutput, len(inputs))
	for i, in := range inputs {
		t := states[i].(int)
		s.Inputs = append(s.Inputs, in.Copy())
		res[i] = ControllerOutput{
			Output:    in.Copy(),
			Interface: s.Script[t],
			State:     t + 1,
		}
	}
	return res
}

func (s *scriptedController) Parameters() []*autofunc.Variable {
	return nil
}

func (s *scriptedController) ResetParameters(gen *rand.Rand) {
}

func newTestMachine(t *testing.T) *Machine {
	c := Config{MemorySize: 6, WordSize: 3, ReadHeads: 2}
	ctrl, err := NewLSTMController(c, 2, 7, 3)
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewMachine(c, ctrl)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func randomSequence(gen *rand.Rand, length, size int) []linalg.Vector {
	res := make([]linalg.Vector, length)
	for i := range res {
		res[i] = randomVector(gen, size)
	}
	return res
}

func TestMachineFeedback(t *testing.T) {
	gen := rand.New(rand.NewSource(5))
	c := Config{MemorySize: 4, WordSize: 2, ReadHeads: 1}
	layout, err := NewLayout(c)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := &scriptedController{InputCount: 3}
	for i := 0; i < 3; i++ {
		ctrl.Script = append(ctrl.Script, randomVector(gen, layout.Size()))
	}
	m, err := NewMachine(c, ctrl)
	if err != nil {
		t.Fatal(err)
	}

	runner := NewRunner(m)
	input := linalg.Vector{7, 8, 9}
	var reads []linalg.Vector
	for i := 0; i < 3; i++ {
		out := runner.StepTime(input)
		if !vectorsClose(out, ctrl.Inputs[i], 0) {
			t.Fatalf("step %d: output should echo controller input", i)
		}
		reads = append(reads, runner.State().ReadVectors[0])
	}

	if !vectorsClose(ctrl.Inputs[0], linalg.Vector{7, 8, 9, 0, 0}, 0) {
		t.Errorf("first input should carry zero reads: %v", ctrl.Inputs[0])
	}
	for i := 1; i < 3; i++ {
		expected := append(input.Copy(), reads[i-1]...)
		if !vectorsClose(ctrl.Inputs[i], expected, 0) {
			t.Errorf("step %d: expected input %v but got %v", i, expected, ctrl.Inputs[i])
		}
	}

	// The same script applied directly to the memory must
	// give the same read vectors.
	state := NewSequenceState(c)
	for i, raw := range ctrl.Script {
		params, err := layout.Parse(raw)
		if err != nil {
			t.Fatal(err)
		}
		res := state.NextState(params)
		state = res.State
		if !vectorsClose(res.ReadVectors[0], reads[i], 1e-12) {
			t.Errorf("step %d: expected reads %v but got %v", i, res.ReadVectors[0], reads[i])
		}
	}
}

func TestNewMachineInterfaceMismatch(t *testing.T) {
	c := Config{MemorySize: 4, WordSize: 2, ReadHeads: 1}
	ctrl := &scriptedController{Script: []linalg.Vector{make(linalg.Vector, 15)}}
	if _, err := NewMachine(c, ctrl); !errors.Is(err, ErrInterfaceSize) {
		t.Errorf("expected ErrInterfaceSize but got %v", err)
	}
}

func TestRunnerMatchesRunAll(t *testing.T) {
	gen := rand.New(rand.NewSource(6))
	m := newTestMachine(t)
	seqs := [][]linalg.Vector{
		randomSequence(gen, machineTestSeqLen, 2),
		randomSequence(gen, 2, 2),
		randomSequence(gen, machineTestSeqLen+1, 2),
	}

	batchOuts := m.RunAll(seqs)
	if len(batchOuts) != len(seqs) {
		t.Fatalf("expected %d sequences but got %d", len(seqs), len(batchOuts))
	}
	for lane, seq := range seqs {
		runner := NewRunner(m)
		if len(batchOuts[lane]) != len(seq) {
			t.Fatalf("lane %d: expected %d outputs but got %d", lane, len(seq),
				len(batchOuts[lane]))
		}
		for time, in := range seq {
			expected := runner.StepTime(in)
			actual := batchOuts[lane][time]
			if !vectorsClose(expected, actual, 1e-8) {
				t.Errorf("lane %d time %d: expected %v but got %v", lane, time,
					expected, actual)
			}
		}
	}
}

func TestNewSequenceReset(t *testing.T) {
	gen := rand.New(rand.NewSource(7))
	m := newTestMachine(t)
	seq := randomSequence(gen, machineTestSeqLen, 2)

	runner := NewRunner(m)
	var firstRun []linalg.Vector
	for _, in := range seq {
		firstRun = append(firstRun, runner.StepTime(in))
	}

	runner.NewSequenceReset()
	once := runner.State()
	runner.NewSequenceReset()
	twice := runner.State()

	zero := NewSequenceState(m.Config)
	if !statesEqual(once.Sequence, zero) || !statesEqual(twice.Sequence, zero) {
		t.Error("reset did not zero the memory state")
	}
	for _, r := range twice.ReadVectors {
		if !vectorsClose(r, make(linalg.Vector, m.Config.WordSize), 0) {
			t.Error("reset did not zero the read vectors")
		}
	}

	for i, in := range seq {
		if out := runner.StepTime(in); !vectorsClose(out, firstRun[i], 1e-12) {
			t.Errorf("time %d: expected %v after reset but got %v", i, firstRun[i], out)
		}
	}
}

func TestRunnerSetState(t *testing.T) {
	gen := rand.New(rand.NewSource(8))
	m := newTestMachine(t)
	runner := NewRunner(m)
	runner.StepTime(randomVector(gen, 2))

	saved := runner.State()
	in := randomVector(gen, 2)
	expected := runner.StepTime(in)
	runner.StepTime(randomVector(gen, 2))

	runner.SetState(saved)
	if actual := runner.StepTime(in); !vectorsClose(actual, expected, 1e-12) {
		t.Errorf("expected %v after rewind but got %v", expected, actual)
	}
}

func TestResetParameters(t *testing.T) {
	gen := rand.New(rand.NewSource(9))
	m := newTestMachine(t)
	runner := NewRunner(m)
	runner.StepTime(randomVector(gen, 2))

	params := m.Parameters()
	if len(params) == 0 {
		t.Fatal("expected parameters")
	}
	var old []linalg.Vector
	for _, p := range params {
		old = append(old, p.Vector.Copy())
	}

	runner.ResetParameters(rand.New(rand.NewSource(10)))
	var changed bool
	for i, p := range params {
		if !vectorsClose(p.Vector, old[i], 0) {
			changed = true
		}
	}
	if !changed {
		t.Error("parameters were not re-initialized")
	}
	if !statesEqual(runner.State().Sequence, NewSequenceState(m.Config)) {
		t.Error("memory was not reset")
	}
}

func TestMachineSerialize(t *testing.T) {
	gen := rand.New(rand.NewSource(11))
	m := newTestMachine(t)
	data, err := m.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DeserializeMachine(data)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Config != m.Config {
		t.Fatalf("expected config %v but got %v", m.Config, decoded.Config)
	}

	seq := randomSequence(gen, machineTestSeqLen, 2)
	expected := m.RunAll([][]linalg.Vector{seq})[0]
	actual := decoded.RunAll([][]linalg.Vector{seq})[0]
	for i := range expected {
		if !vectorsClose(expected[i], actual[i], 1e-12) {
			t.Errorf("time %d: expected %v but got %v", i, expected[i], actual[i])
		}
	}
}

func TestMachineBadInputLength(t *testing.T) {
	m := newTestMachine(t)
	defer func() {
		if recover() == nil {
			t.Error("expected panic for wrong input length")
		}
	}()
	m.Step(m.StartState(), linalg.Vector{1, 2, 3})
}

func TestRunAllLanePanic(t *testing.T) {
	gen := rand.New(rand.NewSource(12))
	c := Config{MemorySize: 4, WordSize: 2, ReadHeads: 1}
	layout, err := NewLayout(c)
	if err != nil {
		t.Fatal(err)
	}
	ctrl := &scriptedController{
		InputCount: 1,
		Script: []linalg.Vector{
			randomVector(gen, layout.Size()),
			randomVector(gen, layout.Size()+1),
		},
	}
	m, err := NewMachine(c, ctrl)
	if err != nil {
		t.Fatal(err)
	}
	seqs := [][]linalg.Vector{
		{{1}, {2}},
		{{3}, {4}},
		{{5}, {6}},
	}
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrInterfaceSize) {
			t.Errorf("expected ErrInterfaceSize panic but got %v", r)
		}
	}()
	m.RunAll(seqs)
}

func BenchmarkMachineStep(b *testing.B) {
	c := Config{
		MemorySize: benchmarkMemorySize,
		WordSize:   benchmarkWordSize,
		ReadHeads:  benchmarkReadHeads,
	}
	ctrl, err := NewLSTMController(c, 10, 64, 10)
	if err != nil {
		b.Fatal(err)
	}
	m, err := NewMachine(c, ctrl)
	if err != nil {
		b.Fatal(err)
	}
	input := randomVector(rand.New(rand.NewSource(1)), 10)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state := m.StartState()
		for j := 0; j < benchmarkTimeSteps; j++ {
			state, _ = m.Step(state, input)
		}
	}
}
