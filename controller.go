package dnc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/serializer"
	"github.com/unixpickle/sgd"
	"github.com/unixpickle/weakai/neuralnet"
	"github.com/unixpickle/weakai/rnn"
)

func init() {
	var b BlockController
	serializer.RegisterTypedDeserializer(b.SerializerType(), DeserializeBlockController)
}

// A Controller is the recurrent network which drives a
// memory.
//
// At every timestep, it receives the external input
// joined with the previous read vectors and produces an
// output vector and a raw interface vector.
type Controller interface {
	// StartState returns the hidden state used at the
	// start of every sequence.
	StartState() rnn.State

	// InputSize is the length of the external inputs,
	// not counting the read vectors joined onto them.
	InputSize() int

	// InterfaceSize is the length of raw interface
	// vectors produced by Step.
	InterfaceSize() int

	// OutputSize is the length of output vectors produced
	// by Step.
	OutputSize() int

	// Step applies the controller to a batch of states
	// and inputs.
	Step(states []rnn.State, inputs []linalg.Vector) []ControllerOutput

	// Parameters returns the learned parameters.
	Parameters() []*autofunc.Variable

	// ResetParameters re-initializes every learned
	// parameter using gen.
	ResetParameters(gen *rand.Rand)
}

// ControllerOutput is the result of one controller step
// for one sequence.
type ControllerOutput struct {
	Output    linalg.Vector
	Interface linalg.Vector
	State     rnn.State
}

// A BlockController is a Controller backed by an
// rnn.Block.
// The first InterfaceCount components of each block output
// form the interface vector, and the rest form the output.
type BlockController struct {
	Block          rnn.Block
	InputCount     int
	InterfaceCount int
	OutputCount    int
}

// NewLSTMController creates a BlockController made of an
// LSTM followed by a dense layer.
// The inputSize is the size of the external input, not
// including the read vectors.
func NewLSTMController(c Config, inputSize, hiddenSize, outputSize int) (*BlockController,
	error) {
	layout, err := NewLayout(c)
	if err != nil {
		return nil, err
	}
	if inputSize <= 0 || hiddenSize <= 0 || outputSize <= 0 {
		return nil, fmt.Errorf("invalid controller sizes: in=%d hidden=%d out=%d",
			inputSize, hiddenSize, outputSize)
	}
	outNet := neuralnet.Network{
		&neuralnet.DenseLayer{
			InputCount:  hiddenSize,
			OutputCount: layout.Size() + outputSize,
		},
	}
	outNet.Randomize()
	return &BlockController{
		Block: rnn.StackedBlock{
			rnn.NewLSTM(inputSize+c.ReadSize(), hiddenSize),
			rnn.NewNetworkBlock(outNet, 0),
		},
		InputCount:     inputSize,
		InterfaceCount: layout.Size(),
		OutputCount:    outputSize,
	}, nil
}

// DeserializeBlockController deserializes a
// BlockController.
func DeserializeBlockController(d []byte) (*BlockController, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, err
	}
	if len(slice) != 4 {
		return nil, errors.New("invalid BlockController slice")
	}
	inCount, ok1 := slice[0].(serializer.Int)
	ifaceCount, ok2 := slice[1].(serializer.Int)
	outCount, ok3 := slice[2].(serializer.Int)
	block, ok4 := slice[3].(rnn.Block)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil, errors.New("invalid BlockController slice")
	}
	return &BlockController{
		Block:          block,
		InputCount:     int(inCount),
		InterfaceCount: int(ifaceCount),
		OutputCount:    int(outCount),
	}, nil
}

// StartState returns the block's start state.
func (b *BlockController) StartState() rnn.State {
	return b.Block.StartState()
}

// InputSize returns b.InputCount.
func (b *BlockController) InputSize() int {
	return b.InputCount
}

// InterfaceSize returns b.InterfaceCount.
func (b *BlockController) InterfaceSize() int {
	return b.InterfaceCount
}

// OutputSize returns b.OutputCount.
func (b *BlockController) OutputSize() int {
	return b.OutputCount
}

// Step applies the block to a batch and splits each
// output into its interface and output parts.
func (b *BlockController) Step(states []rnn.State, inputs []linalg.Vector) []ControllerOutput {
	in := make([]autofunc.Result, len(inputs))
	for i, x := range inputs {
		in[i] = &autofunc.Variable{Vector: x}
	}
	out := b.Block.ApplyBlock(states, in)

	res := make([]ControllerOutput, len(inputs))
	for i, fullOut := range out.Outputs() {
		if len(fullOut) != b.InterfaceCount+b.OutputCount {
			panic(fmt.Sprintf("block output should have length %d but has %d",
				b.InterfaceCount+b.OutputCount, len(fullOut)))
		}
		res[i] = ControllerOutput{
			Interface: fullOut[:b.InterfaceCount],
			Output:    fullOut[b.InterfaceCount:],
			State:     out.States()[i],
		}
	}
	return res
}

// Parameters returns the underlying block's parameters
// if it implements sgd.Learner, or nil otherwise.
func (b *BlockController) Parameters() []*autofunc.Variable {
	if l, ok := b.Block.(sgd.Learner); ok {
		return l.Parameters()
	}
	return nil
}

// ResetParameters redraws every parameter from a normal
// distribution scaled by the parameter's size.
func (b *BlockController) ResetParameters(gen *rand.Rand) {
	for _, p := range b.Parameters() {
		scale := 1 / math.Sqrt(float64(len(p.Vector)))
		for i := range p.Vector {
			p.Vector[i] = gen.NormFloat64() * scale
		}
	}
}

// SerializerType returns the unique ID used to serialize
// BlockControllers with the serializer package.
func (b *BlockController) SerializerType() string {
	return "github.com/unixpickle/dnc.BlockController"
}

// Serialize serializes the controller.
// This fails if the block is not a serializer.Serializer.
func (b *BlockController) Serialize() ([]byte, error) {
	blockSerializer, ok := b.Block.(serializer.Serializer)
	if !ok {
		return nil, fmt.Errorf("block is not a Serializer: %T", b.Block)
	}
	list := []serializer.Serializer{
		serializer.Int(b.InputCount),
		serializer.Int(b.InterfaceCount),
		serializer.Int(b.OutputCount),
		blockSerializer,
	}
	return serializer.SerializeSlice(list)
}
