package dnc

import (
	"errors"
	"math"
	"testing"

	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
	"github.com/unixpickle/weakai/neuralnet"
)

func TestLayoutSize(t *testing.T) {
	tests := []struct {
		Config   Config
		Expected int
	}{
		{Config{MemorySize: 4, WordSize: 2, ReadHeads: 1}, 16},
		{Config{MemorySize: 256, WordSize: 64, ReadHeads: 4}, 471},
		{Config{MemorySize: 10, WordSize: 3, ReadHeads: 2}, 28},
	}
	for i, test := range tests {
		l, err := NewLayout(test.Config)
		if err != nil {
			t.Fatal(err)
		}
		if l.Size() != test.Expected {
			t.Errorf("test %d: expected size %d but got %d", i, test.Expected, l.Size())
		}
	}
}

func TestLayoutInvalidConfig(t *testing.T) {
	if _, err := NewLayout(Config{MemorySize: 4, WordSize: 0, ReadHeads: 1}); err == nil {
		t.Error("expected error")
	}
}

func TestLayoutParse(t *testing.T) {
	c := Config{MemorySize: 5, WordSize: 2, ReadHeads: 2}
	l, err := NewLayout(c)
	if err != nil {
		t.Fatal(err)
	}
	raw := make(linalg.Vector, l.Size())
	for i := range raw {
		raw[i] = float64(i)
	}
	p, err := l.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Check(c); err != nil {
		t.Fatal(err)
	}

	sigmoid := func(x float64) float64 {
		s := neuralnet.Sigmoid{}
		return s.Apply(&autofunc.Variable{Vector: []float64{x}}).Output()[0]
	}

	if !vectorsClose(p.ReadKeys[0], linalg.Vector{0, 1}, 0) ||
		!vectorsClose(p.ReadKeys[1], linalg.Vector{2, 3}, 0) {
		t.Errorf("unexpected read keys: %v", p.ReadKeys)
	}
	if !vectorsClose(p.ReadStrengths, linalg.Vector{softplus(4), softplus(5)}, 1e-12) {
		t.Errorf("unexpected read strengths: %v", p.ReadStrengths)
	}
	if !vectorsClose(p.WriteKey, linalg.Vector{6, 7}, 0) {
		t.Errorf("unexpected write key: %v", p.WriteKey)
	}
	if math.Abs(p.WriteStrength-softplus(8)) > 1e-12 {
		t.Errorf("unexpected write strength: %f", p.WriteStrength)
	}
	if !vectorsClose(p.EraseVector, linalg.Vector{sigmoid(9), sigmoid(10)}, 1e-12) {
		t.Errorf("unexpected erase vector: %v", p.EraseVector)
	}
	if !vectorsClose(p.WriteVector, linalg.Vector{11, 12}, 0) {
		t.Errorf("unexpected write vector: %v", p.WriteVector)
	}
	if !vectorsClose(p.FreeGates, linalg.Vector{sigmoid(13), sigmoid(14)}, 1e-12) {
		t.Errorf("unexpected free gates: %v", p.FreeGates)
	}
	if math.Abs(p.AllocationGate-sigmoid(15)) > 1e-12 {
		t.Errorf("unexpected allocation gate: %f", p.AllocationGate)
	}
	if math.Abs(p.WriteGate-sigmoid(16)) > 1e-12 {
		t.Errorf("unexpected write gate: %f", p.WriteGate)
	}

	// Each mode triple is {x, x+1, x+2}.
	z := 1 + math.E + math.E*math.E
	expectedModes := linalg.Vector{1 / z, math.E / z, math.E * math.E / z}
	for i, modes := range p.ReadModes {
		if !vectorsClose(modes, expectedModes, 1e-9) {
			t.Errorf("head %d: expected modes %v but got %v", i, expectedModes, modes)
		}
	}

	raw[6] = -100
	if p.WriteKey[0] != 6 {
		t.Error("parsed parameters alias the raw vector")
	}
}

func TestLayoutParseSize(t *testing.T) {
	l, err := NewLayout(Config{MemorySize: 4, WordSize: 2, ReadHeads: 1})
	if err != nil {
		t.Fatal(err)
	}
	_, err = l.Parse(make(linalg.Vector, l.Size()+1))
	if !errors.Is(err, ErrInterfaceSize) {
		t.Errorf("expected ErrInterfaceSize but got %v", err)
	}
}

func TestInterfaceParamsCheck(t *testing.T) {
	c := Config{MemorySize: 4, WordSize: 2, ReadHeads: 1}
	valid := func() *InterfaceParams {
		return &InterfaceParams{
			ReadKeys:       []linalg.Vector{{1, 0}},
			ReadStrengths:  linalg.Vector{1},
			WriteKey:       linalg.Vector{0, 1},
			WriteStrength:  2,
			EraseVector:    linalg.Vector{1, 0},
			WriteVector:    linalg.Vector{3, 3},
			FreeGates:      linalg.Vector{0},
			AllocationGate: 1,
			WriteGate:      0.5,
			ReadModes:      []linalg.Vector{{0, 1, 0}},
		}
	}
	if err := valid().Check(c); err != nil {
		t.Fatal(err)
	}

	mutations := map[string]func(p *InterfaceParams){
		"write gate":          func(p *InterfaceParams) { p.WriteGate = 1.5 },
		"free gate":           func(p *InterfaceParams) { p.FreeGates[0] = -0.1 },
		"erase":               func(p *InterfaceParams) { p.EraseVector[1] = 2 },
		"write strength":      func(p *InterfaceParams) { p.WriteStrength = -1 },
		"read strength":       func(p *InterfaceParams) { p.ReadStrengths[0] = math.NaN() },
		"mode sum":            func(p *InterfaceParams) { p.ReadModes[0] = linalg.Vector{1, 1, 0} },
		"mode sign":           func(p *InterfaceParams) { p.ReadModes[0] = linalg.Vector{-1, 1, 0} },
		"key width":           func(p *InterfaceParams) { p.WriteKey = linalg.Vector{1} },
		"write strength +Inf": func(p *InterfaceParams) { p.WriteStrength = math.Inf(1) },
		"read strength +Inf":  func(p *InterfaceParams) { p.ReadStrengths[0] = math.Inf(1) },
		"read key NaN":        func(p *InterfaceParams) { p.ReadKeys[0][1] = math.NaN() },
		"write key -Inf":      func(p *InterfaceParams) { p.WriteKey[0] = math.Inf(-1) },
		"write vector Inf":    func(p *InterfaceParams) { p.WriteVector[0] = math.Inf(1) },
		"head count":          func(p *InterfaceParams) { p.ReadKeys = nil },
	}
	for name, mutate := range mutations {
		p := valid()
		mutate(p)
		if err := p.Check(c); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}
