package dnc

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/num-analysis/linalg"
)

const (
	benchmarkTimeSteps  = 100
	benchmarkMemorySize = 64
	benchmarkWordSize   = 16
	benchmarkReadHeads  = 4
)

func vectorsClose(v1, v2 linalg.Vector, tol float64) bool {
	if len(v1) != len(v2) {
		return false
	}
	for i, x := range v1 {
		if math.Abs(x-v2[i]) > tol {
			return false
		}
	}
	return true
}

func randomVector(gen *rand.Rand, size int) linalg.Vector {
	res := make(linalg.Vector, size)
	for i := range res {
		res[i] = gen.NormFloat64()
	}
	return res
}

// randomSimplex creates a non-negative vector whose sum is
// at most one.
func randomSimplex(gen *rand.Rand, size int) linalg.Vector {
	res := make(linalg.Vector, size)
	var sum float64
	for i := range res {
		res[i] = gen.Float64()
		sum += res[i]
	}
	return res.Scale(gen.Float64() / sum)
}

func oneHot(size, idx int) linalg.Vector {
	res := make(linalg.Vector, size)
	res[idx] = 1
	return res
}

func checkSimplex(t *testing.T, name string, v linalg.Vector) {
	t.Helper()
	var sum float64
	for i, x := range v {
		if x < 0 || math.IsNaN(x) {
			t.Fatalf("%s: entry %d is %f", name, i, x)
		}
		sum += x
	}
	if sum > 1+1e-9 {
		t.Fatalf("%s: sum %f exceeds 1", name, sum)
	}
}

func randomParams(gen *rand.Rand, l *Layout) *InterfaceParams {
	raw := randomVector(gen, l.Size()).Scale(3)
	p, err := l.Parse(raw)
	if err != nil {
		panic(err)
	}
	return p
}

func forwardBenchmark(b *testing.B, c Config) {
	gen := rand.New(rand.NewSource(1))
	layout, err := NewLayout(c)
	if err != nil {
		b.Fatal(err)
	}
	params := make([]*InterfaceParams, benchmarkTimeSteps)
	for i := range params {
		params[i] = randomParams(gen, layout)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		state := NewSequenceState(c)
		for _, p := range params {
			state = state.NextState(p).State
		}
	}
}
