package dnc

import (
	"fmt"

	"github.com/gonum/blas/blas64"
	"github.com/unixpickle/autofunc"
	"github.com/unixpickle/num-analysis/linalg"
)

// similarityEpsilon bounds the product of norms below
// which two vectors are treated as dissimilar.
const similarityEpsilon = 1e-8

// CosineSimilarity computes the cosine of the angle
// between u and v.
// If either vector has (near) zero norm, the result is 0.
func CosineSimilarity(u, v linalg.Vector) float64 {
	if len(u) != len(v) {
		panic(fmt.Sprintf("similarity: length mismatch %d vs %d", len(u), len(v)))
	}
	norms := blas64.Nrm2(len(u), vec64(u)) * blas64.Nrm2(len(v), vec64(v))
	if norms < similarityEpsilon {
		return 0
	}
	return blas64.Dot(len(u), vec64(u), vec64(v)) / norms
}

// ContentWeighting produces a weighting over the rows of
// mem by applying a softmax to the cosine similarities
// between each row and key, scaled by strength.
//
// A strength near zero yields a near uniform weighting,
// while a large strength approaches a one-hot weighting.
func ContentWeighting(mem *Matrix, key linalg.Vector, strength float64) linalg.Vector {
	checkLen("content key", key, mem.Cols)
	if !(strength >= 0) {
		panic(fmt.Sprintf("content strength must be non-negative: %f", strength))
	}
	scores := make(linalg.Vector, mem.Rows)
	for i := range scores {
		scores[i] = CosineSimilarity(mem.Row(i), key) * strength
	}
	return softmax(scores)
}

func softmax(v linalg.Vector) linalg.Vector {
	peak := v[0]
	for _, x := range v[1:] {
		if x > peak {
			peak = x
		}
	}
	shifted := make(linalg.Vector, len(v))
	for i, x := range v {
		shifted[i] = x - peak
	}
	s := autofunc.Softmax{}
	return s.Apply(&autofunc.Variable{Vector: shifted}).Output()
}
