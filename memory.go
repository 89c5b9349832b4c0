package dnc

import (
	"fmt"

	"github.com/gonum/blas"
	"github.com/gonum/blas/blas64"
	"github.com/unixpickle/num-analysis/linalg"
)

// A Matrix is a dense, row-major matrix.
//
// Memory contents are stored as an N x W Matrix, where
// each row is a location, and the temporal link matrix is
// stored as an N x N Matrix.
type Matrix struct {
	Rows int
	Cols int
	Data linalg.Vector
}

// NewMatrix creates a zero matrix.
func NewMatrix(rows, cols int) *Matrix {
	return &Matrix{
		Rows: rows,
		Cols: cols,
		Data: make(linalg.Vector, rows*cols),
	}
}

// Get returns the entry at row i, column j.
func (m *Matrix) Get(i, j int) float64 {
	return m.Data[i*m.Cols+j]
}

// Set sets the entry at row i, column j.
func (m *Matrix) Set(i, j int, x float64) {
	m.Data[i*m.Cols+j] = x
}

// Row returns the i-th row.
// The result aliases the matrix's data.
func (m *Matrix) Row(i int) linalg.Vector {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

// Copy creates a deep copy of the matrix.
func (m *Matrix) Copy() *Matrix {
	return &Matrix{
		Rows: m.Rows,
		Cols: m.Cols,
		Data: m.Data.Copy(),
	}
}

func (m *Matrix) general() blas64.General {
	return blas64.General{
		Rows:   m.Rows,
		Cols:   m.Cols,
		Stride: m.Cols,
		Data:   m.Data,
	}
}

// mulVec computes m*v, or m^T*v if trans is set.
func (m *Matrix) mulVec(trans bool, v linalg.Vector) linalg.Vector {
	t := blas.NoTrans
	inLen, outLen := m.Cols, m.Rows
	if trans {
		t = blas.Trans
		inLen, outLen = m.Rows, m.Cols
	}
	checkLen("matrix operand", v, inLen)
	res := make(linalg.Vector, outLen)
	blas64.Gemv(t, 1, m.general(), vec64(v), 0, vec64(res))
	return res
}

// WriteMemory applies an erase-then-add write to every
// location in proportion to its write weight:
//
//	M'[i] = M[i] * (1 - w[i]*erase) + w[i]*add
//
// The original matrix is not modified.
func WriteMemory(mem *Matrix, w, erase, add linalg.Vector) *Matrix {
	checkLen("write weighting", w, mem.Rows)
	checkLen("erase vector", erase, mem.Cols)
	checkLen("write vector", add, mem.Cols)
	checkUnitRange("erase vector", erase)

	res := mem.Copy()
	for i, weight := range w {
		row := res.Row(i)
		for j, e := range erase {
			row[j] *= 1 - weight*e
		}
	}
	blas64.Ger(1, vec64(w), vec64(add), res.general())
	return res
}

// ReadMemory computes the weighted sum of the memory rows,
// M^T * w.
func ReadMemory(mem *Matrix, w linalg.Vector) linalg.Vector {
	return mem.mulVec(true, w)
}

func vec64(v linalg.Vector) blas64.Vector {
	return blas64.Vector{Inc: 1, Data: v}
}

func checkLen(name string, v linalg.Vector, n int) {
	if len(v) != n {
		panic(fmt.Sprintf("%s: expected length %d but got %d", name, n, len(v)))
	}
}

func checkUnitRange(name string, v linalg.Vector) {
	for i, x := range v {
		if !(x >= 0 && x <= 1) {
			panic(fmt.Sprintf("%s: entry %d out of [0,1]: %f", name, i, x))
		}
	}
}
