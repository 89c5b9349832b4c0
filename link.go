package dnc

import "github.com/unixpickle/num-analysis/linalg"

// UpdateLink records a write in the temporal link matrix
// and the precedence weighting.
//
// Entry (i, j) of the link matrix is the degree to which
// location i was written right after location j.
// The diagonal is always zero.
//
// The arguments are not modified.
func UpdateLink(link *Matrix, precedence, write linalg.Vector) (*Matrix, linalg.Vector) {
	n := len(write)
	checkLen("precedence", precedence, n)
	if link.Rows != n || link.Cols != n {
		panic("link matrix does not match write weighting")
	}

	newLink := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		wi := write[i]
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			old := link.Get(i, j)
			newLink.Set(i, j, (1-wi-write[j])*old+wi*precedence[j])
		}
	}

	var writeSum float64
	for _, w := range write {
		writeSum += w
	}
	newPrecedence := precedence.Copy().Scale(1 - writeSum)
	newPrecedence.Add(write)

	return newLink, newPrecedence
}

// ForwardWeighting computes link * read, moving a read
// weighting toward the locations written after the ones
// it currently attends to.
func ForwardWeighting(link *Matrix, read linalg.Vector) linalg.Vector {
	return link.mulVec(false, read)
}

// BackwardWeighting computes link^T * read, moving a read
// weighting toward the locations written before the ones
// it currently attends to.
func BackwardWeighting(link *Matrix, read linalg.Vector) linalg.Vector {
	return link.mulVec(true, read)
}
