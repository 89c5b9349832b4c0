package dnc

import (
	"math"
	"sort"

	"github.com/unixpickle/num-analysis/linalg"
)

// UpdateUsage computes the usage vector for a timestep
// from the previous usage, the previous write weighting,
// and the previous read weightings and free gates.
//
// Writing only pushes usage toward 1.
// A location loses usage only to the extent that a read
// head both attended to it and asked to free it.
func UpdateUsage(usage, write linalg.Vector, reads []linalg.Vector,
	freeGates linalg.Vector) linalg.Vector {
	checkLen("previous write weighting", write, len(usage))
	checkLen("free gates", freeGates, len(reads))
	checkUnitRange("free gates", freeGates)

	retention := make(linalg.Vector, len(usage))
	for i := range retention {
		retention[i] = 1
	}
	for r, read := range reads {
		checkLen("previous read weighting", read, len(usage))
		for i, w := range read {
			retention[i] *= 1 - freeGates[r]*w
		}
	}

	res := make(linalg.Vector, len(usage))
	for i, u := range usage {
		w := write[i]
		res[i] = clampUnit((u + w - u*w) * retention[i])
	}
	return res
}

// FreeList returns the location indices sorted by
// ascending usage.
// Ties keep their index order.
func FreeList(usage linalg.Vector) []int {
	res := make([]int, len(usage))
	for i := range res {
		res[i] = i
	}
	sort.SliceStable(res, func(i, j int) bool {
		return usage[res[i]] < usage[res[j]]
	})
	return res
}

// AllocationWeighting computes a weighting which favors
// the least used locations.
//
// Walking the free list, each location receives its own
// availability (1 - usage) times the usage of every
// location before it in the list.
func AllocationWeighting(usage linalg.Vector) linalg.Vector {
	checkUnitRange("usage", usage)
	res := make(linalg.Vector, len(usage))
	prod := 1.0
	for _, idx := range FreeList(usage) {
		res[idx] = (1 - usage[idx]) * prod
		prod *= usage[idx]
	}
	return res
}

func clampUnit(x float64) float64 {
	if math.IsNaN(x) {
		panic("usage became NaN")
	}
	return math.Max(0, math.Min(1, x))
}
