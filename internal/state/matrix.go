package state

import (
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
)

// MatrixState is State's matrix-variant counterpart (spec.md §4.F): every
// per-key slot is ncoeffs x nrhs instead of a single ncoeffs vector, so
// multiple right-hand-side charge vectors are evaluated together, sharing
// one operator-matrix application per translation across all columns.
type MatrixState struct {
	ncoeffs int
	nrhs    int

	keyIndex map[morton.Key]int

	multipole []float64 // nkeys * ncoeffs * nrhs
	local     []float64
}

// NewMatrix allocates a MatrixState for tree's keys, nrhs right-hand
// sides wide. evalSize and targetCount size the caller's own potential
// output buffer (EvaluateMatrix's out parameter), not anything this type
// stores.
func NewMatrix(tree *octree.Tree, ncoeffs, evalSize, targetCount, nrhs int) *MatrixState {
	allKeys := tree.AllKeys()
	keyIndex := make(map[morton.Key]int, len(allKeys))
	for i, k := range allKeys {
		keyIndex[k] = i
	}
	return &MatrixState{
		ncoeffs:   ncoeffs,
		nrhs:      nrhs,
		keyIndex:  keyIndex,
		multipole: make([]float64, len(allKeys)*ncoeffs*nrhs),
		local:     make([]float64, len(allKeys)*ncoeffs*nrhs),
	}
}

// Multipole returns the ncoeffs*nrhs slot for k, row-major (coefficient,
// rhs column).
func (s *MatrixState) Multipole(k morton.Key) []float64 {
	i := s.keyIndex[k]
	width := s.ncoeffs * s.nrhs
	return s.multipole[i*width : (i+1)*width]
}

// Local is Multipole's local-coefficient counterpart.
func (s *MatrixState) Local(k morton.Key) []float64 {
	i := s.keyIndex[k]
	width := s.ncoeffs * s.nrhs
	return s.local[i*width : (i+1)*width]
}

