package translate

import (
	"github.com/kifmm3d/kifmm/internal/ilist"
	"github.com/kifmm3d/kifmm/internal/kernel"
	m2llib "github.com/kifmm3d/kifmm/internal/m2l"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// M2L accumulates the far-field contribution into every level's boxes'
// local expansions, for the given level alone: for each target box at
// level, gather its V-list's multipoles through lib, scale by
// k.Scale(level) * m2l.Scale(level), push through the downward
// check-to-equivalent pseudoinverse, and accumulate. The evaluation
// driver calls this once per level, ascending from 2, interleaved with
// L2L and P2L at that same level.
func M2L(domain morton.Domain, k kernel.Kernel, ops *operator.Set, lib m2llib.Library, tree *octree.Tree, st Coeffs, width int, level uint8) error {
	ncoeffs := lib.NCoeffs()
	keys := tree.LevelKeys[level]
	return forEachKey(keys, func(target morton.Key) error {
		checkPot := make([]float64, ncoeffs*width)
		column := make([]float64, ncoeffs)
		contribution := make([]float64, ncoeffs)
		for _, source := range ilist.V(target) {
			if !tree.IsLeaf(source) && !tree.IsInternal(source) {
				continue // source box does not exist in this tree
			}
			v := morton.FindTransferVector(source, target)
			multipole := st.Multipole(source)
			for col := 0; col < width; col++ {
				for i := range column {
					column[i] = multipole[i*width+col]
				}
				lib.Apply(v, column, contribution)
				for i, c := range contribution {
					checkPot[i*width+col] += c
				}
			}
		}
		factor := k.Scale(level) * m2llib.Scale(level)
		for i := range checkPot {
			checkPot[i] *= factor
		}
		coeffs := applyPinv(ops.DC2EInv, checkPot, width)
		dst := st.Local(target)
		for i, c := range coeffs {
			dst[i] += c
		}
		return nil
	})
}
