package translate

import (
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// L2L propagates local expansions one level down, for every target box t
// at level: local[t] += L2L[c] * local[parent(t)] for t's child octant
// index c. The evaluation driver skips level 2 (a level-1 box has no
// V-list, so level 2's local coefficients come solely from M2L) and calls
// this once per level, ascending, interleaved with P2L and M2L at that
// same level: L2L(L+1) needs parent-level locals already fully
// accumulated, including that level's own P2L/M2L contributions. Each
// target box t owns exactly one local slot, so every level's boxes can
// run fully parallel with no contention.
func L2L(ops *operator.Set, tree *octree.Tree, st Coeffs, width int, level uint8) error {
	keys := tree.LevelKeys[level]
	return forEachKey(keys, func(t morton.Key) error {
		c := t.SiblingIndex()
		contribution := applyMatrix(ops.L2L[c], st.Local(t.Parent()), width)
		dst := st.Local(t)
		for i, v := range contribution {
			dst[i] += v
		}
		return nil
	})
}
