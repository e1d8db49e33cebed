package translate

import (
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// M2M propagates multipole expansions bottom-up, one level at a time
// from tree.MaxLevel() down to level 1: multipole[parent(s)] += M2M[c] *
// multipole[s] for every source box s with child octant index c.
//
// Within one level, boxes sharing the same octant index c always have
// distinct parents (a parent has exactly one child at each octant
// position), so the eight octant passes can each run fully parallel over
// their boxes with no target contention; running the eight passes
// themselves in sequence is what prevents two sibling boxes from racing
// on their shared parent's slot.
func M2M(ops *operator.Set, tree *octree.Tree, st Coeffs, width int) error {
	top := tree.MaxLevel()
	for level := top; level >= 1; level-- {
		keys := tree.LevelKeys[level]
		for c := 0; c < 8; c++ {
			atOctant := filterBySiblingIndex(keys, c)
			if err := forEachKey(atOctant, func(k morton.Key) error {
				parent := k.Parent()
				contribution := applyMatrix(ops.M2M[c], st.Multipole(k), width)
				dst := st.Multipole(parent)
				for i, v := range contribution {
					dst[i] += v
				}
				return nil
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func filterBySiblingIndex(keys []morton.Key, c int) []morton.Key {
	var out []morton.Key
	for _, k := range keys {
		if k.Level() > 0 && k.SiblingIndex() == c {
			out = append(out, k)
		}
	}
	return out
}
