// Package ilist computes the U, V, W, X interaction lists that the
// translation operators iterate over. Lists are derived on demand from a
// tree and its keys; nothing here is cached or persisted, matching
// spec.md §4.C's "computed on demand from the tree; no persistent storage
// is required".
package ilist

import (
	"github.com/kifmm3d/kifmm/internal/bitset"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
)

// U returns the near-field list of leaf: leaf itself, adjacent leaves at
// leaf's level, adjacent children of neighbours finer than leaf, and
// adjacent leaf-parents of neighbours coarser than leaf. Used by P2P.
func U(tree *octree.Tree, leaf morton.Key) []morton.Key {
	out := []morton.Key{leaf}
	for _, nb := range leaf.Neighbours() {
		cov, ok := tree.CoveringLeaf(nb)
		switch {
		case ok:
			// Same-level neighbour leaf, or a coarser leaf-parent; both
			// are adjacent to `leaf` by construction of Neighbours/
			// 2:1 balance, but we verify explicitly for safety.
			if morton.IsAdjacent(leaf, cov) {
				out = append(out, cov)
			}
		case tree.IsInternal(nb):
			// nb is refined beyond leaf's level; 2:1 balance bounds the
			// refinement to exactly one level, so nb's children are
			// themselves leaves.
			for _, c := range nb.Children() {
				if tree.IsLeaf(c) && morton.IsAdjacent(leaf, c) {
					out = append(out, c)
				}
			}
		}
	}
	return dedupLeaves(tree, out)
}

// V returns the far-field list of non-leaf key k (level >= 2): the
// children of k's parent's neighbours that are not adjacent to k. Used by
// M2L. V is empty for k at level < 2.
func V(k morton.Key) []morton.Key {
	if k.Level() < 2 {
		return nil
	}
	parent := k.Parent()
	out := make([]morton.Key, 0, 189)
	for _, pn := range parent.Neighbours() {
		for _, c := range pn.Children() {
			if c == k || morton.IsAdjacent(c, k) {
				continue
			}
			out = append(out, c)
		}
	}
	return out
}

// W returns the list of descendants of leaf's neighbours that are not
// adjacent to leaf. Used by M2P in the adaptive variant.
func W(tree *octree.Tree, leaf morton.Key) []morton.Key {
	var out []morton.Key
	for _, nb := range leaf.Neighbours() {
		switch {
		case tree.IsLeaf(nb):
			// Same-level neighbour: always adjacent to leaf, contributes
			// nothing to W.
		case tree.IsInternal(nb):
			for _, c := range nb.Children() {
				if tree.IsLeaf(c) && !morton.IsAdjacent(c, leaf) {
					out = append(out, c)
				}
			}
		}
	}
	return out
}

// X returns the list of leaves whose W-list contains leaf. Used by P2L in
// the adaptive variant.
func X(tree *octree.Tree, leaf morton.Key) []morton.Key {
	var out []morton.Key
	for _, s := range tree.Leaves {
		if s == leaf {
			continue
		}
		for _, w := range W(tree, s) {
			if w == leaf {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// dedupLeaves drops repeated entries from keys, which are all known to be
// leaves of tree, using a bitset over leaf indices rather than a map of
// 64-bit keys.
func dedupLeaves(tree *octree.Tree, keys []morton.Key) []morton.Key {
	var seen bitset.BitSet
	out := keys[:0]
	for _, k := range keys {
		idx, ok := tree.LeafOf(k)
		if !ok {
			continue
		}
		if seen.Test(uint(idx)) {
			continue
		}
		seen.Set(uint(idx))
		out = append(out, k)
	}
	return out
}
