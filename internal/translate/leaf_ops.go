package translate

import (
	"golang.org/x/sync/errgroup"

	"github.com/kifmm3d/kifmm/internal/ilist"
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
)

func widthOf(p Params) int {
	if p.Width == 0 {
		return 1
	}
	return p.Width
}

// forEachLeafAtLevel runs fn(leafIndex, leafKey) for every leaf of tree
// that sits at the given level, in parallel, bounded by workers(). An
// adaptive tree's leaves span many levels, so P2L (called once per level
// by the driver, interleaved with L2L/M2L at that level) needs this
// narrower iteration instead of forEachLeaf's "every leaf" sweep.
func forEachLeafAtLevel(tree *octree.Tree, level uint8, fn func(int, morton.Key) error) error {
	g := new(errgroup.Group)
	g.SetLimit(workers())
	for _, k := range tree.LevelKeys[level] {
		if i, ok := tree.LeafOf(k); ok {
			i, k := i, k
			g.Go(func() error { return fn(i, k) })
		}
	}
	return g.Wait()
}

// L2P evaluates every leaf's local expansion at its own target points:
// out[targets_in_leaf] += kernel(D_eq(leaf) -> targets_in_leaf) *
// local[leaf]. out is flat, target-major and p.Width*evalSize wide per
// target.
func L2P(domain morton.Domain, k kernel.Kernel, tree *octree.Tree, targetPoints []octree.Point, targetRanges []octree.Range, st Coeffs, p Params, out []float64) error {
	evalSize := p.EvalType.Size()
	width := widthOf(p)
	return forEachLeaf(tree, func(leafIdx int, leaf morton.Key) error {
		r := targetRanges[leafIdx]
		if r.Len() == 0 {
			return nil
		}
		downEquiv, err := morton.ComputeSurface(domain, leaf, p.P, p.AlphaOuter)
		if err != nil {
			return err
		}
		targets := coordsOf(targetPoints[r.Lo:r.Hi])
		local := st.Local(leaf)
		ncoeffs := len(local) / width
		column := make([]float64, ncoeffs)
		result := make([]float64, r.Len()*evalSize)
		for col := 0; col < width; col++ {
			for i := range column {
				column[i] = local[i*width+col]
			}
			for i := range result {
				result[i] = 0
			}
			k.Evaluate(p.EvalType, downEquiv, targets, column, result)
			for t := 0; t < r.Len(); t++ {
				for e := 0; e < evalSize; e++ {
					out[(r.Lo+t)*evalSize*width+e*width+col] += result[t*evalSize+e]
				}
			}
		}
		return nil
	})
}

// M2P (adaptive only) evaluates, for every leaf and every source box s in
// its W-list, s's multipole expansion directly at the leaf's targets:
// out[targets_in_leaf] += kernel(U_eq(s) -> targets_in_leaf) *
// multipole[s].
func M2P(domain morton.Domain, k kernel.Kernel, tree *octree.Tree, targetPoints []octree.Point, targetRanges []octree.Range, st Coeffs, p Params, out []float64) error {
	evalSize := p.EvalType.Size()
	width := widthOf(p)
	return forEachLeaf(tree, func(leafIdx int, leaf morton.Key) error {
		r := targetRanges[leafIdx]
		if r.Len() == 0 {
			return nil
		}
		targets := coordsOf(targetPoints[r.Lo:r.Hi])
		for _, s := range ilist.W(tree, leaf) {
			upEquiv, err := morton.ComputeSurface(domain, s, p.P, p.AlphaInner)
			if err != nil {
				return err
			}
			multipole := st.Multipole(s)
			ncoeffs := len(multipole) / width
			column := make([]float64, ncoeffs)
			result := make([]float64, r.Len()*evalSize)
			for col := 0; col < width; col++ {
				for i := range column {
					column[i] = multipole[i*width+col]
				}
				for i := range result {
					result[i] = 0
				}
				k.Evaluate(p.EvalType, upEquiv, targets, column, result)
				for t := 0; t < r.Len(); t++ {
					for e := 0; e < evalSize; e++ {
						out[(r.Lo+t)*evalSize*width+e*width+col] += result[t*evalSize+e]
					}
				}
			}
		}
		return nil
	})
}

// P2L (adaptive only) accumulates, for every leaf at level and every
// source box s in its X-list, s's source points directly into the
// leaf's local expansion: local[leaf] += scale(level(leaf)) * dc2e_inv *
// kernel(source_points(s) -> D_ck(leaf)) * q(s). sourceCharges is flat,
// point-major and p.Width columns wide per point. The driver calls this
// once per level, ascending, interleaved with L2L and M2L at that level:
// an adaptive tree's leaves span many levels, so unlike P2P/M2P/L2P
// (which run once, over every leaf, after the level loop) P2L is scoped
// to the leaves actually sitting at level.
func P2L(domain morton.Domain, k kernel.Kernel, ops *operator.Set, tree *octree.Tree, sourceCharges []float64, st Coeffs, p Params, level uint8) error {
	width := widthOf(p)
	return forEachLeafAtLevel(tree, level, func(leafIdx int, leaf morton.Key) error {
		checkSurf, err := morton.ComputeSurface(domain, leaf, p.P, p.AlphaInner)
		if err != nil {
			return err
		}
		checkPot := make([]float64, len(checkSurf)*width)
		any := false
		for _, s := range ilist.X(tree, leaf) {
			sr, ok := tree.LeafOf(s)
			if !ok {
				continue
			}
			srcRange := tree.LeafRange[sr]
			if srcRange.Len() == 0 {
				continue
			}
			any = true
			coords := coordsOf(tree.Points[srcRange.Lo:srcRange.Hi])
			column := make([]float64, srcRange.Len())
			result := make([]float64, len(checkSurf))
			for col := 0; col < width; col++ {
				for i := range column {
					column[i] = sourceCharges[(srcRange.Lo+i)*width+col]
				}
				for i := range result {
					result[i] = 0
				}
				k.Evaluate(kernel.Value, coords, checkSurf, column, result)
				for i, v := range result {
					checkPot[i*width+col] += v
				}
			}
		}
		if !any {
			return nil
		}
		scale := k.Scale(leaf.Level())
		coeffs := applyPinv(ops.DC2EInv, checkPot, width)
		dst := st.Local(leaf)
		for i, c := range coeffs {
			dst[i] += scale * c
		}
		return nil
	})
}

// P2P directly sums, for every leaf and every source box s in its
// U-list, s's source points onto the leaf's own targets: out[targets_in_
// leaf] += kernel(source_points(s) -> targets_in_leaf) * q(s). Both
// sourceCharges and out are flat and p.Width columns wide (point-major
// for charges, target-major-then-evalSize for out).
func P2P(k kernel.Kernel, tree *octree.Tree, sourceCharges []float64, targetPoints []octree.Point, targetRanges []octree.Range, p Params, out []float64) error {
	evalSize := p.EvalType.Size()
	width := widthOf(p)
	return forEachLeaf(tree, func(leafIdx int, leaf morton.Key) error {
		r := targetRanges[leafIdx]
		if r.Len() == 0 {
			return nil
		}
		targets := coordsOf(targetPoints[r.Lo:r.Hi])
		for _, s := range ilist.U(tree, leaf) {
			sr, ok := tree.LeafOf(s)
			if !ok {
				continue
			}
			srcRange := tree.LeafRange[sr]
			if srcRange.Len() == 0 {
				continue
			}
			coords := coordsOf(tree.Points[srcRange.Lo:srcRange.Hi])
			column := make([]float64, srcRange.Len())
			result := make([]float64, r.Len()*evalSize)
			for col := 0; col < width; col++ {
				for i := range column {
					column[i] = sourceCharges[(srcRange.Lo+i)*width+col]
				}
				for i := range result {
					result[i] = 0
				}
				k.Evaluate(p.EvalType, coords, targets, column, result)
				for t := 0; t < r.Len(); t++ {
					for e := 0; e < evalSize; e++ {
						out[(r.Lo+t)*evalSize*width+e*width+col] += result[t*evalSize+e]
					}
				}
			}
		}
		return nil
	})
}
