package translate

import (
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// P2M computes every leaf's multipole expansion from its own source
// points: multipole[leaf] += scale(level(leaf)) * uc2e_inv * kernel(x ->
// U_ck(leaf)) * q, parallel over leaves. sourceCharges is flat,
// point-major and p.Width columns wide per point (p.Width==1 for a
// single right-hand side); the kernel itself only ever evaluates one
// column at a time, so each right-hand side is a separate Evaluate call
// sharing one check-surface discretisation.
func P2M(domain morton.Domain, k kernel.Kernel, ops *operator.Set, tree *octree.Tree, st Coeffs, sourceCharges []float64, p Params) error {
	width := p.Width
	if width == 0 {
		width = 1
	}
	return forEachLeaf(tree, func(leafIdx int, leaf morton.Key) error {
		r := tree.LeafRange[leafIdx]
		if r.Len() == 0 {
			return nil
		}
		coords := coordsOf(tree.Points[r.Lo:r.Hi])

		checkSurf, err := morton.ComputeSurface(domain, leaf, p.P, p.AlphaOuter)
		if err != nil {
			return err
		}
		checkPot := make([]float64, len(checkSurf)*width)
		column := make([]float64, r.Len())
		result := make([]float64, len(checkSurf))
		for col := 0; col < width; col++ {
			for i := range column {
				column[i] = sourceCharges[(r.Lo+i)*width+col]
			}
			for i := range result {
				result[i] = 0
			}
			k.Evaluate(kernel.Value, coords, checkSurf, column, result)
			for i, v := range result {
				checkPot[i*width+col] = v
			}
		}

		coeffs := applyPinv(ops.UC2EInv, checkPot, width)
		scale := k.Scale(leaf.Level())
		dst := st.Multipole(leaf)
		for i, c := range coeffs {
			dst[i] += scale * c
		}
		return nil
	})
}

func coordsOf(points []octree.Point) [][3]float64 {
	out := make([][3]float64, len(points))
	for i, p := range points {
		out[i] = p.Coordinate
	}
	return out
}
