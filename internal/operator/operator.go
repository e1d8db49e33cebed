// Package operator precomputes the check-to-equivalent pseudoinverses and
// the per-child M2M/L2L translation matrices (spec.md §4.D): everything
// the evaluation driver needs from the kernel before it can walk a single
// point. Precompute happens once, at build time, from the kernel and the
// root-level equivalent/check surfaces alone; nothing here depends on the
// tree's points or a particular level, since the eight child matrices are
// reused at every level for a homogeneous kernel.
package operator

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
)

// Surfaces are the root-level equivalent/check surfaces, computed once and
// shared by every precomputed operator below.
type Surfaces struct {
	UpwardEquiv   [][3]float64
	UpwardCheck   [][3]float64
	DownwardEquiv [][3]float64
	DownwardCheck [][3]float64
}

// NewSurfaces discretises the four root-level surfaces at order p, using
// alphaInner for the equivalent surfaces and alphaOuter for the check
// surfaces (swapped for the downward pair, matching spec.md §4.D).
func NewSurfaces(domain morton.Domain, p int, alphaInner, alphaOuter float64) (Surfaces, error) {
	ue, err := morton.ComputeSurface(domain, morton.Root, p, alphaInner)
	if err != nil {
		return Surfaces{}, err
	}
	uc, err := morton.ComputeSurface(domain, morton.Root, p, alphaOuter)
	if err != nil {
		return Surfaces{}, err
	}
	de, err := morton.ComputeSurface(domain, morton.Root, p, alphaOuter)
	if err != nil {
		return Surfaces{}, err
	}
	dc, err := morton.ComputeSurface(domain, morton.Root, p, alphaInner)
	if err != nil {
		return Surfaces{}, err
	}
	return Surfaces{UpwardEquiv: ue, UpwardCheck: uc, DownwardEquiv: de, DownwardCheck: dc}, nil
}

// Pinv is a check-to-equivalent pseudoinverse, kept as the two
// factors of its SVD rather than multiplied out, matching the original's
// "avoid forming the dense inverse explicitly" numerical-stability note.
type Pinv struct {
	// Inv1 is V * Sigma+ (ncoeffs x ncoeffs).
	Inv1 *mat.Dense
	// Inv2 is U^T (ncoeffs x ncoeffs).
	Inv2 *mat.Dense
}

// Apply computes Inv1 * (Inv2 * rhs), the pseudoinverse applied to rhs.
func (p Pinv) Apply(rhs *mat.Dense) *mat.Dense {
	var tmp, out mat.Dense
	tmp.Mul(p.Inv2, rhs)
	out.Mul(p.Inv1, &tmp)
	return &out
}

// svdTol is the relative singular-value cutoff below which a mode is
// treated as numerically zero: this mirrors the truncation the original
// applies when building the check-to-equivalent pseudoinverse.
const svdTol = 1e-10

// pseudoinverse factorises gram (square) by full SVD and returns the
// two-factor pseudoinverse described by Pinv. It fails with
// errs.ErrSingularOperator if every singular value underflows svdTol, and
// with errs.ErrBlasError if the underlying SVD does not converge.
func pseudoinverse(gram *mat.Dense) (Pinv, error) {
	var svd mat.SVD
	ok := svd.Factorize(gram, mat.SVDFull)
	if !ok {
		return Pinv{}, fmt.Errorf("check-to-equivalent SVD: %w", errs.ErrBlasError)
	}
	values := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	n, _ := gram.Dims()
	sigmaMax := 0.0
	for _, s := range values {
		if s > sigmaMax {
			sigmaMax = s
		}
	}
	if sigmaMax == 0 {
		return Pinv{}, fmt.Errorf("check-to-equivalent gram matrix is zero: %w", errs.ErrSingularOperator)
	}

	sigmaPlus := mat.NewDense(n, n, nil)
	rank := 0
	for i, s := range values {
		if s > svdTol*sigmaMax {
			sigmaPlus.Set(i, i, 1/s)
			rank++
		}
	}
	if rank == 0 {
		return Pinv{}, fmt.Errorf("check-to-equivalent gram matrix: %w", errs.ErrSingularOperator)
	}

	var inv1 mat.Dense
	inv1.Mul(&v, sigmaPlus)
	var inv2 mat.Dense
	inv2.CloneFrom(u.T())
	return Pinv{Inv1: &inv1, Inv2: &inv2}, nil
}

// Set is the full collection of precomputed operators a build needs:
// the upward/downward pseudoinverses and the eight per-octant M2M/L2L
// translation matrices, reused at every tree level.
type Set struct {
	Surfaces Surfaces

	UC2EInv Pinv
	DC2EInv Pinv

	// M2M[c] maps child c's multipole coefficients to its parent's. No
	// Scale factor is applied to or after them, at any level.
	M2M [8]*mat.Dense
	// L2L[c] maps a parent's local coefficients to child c's, already
	// including the level-1 child's Scale factor; the same eight matrices
	// are applied at every level.
	L2L [8]*mat.Dense
}

// Precompute builds the full operator Set for k at order p, using domain
// for the root-level surfaces. k must be homogeneous; non-homogeneous
// kernels are out of scope for the SVD operator library (errs.ErrUnsupported).
func Precompute(domain morton.Domain, k kernel.Kernel, p int, alphaInner, alphaOuter float64) (*Set, error) {
	if !k.Homogeneous() {
		return nil, fmt.Errorf("non-homogeneous kernel operator precompute: %w", errs.ErrUnsupported)
	}
	surf, err := NewSurfaces(domain, p, alphaInner, alphaOuter)
	if err != nil {
		return nil, err
	}

	ncoeffs := len(surf.UpwardEquiv)
	uc2e := mat.NewDense(ncoeffs, ncoeffs, nil)
	k.Assemble(kernel.Value, surf.UpwardEquiv, surf.UpwardCheck, uc2e)
	uc2eInv, err := pseudoinverse(uc2e)
	if err != nil {
		return nil, fmt.Errorf("upward check-to-equivalent: %w", err)
	}

	dc2e := mat.NewDense(ncoeffs, ncoeffs, nil)
	k.Assemble(kernel.Value, surf.DownwardEquiv, surf.DownwardCheck, dc2e)
	dc2eInv, err := pseudoinverse(dc2e)
	if err != nil {
		return nil, fmt.Errorf("downward check-to-equivalent: %w", err)
	}

	set := &Set{Surfaces: surf, UC2EInv: uc2eInv, DC2EInv: dc2eInv}

	children := morton.Root.Children()
	for c, child := range children {
		childUpEquiv, err := morton.ComputeSurface(domain, child, p, alphaInner)
		if err != nil {
			return nil, err
		}
		ku := mat.NewDense(ncoeffs, ncoeffs, nil)
		k.Assemble(kernel.Value, childUpEquiv, surf.UpwardCheck, ku)
		var tmp mat.Dense
		tmp.Mul(uc2eInv.Inv2, ku)
		m2m := mat.NewDense(ncoeffs, ncoeffs, nil)
		m2m.Mul(uc2eInv.Inv1, &tmp)
		set.M2M[c] = m2m

		childDownCheck, err := morton.ComputeSurface(domain, child, p, alphaInner)
		if err != nil {
			return nil, err
		}
		kd := mat.NewDense(ncoeffs, ncoeffs, nil)
		k.Assemble(kernel.Value, surf.DownwardEquiv, childDownCheck, kd)
		var tmp2 mat.Dense
		tmp2.Mul(dc2eInv.Inv2, kd)
		l2l := mat.NewDense(ncoeffs, ncoeffs, nil)
		l2l.Mul(dc2eInv.Inv1, &tmp2)
		l2l.Scale(k.Scale(child.Level()), l2l)
		set.L2L[c] = l2l
	}

	return set, nil
}

// NCoeffs returns the number of multipole/local coefficients per box, i.e.
// the number of points on any equivalent or check surface.
func (s *Set) NCoeffs() int {
	return len(s.Surfaces.UpwardEquiv)
}
