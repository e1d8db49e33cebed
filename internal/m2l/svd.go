package m2l

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// SVDLibrary is the compressed M2L library of spec.md §4.E's SVD variant:
// a shared target-side basis U (ncoeffs x k), a shared source-side basis
// projection St (k x ncoeffs), and one k x k block per transfer vector.
// Applying M2L becomes two small GEMMs (St*rhs, then the k x k block)
// plus the shared U expansion, instead of one ncoeffs x ncoeffs GEMM per
// V-list entry.
type SVDLibrary struct {
	ncoeffs int
	rank    int

	u  *mat.Dense // ncoeffs x rank
	st *mat.Dense // rank x ncoeffs

	blocks map[int]*mat.Dense // transfer-vector hash -> rank x rank
}

// NewSVDLibrary assembles the library at order p for kernel k over
// domain's root box, retaining at most rank singular components per side
// (spec's user-supplied k, default ~1000, clamped to ncoeffs since a
// reference implementation's surfaces rarely carry that many points).
func NewSVDLibrary(domain morton.Domain, k kernel.Kernel, surf operator.Surfaces, rank int) (*SVDLibrary, error) {
	ncoeffs := len(surf.UpwardEquiv)
	if rank > ncoeffs {
		rank = ncoeffs
	}
	if rank < 1 {
		return nil, fmt.Errorf("m2l svd rank %d: %w", rank, errs.ErrInvalidConfig)
	}

	vectors := transferVectors()
	perVector := make(map[int]*mat.Dense, len(vectors))

	fat := mat.NewDense(ncoeffs, ncoeffs*len(vectors), nil)
	tall := mat.NewDense(ncoeffs*len(vectors), ncoeffs, nil)

	for vi, v := range vectors {
		shiftedCheck := shiftSurface(surf.DownwardCheck, v, domain.Side)
		kv := mat.NewDense(ncoeffs, ncoeffs, nil)
		k.Assemble(kernel.Value, surf.UpwardEquiv, shiftedCheck, kv)
		perVector[v.Hash()] = kv

		fat.Slice(0, ncoeffs, vi*ncoeffs, (vi+1)*ncoeffs).(*mat.Dense).Copy(kv)
		tall.Slice(vi*ncoeffs, (vi+1)*ncoeffs, 0, ncoeffs).(*mat.Dense).Copy(kv)
	}

	u, err := leftBasis(fat, rank)
	if err != nil {
		return nil, fmt.Errorf("m2l svd target-side basis: %w", err)
	}

	st, err := rightBasis(tall, rank)
	if err != nil {
		return nil, fmt.Errorf("m2l svd source-side basis: %w", err)
	}

	blocks := make(map[int]*mat.Dense, len(vectors))
	for _, v := range vectors {
		kv := perVector[v.Hash()]
		var tmp, block mat.Dense
		tmp.Mul(u.T(), kv)
		block.Mul(&tmp, st.T())
		blocks[v.Hash()] = &block
	}

	return &SVDLibrary{ncoeffs: ncoeffs, rank: rank, u: u, st: st, blocks: blocks}, nil
}

// NCoeffs reports the number of check/equivalent surface points.
func (l *SVDLibrary) NCoeffs() int { return l.ncoeffs }

// Apply computes out = U * block[v] * St * multipole.
func (l *SVDLibrary) Apply(v morton.TransferVector, multipole []float64, out []float64) {
	block, ok := l.blocks[v.Hash()]
	if !ok {
		// v is outside the 316-vector library: callers only ever pass
		// genuine V-list offsets, so this indicates a programming error
		// upstream, not a recoverable condition.
		panic(fmt.Sprintf("m2l: transfer vector %+v outside SVD library", v))
	}
	rhs := mat.NewDense(l.ncoeffs, 1, multipole)
	var projected, reduced, expanded mat.Dense
	projected.Mul(l.st, rhs)
	reduced.Mul(block, &projected)
	expanded.Mul(l.u, &reduced)
	for i := 0; i < l.ncoeffs; i++ {
		out[i] = expanded.At(i, 0)
	}
}

// shiftSurface translates every point of surf by v (measured in units of
// the root box's own side length), producing the check surface of the
// box at transfer-vector offset v.
func shiftSurface(surf [][3]float64, v morton.TransferVector, side [3]float64) [][3]float64 {
	out := make([][3]float64, len(surf))
	offset := [3]float64{float64(v.DX) * side[0], float64(v.DY) * side[1], float64(v.DZ) * side[2]}
	for i, p := range surf {
		out[i] = [3]float64{p[0] + offset[0], p[1] + offset[1], p[2] + offset[2]}
	}
	return out
}

// leftBasis returns the first rank left singular vectors of m.
func leftBasis(m *mat.Dense, rank int) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return nil, errs.ErrBlasError
	}
	var full mat.Dense
	svd.UTo(&full)
	r, _ := full.Dims()
	basis := mat.NewDense(r, rank, nil)
	basis.Copy(full.Slice(0, r, 0, rank))
	return basis, nil
}

// rightBasis returns Vᵀ restricted to its first rank rows, i.e. the
// source-side projection St, from m's (thin) SVD.
func rightBasis(m *mat.Dense, rank int) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDThin) {
		return nil, errs.ErrBlasError
	}
	var full mat.Dense
	svd.VTo(&full)
	r, _ := full.Dims()
	basis := mat.NewDense(r, rank, nil)
	basis.Copy(full.Slice(0, r, 0, rank))
	var st mat.Dense
	st.CloneFrom(basis.T())
	return &st, nil
}
