// Package charge permutes a caller's charge array, keyed by global point
// index, into the per-leaf contiguous order an octree.Tree establishes.
// Grounded on the once-only "charges keyed by global index through a
// dictionary supplied at construction" requirement: the permutation is
// computed once at build time and reused by every Evaluate call.
package charge

import "github.com/kifmm3d/kifmm/internal/octree"

// Dictionary maps global source indices to the tree's permuted point
// order, so a caller's charge array (indexed by global index) can be
// rearranged into per-leaf contiguous order without the caller needing
// to know the tree's internal layout.
type Dictionary struct {
	// permutation[i] is the global index of the source at permuted
	// position i, i.e. tree.Points[i].GlobalIndex.
	permutation []uint64
}

// NewDictionary builds the dictionary from tree's permuted points.
func NewDictionary(tree *octree.Tree) *Dictionary {
	perm := make([]uint64, len(tree.Points))
	for i, p := range tree.Points {
		perm[i] = p.GlobalIndex
	}
	return &Dictionary{permutation: perm}
}

// Permute returns a new slice holding charges reordered into the tree's
// permuted point order: out[i] = charges[d.permutation[i]].
func (d *Dictionary) Permute(charges []float64) []float64 {
	out := make([]float64, len(d.permutation))
	for i, g := range d.permutation {
		out[i] = charges[g]
	}
	return out
}

// PermuteColumns does the same as Permute for a matrix variant's charge
// columns, where charges is n_sources x n_rhs in row-major layout and out
// is permuted-n_sources x n_rhs.
func (d *Dictionary) PermuteColumns(charges []float64, nrhs int) []float64 {
	out := make([]float64, len(d.permutation)*nrhs)
	for i, g := range d.permutation {
		copy(out[i*nrhs:(i+1)*nrhs], charges[int(g)*nrhs:int(g+1)*nrhs])
	}
	return out
}

// Unpermute scatters a per-leaf-ordered target-side array (e.g. a
// potential buffer) back to global-index order, for callers holding an
// array in tree order, e.g. test harnesses comparing against a
// direct-sum reference computed in global order. Evaluate's out is
// already in the caller's target order and needs no such step.
func Unpermute(permutation []uint64, permuted []float64, width int) []float64 {
	out := make([]float64, len(permutation)*width)
	for i, g := range permutation {
		copy(out[int(g)*width:int(g+1)*width], permuted[i*width:(i+1)*width])
	}
	return out
}
