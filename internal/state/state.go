// Package state owns the mutable buffers the translation operators
// accumulate into: per-key multipole/local coefficient slots sharing one
// contiguous backing array (spec.md §4.F). Potentials are written to the
// caller's own output slice; no potential buffer is held here. Operator
// tables, the tree, and the kernel are read-only
// collaborators; this package is the FMM's only mutable shared state.
package state

import (
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
)

// State holds one multipole and one local coefficient buffer, each sized
// ncoeffs x nkeys, indexed by a key's position in tree.AllKeys() through
// the keyIndex map. Leaf slots are looked up through the same map (there
// is no separate leaf-level handle cache), and no potential output
// buffer is stored. Both buffers are zero-initialised at construction, matching spec.md
// §4.G's "targets are zero-initialised at FMM construction".
type State struct {
	ncoeffs int

	keyIndex map[morton.Key]int
	nkeys    int

	multipole []float64 // nkeys * ncoeffs
	local     []float64 // nkeys * ncoeffs
}

// New allocates a State for tree's keys, ncoeffs-wide expansion slots.
// evalSize and targetCount size the caller's own potential output
// buffer (Evaluate's out parameter), not anything this type stores.
func New(tree *octree.Tree, ncoeffs, evalSize, targetCount int) *State {
	allKeys := tree.AllKeys()
	keyIndex := make(map[morton.Key]int, len(allKeys))
	for i, k := range allKeys {
		keyIndex[k] = i
	}
	return &State{
		ncoeffs:   ncoeffs,
		keyIndex:  keyIndex,
		nkeys:     len(allKeys),
		multipole: make([]float64, len(allKeys)*ncoeffs),
		local:     make([]float64, len(allKeys)*ncoeffs),
	}
}

// Multipole returns the ncoeffs-length multipole slot for k, a mutable
// slice view into the shared buffer (no copy).
func (s *State) Multipole(k morton.Key) []float64 {
	i := s.keyIndex[k]
	return s.multipole[i*s.ncoeffs : (i+1)*s.ncoeffs]
}

// Local returns the ncoeffs-length local slot for k, a mutable slice view
// into the shared buffer.
func (s *State) Local(k morton.Key) []float64 {
	i := s.keyIndex[k]
	return s.local[i*s.ncoeffs : (i+1)*s.ncoeffs]
}

// Reset zeroes every buffer, letting a single State be reused across
// repeated Evaluate calls against the same tree.
func (s *State) Reset() {
	for i := range s.multipole {
		s.multipole[i] = 0
	}
	for i := range s.local {
		s.local[i] = 0
	}
}
