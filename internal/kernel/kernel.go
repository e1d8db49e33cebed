// Package kernel defines the kernel contract the FMM core consumes
// (spec.md §6) and a single reference implementation, Laplace, used by
// the tests and by cmd/kifmmctl: kernel function implementations are out
// of the core's scope —
// "external collaborators, interfaces only" — and the core never imports
// Laplace directly, only the Kernel interface below.
package kernel

import "gonum.org/v1/gonum/mat"

// EvalType selects whether Evaluate/Assemble produce potential values
// alone, or potential values with gradient.
type EvalType int

const (
	// Value requests the potential only (eval_size = 1).
	Value EvalType = iota
	// ValueDeriv requests the potential and its 3-component gradient
	// (eval_size = 4).
	ValueDeriv
)

// Size returns the number of scalars produced per target for e.
func (e EvalType) Size() int {
	if e == ValueDeriv {
		return 4
	}
	return 1
}

// Kernel is the contract consumed by the translation operators. It must
// be translation-invariant: Evaluate/Assemble depend only on (source -
// target) displacement and the associated charge, never on absolute
// position.
type Kernel interface {
	// SpaceDimension returns the point dimensionality (always 3 for this
	// core, kept for interface parity with higher-dimensional kernels).
	SpaceDimension() int

	// Evaluate computes, single-threaded, the potential (and optionally
	// gradient) at every target due to every (source, charge) pair,
	// accumulating into out (len(targets) * evalType.Size()).
	Evaluate(evalType EvalType, sources, targets [][3]float64, charges []float64, out []float64)

	// Assemble fills out with the dense kernel matrix between sources and
	// targets: out has len(targets)*evalType.Size() rows and len(sources)
	// columns, out[r][c] = K(targets[r/evalSize], sources[c]) (or its
	// gradient component for r%evalSize != 0).
	Assemble(evalType EvalType, sources, targets [][3]float64, out *mat.Dense)

	// Scale returns the kernel's homogeneity factor at the given octree
	// level, applied by M2M/L2L/M2L/P2M/P2L per spec.md §4.G.
	Scale(level uint8) float64

	// Homogeneous reports whether the kernel is scale-invariant (the same
	// eight M2M/L2L child matrices can be reused at every level, and the
	// SVD M2L library's per-level scaling is well defined).
	Homogeneous() bool
}
