// Package m2l implements the two field-translation libraries spec.md §4.E
// names: an SVD-compressed library over the 316 unique V-list transfer
// vectors, and an FFT-based library convolving against 26-direction
// kernel tensors (here keyed per transfer vector — see fft.go). Both
// variants present the same Library interface so the translation
// operators and the evaluation driver do not need to know which one a
// build chose.
package m2l

import (
	"github.com/kifmm3d/kifmm/internal/morton"
)

// Library maps a source box's multipole coefficients, given the transfer
// vector to its target, to the target's downward check-surface potential
// contribution. The scale(level)/m2l_scale(level) factors and the
// downward check-to-equivalent pseudoinverse are applied by the caller
// (package translate), not here.
type Library interface {
	// Apply writes into out (length NCoeffs()) the check-surface potential
	// contribution of multipole translated across v.
	Apply(v morton.TransferVector, multipole []float64, out []float64)
	NCoeffs() int
}

// transferVectors enumerates the 316 unique V-list offsets: every integer
// vector in {-3..3}^3 whose Chebyshev norm is at least 2 (closer vectors
// describe adjacent, not well-separated, boxes and never appear in a
// V-list).
func transferVectors() []morton.TransferVector {
	out := make([]morton.TransferVector, 0, 316)
	for dx := -3; dx <= 3; dx++ {
		for dy := -3; dy <= 3; dy++ {
			for dz := -3; dz <= 3; dz++ {
				m := absMax(dx, dy, dz)
				if m < 2 {
					continue
				}
				out = append(out, morton.TransferVector{DX: dx, DY: dy, DZ: dz})
			}
		}
	}
	return out
}

func absMax(a, b, c int) int {
	m := absInt(a)
	if v := absInt(b); v > m {
		m = v
	}
	if v := absInt(c); v > m {
		m = v
	}
	return m
}

func absInt(a int) int {
	if a < 0 {
		return -a
	}
	return a
}

// Scale returns the m2l_scale(level) factor spec.md §4.G defines: 1/2 at
// level 2, 2^(level-3) for level > 2.
func Scale(level uint8) float64 {
	if level == 2 {
		return 0.5
	}
	l := float64(level)
	return pow2(l - 3)
}

func pow2(exp float64) float64 {
	if exp >= 0 {
		v := 1.0
		for i := 0; i < int(exp); i++ {
			v *= 2
		}
		return v
	}
	v := 1.0
	for i := 0; i < int(-exp); i++ {
		v /= 2
	}
	return v
}
