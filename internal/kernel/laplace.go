package kernel

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Laplace is the free-space Laplace potential kernel K(x,y) = 1/(4*pi*|x-y|),
// used by the test suite as the core's reference collaborator (spec.md
// §6's "external collaborator" kernel). Grounded on the scale(level) =
// 2^-level homogeneity factor of the original single-node KiFMM's Laplace
// kernel.
type Laplace struct{}

var _ Kernel = Laplace{}

const invFourPi = 1.0 / (4.0 * math.Pi)

// SpaceDimension always returns 3.
func (Laplace) SpaceDimension() int { return 3 }

// Homogeneous reports true: the Laplace kernel scales as 2^-level.
func (Laplace) Homogeneous() bool { return true }

// Scale returns 2^-level, the Laplace kernel's homogeneity factor.
func (Laplace) Scale(level uint8) float64 {
	return 1.0 / math.Pow(2, float64(level))
}

// Evaluate accumulates Σ_j K(target_i, source_j) * charge_j (and, for
// ValueDeriv, its gradient) into out.
func (k Laplace) Evaluate(evalType EvalType, sources, targets [][3]float64, charges []float64, out []float64) {
	size := evalType.Size()
	for ti, target := range targets {
		var v, gx, gy, gz float64
		for si, source := range sources {
			dx := target[0] - source[0]
			dy := target[1] - source[1]
			dz := target[2] - source[2]
			r2 := dx*dx + dy*dy + dz*dz
			if r2 == 0 {
				continue
			}
			r := math.Sqrt(r2)
			q := charges[si]
			v += invFourPi * q / r
			if evalType == ValueDeriv {
				inv := invFourPi * q / (r2 * r)
				gx -= dx * inv
				gy -= dy * inv
				gz -= dz * inv
			}
		}
		out[ti*size] += v
		if evalType == ValueDeriv {
			out[ti*size+1] += gx
			out[ti*size+2] += gy
			out[ti*size+3] += gz
		}
	}
}

// Assemble fills the dense kernel matrix between sources and targets.
func (k Laplace) Assemble(evalType EvalType, sources, targets [][3]float64, out *mat.Dense) {
	size := evalType.Size()
	for ti, target := range targets {
		for si, source := range sources {
			dx := target[0] - source[0]
			dy := target[1] - source[1]
			dz := target[2] - source[2]
			r2 := dx*dx + dy*dy + dz*dz
			if r2 == 0 {
				out.Set(ti*size, si, 0)
				if evalType == ValueDeriv {
					out.Set(ti*size+1, si, 0)
					out.Set(ti*size+2, si, 0)
					out.Set(ti*size+3, si, 0)
				}
				continue
			}
			r := math.Sqrt(r2)
			out.Set(ti*size, si, invFourPi/r)
			if evalType == ValueDeriv {
				inv := invFourPi / (r2 * r)
				out.Set(ti*size+1, si, -dx*inv)
				out.Set(ti*size+2, si, -dy*inv)
				out.Set(ti*size+3, si, -dz*inv)
			}
		}
	}
}
