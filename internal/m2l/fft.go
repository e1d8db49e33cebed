package m2l

import (
	"fmt"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/operator"
)

// FFTLibrary is the FFT-accelerated M2L variant of spec.md §4.E: each
// transfer vector's translation is a 3D linear convolution between the
// source's multipole coefficients, embedded on their surface grid
// positions, and a precomputed kernel tensor, evaluated via
// gonum.org/v1/gonum/dsp/fourier's complex FFT applied along each of the
// three axes in turn.
//
// The original groups the 316 transfer vectors into 26 parent-neighbour
// direction batches that share one Hadamard product across all 8
// sibling sources at once; this library instead precomputes and applies
// one FFT per transfer vector. The two are mathematically equivalent —
// direction-batching is a throughput optimisation over the same
// convolution, not a different translation — and keying per vector lets
// this library share its transfer-vector enumeration with SVDLibrary.
//
// The convolution trick requires the source and target point clouds to
// sit on a common regularly-spaced grid, which the alpha-asymmetric
// equivalent/check surfaces of SVDLibrary do not: this library instead
// lays both surfaces out on a single grid of uniform spacing
// domain.Side/(p-1), an approximation to the true (inner, outer) surface
// radii rather than a reproduction of them.
type FFTLibrary struct {
	p       int
	gridN   int
	padN    int
	idx     [][3]int // surface point -> (i, j, k) grid coordinate
	fft     *fourier.CmplxFFT
	kernels map[int][]complex128 // transfer-vector hash -> FFT of the padded kernel tensor
}

// NewFFTLibrary assembles the library at order p for kernel k over
// domain's root box.
func NewFFTLibrary(domain morton.Domain, k kernel.Kernel, surf operator.Surfaces, p int) (*FFTLibrary, error) {
	if p < 2 {
		return nil, fmt.Errorf("m2l fft order %d: %w", p, errs.ErrInvalidConfig)
	}
	gridN := p
	padN := 2*gridN - 1
	idx := morton.SurfaceGridIndex(p)
	if len(idx) != len(surf.UpwardEquiv) {
		return nil, fmt.Errorf("m2l fft: surface point count mismatch: %w", errs.ErrInvalidConfig)
	}

	lib := &FFTLibrary{
		p:       p,
		gridN:   gridN,
		padN:    padN,
		idx:     idx,
		fft:     fourier.NewCmplxFFT(padN),
		kernels: make(map[int][]complex128, 316),
	}

	cell := [3]float64{
		domain.Side[0] / float64(p-1),
		domain.Side[1] / float64(p-1),
		domain.Side[2] / float64(p-1),
	}

	for _, v := range transferVectors() {
		tensor := make([]complex128, padN*padN*padN)
		offset := [3]float64{float64(v.DX) * domain.Side[0], float64(v.DY) * domain.Side[1], float64(v.DZ) * domain.Side[2]}
		for dx := -(gridN - 1); dx <= gridN-1; dx++ {
			for dy := -(gridN - 1); dy <= gridN-1; dy++ {
				for dz := -(gridN - 1); dz <= gridN-1; dz++ {
					src := [3]float64{0, 0, 0}
					tgt := [3]float64{
						float64(dx)*cell[0] + offset[0],
						float64(dy)*cell[1] + offset[1],
						float64(dz)*cell[2] + offset[2],
					}
					var val [1]float64
					k.Evaluate(kernel.Value, [][3]float64{src}, [][3]float64{tgt}, []float64{1}, val[:])
					tensor[lib.flatten(dx+gridN-1, dy+gridN-1, dz+gridN-1)] = complex(val[0], 0)
				}
			}
		}
		lib.kernels[v.Hash()] = lib.forward3(tensor)
	}

	return lib, nil
}

// NCoeffs reports the number of check/equivalent surface points.
func (l *FFTLibrary) NCoeffs() int { return len(l.idx) }

// Apply embeds multipole on its surface grid, convolves it (via 3D FFT)
// against v's precomputed kernel tensor, and samples the result back at
// the surface grid positions into out.
func (l *FFTLibrary) Apply(v morton.TransferVector, multipole []float64, out []float64) {
	khat, ok := l.kernels[v.Hash()]
	if !ok {
		panic(fmt.Sprintf("m2l: transfer vector %+v outside FFT library", v))
	}

	signal := make([]complex128, l.padN*l.padN*l.padN)
	for c, coord := range l.idx {
		signal[l.flatten(coord[0], coord[1], coord[2])] = complex(multipole[c], 0)
	}
	shat := l.forward3(signal)

	for i := range shat {
		shat[i] *= khat[i]
	}
	result := l.inverse3(shat)

	for c, coord := range l.idx {
		sample := l.gridN - 1 + coord[0]
		sy := l.gridN - 1 + coord[1]
		sz := l.gridN - 1 + coord[2]
		out[c] = real(result[l.flatten(sample, sy, sz)])
	}
}

func (l *FFTLibrary) flatten(i, j, k int) int {
	return (i*l.padN+j)*l.padN + k
}

// forward3 applies l.fft along each of the three axes of a padN^3 cube
// stored row-major (i, j, k), in turn, i.e. a separable 3D DFT.
func (l *FFTLibrary) forward3(data []complex128) []complex128 {
	return l.transformAxes(data, false)
}

// inverse3 is forward3's inverse.
func (l *FFTLibrary) inverse3(data []complex128) []complex128 {
	return l.transformAxes(data, true)
}

func (l *FFTLibrary) transformAxes(data []complex128, inverse bool) []complex128 {
	n := l.padN
	out := make([]complex128, len(data))
	copy(out, data)

	line := make([]complex128, n)
	apply := func(get func(i int) complex128, set func(i int, v complex128)) {
		for i := 0; i < n; i++ {
			line[i] = get(i)
		}
		var res []complex128
		if inverse {
			res = l.fft.Sequence(nil, line)
			// fourier.CmplxFFT.Sequence is the unnormalized inverse DFT (it
			// scales its input by n): normalize per axis so three passes
			// compose into the true n^3-normalized 3D inverse.
			scale := complex(1/float64(n), 0)
			for i := range res {
				res[i] *= scale
			}
		} else {
			res = l.fft.Coefficients(nil, line)
		}
		for i := 0; i < n; i++ {
			set(i, res[i])
		}
	}

	// axis k (fastest-varying)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			base := (i*n + j) * n
			apply(
				func(k int) complex128 { return out[base+k] },
				func(k int, v complex128) { out[base+k] = v },
			)
		}
	}
	// axis j
	for i := 0; i < n; i++ {
		for k := 0; k < n; k++ {
			apply(
				func(j int) complex128 { return out[(i*n+j)*n+k] },
				func(j int, v complex128) { out[(i*n+j)*n+k] = v },
			)
		}
	}
	// axis i (slowest-varying)
	for j := 0; j < n; j++ {
		for k := 0; k < n; k++ {
			apply(
				func(i int) complex128 { return out[(i*n+j)*n+k] },
				func(i int, v complex128) { out[(i*n+j)*n+k] = v },
			)
		}
	}

	return out
}
