package morton

import (
	"fmt"

	"github.com/kifmm3d/kifmm/internal/errs"
)

// ComputeSurface enumerates the p^3 - (p-2)^3 surface grid points of the
// box addressed by k, scaled by alpha about the box's centre. alpha=1.05
// is the inner, equivalent surface; alpha=2.95 is the outer, check
// surface, matching the ratios used throughout the evaluation.
//
// ComputeSurface fails with errs.ErrInvalidOrder if p < 2.
func ComputeSurface(domain Domain, k Key, p int, alpha float64) ([][3]float64, error) {
	if p < 2 {
		return nil, fmt.Errorf("order %d: %w", p, errs.ErrInvalidOrder)
	}
	center := domain.Center(k)
	_, side := domain.BoxOrigin(k)

	// Longest side determines the cube used for the equivalent/check
	// surfaces so that a non-cubic domain still yields a well-posed
	// (symmetric) surface discretisation.
	diam := side[0]
	if side[1] > diam {
		diam = side[1]
	}
	if side[2] > diam {
		diam = side[2]
	}
	half := diam * alpha / 2

	n := p*p*p - (p-2)*(p-2)*(p-2)
	out := make([][3]float64, 0, n)
	step := 2 * half / float64(p-1)

	isSurface := func(i, j, kk int) bool {
		return i == 0 || i == p-1 || j == 0 || j == p-1 || kk == 0 || kk == p-1
	}

	for i := range p {
		for j := range p {
			for kk := range p {
				if !isSurface(i, j, kk) {
					continue
				}
				pt := [3]float64{
					center[0] - half + float64(i)*step,
					center[1] - half + float64(j)*step,
					center[2] - half + float64(kk)*step,
				}
				out = append(out, pt)
			}
		}
	}
	return out, nil
}

// SurfaceGridIndex returns the (i, j, k) grid coordinates, in [0, p), of
// each point ComputeSurface(domain, k, p, alpha) would return, in the same
// order and for any domain/k/alpha: the enumeration only depends on p. It
// lets a caller embed per-surface-point values (e.g. multipole
// coefficients) into a dense p x p x p grid, as the FFT M2L variant does.
func SurfaceGridIndex(p int) [][3]int {
	isSurface := func(i, j, kk int) bool {
		return i == 0 || i == p-1 || j == 0 || j == p-1 || kk == 0 || kk == p-1
	}
	n := p*p*p - (p-2)*(p-2)*(p-2)
	out := make([][3]int, 0, n)
	for i := range p {
		for j := range p {
			for kk := range p {
				if isSurface(i, j, kk) {
					out = append(out, [3]int{i, j, kk})
				}
			}
		}
	}
	return out
}
