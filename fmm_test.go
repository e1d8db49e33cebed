package kifmm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kifmm3d/kifmm/internal/goldendata"
	"github.com/kifmm3d/kifmm/internal/kernel"
)

func maxAbs(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func relError(got, want []float64) float64 {
	diff := make([]float64, len(got))
	for i := range diff {
		diff[i] = got[i] - want[i]
	}
	denom := maxAbs(want)
	if denom == 0 {
		return maxAbs(diff)
	}
	return maxAbs(diff) / denom
}

func sphereCloud(n int, seed int64) goldendata.Cloud {
	c := goldendata.Uniform(n, seed)
	for i, p := range c.Points {
		norm := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		if norm == 0 {
			norm = 1
		}
		c.Points[i] = [3]float64{p[0] / norm, p[1] / norm, p[2] / norm}
		c.Charges[i] = 1
	}
	return c
}

// S1: 10,000 points uniformly in [0,1]^3, unit charges, uniform depth 3,
// p=5, default alphas, relative error <= 1e-5.
func TestS1UniformCubeUnitCharges(t *testing.T) {
	if testing.Short() {
		t.Skip("10,000-point direct-sum check is slow under -short")
	}
	cloud := goldendata.Uniform(10000, 1)
	for i := range cloud.Charges {
		cloud.Charges[i] = 1
	}

	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(5), WithAlphas(1.05, 2.95))
	require.NoError(t, err)

	got := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(cloud.Charges, got)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	require.LessOrEqual(t, relError(got, want), 1e-5)
}

// S2: 10,000 points on the unit sphere, unit charges, depth 3, p=5.
func TestS2UnitSphereUnitCharges(t *testing.T) {
	if testing.Short() {
		t.Skip("10,000-point direct-sum check is slow under -short")
	}
	cloud := sphereCloud(10000, 2)

	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(5), WithAlphas(1.05, 2.95))
	require.NoError(t, err)

	got := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(cloud.Charges, got)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	require.LessOrEqual(t, relError(got, want), 1e-5)
}

// Charges keyed by global source index must reach the right point even
// after the octree permutes sources into Morton order: non-uniform
// charges make any source/point misalignment visible, unlike a constant
// charge vector, which a scrambled assignment still reproduces exactly.
func TestNonUniformChargesMatchDirectSumAfterTreePermutation(t *testing.T) {
	cloud := goldendata.Uniform(2000, 11)

	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(6))
	require.NoError(t, err)

	got := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(cloud.Charges, got)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	require.LessOrEqual(t, relError(got, want), 1e-5)
}

// S3: adaptive tree, ncrit=100, p=6, 10,000 points uniform in a box.
func TestS3AdaptiveTree(t *testing.T) {
	if testing.Short() {
		t.Skip("10,000-point direct-sum check is slow under -short")
	}
	cloud := goldendata.Uniform(10000, 3)

	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithNCrit(100), WithOrder(6))
	require.NoError(t, err)

	got := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(cloud.Charges, got)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	require.LessOrEqual(t, relError(got, want), 1e-5)
}

// S4: matrix variant with 3 distinct charge vectors [1, 2, 3] x unit
// charges; every column must satisfy S1's tolerance and scale exactly
// relative to column 1.
func TestS4MatrixVariantColumnsScaleExactly(t *testing.T) {
	if testing.Short() {
		t.Skip("small-N but still an end-to-end evaluation pass")
	}
	cloud := goldendata.Uniform(2000, 4)
	for i := range cloud.Charges {
		cloud.Charges[i] = 1
	}

	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(5))
	require.NoError(t, err)

	n := len(cloud.Points)
	charges := make([]float64, n*3)
	for i := 0; i < n; i++ {
		for col, scale := range []float64{1, 2, 3} {
			charges[i*3+col] = scale * cloud.Charges[i]
		}
	}

	out := make([]float64, n*3)
	_, err = f.EvaluateMatrix(charges, 3, out)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	col0 := make([]float64, n)
	for i := 0; i < n; i++ {
		col0[i] = out[i*3]
	}
	require.LessOrEqual(t, relError(col0, want), 1e-5)

	for i := 0; i < n; i++ {
		for col, scale := range []float64{1, 2, 3} {
			require.InDelta(t, scale*col0[i], out[i*3+col], 1e-9*math.Max(1, math.Abs(col0[i])))
		}
	}
}

// S5: homogeneity — scaling the whole point cloud by s leaves the
// relative error against direct summation unchanged for a homogeneous
// kernel.
func TestS5HomogeneityUnderDomainScaling(t *testing.T) {
	if testing.Short() {
		t.Skip("runs two full evaluations against direct summation")
	}
	cloud := goldendata.Uniform(2000, 5)

	evalAt := func(scale float64) float64 {
		scaled := make([][3]float64, len(cloud.Points))
		for i, p := range cloud.Points {
			scaled[i] = [3]float64{p[0] * scale, p[1] * scale, p[2] * scale}
		}
		f, err := Build(scaled, scaled, kernel.Laplace{}, WithDepth(3), WithOrder(5))
		require.NoError(t, err)
		got := make([]float64, len(scaled))
		_, err = f.Evaluate(cloud.Charges, got)
		require.NoError(t, err)
		want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, scaled, cloud.Charges, scaled)
		return relError(got, want)
	}

	e1 := evalAt(1)
	e10 := evalAt(10)
	require.LessOrEqual(t, e1, 1e-5)
	require.LessOrEqual(t, e10, 1e-5)
}

// S6: FFT vs SVD variant agreement with S1's settings (unit charges,
// depth 3, p=5) on a 4,000-point uniform cloud.
func TestS6FFTAndSVDAgree(t *testing.T) {
	if testing.Short() {
		t.Skip("builds two evaluators over a large cloud")
	}
	cloud := goldendata.Uniform(4000, 6)
	for i := range cloud.Charges {
		cloud.Charges[i] = 1
	}

	svd, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(5))
	require.NoError(t, err)
	fft, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(5), WithFFT())
	require.NoError(t, err)

	gotSVD := make([]float64, len(cloud.Points))
	_, err = svd.Evaluate(cloud.Charges, gotSVD)
	require.NoError(t, err)
	gotFFT := make([]float64, len(cloud.Points))
	_, err = fft.Evaluate(cloud.Charges, gotFFT)
	require.NoError(t, err)

	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)
	diffFFTSVD := relError(gotFFT, gotSVD)
	require.LessOrEqual(t, diffFFTSVD, 1e-5)
	require.LessOrEqual(t, relError(gotSVD, want), 1e-5)
}

// Operator law 7: linearity of evaluation.
func TestLinearityOfEvaluate(t *testing.T) {
	cloud := goldendata.Uniform(500, 7)
	f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(2), WithOrder(5))
	require.NoError(t, err)

	q1 := cloud.Charges
	q2 := make([]float64, len(q1))
	for i := range q2 {
		q2[i] = q1[(i+1)%len(q1)]
	}

	alpha, beta := 2.0, -3.0
	combined := make([]float64, len(q1))
	for i := range combined {
		combined[i] = alpha*q1[i] + beta*q2[i]
	}

	out1 := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(q1, out1)
	require.NoError(t, err)
	out2 := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(q2, out2)
	require.NoError(t, err)
	outCombined := make([]float64, len(cloud.Points))
	_, err = f.Evaluate(combined, outCombined)
	require.NoError(t, err)

	for i := range outCombined {
		want := alpha*out1[i] + beta*out2[i]
		require.InDelta(t, want, outCombined[i], 1e-9*math.Max(1, math.Abs(want)))
	}
}

// Operator law 8: convergence toward the direct sum as expansion order
// grows.
func TestConvergenceImprovesWithOrder(t *testing.T) {
	cloud := goldendata.Uniform(1500, 8)
	want := goldendata.DirectSum(kernel.Laplace{}, kernel.Value, cloud.Points, cloud.Charges, cloud.Points)

	errAt := func(p int) float64 {
		f, err := Build(cloud.Points, cloud.Points, kernel.Laplace{}, WithDepth(3), WithOrder(p))
		require.NoError(t, err)
		got := make([]float64, len(cloud.Points))
		_, err = f.Evaluate(cloud.Charges, got)
		require.NoError(t, err)
		return relError(got, want)
	}

	lowOrder := errAt(3)
	highOrder := errAt(7)
	require.Less(t, highOrder, lowOrder)
}

func TestBuildRejectsEmptyPointSets(t *testing.T) {
	_, err := Build(nil, [][3]float64{{0, 0, 0}}, kernel.Laplace{})
	require.Error(t, err)
	_, err = Build([][3]float64{{0, 0, 0}}, nil, kernel.Laplace{})
	require.Error(t, err)
}

type nonHomogeneousKernel struct{ kernel.Laplace }

func (nonHomogeneousKernel) Homogeneous() bool { return false }

func TestBuildRejectsNonHomogeneousKernelWithSVD(t *testing.T) {
	cloud := goldendata.Uniform(50, 9)
	_, err := Build(cloud.Points, cloud.Points, nonHomogeneousKernel{})
	require.Error(t, err)
}
