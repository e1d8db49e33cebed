// Package goldendata provides reproducible random point clouds and their
// direct-sum reference potentials, the fixture tests need to check a
// fast evaluator's tolerance against brute force without depending on
// any particular build's octree or kernel internals.
package goldendata

import (
	"math/rand"

	"github.com/kifmm3d/kifmm/internal/kernel"
)

// Cloud is a point cloud with one charge per point. Uniform and
// TwoClusters fill it reproducibly, with charges in [-1, 1].
type Cloud struct {
	Points  [][3]float64
	Charges []float64
}

// Uniform generates n points uniformly distributed in the unit cube,
// seeded deterministically so repeated test runs see the same cloud.
func Uniform(n int, seed int64) Cloud {
	r := rand.New(rand.NewSource(seed))
	c := Cloud{Points: make([][3]float64, n), Charges: make([]float64, n)}
	for i := 0; i < n; i++ {
		c.Points[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
		c.Charges[i] = 2*r.Float64() - 1
	}
	return c
}

// TwoClusters generates n points split between two well-separated unit
// cubes, exercising builds where the interaction lists actually see both
// near- and far-field boxes (a single dense cluster can leave the V-list
// trivially empty at coarse depths).
func TwoClusters(n int, seed int64) Cloud {
	r := rand.New(rand.NewSource(seed))
	c := Cloud{Points: make([][3]float64, n), Charges: make([]float64, n)}
	for i := 0; i < n; i++ {
		offset := 0.0
		if i%2 == 1 {
			offset = 10.0
		}
		c.Points[i] = [3]float64{offset + r.Float64(), r.Float64(), r.Float64()}
		c.Charges[i] = 2*r.Float64() - 1
	}
	return c
}

// DirectSum evaluates k's potential (and optionally gradient) at every
// point in targets due to every (source, charge) pair, single-threaded,
// the tolerance baseline every fast evaluator is checked against.
func DirectSum(k kernel.Kernel, evalType kernel.EvalType, sources [][3]float64, charges []float64, targets [][3]float64) []float64 {
	out := make([]float64, len(targets)*evalType.Size())
	k.Evaluate(evalType, sources, targets, charges, out)
	return out
}
