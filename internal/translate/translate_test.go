package translate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/octree"
)

func smallTree(t *testing.T, n int) (*octree.Tree, [][3]float64) {
	t.Helper()
	r := rand.New(rand.NewSource(3))
	coords := make([][3]float64, n)
	for i := range coords {
		coords[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
	}
	d, err := octree.NewDomain(coords, coords)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := octree.Build(d, coords, octree.Config{Depth: 2})
	if err != nil {
		t.Fatal(err)
	}
	return tr, coords
}

func TestP2PMatchesDirectWhenEveryLeafIsInEveryOtherUList(t *testing.T) {
	// At depth 0 there is exactly one leaf, whose U-list is itself: P2P
	// alone must then reproduce the full direct sum.
	r := rand.New(rand.NewSource(9))
	coords := make([][3]float64, 12)
	for i := range coords {
		coords[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
	}
	d, err := octree.NewDomain(coords, coords)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := octree.Build(d, coords, octree.Config{Depth: 0})
	if err != nil {
		t.Fatal(err)
	}

	charges := make([]float64, len(coords))
	for i := range charges {
		charges[i] = 1.0
	}
	targetPoints, targetRanges := tr.AssignPoints(coords)

	p := Params{P: 4, AlphaInner: 1.05, AlphaOuter: 2.95, EvalType: kernel.Value}
	out := make([]float64, len(coords))
	if err := P2P(kernel.Laplace{}, tr, charges, targetPoints, targetRanges, p, out); err != nil {
		t.Fatal(err)
	}

	want := make([]float64, len(coords))
	targetCoords := make([][3]float64, len(targetPoints))
	for i, tp := range targetPoints {
		targetCoords[i] = tp.Coordinate
	}
	sourceCoords := make([][3]float64, len(tr.Points))
	sourceCharges := make([]float64, len(tr.Points))
	for i, p := range tr.Points {
		sourceCoords[i] = p.Coordinate
		sourceCharges[i] = charges[p.GlobalIndex]
	}
	kernel.Laplace{}.Evaluate(kernel.Value, sourceCoords, targetCoords, sourceCharges, want)

	for i := range want {
		if diff := math.Abs(out[i] - want[i]); diff > 1e-12 {
			t.Fatalf("target %d: P2P = %v, direct = %v", i, out[i], want[i])
		}
	}
}
