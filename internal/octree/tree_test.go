package octree

import (
	"math/rand"
	"testing"

	"github.com/kifmm3d/kifmm/internal/morton"
)

func randomPoints(n int, seed int64) [][3]float64 {
	r := rand.New(rand.NewSource(seed))
	pts := make([][3]float64, n)
	for i := range pts {
		pts[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
	}
	return pts
}

func unitDomain(t *testing.T) morton.Domain {
	t.Helper()
	d, err := NewDomain([][3]float64{{0, 0, 0}}, [][3]float64{{1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestBuildUniformPartitionsDomain(t *testing.T) {
	d := unitDomain(t)
	coords := randomPoints(2000, 1)
	tr, err := Build(d, coords, Config{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	for _, r := range tr.LeafRange {
		total += r.Len()
	}
	if total != len(coords) {
		t.Fatalf("leaf ranges cover %d points, want %d", total, len(coords))
	}

	for _, p := range tr.Points {
		if !tr.IsLeaf(p.EncodedKey) {
			t.Fatalf("point's encoded key %v is not a tree leaf", p.EncodedKey)
		}
	}
}

func TestBuildUniformSparseDropsEmptyLeaves(t *testing.T) {
	d := unitDomain(t)
	coords := randomPoints(50, 2)
	full, err := Build(d, coords, Config{Depth: 4, Sparse: false})
	if err != nil {
		t.Fatal(err)
	}
	sparse, err := Build(d, coords, Config{Depth: 4, Sparse: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(sparse.Leaves) >= len(full.Leaves) {
		t.Fatalf("sparse leaves = %d, want fewer than full leaves = %d", len(sparse.Leaves), len(full.Leaves))
	}
	for _, r := range sparse.LeafRange {
		if r.Len() == 0 {
			t.Fatal("sparse tree retained an empty leaf")
		}
	}
}

func TestBuildAdaptiveRespectsNCrit(t *testing.T) {
	d := unitDomain(t)
	coords := randomPoints(5000, 3)
	ncrit := 50
	tr, err := Build(d, coords, Config{Adaptive: true, NCrit: ncrit})
	if err != nil {
		t.Fatal(err)
	}
	for i, r := range tr.LeafRange {
		if r.Len() > ncrit && tr.Leaves[i].Level() < morton.MaxLevel {
			t.Fatalf("leaf %v holds %d points, exceeds ncrit %d", tr.Leaves[i], r.Len(), ncrit)
		}
	}
}

func TestBuildAdaptiveIs21Balanced(t *testing.T) {
	d := unitDomain(t)
	// Cluster points tightly in one corner to force deep, uneven refinement.
	coords := randomPoints(400, 4)
	for i := range coords[:200] {
		coords[i] = [3]float64{
			coords[i][0] * 0.01,
			coords[i][1] * 0.01,
			coords[i][2] * 0.01,
		}
	}
	tr, err := Build(d, coords, Config{Adaptive: true, NCrit: 10})
	if err != nil {
		t.Fatal(err)
	}

	for _, leaf := range tr.Leaves {
		for _, nb := range leaf.Neighbours() {
			cov, ok := findCoveringAncestorOrSelf(leafSetOf(tr.Leaves), nb)
			if !ok {
				continue
			}
			diff := int(leaf.Level()) - int(cov.Level())
			if diff < 0 {
				diff = -diff
			}
			if diff > 1 {
				t.Fatalf("2:1 balance violated: leaf %v (level %d) neighbour covered by %v (level %d)",
					leaf, leaf.Level(), cov, cov.Level())
			}
		}
	}
}

func TestBuildNoPointsFails(t *testing.T) {
	d := unitDomain(t)
	if _, err := Build(d, nil, Config{Depth: 2}); err == nil {
		t.Fatal("expected error for empty point set")
	}
}

func TestParentOfChildrenInvariant(t *testing.T) {
	for _, k := range enumerateUniformLeaves(3) {
		parent := k.Parent()
		for i, c := range parent.Children() {
			if c.Parent() != parent {
				t.Fatalf("child %d of %v has parent %v, want %v", i, parent, c.Parent(), parent)
			}
		}
	}
}

func leafSetOf(leaves []morton.Key) map[morton.Key]bool {
	set := make(map[morton.Key]bool, len(leaves))
	for _, k := range leaves {
		set[k] = true
	}
	return set
}
