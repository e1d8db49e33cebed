package ilist

import (
	"math/rand"
	"testing"

	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
)

func buildTestTree(t *testing.T, n int, depth uint8) *octree.Tree {
	t.Helper()
	d, err := octree.NewDomain([][3]float64{{0, 0, 0}}, [][3]float64{{1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(7))
	coords := make([][3]float64, n)
	for i := range coords {
		coords[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
	}
	tr, err := octree.Build(d, coords, octree.Config{Depth: depth})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestVListCardinalityBound(t *testing.T) {
	for level := uint8(2); level < 5; level++ {
		step := uint32(1) << (morton.MaxLevel - level)
		mid := uint32(1<<level/2) * step
		k := morton.Encode(morton.Anchor{mid, mid, mid}, level)
		v := V(k)
		if len(v) > 189 {
			t.Fatalf("level %d: |V| = %d, want <= 189", level, len(v))
		}
	}
}

func TestVListEmptyBelowLevel2(t *testing.T) {
	if v := V(morton.Root); v != nil {
		t.Fatalf("V(root) = %v, want empty", v)
	}
	child := morton.Root.Children()[0]
	if v := V(child); v != nil {
		t.Fatalf("V(level-1 key) = %v, want empty", v)
	}
}

func TestVListDisjointFromU(t *testing.T) {
	tr := buildTestTree(t, 3000, 4)
	for _, leaf := range tr.Leaves {
		if leaf.Level() < 2 {
			continue
		}
		uSet := keySet(U(tr, leaf))
		vSet := keySet(V(leaf))
		for k := range vSet {
			if uSet[k] {
				t.Fatalf("leaf %v: key %v present in both U and V", leaf, k)
			}
		}
	}
}

func TestUListContainsSelf(t *testing.T) {
	tr := buildTestTree(t, 2000, 3)
	for _, leaf := range tr.Leaves {
		found := false
		for _, k := range U(tr, leaf) {
			if k == leaf {
				found = true
			}
		}
		if !found {
			t.Fatalf("U(%v) does not contain itself", leaf)
		}
	}
}

func TestWAndXAreInverses(t *testing.T) {
	tr := buildTestTree(t, 4000, 4)
	for _, ell := range tr.Leaves {
		for _, s := range X(tr, ell) {
			found := false
			for _, w := range W(tr, s) {
				if w == ell {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("X(%v) contains %v, but W(%v) does not contain %v", ell, s, s, ell)
			}
		}
	}
}

func TestUAdjacentOrSelf(t *testing.T) {
	tr := buildTestTree(t, 2000, 3)
	for _, leaf := range tr.Leaves {
		for _, k := range U(tr, leaf) {
			if k == leaf {
				continue
			}
			if !morton.IsAdjacent(leaf, k) {
				t.Fatalf("U(%v) contains non-adjacent, non-self key %v", leaf, k)
			}
		}
	}
}

func keySet(keys []morton.Key) map[morton.Key]bool {
	s := make(map[morton.Key]bool, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}
