package state

import (
	"math/rand"
	"testing"

	"github.com/kifmm3d/kifmm/internal/octree"
)

func buildTestTree(t *testing.T, n int) *octree.Tree {
	t.Helper()
	d, err := octree.NewDomain([][3]float64{{0, 0, 0}}, [][3]float64{{1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(5))
	coords := make([][3]float64, n)
	for i := range coords {
		coords[i] = [3]float64{r.Float64(), r.Float64(), r.Float64()}
	}
	tr, err := octree.Build(d, coords, octree.Config{Depth: 3})
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func TestStateBuffersZeroInitialised(t *testing.T) {
	tr := buildTestTree(t, 100)
	s := New(tr, 6, 1, len(tr.Points))
	for _, k := range tr.Leaves {
		for _, v := range s.Multipole(k) {
			if v != 0 {
				t.Fatalf("multipole not zero-initialised")
			}
		}
	}
}

func TestStateMultipoleIsAMutableView(t *testing.T) {
	tr := buildTestTree(t, 80)
	s := New(tr, 4, 1, len(tr.Points))
	leaf := tr.Leaves[0]
	m := s.Multipole(leaf)
	m[0] = 42
	again := s.Multipole(leaf)
	if again[0] != 42 {
		t.Fatalf("Multipole did not return a shared view: got %v, want 42", again[0])
	}
}

func TestStateResetClearsBuffers(t *testing.T) {
	tr := buildTestTree(t, 80)
	s := New(tr, 4, 1, len(tr.Points))
	s.Multipole(tr.Leaves[0])[0] = 7
	s.Reset()
	if v := s.Multipole(tr.Leaves[0])[0]; v != 0 {
		t.Fatalf("Reset did not clear multipole buffer, got %v", v)
	}
}

func TestMatrixStateColumnsIndependent(t *testing.T) {
	tr := buildTestTree(t, 80)
	s := NewMatrix(tr, 4, 1, len(tr.Points), 3)
	leaf := tr.Leaves[0]
	m := s.Multipole(leaf)
	if len(m) != 4*3 {
		t.Fatalf("len(Multipole) = %d, want %d", len(m), 12)
	}
	m[0] = 1
	m[1] = 2
	again := s.Multipole(leaf)
	if again[0] != 1 || again[1] != 2 {
		t.Fatalf("matrix multipole slot not a shared mutable view")
	}
}
