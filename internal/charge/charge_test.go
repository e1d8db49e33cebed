package charge

import (
	"math/rand"
	"testing"

	"github.com/kifmm3d/kifmm/internal/octree"
)

func buildTree(t *testing.T, n int) *octree.Tree {
	t.Helper()
	d, err := octree.NewDomain([][3]float64{{0, 0, 0}}, [][3]float64{{1, 1, 1}})
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(11))
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

func TestPermuteRoundTrip(t *testing.T) {
	tr := buildTree(t, 200)
	dict := NewDictionary(tr)

	charges := make([]float64, len(tr.Points))
	for i := range charges {
		charges[i] = float64(i) * 1.5
	}

	permuted := dict.Permute(charges)
	for i, g := range dict.permutation {
		if permuted[i] != charges[g] {
			t.Fatalf("permuted[%d] = %v, want charges[%d] = %v", i, permuted[i], g, charges[g])
		}
	}

	back := Unpermute(dict.permutation, permuted, 1)
	for i := range charges {
		if back[i] != charges[i] {
			t.Fatalf("round trip mismatch at %d: got %v, want %v", i, back[i], charges[i])
		}
	}
}

func TestPermuteColumnsMatchesScalarPermute(t *testing.T) {
	tr := buildTree(t, 150)
	dict := NewDictionary(tr)

	const nrhs = 3
	charges := make([]float64, len(tr.Points)*nrhs)
	for i := range charges {
		charges[i] = float64(i)
	}

	cols := dict.PermuteColumns(charges, nrhs)
	for i, g := range dict.permutation {
		for c := 0; c < nrhs; c++ {
			want := charges[int(g)*nrhs+c]
			if got := cols[i*nrhs+c]; got != want {
				t.Fatalf("cols[%d][%d] = %v, want %v", i, c, got, want)
			}
		}
	}
}
