package morton

import "testing"

func TestParentChildRoundTrip(t *testing.T) {
	root := Root
	children := root.Children()
	for i, c := range children {
		if c.Level() != 1 {
			t.Fatalf("child %d level = %d, want 1", i, c.Level())
		}
		if got := c.Parent(); got != root {
			t.Fatalf("child %d parent = %v, want root %v", i, got, root)
		}
		if got := c.SiblingIndex(); got != i {
			t.Fatalf("child %d sibling index = %d, want %d", i, got, i)
		}
	}
}

func TestChildrenAreDistinct(t *testing.T) {
	seen := map[Key]bool{}
	for _, c := range Root.Children() {
		if seen[c] {
			t.Fatalf("duplicate child key %v", c)
		}
		seen[c] = true
	}
}

func TestGrandchildAncestry(t *testing.T) {
	child := Root.Children()[5]
	grandchild := child.Children()[2]
	if got := grandchild.Parent(); got != child {
		t.Fatalf("grandchild parent = %v, want %v", got, child)
	}
	ancestors := grandchild.Ancestors()
	if len(ancestors) != 2 {
		t.Fatalf("len(ancestors) = %d, want 2", len(ancestors))
	}
	if ancestors[0] != Root || ancestors[1] != child {
		t.Fatalf("ancestors = %v, want [root, child]", ancestors)
	}
}

func TestNeighboursExcludeSelf(t *testing.T) {
	level := uint8(3)
	k := Encode(Anchor{3 << (MaxLevel - 3), 3 << (MaxLevel - 3), 3 << (MaxLevel - 3)}, level)
	for _, n := range k.Neighbours() {
		if n == k {
			t.Fatal("neighbour set contains self")
		}
		if !IsAdjacent(k, n) {
			t.Fatalf("neighbour %v not adjacent to %v", n, k)
		}
	}
}

func TestIsAdjacentSymmetric(t *testing.T) {
	level := uint8(4)
	a := Encode(Anchor{5 << (MaxLevel - 4), 5 << (MaxLevel - 4), 5 << (MaxLevel - 4)}, level)
	for _, b := range a.Neighbours() {
		if IsAdjacent(a, b) != IsAdjacent(b, a) {
			t.Fatalf("adjacency not symmetric for %v, %v", a, b)
		}
	}
}

func TestFinestAncestorIsCommon(t *testing.T) {
	c := Root.Children()[0]
	gc1 := c.Children()[1]
	gc2 := c.Children()[6]
	fa := FinestAncestor(gc1, gc2)
	if fa != c {
		t.Fatalf("finest ancestor = %v, want %v", fa, c)
	}
}

func TestFindTransferVectorZeroForSelf(t *testing.T) {
	k := Encode(Anchor{1 << (MaxLevel - 2), 1 << (MaxLevel - 2), 1 << (MaxLevel - 2)}, 2)
	v := FindTransferVector(k, k)
	if v != (TransferVector{}) {
		t.Fatalf("transfer vector to self = %+v, want zero", v)
	}
}

func TestComputeSurfaceCardinality(t *testing.T) {
	d := NewDomain([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	for _, p := range []int{2, 3, 5, 6} {
		surf, err := ComputeSurface(d, Root, p, 1.05)
		if err != nil {
			t.Fatalf("order %d: %v", p, err)
		}
		want := p*p*p - (p-2)*(p-2)*(p-2)
		if len(surf) != want {
			t.Fatalf("order %d: len(surf) = %d, want %d", p, len(surf), want)
		}
	}
}

func TestComputeSurfaceInvalidOrder(t *testing.T) {
	d := NewDomain([3]float64{0, 0, 0}, [3]float64{1, 1, 1})
	if _, err := ComputeSurface(d, Root, 1, 1.05); err == nil {
		t.Fatal("expected error for order < 2")
	}
}
