package kernel

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLaplaceAssembleMatchesEvaluate(t *testing.T) {
	sources := [][3]float64{{0, 0, 0}, {1, 0, 0}, {0, 1, 0.5}}
	targets := [][3]float64{{3, 3, 3}, {-2, 1, 0}}
	charges := []float64{1.0, -2.0, 0.5}

	want := make([]float64, len(targets))
	Laplace{}.Evaluate(Value, sources, targets, charges, want)

	m := mat.NewDense(len(targets), len(sources), nil)
	Laplace{}.Assemble(Value, sources, targets, m)

	got := make([]float64, len(targets))
	for ti := range targets {
		var v float64
		for si := range sources {
			v += m.At(ti, si) * charges[si]
		}
		got[ti] = v
	}

	for i := range want {
		if diff := math.Abs(got[i] - want[i]); diff > 1e-12 {
			t.Fatalf("target %d: assembled matrix gives %v, Evaluate gives %v", i, got[i], want[i])
		}
	}
}

func TestLaplaceValueDerivSize(t *testing.T) {
	sources := [][3]float64{{0, 0, 0}}
	targets := [][3]float64{{1, 0, 0}}
	out := make([]float64, len(targets)*ValueDeriv.Size())
	Laplace{}.Evaluate(ValueDeriv, sources, targets, []float64{1}, out)
	if out[0] <= 0 {
		t.Fatalf("expected positive potential, got %v", out[0])
	}
	// Gradient of 1/(4*pi*r) along +x from a unit charge at the origin
	// points in -x (potential decreases away from the source).
	if out[1] >= 0 {
		t.Fatalf("expected negative x-gradient component, got %v", out[1])
	}
}

func TestLaplaceScaleHomogeneity(t *testing.T) {
	l := Laplace{}
	if !l.Homogeneous() {
		t.Fatal("Laplace must report Homogeneous() == true")
	}
	if got := l.Scale(0); got != 1 {
		t.Fatalf("Scale(0) = %v, want 1", got)
	}
	if got := l.Scale(3); math.Abs(got-1.0/8.0) > 1e-15 {
		t.Fatalf("Scale(3) = %v, want 0.125", got)
	}
}

func TestLaplaceSelfInteractionSkipped(t *testing.T) {
	sources := [][3]float64{{0, 0, 0}}
	targets := [][3]float64{{0, 0, 0}}
	out := make([]float64, 1)
	Laplace{}.Evaluate(Value, sources, targets, []float64{1}, out)
	if out[0] != 0 {
		t.Fatalf("coincident source/target must not diverge, got %v", out[0])
	}
}
