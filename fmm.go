// Package kifmm implements a single-node kernel-independent fast
// multipole method evaluator: given source points with charges and a
// (possibly distinct) set of target points, it computes the potential
// (and optionally its gradient) that every source induces at every
// target in O(N) time via an octree of equivalent/check surfaces and
// compressed M2L field translations.
//
// Build once per point cloud, then call Evaluate (or EvaluateMatrix for
// several charge vectors against the same geometry) as many times as
// needed; Evaluate itself never fails, matching spec.md §7's "evaluation
// is infallible once construction succeeds".
package kifmm

import (
	"fmt"
	"time"

	"github.com/kifmm3d/kifmm/internal/charge"
	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/kernel"
	m2llib "github.com/kifmm3d/kifmm/internal/m2l"
	"github.com/kifmm3d/kifmm/internal/morton"
	"github.com/kifmm3d/kifmm/internal/octree"
	"github.com/kifmm3d/kifmm/internal/operator"
	"github.com/kifmm3d/kifmm/internal/state"
	"github.com/kifmm3d/kifmm/internal/translate"
	"github.com/kifmm3d/kifmm/internal/xlog"
)

// Fmm is a built evaluator: one octree partition, one precomputed
// operator set, one compiled M2L library, and the target binning that
// goes with it. Build it once and reuse it across Evaluate calls with
// different charge vectors.
type Fmm struct {
	cfg    Config
	domain morton.Domain
	kernel kernel.Kernel

	tree       *octree.Tree
	ops        *operator.Set
	lib        m2llib.Library
	chargeDict *charge.Dictionary

	targetPoints []octree.Point
	targetRanges []octree.Range
	targetCount  int

	log *xlog.Logger
}

// TimeDict maps an evaluation-driver phase name to how long it took,
// spec.md §4.H's per-operator timing output, surfaced when a caller
// wants it (e.g. cmd/kifmmctl's --time flag).
type TimeDict map[string]time.Duration

// Build partitions sources and targets into one octree, precomputes the
// operator set and M2L library for k, and bins targets against the
// resulting tree. k is the only required external collaborator (spec.md
// §6): the core never depends on a concrete kernel implementation.
func Build(sources, targets [][3]float64, k kernel.Kernel, opts ...Option) (*Fmm, error) {
	cfg := NewConfig(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("sources: %w", errs.ErrNoPoints)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("targets: %w", errs.ErrNoPoints)
	}

	domain, err := octree.NewDomain(sources, targets)
	if err != nil {
		return nil, err
	}

	tree, err := octree.Build(domain, sources, octree.Config{
		Adaptive: cfg.Adaptive,
		NCrit:    cfg.NCrit,
		Depth:    cfg.Depth,
		Sparse:   cfg.Sparse,
	})
	if err != nil {
		return nil, err
	}

	if !k.Homogeneous() && cfg.Variant == SVD {
		return nil, fmt.Errorf("SVD M2L variant requires a homogeneous kernel: %w", errs.ErrUnsupported)
	}

	ops, err := operator.Precompute(domain, k, cfg.ExpansionOrder, cfg.AlphaInner, cfg.AlphaOuter)
	if err != nil {
		return nil, err
	}

	lib, err := buildLibrary(cfg, domain, k, ops.Surfaces)
	if err != nil {
		return nil, err
	}

	targetPoints, targetRanges := tree.AssignPoints(targets)

	return &Fmm{
		cfg:          cfg,
		domain:       domain,
		kernel:       k,
		tree:         tree,
		ops:          ops,
		lib:          lib,
		chargeDict:   charge.NewDictionary(tree),
		targetPoints: targetPoints,
		targetRanges: targetRanges,
		targetCount:  len(targets),
		log:          xlog.New("kifmm"),
	}, nil
}

func buildLibrary(cfg Config, domain morton.Domain, k kernel.Kernel, surf operator.Surfaces) (m2llib.Library, error) {
	switch cfg.Variant {
	case FFT:
		return m2llib.NewFFTLibrary(domain, k, surf, cfg.ExpansionOrder)
	default:
		rank := cfg.SVDRank
		if rank == 0 {
			rank = len(surf.UpwardEquiv)
		}
		return m2llib.NewSVDLibrary(domain, k, surf, rank)
	}
}

// params returns the translate.Params this build's operators share,
// width columns wide.
func (f *Fmm) params(width int) translate.Params {
	return translate.Params{
		P:          f.cfg.ExpansionOrder,
		AlphaInner: f.cfg.AlphaInner,
		AlphaOuter: f.cfg.AlphaOuter,
		EvalType:   f.cfg.EvalType,
		Width:      width,
	}
}

// NCoeffs reports the number of multipole/local coefficients per box.
func (f *Fmm) NCoeffs() int { return f.ops.NCoeffs() }

// TargetCount reports how many targets this build was evaluated against.
func (f *Fmm) TargetCount() int { return f.targetCount }

// Evaluate runs the full two-pass schedule for a single charge vector
// (len(sources)-long, keyed by global source index exactly as Build's
// sources were given — the caller never needs to know the tree's
// internal Morton permutation) and writes the potential (and, for
// kernel.ValueDeriv, gradient) of every target into out (len(targets) *
// EvalType.Size()-long, in the order Build's targets were given).
func (f *Fmm) Evaluate(charges []float64, out []float64) (TimeDict, error) {
	st := state.New(f.tree, f.ops.NCoeffs(), f.cfg.EvalType.Size(), f.targetCount)
	permuted := f.chargeDict.Permute(charges)
	return f.runSchedule(st, permuted, out, 1)
}

// EvaluateMatrix runs the same schedule over nrhs charge vectors at
// once (charges is flat, keyed by global source index and nrhs columns
// wide), sharing every operator-matrix application across all columns
// (spec.md §4.F's MatrixState / §9 Open Question 1: one parameterised
// schedule drives both the vector and matrix variants). out is flat,
// target-major, EvalType.Size()*nrhs wide per target.
func (f *Fmm) EvaluateMatrix(charges []float64, nrhs int, out []float64) (TimeDict, error) {
	st := state.NewMatrix(f.tree, f.ops.NCoeffs(), f.cfg.EvalType.Size(), f.targetCount, nrhs)
	permuted := f.chargeDict.PermuteColumns(charges, nrhs)
	return f.runSchedule(st, permuted, out, nrhs)
}

// runSchedule drives P2M -> M2M -> {L2L, P2L, M2L per level} -> M2P ->
// P2P -> L2P against st, exactly spec.md §4.H's schedule, regardless of
// whether st is a state.State (width==1) or a state.MatrixState
// (width==nrhs).
func (f *Fmm) runSchedule(st translate.Coeffs, charges []float64, out []float64, width int) (TimeDict, error) {
	p := f.params(width)
	timings := TimeDict{}
	step := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		d := time.Since(start)
		timings[name] += d
		f.log.Phase(name, d)
		return err
	}

	if err := step("p2m", func() error {
		return translate.P2M(f.domain, f.kernel, f.ops, f.tree, st, charges, p)
	}); err != nil {
		return nil, err
	}
	if err := step("m2m", func() error {
		return translate.M2M(f.ops, f.tree, st, width)
	}); err != nil {
		return nil, err
	}

	// Per level, ascending: L2L -> P2L -> M2L, exactly as scheduled.
	// These three must interleave level-by-level (not run as three
	// separate full sweeps): L2L(L+1) reads parent-level locals that
	// must already carry that level's own P2L/M2L contributions.
	top := f.tree.MaxLevel()
	for level := uint8(2); level <= top; level++ {
		level := level
		if level > 2 {
			if err := step("l2l", func() error {
				return translate.L2L(f.ops, f.tree, st, width, level)
			}); err != nil {
				return nil, err
			}
		}
		if f.cfg.Adaptive {
			if err := step("p2l", func() error {
				return translate.P2L(f.domain, f.kernel, f.ops, f.tree, charges, st, p, level)
			}); err != nil {
				return nil, err
			}
		}
		if err := step("m2l", func() error {
			return translate.M2L(f.domain, f.kernel, f.ops, f.lib, f.tree, st, width, level)
		}); err != nil {
			return nil, err
		}
	}

	// The leaf operators write targets in tree order (f.targetPoints);
	// the result is scattered back to the caller's target order below.
	treeOut := make([]float64, len(out))
	if f.cfg.Adaptive {
		if err := step("m2p", func() error {
			return translate.M2P(f.domain, f.kernel, f.tree, f.targetPoints, f.targetRanges, st, p, treeOut)
		}); err != nil {
			return nil, err
		}
	}
	if err := step("p2p", func() error {
		return translate.P2P(f.kernel, f.tree, charges, f.targetPoints, f.targetRanges, p, treeOut)
	}); err != nil {
		return nil, err
	}
	if err := step("l2p", func() error {
		return translate.L2P(f.domain, f.kernel, f.tree, f.targetPoints, f.targetRanges, st, p, treeOut)
	}); err != nil {
		return nil, err
	}
	w := f.cfg.EvalType.Size() * width
	for i, tp := range f.targetPoints {
		g := int(tp.GlobalIndex)
		for j := 0; j < w; j++ {
			out[g*w+j] += treeOut[i*w+j]
		}
	}
	return timings, nil
}
