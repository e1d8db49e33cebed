package kifmm

import (
	"fmt"

	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/kernel"
	"github.com/kifmm3d/kifmm/internal/morton"
)

// M2LVariant selects which of the two field-translation libraries a
// build compiles: SVD-compressed or FFT-convolved. Both implement
// internal/m2l.Library and are interchangeable from the driver's
// perspective.
type M2LVariant int

const (
	// SVD selects the compressed-basis M2L library (internal/m2l.SVDLibrary).
	SVD M2LVariant = iota
	// FFT selects the convolution-based M2L library (internal/m2l.FFTLibrary).
	FFT
)

// Config collects every builder option spec.md §6's build contract names:
// ncrit/sparse/depth/adaptive (octree shape), expansion_order and the two
// surface radii, the requested evaluation type, and which M2L variant to
// compile. The zero Config is not valid; use Build's defaults via
// NewConfig plus functional Options, the idiom the pack reaches for when
// a constructor has more than a couple of optional knobs.
type Config struct {
	Adaptive bool
	NCrit    int
	Depth    uint8
	Sparse   bool

	ExpansionOrder int
	AlphaInner     float64
	AlphaOuter     float64

	EvalType kernel.EvalType
	Variant  M2LVariant
	SVDRank  int // only consulted when Variant == SVD; 0 means "full rank"
}

// Option mutates a Config being built up by NewConfig.
type Option func(*Config)

// NewConfig returns the pack's defaults (order 6, an adaptive build with
// ncrit 150, alpha_inner 1.05, alpha_outer 2.95, SVD M2L) with every opt
// applied in order.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Adaptive:       true,
		NCrit:          150,
		AlphaInner:     1.05,
		AlphaOuter:     2.95,
		ExpansionOrder: 6,
		EvalType:       kernel.Value,
		Variant:        SVD,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithNCrit sets the adaptive-build leaf capacity.
func WithNCrit(n int) Option { return func(c *Config) { c.NCrit = n } }

// WithDepth switches to a uniform build at the given depth.
func WithDepth(depth uint8) Option {
	return func(c *Config) {
		c.Adaptive = false
		c.Depth = depth
	}
}

// WithSparse toggles pruning of empty boxes in a uniform build.
func WithSparse(sparse bool) Option { return func(c *Config) { c.Sparse = sparse } }

// WithOrder sets the expansion order (number of points per surface edge).
func WithOrder(p int) Option { return func(c *Config) { c.ExpansionOrder = p } }

// WithAlphas sets the inner/outer equivalent-to-check surface radii.
func WithAlphas(inner, outer float64) Option {
	return func(c *Config) { c.AlphaInner = inner; c.AlphaOuter = outer }
}

// WithEvalType requests potential-only or potential-plus-gradient output.
func WithEvalType(e kernel.EvalType) Option { return func(c *Config) { c.EvalType = e } }

// WithSVD selects the SVD M2L library, optionally truncated to rank.
func WithSVD(rank int) Option {
	return func(c *Config) { c.Variant = SVD; c.SVDRank = rank }
}

// WithFFT selects the FFT M2L library.
func WithFFT() Option { return func(c *Config) { c.Variant = FFT } }

// validate reports errs.ErrInvalidConfig for any parameter combination the
// builder cannot act on, wrapped with the offending field.
func (c Config) validate() error {
	if c.ExpansionOrder < 2 {
		return fmt.Errorf("expansion order %d: %w", c.ExpansionOrder, errs.ErrInvalidConfig)
	}
	if !c.Adaptive && c.Depth > morton.MaxLevel {
		return fmt.Errorf("depth %d exceeds max level %d: %w", c.Depth, morton.MaxLevel, errs.ErrInvalidConfig)
	}
	if c.AlphaInner <= 0 || c.AlphaOuter <= 0 {
		return fmt.Errorf("alpha_inner=%v alpha_outer=%v: %w", c.AlphaInner, c.AlphaOuter, errs.ErrInvalidConfig)
	}
	if c.Adaptive && c.NCrit <= 0 {
		return fmt.Errorf("adaptive build needs ncrit > 0: %w", errs.ErrInvalidConfig)
	}
	return nil
}
