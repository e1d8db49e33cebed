package octree

import (
	"github.com/kifmm3d/kifmm/internal/morton"
)

// Config collects the octree construction parameters from spec.md's
// Builder interface (ncrit, sparse, depth, adaptive).
type Config struct {
	Adaptive bool
	NCrit    int
	Depth    uint8 // used only when !Adaptive
	Sparse   bool  // used only when !Adaptive
}

// Build assigns global indices and Morton keys to coords and constructs a
// uniform or adaptive Tree per cfg.
func Build(domain morton.Domain, coords [][3]float64, cfg Config) (*Tree, error) {
	points := make([]Point, len(coords))
	for i, c := range coords {
		base := morton.Encode(domain.EncodeAnchor(c), morton.MaxLevel)
		points[i] = Point{
			Coordinate:  c,
			GlobalIndex: uint64(i),
			BaseKey:     base,
		}
	}

	if cfg.Adaptive {
		return BuildAdaptive(domain, points, cfg.NCrit)
	}
	return BuildUniform(domain, points, cfg.Depth, cfg.Sparse)
}
