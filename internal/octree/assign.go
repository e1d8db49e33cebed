package octree

import "github.com/kifmm3d/kifmm/internal/morton"

// AssignPoints bins an independent point set (e.g. evaluation targets)
// into tree's existing leaf structure, without altering the tree: each
// coordinate is encoded at MaxLevel resolution within tree's own domain
// and walked up to whichever leaf of tree covers it. It returns the
// points permuted into per-leaf contiguous order and the matching
// per-leaf ranges, indexed exactly like tree.Leaves/tree.LeafRange.
//
// Used to let sources and targets share one octree partition (built from
// the sources, or from their combined bounding box) while keeping
// independent per-leaf index ranges for each side, per spec.md §6's
// build(sources, targets, ...) contract.
func (t *Tree) AssignPoints(coords [][3]float64) ([]Point, []Range) {
	points := make([]Point, len(coords))
	for i, c := range coords {
		base := morton.Encode(t.Domain.EncodeAnchor(c), morton.MaxLevel)
		leaf, ok := t.CoveringLeaf(base)
		if !ok {
			// A point outside every leaf's region (domain padding in
			// morton.NewDomain keeps this from happening for points that
			// informed the domain, but a caller-supplied target set may
			// still fall marginally outside): fall back to the root, whose
			// Ancestors/Leaves always include a covering box.
			leaf = morton.Root
		}
		points[i] = Point{Coordinate: c, GlobalIndex: uint64(i), BaseKey: base, EncodedKey: leaf}
	}
	sortPointsByKey(points, func(p Point) morton.Key { return p.EncodedKey })
	ranges := buildLeafRanges(t.Leaves, points)
	return points, ranges
}
