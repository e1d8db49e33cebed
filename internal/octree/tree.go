// Package octree builds the single-node octree that the rest of the FMM
// core organises its boxes around: a Morton-ordered, either uniformly
// subdivided or adaptively refined (and 2:1-balanced) partition of the
// domain, with points permuted into per-leaf contiguous storage.
package octree

import (
	"fmt"
	"sort"

	"github.com/kifmm3d/kifmm/internal/errs"
	"github.com/kifmm3d/kifmm/internal/morton"
)

// Point is an immutable (after tree construction) 3-D point carrying its
// caller-assigned global index and its Morton encoding.
type Point struct {
	Coordinate  [3]float64
	GlobalIndex uint64
	BaseKey     morton.Key // Morton code at MaxLevel, the finest resolution.
	EncodedKey  morton.Key // ancestor of BaseKey at the tree's actual resolution.
}

// Range is a half-open [Lo, Hi) index range into a contiguous array.
type Range struct {
	Lo, Hi int
}

// Len reports the number of elements the range covers.
func (r Range) Len() int { return r.Hi - r.Lo }

// Tree is the result of a uniform or adaptive build: an ordered sequence
// of leaf keys, the set of all ancestor keys, and the point permutation
// that makes per-leaf storage contiguous.
type Tree struct {
	Domain morton.Domain

	Adaptive bool
	NCrit    int
	Depth    uint8

	// Leaves holds every leaf key in Morton order.
	Leaves []morton.Key

	// KeyIndex maps a leaf key to its position in Leaves.
	KeyIndex map[morton.Key]int

	// LevelKeys maps a level to every key (leaf or internal) of the tree
	// at that level, in Morton order.
	LevelKeys map[uint8][]morton.Key

	// Ancestors is the set of every non-leaf key that is an ancestor of
	// some leaf (including the root, when the tree has more than one
	// leaf).
	Ancestors map[morton.Key]bool

	// Points is the permuted point array: points sharing a leaf are
	// contiguous, ordered by LeafRange.
	Points []Point

	// LeafRange maps a leaf's index in Leaves to its half-open range in
	// Points (and, by the same indexing, in the caller's charge array
	// once permuted by internal/charge).
	LeafRange []Range
}

// LeafOf returns the index into Leaves of k, and whether k is a leaf of
// this tree.
func (t *Tree) LeafOf(k morton.Key) (int, bool) {
	i, ok := t.KeyIndex[k]
	return i, ok
}

// IsLeaf reports whether k is one of the tree's leaves.
func (t *Tree) IsLeaf(k morton.Key) bool {
	_, ok := t.KeyIndex[k]
	return ok
}

// IsInternal reports whether k is a non-leaf ancestor present in the tree.
func (t *Tree) IsInternal(k morton.Key) bool {
	return t.Ancestors[k]
}

// CoveringLeaf walks up from k (including k itself) to find the leaf that
// covers k's region, returning false if no ancestor of k is a leaf (i.e.
// k's region is further refined than the tree's own leaves, which cannot
// happen for keys derived from the tree itself).
func (t *Tree) CoveringLeaf(k morton.Key) (morton.Key, bool) {
	cur := k
	for {
		if t.IsLeaf(cur) {
			return cur, true
		}
		if cur.Level() == 0 {
			return morton.Key(0), false
		}
		cur = cur.Parent()
	}
}

// AllKeys returns every key in the tree (leaves and ancestors), sorted by
// key value: Morton order, with each box placed before its descendants.
func (t *Tree) AllKeys() []morton.Key {
	out := make([]morton.Key, 0, len(t.Leaves)+len(t.Ancestors))
	out = append(out, t.Leaves...)
	for k := range t.Ancestors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MaxLevel returns the deepest level present among the tree's leaves.
func (t *Tree) MaxLevel() uint8 {
	var max uint8
	for _, k := range t.Leaves {
		if l := k.Level(); l > max {
			max = l
		}
	}
	return max
}

// validateInput applies the common precondition checks shared by the
// uniform and adaptive builders.
func validateInput(points []Point) error {
	if len(points) == 0 {
		return errs.ErrNoPoints
	}
	return nil
}

func boundingBox(coords [][3]float64) ([3]float64, [3]float64) {
	min := coords[0]
	max := coords[0]
	for _, c := range coords[1:] {
		for i := range c {
			if c[i] < min[i] {
				min[i] = c[i]
			}
			if c[i] > max[i] {
				max[i] = c[i]
			}
		}
	}
	return min, max
}

// NewDomain computes the bounding-box domain for the union of sources and
// targets, as required by spec: "the union of the source and target point
// bounding boxes".
func NewDomain(sources, targets [][3]float64) (morton.Domain, error) {
	if len(sources) == 0 && len(targets) == 0 {
		return morton.Domain{}, errs.ErrNoPoints
	}
	all := make([][3]float64, 0, len(sources)+len(targets))
	all = append(all, sources...)
	all = append(all, targets...)
	min, max := boundingBox(all)
	return morton.NewDomain(min, max), nil
}

// sortPointsByKey sorts points in place by keyOf(point), ascending.
func sortPointsByKey(points []Point, keyOf func(Point) morton.Key) {
	sort.Slice(points, func(i, j int) bool {
		return keyOf(points[i]) < keyOf(points[j])
	})
}

// buildLeafRanges groups already key-sorted points into per-leaf contiguous
// ranges, in Leaves order.
func buildLeafRanges(leaves []morton.Key, points []Point) []Range {
	ranges := make([]Range, len(leaves))
	pos := 0
	for li, leaf := range leaves {
		start := pos
		for pos < len(points) && points[pos].EncodedKey == leaf {
			pos++
		}
		ranges[li] = Range{Lo: start, Hi: pos}
	}
	return ranges
}

func newKeyIndex(leaves []morton.Key) map[morton.Key]int {
	idx := make(map[morton.Key]int, len(leaves))
	for i, k := range leaves {
		idx[k] = i
	}
	return idx
}

func levelKeysOf(keys []morton.Key) map[uint8][]morton.Key {
	m := map[uint8][]morton.Key{}
	for _, k := range keys {
		m[k.Level()] = append(m[k.Level()], k)
	}
	for lvl := range m {
		sort.Slice(m[lvl], func(i, j int) bool { return m[lvl][i] < m[lvl][j] })
	}
	return m
}

func ancestorSet(leaves []morton.Key) map[morton.Key]bool {
	set := map[morton.Key]bool{}
	for _, leaf := range leaves {
		for _, a := range leaf.Ancestors() {
			set[a] = true
		}
	}
	return set
}

func errf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
