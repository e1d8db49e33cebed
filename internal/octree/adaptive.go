package octree

import (
	"sort"

	"github.com/kifmm3d/kifmm/internal/morton"
)

// BuildAdaptive recursively splits any box holding more than ncrit points
// (starting from the root, down to at most morton.MaxLevel), then
// 2:1-balances the resulting leaf set so that no two adjacent leaves
// differ by more than one level.
//
// Both the initial top-down split and the balance refinement below only
// ever replace a box by its exact set of 8 children, so the partition
// invariant (every point covered by exactly one leaf) holds throughout and
// no separate linearisation pass over the leaf set is required; the
// bottom-up "complete span" construction used by the original's
// distributed blocktree path does not apply to a single-node adaptive
// build and is not reproduced here (see spec.md §9, Open Question 3).
func BuildAdaptive(domain morton.Domain, rawPoints []Point, ncrit int) (*Tree, error) {
	if err := validateInput(rawPoints); err != nil {
		return nil, err
	}
	if ncrit < 1 {
		return nil, errf("ncrit %d must be >= 1", ncrit)
	}

	points := make([]Point, len(rawPoints))
	copy(points, rawPoints)
	sortPointsByKey(points, func(p Point) morton.Key { return p.BaseKey })

	leafSet := splitByCount(points, ncrit)
	leafSet = balance21(leafSet)

	leaves := keysOf(leafSet)
	sortKeysAsc(leaves)

	for i := range points {
		points[i].EncodedKey = coveringLeaf(leafSet, points[i].BaseKey)
	}
	sortPointsByKey(points, func(p Point) morton.Key { return p.EncodedKey })

	ranges := buildLeafRanges(leaves, points)

	t := &Tree{
		Domain:    domain,
		Adaptive:  true,
		NCrit:     ncrit,
		Leaves:    leaves,
		KeyIndex:  newKeyIndex(leaves),
		Ancestors: ancestorSet(leaves),
		Points:    points,
		LeafRange: ranges,
	}
	t.LevelKeys = levelKeysOf(append(append([]morton.Key{}, leaves...), keysOf(t.Ancestors)...))
	t.Depth = t.MaxLevel()
	return t, nil
}

// splitByCount recursively subdivides the root until every resulting box
// holds at most ncrit points, returning the leaf set. points must already
// be sorted by BaseKey.
func splitByCount(points []Point, ncrit int) map[morton.Key]bool {
	leaves := map[morton.Key]bool{}
	var recurse func(lo, hi int, key morton.Key)
	recurse = func(lo, hi int, key morton.Key) {
		if hi-lo <= ncrit || key.Level() >= morton.MaxLevel {
			leaves[key] = true
			return
		}
		childLevel := key.Level() + 1
		pos := lo
		for _, child := range key.Children() {
			start := pos
			for pos < hi && morton.Encode(points[pos].BaseKey.Anchor(), childLevel) == child {
				pos++
			}
			if pos > start {
				recurse(start, pos, child)
			}
		}
	}
	recurse(0, len(points), morton.Root)
	return leaves
}

// balance21 repeatedly splits any leaf whose same-level neighbour is
// covered by a leaf more than one level coarser, until no such violation
// remains.
func balance21(leaves map[morton.Key]bool) map[morton.Key]bool {
	set := map[morton.Key]bool{}
	for k := range leaves {
		set[k] = true
	}

	for {
		toSplit := map[morton.Key]bool{}
		for leaf := range set {
			level := leaf.Level()
			if level == 0 {
				continue
			}
			for _, nb := range leaf.Neighbours() {
				cov, ok := findCoveringAncestorOrSelf(set, nb)
				if !ok {
					continue
				}
				if int(level)-int(cov.Level()) > 1 {
					toSplit[cov] = true
				}
			}
		}
		if len(toSplit) == 0 {
			return set
		}
		for k := range toSplit {
			delete(set, k)
			for _, c := range k.Children() {
				set[c] = true
			}
		}
	}
}

// findCoveringAncestorOrSelf walks up from k looking for the leaf (in set)
// that covers k's region. It reports false when k's region is instead
// covered by finer descendant leaves (already refined at least as much as
// k), which needs no action from the caller.
func findCoveringAncestorOrSelf(set map[morton.Key]bool, k morton.Key) (morton.Key, bool) {
	cur := k
	for {
		if set[cur] {
			return cur, true
		}
		if cur.Level() == 0 {
			return morton.Key(0), false
		}
		cur = cur.Parent()
	}
}

// coveringLeaf returns the leaf in set that contains k (k itself or one of
// its ancestors); it panics if the leaf set does not actually partition
// the domain, which indicates a bug in tree construction.
func coveringLeaf(set map[morton.Key]bool, k morton.Key) morton.Key {
	cur := k
	for {
		if set[cur] {
			return cur
		}
		if cur.Level() == 0 {
			panic("octree: point's base key has no covering leaf")
		}
		cur = cur.Parent()
	}
}

func sortKeysAsc(keys []morton.Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
}
