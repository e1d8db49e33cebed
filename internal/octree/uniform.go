package octree

import (
	"github.com/kifmm3d/kifmm/internal/morton"
)

// BuildUniform enumerates all boxes at a fixed depth and assigns every
// point to its containing leaf. When sparse is true, leaves containing no
// points are dropped from the result.
func BuildUniform(domain morton.Domain, rawPoints []Point, depth uint8, sparse bool) (*Tree, error) {
	if err := validateInput(rawPoints); err != nil {
		return nil, err
	}
	if depth > morton.MaxLevel {
		return nil, errf("depth %d exceeds max level %d", depth, morton.MaxLevel)
	}

	points := make([]Point, len(rawPoints))
	copy(points, rawPoints)
	for i := range points {
		points[i].EncodedKey = morton.Encode(points[i].BaseKey.Anchor(), depth)
	}
	sortPointsByKey(points, func(p Point) morton.Key { return p.EncodedKey })

	minKey, maxKey := points[0].EncodedKey, points[len(points)-1].EncodedKey

	all := enumerateUniformLeaves(depth)
	leaves := make([]morton.Key, 0, len(all))
	for _, k := range all {
		if k < minKey || k > maxKey {
			continue
		}
		leaves = append(leaves, k)
	}

	if sparse {
		present := make(map[morton.Key]bool, len(points))
		for _, p := range points {
			present[p.EncodedKey] = true
		}
		filtered := leaves[:0:0]
		for _, k := range leaves {
			if present[k] {
				filtered = append(filtered, k)
			}
		}
		leaves = filtered
	}

	ranges := buildLeafRanges(leaves, points)

	t := &Tree{
		Domain:    domain,
		Adaptive:  false,
		Depth:     depth,
		Leaves:    leaves,
		KeyIndex:  newKeyIndex(leaves),
		Ancestors: ancestorSet(leaves),
		Points:    points,
		LeafRange: ranges,
	}
	t.LevelKeys = levelKeysOf(append(append([]morton.Key{}, leaves...), keysOf(t.Ancestors)...))
	return t, nil
}

// enumerateUniformLeaves returns all 8^depth leaves at the given depth, in
// Morton order, by walking the complete octree breadth-first from the
// root.
func enumerateUniformLeaves(depth uint8) []morton.Key {
	leaves := []morton.Key{morton.Root}
	for lvl := uint8(0); lvl < depth; lvl++ {
		next := make([]morton.Key, 0, len(leaves)*8)
		for _, k := range leaves {
			children := k.Children()
			next = append(next, children[:]...)
		}
		leaves = next
	}
	return leaves
}

func keysOf(set map[morton.Key]bool) []morton.Key {
	out := make([]morton.Key, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}
