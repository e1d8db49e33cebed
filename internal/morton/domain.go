package morton

// Domain is the axis-aligned bounding box embedding the octree: the union
// of the source and target point bounding boxes, expanded slightly so that
// points on the boundary still fall strictly inside box [0, 2^level).
type Domain struct {
	Origin [3]float64
	Side   [3]float64
}

// NewDomain returns the domain spanning min..max, padded by a small
// relative margin so boundary points round inward rather than overflow the
// grid on encoding.
func NewDomain(min, max [3]float64) Domain {
	var side [3]float64
	for i := range side {
		s := max[i] - min[i]
		if s <= 0 {
			s = 1
		}
		side[i] = s * 1.00001
	}
	return Domain{Origin: min, Side: side}
}

// EncodeAnchor maps a physical coordinate into a MaxLevel-resolution
// Anchor within this domain.
func (d Domain) EncodeAnchor(coord [3]float64) Anchor {
	const scale = float64(uint64(1) << MaxLevel)
	var a Anchor
	for i := range a {
		frac := (coord[i] - d.Origin[i]) / d.Side[i]
		if frac < 0 {
			frac = 0
		}
		if frac >= 1 {
			frac = frac - 1e-12
		}
		a[i] = uint32(frac * scale)
	}
	return a
}

// BoxOrigin returns the physical-space origin and side length of the box
// addressed by k within this domain.
func (d Domain) BoxOrigin(k Key) ([3]float64, [3]float64) {
	level := k.Level()
	anchor := k.Anchor()
	cells := float64(uint64(1) << level)
	var origin, side [3]float64
	for i := range origin {
		cellLen := d.Side[i] / cells
		cellIdx := float64(anchor[i]) / float64(uint64(1)<<MaxLevel) * cells
		origin[i] = d.Origin[i] + cellIdx*cellLen
		side[i] = cellLen
	}
	return origin, side
}

// Center returns the physical centre of the box addressed by k.
func (d Domain) Center(k Key) [3]float64 {
	origin, side := d.BoxOrigin(k)
	var c [3]float64
	for i := range c {
		c[i] = origin[i] + side[i]/2
	}
	return c
}
