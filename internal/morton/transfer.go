package morton

// TransferVector is the canonical integer offset (dx, dy, dz) from a
// V-list source box to its target box, measured in units of the target's
// own box size. Components range over {-3..3}, excluding the zero vector.
type TransferVector struct {
	DX, DY, DZ int
}

// Hash returns a dense, canonical integer key for v, suitable for indexing
// the SVD/FFT M2L libraries. Components are shifted into [0,7) before
// mixing so the hash is injective over the full {-3..3}^3 range.
func (v TransferVector) Hash() int {
	return (v.DX+3)*49 + (v.DY+3)*7 + (v.DZ + 3)
}

// FindTransferVector returns the transfer vector from src to tgt. Both
// keys must be at the same level; the offset is expressed in units of
// that level's box size.
func FindTransferVector(src, tgt Key) TransferVector {
	level := tgt.Level()
	step := uint32(1) << (MaxLevel - uint(level))
	sa, ta := src.Anchor(), tgt.Anchor()

	comp := func(s, t uint32) int {
		return int(int64(t)-int64(s)) / int(step)
	}
	return TransferVector{
		DX: comp(sa[0], ta[0]),
		DY: comp(sa[1], ta[1]),
		DZ: comp(sa[2], ta[2]),
	}
}
