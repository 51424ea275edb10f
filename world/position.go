// Package world owns the in-memory map of loaded chunk columns: block
// get/set against the owning section's paletted container, per-section
// delta draining at tick boundary, and the three-valued get-or-load
// result the game loop polls while a column is in flight.
package world

// BlockPos is an absolute world-space block coordinate.
type BlockPos struct {
	X, Y, Z int32
}

// ColumnCoord identifies a chunk column by its (cx, cz) tile coordinate.
type ColumnCoord struct{ CX, CZ int32 }

// PackColumnCoord packs a ColumnCoord into the int64 key the store's
// intintmap index uses, matching the region loader's own (cx,cz) framing.
func PackColumnCoord(c ColumnCoord) int64 {
	return int64(c.CX)<<32 | int64(uint32(c.CZ))
}

func columnCoordOf(p BlockPos) ColumnCoord {
	return ColumnCoord{CX: p.X >> 4, CZ: p.Z >> 4}
}

func localXZ(p BlockPos) (x, z int) {
	return int(p.X & 15), int(p.Z & 15)
}
