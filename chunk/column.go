// Package chunk implements the vertical stack of paletted sections making
// up one (chunk_x, chunk_z) column: in-memory mutation with per-tick
// delta tracking, and re-encoding into the client-facing chunk-data wire
// packet (NBT heightmap, paletted block/biome sections, light BitSets).
package chunk

import (
	"github.com/hyperion-mc/hyperion/palette"
)

const (
	// sectionDim is one edge of a section's 16x16x16 block cube.
	sectionDim = 16
	// SectionVolume is the number of block cells in one section.
	SectionVolume = sectionDim * sectionDim * sectionDim
	// biomeDim is one edge of a section's 4x4x4 biome cube (biomes are
	// quantized to quarters of a block axis).
	biomeDim      = 4
	biomeVolume   = biomeDim * biomeDim * biomeDim
)

// XZYToIndex converts section-local block coordinates to a flat index,
// matching the wire format's x + z*16 + y*256 ordering.
func XZYToIndex(x, y, z int) int { return x + z*sectionDim + y*sectionDim*sectionDim }

// Section is one 16x16x16 cube of a column: a paletted block-state
// container, a paletted biome container, block/sky light (nil until a
// lighting collaborator fills them in), and the two per-tick delta
// bitmaps the spec's mutation model calls for.
type Section struct {
	Blocks *palette.Container
	Biomes *palette.Container

	BlockLight []byte // 2048 bytes, nil if not yet computed
	SkyLight   []byte // 2048 bytes, nil if not yet computed

	changedSinceLastTick *BitSet
	changedCumulative    *BitSet
}

// NewSection returns an empty section filled with airValue (block) and
// biomeValue (biome).
func NewSection(airValue, biomeValue uint32) *Section {
	return &Section{
		Blocks:               palette.NewSingle(SectionVolume, airValue),
		Biomes:               palette.NewSingle(biomeVolume, biomeValue),
		changedSinceLastTick: NewBitSet(SectionVolume),
		changedCumulative:    NewBitSet(SectionVolume),
	}
}

// SetBlock sets the block at section-local index i, recording the change
// in both delta bitmaps, and returns the previous value.
func (s *Section) SetBlock(i int, v uint32) uint32 {
	prev := s.Blocks.Set(i, v)
	s.changedSinceLastTick.Set(i)
	s.changedCumulative.Set(i)
	return prev
}

// DrainChanged returns the section-local indices changed since the last
// drain and clears changedSinceLastTick; changedCumulative is left intact
// for late-joining viewers.
func (s *Section) DrainChanged() []int {
	idx := s.changedSinceLastTick.Indices()
	s.changedSinceLastTick.Clear()
	return idx
}

// CumulativeChanged returns every section-local index changed since the
// column was loaded (for a late-joining viewer that needs the full delta
// on top of the base packet).
func (s *Section) CumulativeChanged() []int {
	return s.changedCumulative.Indices()
}

// Column is the vertical stack of Sections at one (cx, cz).
type Column struct {
	CX, CZ int32

	Sections []*Section

	cachedBytes []byte
	dirty       bool
}

// NewColumn returns an empty Column of sectionCount sections, each filled
// with airValue/biomeValue.
func NewColumn(cx, cz int32, sectionCount int, airValue, biomeValue uint32) *Column {
	sections := make([]*Section, sectionCount)
	for i := range sections {
		sections[i] = NewSection(airValue, biomeValue)
	}
	return &Column{CX: cx, CZ: cz, Sections: sections, dirty: true}
}

// BlockAt returns the block value at world-relative section index
// sectionIdx, local index i. Returns airValue if sectionIdx is out of
// range (below the world floor or above its ceiling).
func (c *Column) BlockAt(sectionIdx, i int, airValue uint32) uint32 {
	if sectionIdx < 0 || sectionIdx >= len(c.Sections) {
		return airValue
	}
	return c.Sections[sectionIdx].Blocks.Get(i)
}

// SetBlockAt sets the block value at section sectionIdx, local index i,
// marking the column dirty so the cached wire bytes are regenerated on
// next Encode. Returns the previous value.
func (c *Column) SetBlockAt(sectionIdx, i int, v uint32) uint32 {
	prev := c.Sections[sectionIdx].SetBlock(i, v)
	c.dirty = true
	return prev
}

// CachedBytes returns the last encoded wire bytes (valid only between
// ticks — see Encode).
func (c *Column) CachedBytes() []byte { return c.cachedBytes }

// IsDirty reports whether the column has been mutated since its cached
// wire bytes were last regenerated.
func (c *Column) IsDirty() bool { return c.dirty }

// SetCachedBytes installs freshly encoded wire bytes and clears dirty.
func (c *Column) SetCachedBytes(b []byte) {
	c.cachedBytes = b
	c.dirty = false
}
