package chunk

import (
	"bytes"
	"io"

	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"github.com/hyperion-mc/hyperion/palette"
	"github.com/hyperion-mc/hyperion/varint"
)

// ChunkDataPacketID is the Java-edition play-state packet id this core
// emits for a full chunk data + light update.
const ChunkDataPacketID int32 = 0x27

const (
	blockBitsMin, blockBitsMax, blockDirectBits = 4, 8, 15
	biomeBitsMin, biomeBitsMax, biomeDirectBits = 0, 3, 6
)

// heightmapsCompound mirrors the single MOTION_BLOCKING heightmap the vanilla
// client requires; the packed longs use 9 bits per entry (256 entries of
// 0..384).
type heightmapsCompound struct {
	MotionBlocking []int64 `nbt:"MOTION_BLOCKING"`
}

const heightmapBitsPerEntry = 9

// packHeightmap packs 256 per-column heights into the 9-bits-per-entry
// long array format vanilla expects.
func packHeightmap(heights [256]int32) []int64 {
	perLong := 64 / heightmapBitsPerEntry
	numLongs := (256 + perLong - 1) / perLong
	out := make([]int64, numLongs)
	for i, h := range heights {
		word := i / perLong
		shift := uint((i % perLong) * heightmapBitsPerEntry)
		out[word] |= int64(uint64(h) << shift)
	}
	return out
}

// Encode writes the wire chunk-data packet for c to w: packet id, chunk
// coordinates, the NBT heightmap, the paletted block/biome sections, a
// block-entity count of zero (block entities are out of scope), and the
// light-mask/array section (emitted empty — lighting is computed by a
// separate collaborator that has not yet populated BlockLight/SkyLight).
func (c *Column) Encode(w io.Writer, blockToBits, biomeToBits palette.ValueToBits) error {
	if err := varint.WriteVarInt(w, ChunkDataPacketID); err != nil {
		return err
	}
	var head [8]byte
	putI32(head[0:4], c.CX)
	putI32(head[4:8], c.CZ)
	if _, err := w.Write(head[:]); err != nil {
		return err
	}

	heights := c.computeHeightmap()
	var nbtBuf bytes.Buffer
	if err := nbt.NewEncoder(&nbtBuf).Encode(heightmapsCompound{
		MotionBlocking: packHeightmap(heights),
	}); err != nil {
		return err
	}
	if _, err := w.Write(nbtBuf.Bytes()); err != nil {
		return err
	}

	var dataBuf bytes.Buffer
	for _, s := range c.Sections {
		blockCount := countNonAir(s.Blocks)
		var bc [2]byte
		bc[0] = byte(blockCount >> 8)
		bc[1] = byte(blockCount)
		dataBuf.Write(bc[:])
		if err := s.Blocks.Encode(&dataBuf, blockBitsMin, blockBitsMax, blockDirectBits, blockToBits); err != nil {
			return err
		}
		if err := s.Biomes.Encode(&dataBuf, biomeBitsMin, biomeBitsMax, biomeDirectBits, biomeToBits); err != nil {
			return err
		}
	}
	if err := varint.WriteVarIntU(w, uint64(dataBuf.Len())); err != nil {
		return err
	}
	if _, err := w.Write(dataBuf.Bytes()); err != nil {
		return err
	}

	if err := varint.WriteVarIntU(w, 0); err != nil { // block_entities_count
		return err
	}

	// The light masks cover S+2 sections: one below and one above the
	// column's own sections, matching vanilla's convention of carrying
	// light state for the sections immediately bordering the column.
	return encodeLightSection(w, len(c.Sections)+2)
}

// encodeLightSection writes the four light BitSet masks (sky and block
// light masks empty, empty-sky and empty-block masks full: no section
// currently carries computed light data) followed by zero-length
// sky/block light arrays, matching the wire layout a populated lighting
// pass would fill in. sectionCount is S+2 (the column's own sections plus
// the one bordering below and above).
func encodeLightSection(w io.Writer, sectionCount int) error {
	empty := NewBitSet(sectionCount)
	full := NewBitSet(sectionCount)
	for i := 0; i < sectionCount; i++ {
		full.Set(i)
	}

	for _, bs := range []*BitSet{empty, empty, full, full} {
		if err := writeBitSetAsLongArray(w, bs); err != nil {
			return err
		}
	}
	if err := varint.WriteVarIntU(w, 0); err != nil { // sky light arrays
		return err
	}
	return varint.WriteVarIntU(w, 0) // block light arrays
}

func writeBitSetAsLongArray(w io.Writer, bs *BitSet) error {
	words := bs.Words()
	if err := varint.WriteVarIntU(w, uint64(len(words))); err != nil {
		return err
	}
	var buf [8]byte
	for _, word := range words {
		putU64(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// computeHeightmap returns, for each (x,z) column, the y of the topmost
// non-air block plus one, scanning sections top-down.
func (c *Column) computeHeightmap() [256]int32 {
	var heights [256]int32
	for x := 0; x < sectionDim; x++ {
		for z := 0; z < sectionDim; z++ {
			h := int32(0)
			for si := len(c.Sections) - 1; si >= 0; si-- {
				s := c.Sections[si]
				found := false
				for y := sectionDim - 1; y >= 0; y-- {
					if s.Blocks.Get(XZYToIndex(x, y, z)) != 0 {
						h = int32(si*sectionDim + y + 1)
						found = true
						break
					}
				}
				if found {
					break
				}
			}
			heights[x+z*sectionDim] = h
		}
	}
	return heights
}

func countNonAir(c *palette.Container) int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if c.Get(i) != 0 {
			n++
		}
	}
	return n
}

func putI32(b []byte, v int32) {
	b[0] = byte(v >> 24)
	b[1] = byte(v >> 16)
	b[2] = byte(v >> 8)
	b[3] = byte(v)
}

func putU64(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
