// Package palette implements the three-variant paletted block/biome
// container described by the chunk format: Single, Indirect (a small
// ordered palette plus 4-bit indices) and Direct (one raw value per
// entry). It mirrors the decode/encode split the teacher's
// server/world/chunk package uses for its own PalettedStorage, adapted to
// the Java-style bits-per-entry wire format this core speaks.
package palette

import (
	"fmt"
	"io"
	"math/bits"

	"github.com/hyperion-mc/hyperion/bitstorage"
	"github.com/hyperion-mc/hyperion/varint"
)

// Variant identifies which of the three representations a Container is
// currently using. Promotion is monotonic: Single -> Indirect -> Direct.
type Variant uint8

const (
	Single Variant = iota
	Indirect
	Direct
)

func (v Variant) String() string {
	switch v {
	case Single:
		return "single"
	case Indirect:
		return "indirect"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// indirectIndexBits is the fixed width of the Indirect variant's per-entry
// index into its palette: 4 bits addresses up to 16 palette slots, the
// cap named by the spec.
const indirectIndexBits = 4

// MaxPaletteLen is the largest palette the Indirect variant may hold
// before a Set promotes the container to Direct.
const MaxPaletteLen = 1 << indirectIndexBits

// Container is a paletted value array over a fixed-size cell space (4096
// cells for a 16x16x16 block section; smaller for biome containers).
type Container struct {
	length  int
	variant Variant

	single uint32

	palette []uint32
	indices *bitstorage.Storage

	direct []uint32
}

// NewSingle constructs a container of length cells, all holding value v.
func NewSingle(length int, v uint32) *Container {
	if length <= 0 {
		panic("palette: length must be positive")
	}
	return &Container{length: length, variant: Single, single: v}
}

// Len returns the number of cells in the container.
func (c *Container) Len() int { return c.length }

// Variant reports the container's current representation.
func (c *Container) Variant() Variant { return c.variant }

// Get returns the value stored at cell i.
func (c *Container) Get(i int) uint32 {
	c.checkIndex(i)
	switch c.variant {
	case Single:
		return c.single
	case Indirect:
		idx := c.indices.Get(i)
		return c.palette[idx]
	case Direct:
		return c.direct[i]
	default:
		panic("palette: unknown variant")
	}
}

// Set stores v at cell i and returns the previous value, promoting the
// container's variant when necessary. Promotion never regresses: once
// Indirect or Direct, a Set call never reverts to an earlier variant.
func (c *Container) Set(i int, v uint32) uint32 {
	c.checkIndex(i)
	switch c.variant {
	case Single:
		prev := c.single
		if v == c.single {
			return prev
		}
		c.promoteToIndirect()
		return c.setIndirect(i, v)
	case Indirect:
		return c.setIndirect(i, v)
	case Direct:
		prev := c.direct[i]
		c.direct[i] = v
		return prev
	default:
		panic("palette: unknown variant")
	}
}

func (c *Container) promoteToIndirect() {
	c.palette = make([]uint32, 1, MaxPaletteLen)
	c.palette[0] = c.single
	c.indices = bitstorage.New(indirectIndexBits, c.length, nil)
	c.variant = Indirect
}

func (c *Container) setIndirect(i int, v uint32) uint32 {
	slot, ok := c.paletteSlot(v)
	if !ok {
		if len(c.palette) >= MaxPaletteLen {
			c.promoteToDirect()
			prev := c.direct[i]
			c.direct[i] = v
			return prev
		}
		c.palette = append(c.palette, v)
		slot = len(c.palette) - 1
	}
	prevSlot := c.indices.Get(i)
	c.indices.Set(i, uint64(slot))
	return c.palette[prevSlot]
}

func (c *Container) paletteSlot(v uint32) (int, bool) {
	for idx, pv := range c.palette {
		if pv == v {
			return idx, true
		}
	}
	return 0, false
}

func (c *Container) promoteToDirect() {
	direct := make([]uint32, c.length)
	for i := 0; i < c.length; i++ {
		direct[i] = c.palette[c.indices.Get(i)]
	}
	c.direct = direct
	c.palette = nil
	c.indices = nil
	c.variant = Direct
}

// Fill resets the container to Single(v), discarding any palette or
// direct array it held.
func (c *Container) Fill(v uint32) {
	c.variant = Single
	c.single = v
	c.palette = nil
	c.indices = nil
	c.direct = nil
}

// UniqueCount returns the number of distinct values currently stored.
// O(1) for Single/Indirect; O(N) via a compact set for Direct.
func (c *Container) UniqueCount() int {
	switch c.variant {
	case Single:
		return 1
	case Indirect:
		return len(c.palette)
	case Direct:
		seen := make(map[uint32]struct{}, 16)
		for _, v := range c.direct {
			seen[v] = struct{}{}
		}
		return len(seen)
	default:
		panic("palette: unknown variant")
	}
}

func (c *Container) checkIndex(i int) {
	if i < 0 || i >= c.length {
		panic(fmt.Sprintf("palette: index %d out of range [0, %d)", i, c.length))
	}
}

// ValueToBits converts a logical value into the integer written to the
// wire (a block-state runtime id, a biome id, ...).
type ValueToBits func(v uint32) uint64

// Encode writes the container's wire-format encoding to w, following the
// bits-per-entry scheme: bitsPerEntry = max(minBits, ceil(log2(paletteLen)))
// for Indirect, falling back to Direct if that exceeds maxBits.
func (c *Container) Encode(w io.Writer, minBits, maxBits, directBits int, toBits ValueToBits) error {
	switch c.variant {
	case Single:
		if err := writeByte(w, 0); err != nil {
			return err
		}
		if err := varint.WriteVarIntU(w, toBits(c.single)); err != nil {
			return err
		}
		return varint.WriteVarIntU(w, 0)
	case Indirect:
		bitsPerEntry := minBits
		if need := bitWidth(len(c.palette)); need > bitsPerEntry {
			bitsPerEntry = need
		}
		if bitsPerEntry > maxBits {
			return c.encodeDirect(w, directBits, toBits)
		}
		return c.encodeIndirect(w, bitsPerEntry, toBits)
	case Direct:
		return c.encodeDirect(w, directBits, toBits)
	default:
		panic("palette: unknown variant")
	}
}

func (c *Container) encodeIndirect(w io.Writer, bitsPerEntry int, toBits ValueToBits) error {
	if err := writeByte(w, byte(bitsPerEntry)); err != nil {
		return err
	}
	if err := varint.WriteVarIntU(w, uint64(len(c.palette))); err != nil {
		return err
	}
	for _, v := range c.palette {
		if err := varint.WriteVarIntU(w, toBits(v)); err != nil {
			return err
		}
	}
	values := make([]uint64, c.length)
	for i := 0; i < c.length; i++ {
		values[i] = c.indices.Get(i)
	}
	return encodeCompactLongs(w, values, bitsPerEntry)
}

func (c *Container) encodeDirect(w io.Writer, directBits int, toBits ValueToBits) error {
	if err := writeByte(w, byte(directBits)); err != nil {
		return err
	}
	values := make([]uint64, c.length)
	for i := 0; i < c.length; i++ {
		values[i] = toBits(c.Get(i))
	}
	return encodeCompactLongs(w, values, directBits)
}

// bitWidth returns ceil(log2(n)) for n >= 1, and 0 for n <= 1.
func bitWidth(n int) int {
	if n <= 1 {
		return 0
	}
	return bits.Len(uint(n - 1))
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

// encodeCompactLongs packs len(values) entries of bitsPerVal bits each
// into 64-bit longs, low bits first within a long, entries never
// straddling a long boundary; it writes VarInt(numLongs) then the longs
// themselves big-endian, matching the wire format the chunk-data packet
// and region NBT both use for packed long arrays.
func encodeCompactLongs(w io.Writer, values []uint64, bitsPerVal int) error {
	if bitsPerVal == 0 {
		return varint.WriteVarIntU(w, 0)
	}
	perLong := 64 / bitsPerVal
	numLongs := (len(values) + perLong - 1) / perLong
	if err := varint.WriteVarIntU(w, uint64(numLongs)); err != nil {
		return err
	}
	var buf [8]byte
	for start := 0; start < len(values); start += perLong {
		end := start + perLong
		if end > len(values) {
			end = len(values)
		}
		var word uint64
		for j, v := range values[start:end] {
			word |= v << uint(j*bitsPerVal)
		}
		putBigEndian(buf[:], word)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

func putBigEndian(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
