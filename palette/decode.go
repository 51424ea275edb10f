package palette

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hyperion-mc/hyperion/bitstorage"
	"github.com/hyperion-mc/hyperion/varint"
)

// BitsToValue is the inverse of ValueToBits, converting a decoded wire
// integer back into a logical value (a block-state runtime id lookup, a
// biome id lookup, ...).
type BitsToValue func(bits uint64) uint32

// Decode reads a container of the given length from r, written by Encode
// with the same minBits/maxBits/directBits parameters.
func Decode(r io.Reader, length, minBits, maxBits, directBits int, fromBits BitsToValue) (*Container, error) {
	br := bufio.NewReader(r)
	bitsPerEntry, err := br.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("palette: read bits-per-entry: %w", err)
	}

	switch {
	case bitsPerEntry == 0:
		raw, err := varint.ReadVarInt(br)
		if err != nil {
			return nil, fmt.Errorf("palette: read single value: %w", err)
		}
		if _, err := varint.ReadVarInt(br); err != nil {
			return nil, fmt.Errorf("palette: read trailing long count: %w", err)
		}
		return NewSingle(length, fromBits(uint64(uint32(raw)))), nil

	case int(bitsPerEntry) <= maxBits && int(bitsPerEntry) >= minBits:
		return decodeIndirect(br, length, int(bitsPerEntry), fromBits)

	case int(bitsPerEntry) == directBits:
		return decodeDirect(br, length, int(bitsPerEntry), fromBits)

	default:
		return nil, fmt.Errorf("palette: unsupported bits-per-entry %d (min=%d max=%d direct=%d)", bitsPerEntry, minBits, maxBits, directBits)
	}
}

func decodeIndirect(br *bufio.Reader, length, bitsPerEntry int, fromBits BitsToValue) (*Container, error) {
	paletteLenRaw, err := varint.ReadVarInt(br)
	if err != nil {
		return nil, fmt.Errorf("palette: read palette length: %w", err)
	}
	paletteLen := int(paletteLenRaw)
	if paletteLen < 0 || paletteLen > MaxPaletteLen {
		return nil, fmt.Errorf("palette: palette length %d out of range", paletteLen)
	}

	palette := make([]uint32, paletteLen)
	for i := range palette {
		raw, err := varint.ReadVarInt(br)
		if err != nil {
			return nil, fmt.Errorf("palette: read palette entry %d: %w", i, err)
		}
		palette[i] = fromBits(uint64(uint32(raw)))
	}

	values, err := decodeCompactLongs(br, length, bitsPerEntry)
	if err != nil {
		return nil, err
	}

	c := &Container{length: length, variant: Indirect, palette: palette}
	c.indices = bitstorage.New(indirectIndexBits, length, nil)
	for i, v := range values {
		c.indices.Set(i, v)
	}
	return c, nil
}

func decodeDirect(br *bufio.Reader, length, directBits int, fromBits BitsToValue) (*Container, error) {
	values, err := decodeCompactLongs(br, length, directBits)
	if err != nil {
		return nil, err
	}
	direct := make([]uint32, length)
	for i, v := range values {
		direct[i] = fromBits(v)
	}
	return &Container{length: length, variant: Direct, direct: direct}, nil
}

// decodeCompactLongs reads VarInt(numLongs) followed by that many 64-bit
// big-endian longs, unpacking count entries of bitsPerVal bits each (low
// bits first within a long).
func decodeCompactLongs(br *bufio.Reader, count, bitsPerVal int) ([]uint64, error) {
	numLongsRaw, err := varint.ReadVarInt(br)
	if err != nil {
		return nil, fmt.Errorf("palette: read long count: %w", err)
	}
	numLongs := int(numLongsRaw)
	if numLongs < 0 {
		return nil, fmt.Errorf("palette: negative long count %d", numLongs)
	}

	perLong := 64 / bitsPerVal
	mask := (uint64(1) << uint(bitsPerVal)) - 1

	values := make([]uint64, 0, count)
	var buf [8]byte
	for l := 0; l < numLongs; l++ {
		if _, err := io.ReadFull(br, buf[:]); err != nil {
			return nil, fmt.Errorf("palette: read long %d: %w", l, err)
		}
		word := bigEndianUint64(buf[:])
		for j := 0; j < perLong && len(values) < count; j++ {
			values = append(values, (word>>uint(j*bitsPerVal))&mask)
		}
	}
	if len(values) != count {
		return nil, fmt.Errorf("palette: expected %d packed entries, decoded %d", count, len(values))
	}
	return values, nil
}

func bigEndianUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}
