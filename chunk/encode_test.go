package chunk

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperion-mc/hyperion/varint"
)

func identity(v uint32) uint64 { return uint64(v) }

func TestEncodeProducesPacketIDAndCoordinates(t *testing.T) {
	col := NewColumn(-3, 7, 4, airValue, plainsBiome)
	col.SetBlockAt(0, XZYToIndex(5, 5, 5), stoneValue)

	var buf bytes.Buffer
	require.NoError(t, col.Encode(&buf, identity, identity))

	br := varint.NewByteReader(&buf)
	id, err := varint.ReadVarInt(br)
	require.NoError(t, err)
	assert.Equal(t, ChunkDataPacketID, id)

	var cx, cz int32
	coordBytes := make([]byte, 8)
	_, err = io.ReadFull(br, coordBytes)
	require.NoError(t, err)
	cx = int32(coordBytes[0])<<24 | int32(coordBytes[1])<<16 | int32(coordBytes[2])<<8 | int32(coordBytes[3])
	cz = int32(coordBytes[4])<<24 | int32(coordBytes[5])<<16 | int32(coordBytes[6])<<8 | int32(coordBytes[7])
	assert.Equal(t, int32(-3), cx)
	assert.Equal(t, int32(7), cz)
}

func TestEncodeNonEmptyForColumnWithBlocks(t *testing.T) {
	col := NewColumn(0, 0, 4, airValue, plainsBiome)
	col.SetBlockAt(1, XZYToIndex(0, 0, 0), stoneValue)

	var buf bytes.Buffer
	require.NoError(t, col.Encode(&buf, identity, identity))
	assert.NotZero(t, buf.Len())
}

func TestComputeHeightmapReflectsTopmostBlock(t *testing.T) {
	col := NewColumn(0, 0, 2, airValue, plainsBiome)
	// Section 1 covers y in [16, 32); set y=20 at (x=0,z=0).
	col.SetBlockAt(1, XZYToIndex(0, 4, 0), stoneValue)

	heights := col.computeHeightmap()
	assert.Equal(t, int32(21), heights[0])
	assert.Equal(t, int32(0), heights[1], "untouched column stays at height 0")
}

func TestPackHeightmapRoundTripsViaBitFields(t *testing.T) {
	var heights [256]int32
	heights[0] = 319
	heights[255] = 1

	packed := packHeightmap(heights)
	perLong := 64 / heightmapBitsPerEntry
	mask := int64(1)<<heightmapBitsPerEntry - 1

	got0 := packed[0] & mask
	assert.Equal(t, int64(319), got0)

	word := 255 / perLong
	shift := uint((255 % perLong) * heightmapBitsPerEntry)
	got255 := (packed[word] >> shift) & mask
	assert.Equal(t, int64(1), got255)
}
