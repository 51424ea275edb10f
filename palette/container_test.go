package palette

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identityToBits(v uint32) uint64   { return uint64(v) }
func identityFromBits(b uint64) uint32 { return uint32(b) }

func TestPromotionMonotonic(t *testing.T) {
	const length = 64
	c := NewSingle(length, 0)

	seenVariants := []Variant{c.Variant()}
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 500; step++ {
		i := rng.Intn(length)
		v := uint32(rng.Intn(40)) // enough distinct values to force Direct eventually
		c.Set(i, v)

		v2 := c.Variant()
		last := seenVariants[len(seenVariants)-1]
		require.GreaterOrEqualf(t, v2, last, "variant regressed at step %d: %s -> %s", step, last, v2)
		seenVariants = append(seenVariants, v2)
	}
	assert.Equal(t, Direct, seenVariants[len(seenVariants)-1])
}

func TestSingleToIndirectToDirect(t *testing.T) {
	c := NewSingle(16, 5)
	assert.Equal(t, Single, c.Variant())
	assert.Equal(t, 1, c.UniqueCount())

	prev := c.Set(0, 5)
	assert.Equal(t, uint32(5), prev)
	assert.Equal(t, Single, c.Variant(), "setting the existing value must not promote")

	prev = c.Set(1, 9)
	assert.Equal(t, uint32(5), prev)
	assert.Equal(t, Indirect, c.Variant())
	assert.Equal(t, 2, c.UniqueCount())
	assert.Equal(t, uint32(5), c.Get(0))
	assert.Equal(t, uint32(9), c.Get(1))

	// Fill the palette to its cap (16), then force promotion to Direct.
	for v := uint32(10); v < 10+MaxPaletteLen-2; v++ {
		c.Set(int(v)%16, v)
	}
	assert.Equal(t, Indirect, c.Variant())

	c.Set(2, 9999)
	assert.Equal(t, Direct, c.Variant())
	assert.Equal(t, uint32(9999), c.Get(2))
}

func TestFillResetsToSingle(t *testing.T) {
	c := NewSingle(16, 1)
	c.Set(0, 2)
	c.Set(1, 3)
	require.Equal(t, Indirect, c.Variant())

	c.Fill(42)
	assert.Equal(t, Single, c.Variant())
	assert.Equal(t, 1, c.UniqueCount())
	for i := 0; i < 16; i++ {
		assert.Equal(t, uint32(42), c.Get(i))
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const length = 4096
	c := NewSingle(length, 11) // air-like value

	// (0->A), (1->B), (2->A) from the spec's testable property #3.
	c.Set(0, 100)
	c.Set(1, 200)
	c.Set(2, 100)

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, 4, 8, 15, identityToBits))

	decoded, err := Decode(&buf, length, 4, 8, 15, identityFromBits)
	require.NoError(t, err)

	for i := 0; i < length; i++ {
		assert.Equalf(t, c.Get(i), decoded.Get(i), "cell %d", i)
	}
}

func TestEncodeDecodeDirectRoundTrip(t *testing.T) {
	const length = 64
	c := NewSingle(length, 0)
	for i := 0; i < length; i++ {
		c.Set(i, uint32(i)) // 64 distinct values forces promotion past any indirect cap
	}
	require.Equal(t, Direct, c.Variant())

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, 1, 4, 7, identityToBits))

	decoded, err := Decode(&buf, length, 1, 4, 7, identityFromBits)
	require.NoError(t, err)
	for i := 0; i < length; i++ {
		assert.Equal(t, uint32(i), decoded.Get(i))
	}
}

func TestEncodeSingleExactBytes(t *testing.T) {
	c := NewSingle(4096, 7)
	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, 4, 8, 15, identityToBits))

	b := buf.Bytes()
	require.Len(t, b, 3)
	assert.Equal(t, byte(0), b[0], "bits_per_entry must be 0 for Single")
	assert.Equal(t, byte(7), b[1], "VarInt(value)")
	assert.Equal(t, byte(0), b[2], "VarInt(0) long count")
}

func TestUniqueCountDirectIsCorrect(t *testing.T) {
	const length = 32
	c := NewSingle(length, 0)
	for i := 0; i < length; i++ {
		c.Set(i, uint32(i%5))
	}
	// Force to Direct by exceeding the indirect cap with distinct values.
	for i := 0; i < length; i++ {
		c.Set(i, uint32(i))
	}
	require.Equal(t, Direct, c.Variant())
	assert.Equal(t, length, c.UniqueCount())
}
