package bitstorage

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripAllBitWidths(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for b := 1; b <= 32; b++ {
		for _, n := range []int{1, 64, 4096} {
			b, n := b, n
			t.Run("", func(t *testing.T) {
				s := New(b, n, nil)
				max := uint64(1) << uint(b)
				want := make([]uint64, n)
				for i := 0; i < n; i++ {
					var v uint64
					if b >= 64 {
						v = rng.Uint64()
					} else {
						v = uint64(rng.Int63n(int64(max)))
					}
					want[i] = v
					s.Set(i, v)
				}
				for i := 0; i < n; i++ {
					assert.Equalf(t, want[i], s.Get(i), "index %d (b=%d n=%d)", i, b, n)
				}
			})
		}
	}
}

func TestZeroBitsIsNoop(t *testing.T) {
	s := New(0, 128, nil)
	require.Empty(t, s.Words())
	for i := 0; i < 128; i++ {
		assert.Equal(t, uint64(0), s.Get(i))
	}
	assert.NotPanics(t, func() { s.Set(5, 0) })
	assert.Panics(t, func() { s.Set(5, 1) })
}

func TestWordCountMatchesFloorDiv(t *testing.T) {
	cases := []struct{ b, n, words int }{
		{1, 64, 1},
		{4, 4096, 256},
		{5, 4096, 342},
		{32, 4096, 2048},
	}
	for _, c := range cases {
		s := New(c.b, c.n, nil)
		assert.Equal(t, c.words, len(s.Words()))
	}
}

func TestSetOutOfRangeValuePanics(t *testing.T) {
	s := New(4, 16, nil)
	assert.Panics(t, func() { s.Set(0, 16) })
	assert.NotPanics(t, func() { s.Set(0, 15) })
}

func TestWordsDoNotStraddle(t *testing.T) {
	// b=5 -> 12 entries per word (60 bits used, 4 wasted); entry 12 must
	// start a fresh word rather than spanning words 0/1.
	s := New(5, 13, nil)
	s.Set(11, 31)
	s.Set(12, 7)
	assert.Equal(t, uint64(31), s.Get(11))
	assert.Equal(t, uint64(7), s.Get(12))
	assert.Equal(t, 2, len(s.Words()))
}
