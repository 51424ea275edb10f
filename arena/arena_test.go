package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocReturnsDistinctNonOverlappingSlices(t *testing.T) {
	a := New(16)
	s1 := a.Alloc(4)
	s2 := a.Alloc(4)
	for i := range s1 {
		s1[i] = 0xAA
	}
	for i := range s2 {
		s2[i] = 0xBB
	}
	assert.Equal(t, []byte{0xAA, 0xAA, 0xAA, 0xAA}, s1, "writing s2 must not corrupt s1")
}

func TestAllocGrowsPastInitialCapacity(t *testing.T) {
	a := New(4)
	s := a.Alloc(100)
	require.Len(t, s, 100)
	assert.GreaterOrEqual(t, a.Cap(), 100)
}

func TestPutCopiesSource(t *testing.T) {
	a := New(16)
	src := []byte("hello")
	got := a.Put(src)
	src[0] = 'X'
	assert.Equal(t, "hello", string(got), "Put must copy, not alias, src")
}

func TestResetRewindsLenToZero(t *testing.T) {
	a := New(16)
	a.Alloc(10)
	assert.Equal(t, 10, a.Len())
	a.Reset()
	assert.Equal(t, 0, a.Len())
}

func TestPoolResetAllRewindsEveryArena(t *testing.T) {
	p := NewPool(4, 16)
	require.Equal(t, 4, p.Len())
	for i := 0; i < 4; i++ {
		p.Arena(i).Alloc(8)
	}
	p.ResetAll()
	for i := 0; i < 4; i++ {
		assert.Equal(t, 0, p.Arena(i).Len())
	}
}
