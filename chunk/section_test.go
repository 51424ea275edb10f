package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const airValue, stoneValue, plainsBiome uint32 = 0, 1, 0

func TestNewSectionStartsAllAir(t *testing.T) {
	s := NewSection(airValue, plainsBiome)
	for i := 0; i < SectionVolume; i++ {
		require.Equal(t, airValue, s.Blocks.Get(i))
	}
	assert.Empty(t, s.DrainChanged())
}

func TestSetBlockRecordsDelta(t *testing.T) {
	s := NewSection(airValue, plainsBiome)
	idx := XZYToIndex(10, 0, 10)

	prev := s.SetBlock(idx, stoneValue)
	assert.Equal(t, airValue, prev)
	assert.Equal(t, stoneValue, s.Blocks.Get(idx))

	changed := s.DrainChanged()
	require.Len(t, changed, 1)
	assert.Equal(t, idx, changed[0])

	// A second drain without a further mutation is empty.
	assert.Empty(t, s.DrainChanged())

	// But the cumulative set still remembers it.
	cum := s.CumulativeChanged()
	require.Len(t, cum, 1)
	assert.Equal(t, idx, cum[0])
}

func TestXZYToIndexOrdering(t *testing.T) {
	assert.Equal(t, 0, XZYToIndex(0, 0, 0))
	assert.Equal(t, 1, XZYToIndex(1, 0, 0))
	assert.Equal(t, sectionDim, XZYToIndex(0, 0, 1))
	assert.Equal(t, sectionDim*sectionDim, XZYToIndex(0, 1, 0))
}
