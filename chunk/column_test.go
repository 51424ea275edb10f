package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSetBlockOnAllAirSectionEmitsSingleUpdate covers scenario E3: setting
// a block in a section that was previously all air must both change
// get_block and cause the tick-boundary drain to emit exactly one
// block-update index, local to the section containing y=64.
func TestSetBlockOnAllAirSectionEmitsSingleUpdate(t *testing.T) {
	const sectionsPerColumn = 24 // covers y in [-64, 320)
	const worldFloorSection = -4 // section index 0 corresponds to y=-64

	col := NewColumn(0, 0, sectionsPerColumn, airValue, plainsBiome)

	worldY := 64
	sectionIdx := worldY/sectionDim - worldFloorSection
	localY := worldY % sectionDim
	localIdx := XZYToIndex(10, localY, 10)

	require.Equal(t, airValue, col.BlockAt(sectionIdx, localIdx, airValue))

	prev := col.SetBlockAt(sectionIdx, localIdx, stoneValue)
	assert.Equal(t, airValue, prev)
	assert.Equal(t, stoneValue, col.BlockAt(sectionIdx, localIdx, airValue))
	assert.True(t, col.IsDirty())

	changed := col.Sections[sectionIdx].DrainChanged()
	require.Len(t, changed, 1, "exactly one block-update index must be emitted")
	assert.Equal(t, localIdx, changed[0])

	for i, s := range col.Sections {
		if i == sectionIdx {
			continue
		}
		assert.Empty(t, s.DrainChanged(), "no other section should report a change")
	}
}

func TestColumnOutOfRangeSectionReturnsAir(t *testing.T) {
	col := NewColumn(0, 0, 4, airValue, plainsBiome)
	assert.Equal(t, airValue, col.BlockAt(-1, 0, airValue))
	assert.Equal(t, airValue, col.BlockAt(99, 0, airValue))
}

func TestCachedBytesClearedOnMutation(t *testing.T) {
	col := NewColumn(1, 2, 4, airValue, plainsBiome)
	col.SetCachedBytes([]byte("stale"))
	assert.False(t, col.IsDirty())

	col.SetBlockAt(0, 0, stoneValue)
	assert.True(t, col.IsDirty())
}
