package world

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperion-mc/hyperion/region"
)

const (
	testAir   uint32 = 0
	testStone uint32 = 1
)

type fakeRegistry struct{}

func (fakeRegistry) RuntimeID(name string, _ map[string]any) uint32 {
	if name == "minecraft:stone" {
		return testStone
	}
	return testAir
}
func (fakeRegistry) Name(id uint32) string {
	if id == testStone {
		return "minecraft:stone"
	}
	return "minecraft:air"
}

func testConfig() Config {
	return Config{SectionCount: 24, WorldFloorSection: -4, AirValue: testAir, BiomeValue: 0}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	mgr := region.NewManager(dir)
	return NewStore(mgr, fakeRegistry{}, testConfig())
}

// TestGetOrLoadOfAbsentChunkYieldsEmptyAirColumn covers E4 at the world
// layer: a coordinate with no backing region file must resolve to an
// empty, all-air column rather than erroring.
func TestGetOrLoadOfAbsentChunkYieldsEmptyAirColumn(t *testing.T) {
	s := newTestStore(t)
	coord := ColumnCoord{CX: 7, CZ: 7}

	col, state := s.GetOrLoad(coord)
	assert.Nil(t, col)
	assert.Equal(t, Enqueued, state)

	require.Eventually(t, func() bool {
		return len(s.DrainCompletedLoads()) > 0 || s.column(coord) != nil
	}, time.Second, time.Millisecond)

	col, state = s.GetOrLoad(coord)
	require.NotNil(t, col)
	assert.Equal(t, Loaded, state)
	assert.Equal(t, testAir, s.GetBlock(BlockPos{X: 7*16 + 1, Y: 64, Z: 7*16 + 1}))
}

// TestSetBlockOnPreviouslyAirSectionEmitsSingleBatch is E3 reproduced at
// the store layer instead of directly against a chunk.Column.
func TestSetBlockOnPreviouslyAirSectionEmitsSingleBatch(t *testing.T) {
	s := newTestStore(t)
	coord := ColumnCoord{CX: 0, CZ: 0}

	_, _ = s.GetOrLoad(coord)
	require.Eventually(t, func() bool {
		return len(s.DrainCompletedLoads()) > 0
	}, time.Second, time.Millisecond)

	pos := BlockPos{X: 10, Y: 64, Z: 10}
	require.Equal(t, testAir, s.GetBlock(pos))

	prev := s.SetBlock(pos, testStone)
	assert.Equal(t, testAir, prev)
	assert.Equal(t, testStone, s.GetBlock(pos))

	batches := s.DrainBlockUpdates()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0].Indices, 1)
	assert.Equal(t, coord, batches[0].Coord)
}

func TestGetBlockBelowWorldFloorReturnsAir(t *testing.T) {
	s := newTestStore(t)
	coord := ColumnCoord{CX: 0, CZ: 0}
	_, _ = s.GetOrLoad(coord)
	require.Eventually(t, func() bool {
		return len(s.DrainCompletedLoads()) > 0
	}, time.Second, time.Millisecond)

	assert.Equal(t, testAir, s.GetBlock(BlockPos{X: 0, Y: -1000, Z: 0}))
}

func TestScanForFindsSetBlocks(t *testing.T) {
	s := newTestStore(t)
	coord := ColumnCoord{CX: 0, CZ: 0}
	_, _ = s.GetOrLoad(coord)
	require.Eventually(t, func() bool {
		return len(s.DrainCompletedLoads()) > 0
	}, time.Second, time.Millisecond)

	s.SetBlock(BlockPos{X: 1, Y: 64, Z: 1}, testStone)
	s.SetBlock(BlockPos{X: 2, Y: 70, Z: 2}, testStone)

	var found []BlockPos
	s.ScanFor(testStone, func(p BlockPos) { found = append(found, p) })
	assert.Len(t, found, 2)
}

func TestSetBlockFlagsNeighborsAtSectionBoundary(t *testing.T) {
	s := newTestStore(t)
	coord := ColumnCoord{CX: 0, CZ: 0}
	_, _ = s.GetOrLoad(coord)
	require.Eventually(t, func() bool {
		return len(s.DrainCompletedLoads()) > 0
	}, time.Second, time.Millisecond)

	s.SetBlock(BlockPos{X: 0, Y: 64, Z: 0}, testStone) // local y=0, a section boundary
	flags := s.DrainNeighborFlags()
	require.Len(t, flags, 1)
	assert.Equal(t, coord, flags[0].Coord)
}
