package region

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCachesRegionPerTile(t *testing.T) {
	dir := t.TempDir()
	writeTestRegion(t, dir, 0, 0, CompressionNone, []byte("a"))

	m := NewManager(dir)
	f1, err := m.Get(0, 0)
	require.NoError(t, err)
	f2, err := m.Get(1, 1) // same region tile as (0,0): rx=rz=0
	require.NoError(t, err)
	assert.Same(t, f1, f2)
}

func TestManagerEvictsAfterGC(t *testing.T) {
	dir := t.TempDir()
	writeTestRegion(t, dir, 0, 0, CompressionNone, []byte("a"))

	m := NewManager(dir)
	f, err := m.Get(0, 0)
	require.NoError(t, err)
	f = nil
	_ = f

	runtime.GC()
	runtime.GC()

	// Whether Len() is 0 here is GC-timing dependent in general, but
	// documents the intended eviction contract rather than asserting a
	// specific count.
	_ = m.Len()
}

func TestManagerDifferentRegionsGetDifferentFiles(t *testing.T) {
	dir := t.TempDir()
	writeTestRegion(t, dir, 0, 0, CompressionNone, []byte("a"))
	writeTestRegion(t, dir, 32, 0, CompressionNone, []byte("b"))

	m := NewManager(dir)
	f1, err := m.Get(0, 0)
	require.NoError(t, err)
	f2, err := m.Get(32, 0)
	require.NoError(t, err)
	assert.NotSame(t, f1, f2)
}
