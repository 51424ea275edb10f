package region

import (
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"weak"

	"github.com/segmentio/fasthash/fnv1a"
)

// regionKey hashes a region's (rx, rz) tile coordinate into the cache
// map's key with FNV-1a, sparing the hot Get path a struct-keyed map's
// larger equality check.
func regionKey(rx, rz int32) uint64 {
	return fnv1a.HashUint64(uint64(uint32(rx))<<32 | uint64(uint32(rz)))
}

// Manager caches opened region Files keyed by a hashed region
// coordinate, using weak references so a region File no caller still
// holds can be unmapped and closed by the garbage collector
// instead of living forever — the same shape as the original runtime's
// Weak<Region> cache, just expressed with Go's weak.Pointer instead of a
// dedicated background eviction task.
type Manager struct {
	root string

	mu      sync.Mutex
	regions map[uint64]weak.Pointer[File]
}

// NewManager returns a Manager rooted at dir (conventionally
// "<world>/region").
func NewManager(dir string) *Manager {
	return &Manager{root: dir, regions: make(map[uint64]weak.Pointer[File])}
}

// Get returns the region File covering chunk (cx, cz), opening and
// caching it on first access. A previously-evicted region is reopened
// transparently.
func (m *Manager) Get(cx, cz int32) (*File, error) {
	rx, rz := cx>>5, cz>>5
	key := regionKey(rx, rz)

	m.mu.Lock()
	if wp, ok := m.regions[key]; ok {
		if f := wp.Value(); f != nil {
			m.mu.Unlock()
			return f, nil
		}
	}
	m.mu.Unlock()

	path := filepath.Join(m.root, fmt.Sprintf("r.%d.%d.mca", rx, rz))
	f, err := Open(path)
	if err != nil {
		return nil, err
	}

	ra := f.ra
	runtime.AddCleanup(f, func(ra closer) { _ = ra.Close() }, closer(ra))

	m.mu.Lock()
	m.regions[key] = weak.Make(f)
	m.mu.Unlock()

	return f, nil
}

// closer exists only so runtime.AddCleanup's cleanup function doesn't
// capture f itself (which would keep it reachable forever, defeating the
// weak reference).
type closer interface{ Close() error }

// Len reports how many region coordinates currently have a live (not yet
// collected) cached File. Intended for tests and metrics, not hot paths.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, wp := range m.regions {
		if wp.Value() != nil {
			n++
		}
	}
	return n
}
