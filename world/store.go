package world

import (
	"sync"

	"github.com/brentp/intintmap"
	"golang.org/x/sync/errgroup"

	"github.com/hyperion-mc/hyperion/chunk"
	"github.com/hyperion-mc/hyperion/region"
)

// Config fixes the vertical shape every column in a Store shares.
type Config struct {
	SectionCount      int
	WorldFloorSection int // section index 0 corresponds to world y = WorldFloorSection*16
	AirValue          uint32
	BiomeValue        uint32
}

// LoadState is the three-valued result get_or_load returns: the caller
// either has the column in hand, knows a load is already in flight, or
// has just triggered one.
type LoadState int

const (
	Loaded LoadState = iota
	Loading
	Enqueued
)

type loadResult struct {
	coord  ColumnCoord
	column *chunk.Column
}

// BlockUpdateBatch is the tick-boundary drain's unit of work: the
// section that changed and the section-local indices within it.
type BlockUpdateBatch struct {
	Coord      ColumnCoord
	SectionIdx int
	Indices    []int
}

// NeighborFlag names a section whose boundary changed, for a lighting or
// meshing collaborator to pick up; the store only publishes the flag.
type NeighborFlag struct {
	Coord      ColumnCoord
	SectionIdx int
}

// Store owns every loaded column in the world, indexed by packed
// (cx,cz) through an intintmap so the hot get_block/set_block path never
// pays Go's randomized-seed map hashing.
type Store struct {
	cfg     Config
	regions *region.Manager
	reg     BlockRegistry

	mu      sync.RWMutex
	index   *intintmap.Map
	columns []*chunk.Column
	pending map[ColumnCoord]struct{}

	results chan loadResult

	neighborFlags []NeighborFlag
}

// NewStore returns a Store backed by regions, resolving block names
// through reg.
func NewStore(regions *region.Manager, reg BlockRegistry, cfg Config) *Store {
	return &Store{
		cfg:     cfg,
		regions: regions,
		reg:     reg,
		index:   intintmap.New(1024, 0.6),
		pending: make(map[ColumnCoord]struct{}),
		results: make(chan loadResult, 64),
	}
}

// GetOrLoad returns the column at coord if already resident, otherwise
// triggers (or reports an already-triggered) async load and returns nil.
func (s *Store) GetOrLoad(coord ColumnCoord) (*chunk.Column, LoadState) {
	s.mu.RLock()
	if slot, ok := s.index.Get(PackColumnCoord(coord)); ok {
		col := s.columns[slot]
		s.mu.RUnlock()
		return col, Loaded
	}
	_, pending := s.pending[coord]
	s.mu.RUnlock()

	if pending {
		return nil, Loading
	}

	s.mu.Lock()
	if _, ok := s.index.Get(PackColumnCoord(coord)); ok {
		s.mu.Unlock()
		return s.GetOrLoad(coord)
	}
	if _, already := s.pending[coord]; already {
		s.mu.Unlock()
		return nil, Loading
	}
	s.pending[coord] = struct{}{}
	s.mu.Unlock()

	go func() {
		s.results <- loadFromRegion(s.regions, coord, s.cfg, s.reg)
	}()
	return nil, Enqueued
}

// DrainCompletedLoads installs every load that has finished since the
// last call, returning the coordinates that became resident. Intended to
// be called once per tick from the game loop, never from a hot path that
// must not block: it never blocks itself, draining only what is already
// buffered in the results channel.
func (s *Store) DrainCompletedLoads() []ColumnCoord {
	var done []ColumnCoord
	for {
		select {
		case res := <-s.results:
			s.mu.Lock()
			slot := len(s.columns)
			s.columns = append(s.columns, res.column)
			s.index.Put(PackColumnCoord(res.coord), int64(slot))
			delete(s.pending, res.coord)
			s.mu.Unlock()
			done = append(done, res.coord)
		default:
			return done
		}
	}
}

// column returns the resident column at coord, or nil.
func (s *Store) column(coord ColumnCoord) *chunk.Column {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.index.Get(PackColumnCoord(coord))
	if !ok {
		return nil
	}
	return s.columns[slot]
}

func (s *Store) sectionIndex(y int32) int {
	return int(y>>4) - s.cfg.WorldFloorSection
}

// GetBlock returns the block at pos, or AirValue below the world floor
// or in an unloaded column.
func (s *Store) GetBlock(pos BlockPos) uint32 {
	col := s.column(columnCoordOf(pos))
	if col == nil {
		return s.cfg.AirValue
	}
	si := s.sectionIndex(pos.Y)
	x, z := localXZ(pos)
	ly := int(pos.Y) & 15
	return col.BlockAt(si, chunk.XZYToIndex(x, ly, z), s.cfg.AirValue)
}

// SetBlock sets the block at pos and returns its previous value. Setting
// a block on an unloaded column is a silent no-op returning AirValue —
// callers are expected to GetOrLoad first.
func (s *Store) SetBlock(pos BlockPos, v uint32) uint32 {
	col := s.column(columnCoordOf(pos))
	if col == nil {
		return s.cfg.AirValue
	}
	si := s.sectionIndex(pos.Y)
	if si < 0 || si >= len(col.Sections) {
		return s.cfg.AirValue
	}
	x, z := localXZ(pos)
	ly := int(pos.Y) & 15
	prev := col.SetBlockAt(si, chunk.XZYToIndex(x, ly, z), v)

	if ly == 0 || ly == 15 {
		s.mu.Lock()
		s.neighborFlags = append(s.neighborFlags, NeighborFlag{Coord: columnCoordOf(pos), SectionIdx: si})
		s.mu.Unlock()
	}
	return prev
}

// DrainNeighborFlags returns and clears every section-boundary flag
// raised since the last drain.
func (s *Store) DrainNeighborFlags() []NeighborFlag {
	s.mu.Lock()
	defer s.mu.Unlock()
	flags := s.neighborFlags
	s.neighborFlags = nil
	return flags
}

// DrainBlockUpdates walks every resident column and section, collecting
// one BlockUpdateBatch per section whose changed_since_last_tick is
// non-empty. Intended to run once per tick.
func (s *Store) DrainBlockUpdates() []BlockUpdateBatch {
	s.mu.RLock()
	cols := make([]*chunk.Column, len(s.columns))
	copy(cols, s.columns)
	s.mu.RUnlock()

	var batches []BlockUpdateBatch
	for _, col := range cols {
		for si, sec := range col.Sections {
			idx := sec.DrainChanged()
			if len(idx) == 0 {
				continue
			}
			batches = append(batches, BlockUpdateBatch{
				Coord:      ColumnCoord{CX: col.CX, CZ: col.CZ},
				SectionIdx: si,
				Indices:    idx,
			})
		}
	}
	return batches
}

// CumulativeDelta returns, for a late-joining viewer, every section-local
// index changed since coord's column was loaded, keyed by section.
func (s *Store) CumulativeDelta(coord ColumnCoord) map[int][]int {
	col := s.column(coord)
	if col == nil {
		return nil
	}
	out := make(map[int][]int)
	for si, sec := range col.Sections {
		if idx := sec.CumulativeChanged(); len(idx) > 0 {
			out[si] = idx
		}
	}
	return out
}

// ScanFor is a parallel iterator over every resident column, invoking
// visit for each block position holding value v. Each column is scanned
// on its own goroutine (columns never share section state, so no
// coordination is needed between them); visit itself is serialized
// behind a mutex since callers should not have to make it concurrency
// safe. A section whose UniqueCount is 1 is either entirely v (every
// cell emitted without a palette lookup per cell) or entirely not-v
// (skipped outright); only a mixed section pays the full 4096-cell scan.
func (s *Store) ScanFor(v uint32, visit func(BlockPos)) {
	s.mu.RLock()
	cols := make([]*chunk.Column, len(s.columns))
	copy(cols, s.columns)
	s.mu.RUnlock()

	var visitMu sync.Mutex
	serialized := func(pos BlockPos) {
		visitMu.Lock()
		visit(pos)
		visitMu.Unlock()
	}

	var g errgroup.Group
	for _, col := range cols {
		col := col
		g.Go(func() error {
			s.scanColumnFor(col, v, serialized)
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Store) scanColumnFor(col *chunk.Column, v uint32, visit func(BlockPos)) {
	for si, sec := range col.Sections {
		if sec.Blocks.UniqueCount() == 1 {
			if sec.Blocks.Get(0) != v {
				continue
			}
			s.emitWholeSection(col, si, visit)
			continue
		}
		for i := 0; i < chunk.SectionVolume; i++ {
			if sec.Blocks.Get(i) == v {
				visit(blockPosFromSection(col, si, i, s.cfg.WorldFloorSection))
			}
		}
	}
}

func (s *Store) emitWholeSection(col *chunk.Column, si int, visit func(BlockPos)) {
	for i := 0; i < chunk.SectionVolume; i++ {
		visit(blockPosFromSection(col, si, i, s.cfg.WorldFloorSection))
	}
}

func blockPosFromSection(col *chunk.Column, si, i, worldFloorSection int) BlockPos {
	x := i % 16
	z := (i / 16) % 16
	y := i / 256
	worldY := (si+worldFloorSection)*16 + y
	return BlockPos{X: col.CX*16 + int32(x), Y: int32(worldY), Z: col.CZ*16 + int32(z)}
}

// Len reports how many columns are currently resident.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.columns)
}
