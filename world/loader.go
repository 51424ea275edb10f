package world

import (
	"bytes"
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/nbt"

	"github.com/hyperion-mc/hyperion/chunk"
	"github.com/hyperion-mc/hyperion/region"
)

// BlockRegistry resolves a chunk-format block name (plus its property
// compound) to the store's internal runtime id. The store only needs an
// id, not the full block behavior table, so this keeps world decoupled
// from any particular block catalog.
type BlockRegistry interface {
	RuntimeID(name string, properties map[string]any) uint32
	Name(runtimeID uint32) string
}

type nbtChunk struct {
	Sections []nbtSection `nbt:"sections"`
}

type nbtSection struct {
	Y           int8            `nbt:"Y"`
	BlockStates nbtBlockStorage `nbt:"block_states"`
	Biomes      nbtBlockStorage `nbt:"biomes"`
}

type nbtBlockStorage struct {
	Palette []nbtPaletteEntry `nbt:"palette"`
	Data    []int64           `nbt:"data"`
}

type nbtPaletteEntry struct {
	Name       string         `nbt:"Name"`
	Properties map[string]any `nbt:"Properties"`
}

// DiskDecode parses the NBT chunk payload produced by a region file's
// ReadChunk into a Column. A zero-length payload (chunk absent, region.
// ErrChunkAbsent already handled by the caller) or any NBT/format error
// yields an empty, all-air column rather than propagating the error past
// the loader boundary, matching the loader contract: a malformed disk
// chunk must not bring down the tick loop.
func DiskDecode(payload []byte, cx, cz int32, cfg Config, reg BlockRegistry) *chunk.Column {
	col := chunk.NewColumn(cx, cz, cfg.SectionCount, cfg.AirValue, cfg.BiomeValue)
	if len(payload) == 0 {
		return col
	}

	var raw nbtChunk
	if err := nbt.NewDecoder(bytes.NewReader(payload)).Decode(&raw); err != nil {
		return col
	}

	for _, sec := range raw.Sections {
		idx := int(sec.Y) - cfg.WorldFloorSection
		if idx < 0 || idx >= len(col.Sections) {
			continue
		}
		if err := fillSection(col.Sections[idx].Blocks, sec.BlockStates, reg.RuntimeID); err != nil {
			continue
		}
	}
	return col
}

// paletteResolver maps a palette entry to a runtime id.
type paletteResolver func(name string, properties map[string]any) uint32

func fillSection(target interface {
	Set(i int, v uint32) uint32
}, storage nbtBlockStorage, resolve paletteResolver) error {
	n := len(storage.Palette)
	if n == 0 {
		return nil
	}
	if n == 1 {
		id := resolve(storage.Palette[0].Name, storage.Palette[0].Properties)
		for i := 0; i < chunk.SectionVolume; i++ {
			target.Set(i, id)
		}
		return nil
	}

	ids := make([]uint32, n)
	for i, e := range storage.Palette {
		ids[i] = resolve(e.Name, e.Properties)
	}

	bitsPerEntry := bitWidth(n)
	if bitsPerEntry < 4 {
		bitsPerEntry = 4
	}
	indices, err := unpackCompactLongs(storage.Data, bitsPerEntry, chunk.SectionVolume)
	if err != nil {
		return err
	}
	for i, slot := range indices {
		if int(slot) >= n {
			return fmt.Errorf("world: palette index %d out of range (len=%d)", slot, n)
		}
		target.Set(i, ids[slot])
	}
	return nil
}

// unpackCompactLongs reverses the Anvil on-disk long-array packing: count
// entries of bitsPerEntry bits each, packed low-bit-first, never
// straddling a 64-bit word boundary.
func unpackCompactLongs(data []int64, bitsPerEntry, count int) ([]uint32, error) {
	perLong := 64 / bitsPerEntry
	wantLongs := (count + perLong - 1) / perLong
	if len(data) < wantLongs {
		return nil, fmt.Errorf("world: expected at least %d longs for %d entries at %d bits, got %d", wantLongs, count, bitsPerEntry, len(data))
	}
	mask := uint64(1)<<uint(bitsPerEntry) - 1
	out := make([]uint32, count)
	for i := 0; i < count; i++ {
		word := uint64(data[i/perLong])
		shift := uint(i%perLong) * uint(bitsPerEntry)
		out[i] = uint32((word >> shift) & mask)
	}
	return out, nil
}

func bitWidth(n int) int {
	w := 0
	for (1 << uint(w)) < n {
		w++
	}
	return w
}

// loadFromRegion runs on the goroutine Store.GetOrLoad spawns: it
// fetches the region file, reads the chunk payload, decodes it, and
// returns the finished column, which that goroutine then sends on the
// store's completion channel. It never touches store state directly, so
// it can never block the tick loop regardless of disk latency.
func loadFromRegion(regions *region.Manager, coord ColumnCoord, cfg Config, reg BlockRegistry) loadResult {
	f, err := regions.Get(coord.CX, coord.CZ)
	if err != nil {
		return loadResult{coord: coord, column: chunk.NewColumn(coord.CX, coord.CZ, cfg.SectionCount, cfg.AirValue, cfg.BiomeValue)}
	}

	payload, err := f.ReadChunk(coord.CX, coord.CZ)
	if err != nil {
		// ErrChunkAbsent and any other read error both yield an empty
		// column per the loader contract (E4).
		return loadResult{coord: coord, column: chunk.NewColumn(coord.CX, coord.CZ, cfg.SectionCount, cfg.AirValue, cfg.BiomeValue)}
	}

	return loadResult{coord: coord, column: DiskDecode(payload, coord.CX, coord.CZ, cfg, reg)}
}
