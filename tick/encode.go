package tick

import (
	"bytes"

	"github.com/hyperion-mc/hyperion/varint"
	"github.com/hyperion-mc/hyperion/world"
)

// UpdateSectionBlocksPacketID is the Java-edition play-state packet id
// for a multi-block change within one section.
const UpdateSectionBlocksPacketID int32 = 0x41

// EncodeBlockUpdateBatch encodes a world.BlockUpdateBatch as an Update
// Section Blocks packet: packet id, a packed section position long,
// VarInt count, then one VarInt per change packing the section-local
// position into its low 12 bits — state ids are omitted here since the
// Store only tracks palette entries, not wire block-state ids; a
// collaborator with the block registry fills those in before the batch
// reaches the network (see world.BlockRegistry).
func EncodeBlockUpdateBatch(batch world.BlockUpdateBatch) []byte {
	var buf bytes.Buffer
	_ = varint.WriteVarInt(&buf, UpdateSectionBlocksPacketID)

	sectionPos := packSectionPos(batch.Coord.CX, int32(batch.SectionIdx), batch.Coord.CZ)
	var posBytes [8]byte
	putU64BE(posBytes[:], uint64(sectionPos))
	buf.Write(posBytes[:])

	_ = varint.WriteVarIntU(&buf, uint64(len(batch.Indices)))
	for _, idx := range batch.Indices {
		x := idx % 16
		z := (idx / 16) % 16
		y := idx / 256
		packed := (x << 8) | (z << 4) | y
		_ = varint.WriteVarIntU(&buf, uint64(packed))
	}
	return buf.Bytes()
}

// packSectionPos packs a section coordinate the way vanilla's section
// position long does: 22 bits x, 22 bits z, 20 bits y, each two's
// complement.
func packSectionPos(x, y, z int32) int64 {
	return (int64(x)&0x3FFFFF)<<42 | (int64(z)&0x3FFFFF)<<20 | (int64(y) & 0xFFFFF)
}

func putU64BE(b []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
}
