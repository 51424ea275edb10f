package tick

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/hyperion-mc/hyperion/chunk"
	"github.com/hyperion-mc/hyperion/palette"
	"github.com/hyperion-mc/hyperion/proxy"
	"github.com/hyperion-mc/hyperion/varint"
	"github.com/hyperion-mc/hyperion/world"
)

// JoinWorldPacketID tags the handshake packet a newly connected player
// must receive before any chunk data.
const JoinWorldPacketID int32 = 0x2b

// EncodeJoinWorld builds the minimal join-world handshake: packet id
// followed by the spawn column coordinate. The full vanilla login
// sequence (dimension codec, game mode, hashed seed) is a collaborator
// concern; this core only guarantees a join packet precedes chunk data,
// per the proxy handshake contract.
func EncodeJoinWorld(spawn world.ColumnCoord) []byte {
	var buf bytes.Buffer
	_ = varint.WriteVarInt(&buf, JoinWorldPacketID)
	_ = varint.WriteVarInt(&buf, spawn.CX)
	_ = varint.WriteVarInt(&buf, spawn.CZ)
	return buf.Bytes()
}

// HandlePlayerConnect answers a proxy PlayerConnect event: unicast the
// join-world packet, then the spawn column's chunk-data packet, loading
// the column synchronously if it is not yet resident. This runs outside
// the tick phases (on whatever goroutine observes the connect event), so
// it may block its caller until the column loads or ctx expires — bound
// ctx to the handshake latency budget.
func (l *Loop) HandlePlayerConnect(ctx context.Context, stream proxy.StreamID, spawn world.ColumnCoord, blockToBits, biomeToBits palette.ValueToBits) error {
	if err := l.egress.Unicast(ctx, stream, EncodeJoinWorld(spawn)); err != nil {
		return fmt.Errorf("tick: send join-world to stream %d: %w", stream, err)
	}

	col, err := l.awaitColumn(ctx, spawn)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := col.Encode(&buf, blockToBits, biomeToBits); err != nil {
		return fmt.Errorf("tick: encode chunk data for %v: %w", spawn, err)
	}
	if err := l.egress.Unicast(ctx, stream, buf.Bytes()); err != nil {
		return fmt.Errorf("tick: send chunk data to stream %d: %w", stream, err)
	}
	return nil
}

// awaitColumn returns the resident column at coord, triggering a load if
// none is in flight and polling the store's completed-load drain until
// it lands or ctx is done.
func (l *Loop) awaitColumn(ctx context.Context, coord world.ColumnCoord) (*chunk.Column, error) {
	if col, state := l.store.GetOrLoad(coord); state == world.Loaded {
		return col, nil
	}

	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("tick: await column %v: %w", coord, ctx.Err())
		case <-poll.C:
			l.store.DrainCompletedLoads()
			if col, state := l.store.GetOrLoad(coord); state == world.Loaded {
				return col, nil
			}
		}
	}
}
