package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperion-mc/hyperion/protocol"
	"github.com/hyperion-mc/hyperion/proxy"
	"github.com/hyperion-mc/hyperion/ring"
	"github.com/hyperion-mc/hyperion/tick"
	"github.com/hyperion-mc/hyperion/world"
)

// ingestRingCapacity sizes each connection's ingest ring generously
// relative to expected per-tick client traffic.
const ingestRingCapacity = 64 * 1024

// handshakeBudget bounds how long HandlePlayerConnect may take to land
// the join-world and chunk-data packets, per spec's E1 scenario.
const handshakeBudget = 200 * time.Millisecond

// spawnColumn is the column every newly connected player is handed on
// join; a real spawn-point collaborator would resolve this per-player.
var spawnColumn = world.ColumnCoord{CX: 0, CZ: 0}

func identityBits(v uint32) uint64 { return uint64(v) }

// runProxyEvents drains session.Events() for the lifetime of ctx,
// translating each proxy event into the tick.Loop call it implies: a
// PlayerConnect registers a Connection (tagged with the session's
// current generation) and runs the join handshake; PlayerPackets feeds
// the raw client packet bytes into that connection's ingest ring (the
// tick loop decodes them); PlayerDisconnect removes it. Events carry no
// generation of their own: whenever the session's generation, read as
// each event is drained, differs from the last one seen, every
// connection from the previous generation is dropped first,
// satisfying the reconnect contract ("players created under the previous
// session are garbage-collected") without waiting on an explicit
// disconnect event per stranded stream.
func runProxyEvents(ctx context.Context, session *proxy.Session, loop *tick.Loop, compressionThreshold int, log zerolog.Logger) {
	var lastGen uuid.UUID

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-session.Events():
			gen := session.Generation()
			if gen != lastGen {
				loop.RemoveStaleGenerations(gen)
				lastGen = gen
			}

			switch evt.Kind {
			case proxy.EventPlayerConnect:
				decoder := protocol.NewDecoder()
				decoder.SetCompression(compressionThreshold)
				conn := &tick.Connection{
					Stream:     uint64(evt.Stream),
					Generation: gen,
					Ingest:     ring.New(ingestRingCapacity),
					Decoder:    decoder,
				}
				loop.AddConnection(conn)

				go func(stream proxy.StreamID) {
					hctx, cancel := context.WithTimeout(ctx, handshakeBudget)
					defer cancel()
					if err := loop.HandlePlayerConnect(hctx, stream, spawnColumn, identityBits, identityBits); err != nil {
						log.Warn().Err(err).Uint64("stream", uint64(stream)).Msg("player-connect handshake")
					}
				}(evt.Stream)

			case proxy.EventPlayerDisconnect:
				loop.RemoveConnection(uint64(evt.Stream))

			case proxy.EventPlayerPackets:
				if err := loop.FeedPackets(uint64(evt.Stream), evt.Bytes); err != nil {
					log.Warn().Err(err).Uint64("stream", uint64(evt.Stream)).Msg("feed packets")
				}
			}
		}
	}
}
