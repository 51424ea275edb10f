// Package tick drives the game loop's five per-tick phases — ingest
// decode, event dispatch, world mutation, egress assembly, arena reset —
// across a data-parallel worker pool, wiring together ring, arena,
// protocol, event, world, egress, and scheduled.
package tick

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hyperion-mc/hyperion/arena"
	"github.com/hyperion-mc/hyperion/egress"
	"github.com/hyperion-mc/hyperion/event"
	"github.com/hyperion-mc/hyperion/protocol"
	"github.com/hyperion-mc/hyperion/ring"
	"github.com/hyperion-mc/hyperion/scheduled"
	"github.com/hyperion-mc/hyperion/world"
)

// IncomingPacket is one decoded client frame, tagged with the connection
// it arrived on.
type IncomingPacket struct {
	Conn *Connection
	ID   int32
	Body []byte
}

// Handler processes one IncomingPacket during the dispatch phase. It may
// mutate world state directly — dispatch and mutation share the same
// single-writer phase, so handlers need no locking of their own against
// each other, only against concurrent readers the Store already guards.
type Handler func(ctx context.Context, pkt IncomingPacket) error

// DestructionStage is a scheduled.Scheduled payload for the staged
// block-destruction animation (spec component I's worked example):
// SetDestructionLevel{pos, seq, stage} fired at start+(duration/10)*stage.
type DestructionStage struct {
	Pos   world.BlockPos
	Seq   uint64
	Stage int
}

// Connection is one client's ingest ring plus its packet decoder state.
// The goroutine receiving the client's bytes writes into Ingest's
// producer (via FeedPackets); the tick loop only ever reads Ingest's
// consumer end. Outgoing bytes go through the egress package, not a
// per-connection ring. Generation tags the proxy connection
// epoch (proxy.Session.Generation) this Connection was created under, so
// a reconnect can garbage-collect every Connection from a prior epoch
// via RemoveStaleGenerations instead of requiring an explicit disconnect
// event per stranded stream.
type Connection struct {
	Stream     uint64
	Generation uuid.UUID
	Ingest     *ring.Ring
	Decoder    *protocol.Decoder
}

// Config fixes the loop's fan-out and queue sizing.
type Config struct {
	Workers           int
	IncomingQueueSize int
	BroadcastRadius   int32
}

// Loop owns everything one call to Tick touches.
type Loop struct {
	cfg Config

	arenas *arena.Pool
	store  *world.Store
	egress *egress.Egress
	sched  *scheduled.Scheduled[int64, DestructionStage]

	mu          sync.Mutex
	connections []*Connection
	handlers    map[int32]Handler
	incoming    *event.Queue[IncomingPacket]
}

// NewLoop returns a Loop driving store and egress with cfg.Workers
// parallel decode/dispatch goroutines.
func NewLoop(cfg Config, store *world.Store, eg *egress.Egress) *Loop {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.IncomingQueueSize <= 0 {
		cfg.IncomingQueueSize = 4096
	}
	return &Loop{
		cfg:      cfg,
		arenas:   arena.NewPool(cfg.Workers, 64*1024),
		store:    store,
		egress:   eg,
		sched:    scheduled.New[int64, DestructionStage](),
		handlers: make(map[int32]Handler),
		incoming: event.NewQueue[IncomingPacket](cfg.IncomingQueueSize),
	}
}

// RegisterHandler installs the handler invoked for packets with the
// given id during the dispatch phase. Registering twice for the same id
// replaces the previous handler.
func (l *Loop) RegisterHandler(id int32, h Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[id] = h
}

// AddConnection registers a connection so future ticks decode its
// ingest ring.
func (l *Loop) AddConnection(c *Connection) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connections = append(l.connections, c)
}

// RemoveConnection drops the connection for stream, if any, so future
// ticks stop decoding its ingest ring. Safe to call for an unknown
// stream (a no-op).
func (l *Loop) RemoveConnection(stream uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range l.connections {
		if c.Stream == stream {
			l.connections = append(l.connections[:i], l.connections[i+1:]...)
			return
		}
	}
}

// RemoveStaleGenerations drops every connection not tagged with current,
// garbage-collecting players created under a previous proxy session —
// the reconnect contract spec component G names ("all players created
// under the previous session are garbage-collected").
func (l *Loop) RemoveStaleGenerations(current uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.connections[:0]
	for _, c := range l.connections {
		if c.Generation == current {
			kept = append(kept, c)
		}
	}
	l.connections = kept
}

// FeedPackets writes proxy-delivered bytes for stream into its ingest
// ring so the next tick's decode phase picks them up. It returns an
// error if stream has no registered connection, or if the ring had
// insufficient room for the whole payload (callers size rings generously
// relative to expected per-tick traffic; this is not expected on the
// happy path).
func (l *Loop) FeedPackets(stream uint64, data []byte) error {
	conn := l.connectionByStream(stream)
	if conn == nil {
		return fmt.Errorf("tick: feed packets: no connection for stream %d", stream)
	}

	producer := conn.Ingest.Producer()
	slices := producer.WritableSlices()
	n := copy(slices[0], data)
	n += copy(slices[1], data[n:])
	producer.Commit(n)
	if n < len(data) {
		return fmt.Errorf("tick: feed packets: ring full for stream %d, dropped %d of %d bytes", stream, len(data)-n, len(data))
	}
	return nil
}

func (l *Loop) connectionByStream(stream uint64) *Connection {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.connections {
		if c.Stream == stream {
			return c
		}
	}
	return nil
}

// ScheduleDestructionStages enqueues the eleven SetDestructionLevel stages
// (0 through 10)
// for a block-break animation starting at startTick and running for
// durationTicks, per spec component I's worked example.
func (l *Loop) ScheduleDestructionStages(pos world.BlockPos, seq uint64, startTick, durationTicks int64) {
	for stage := 0; stage <= 10; stage++ {
		fireAt := startTick + (durationTicks*int64(stage))/10
		l.sched.Schedule(fireAt, DestructionStage{Pos: pos, Seq: seq, Stage: stage})
	}
}

// Tick runs the five phases once for tick number now, returning the
// destruction stages that fired (for the caller to turn into wire
// packets) and any non-recoverable error. Per-connection decode errors
// and handler errors are logged by the caller via onError and do not
// abort the tick.
func (l *Loop) Tick(ctx context.Context, now int64, onError func(err error)) ([]DestructionStage, error) {
	if err := l.phaseIngestDecode(ctx, onError); err != nil {
		return nil, err
	}
	l.phaseEventDispatch(ctx, onError)
	fired := l.sched.PopUntil(now)
	l.phaseEgressAssembly(ctx, onError)
	l.arenas.ResetAll()
	return fired, nil
}

// phaseIngestDecode drains every connection's ingest ring through its
// decoder and pushes decoded frames onto the incoming queue, fanned out
// across cfg.Workers goroutines via errgroup.
func (l *Loop) phaseIngestDecode(ctx context.Context, onError func(error)) error {
	l.mu.Lock()
	conns := make([]*Connection, len(l.connections))
	copy(conns, l.connections)
	l.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Workers)
	for _, c := range conns {
		c := c
		g.Go(func() error {
			return l.decodeConnection(gctx, c, onError)
		})
	}
	return g.Wait()
}

func (l *Loop) decodeConnection(ctx context.Context, c *Connection, onError func(error)) error {
	consumer := c.Ingest.Consumer()
	chunkBytes := consumer.ReadableSlice()
	if len(chunkBytes) > 0 {
		c.Decoder.Queue(chunkBytes)
		consumer.Advance(len(chunkBytes))
	}

	for {
		frame, err := c.Decoder.TryNextPacket()
		if err != nil {
			if onError != nil {
				onError(fmt.Errorf("tick: decode stream %d: %w", c.Stream, err))
			}
			return nil
		}
		if frame == nil {
			return nil
		}
		if err := l.incoming.Push(IncomingPacket{Conn: c, ID: frame.ID, Body: frame.Body}); err != nil {
			if onError != nil {
				onError(fmt.Errorf("tick: incoming queue full, dropping packet %d from stream %d: %w", frame.ID, c.Stream, err))
			}
		}
	}
}

// phaseEventDispatch drains the incoming queue, invoking the registered
// handler for each packet's id. Dispatch and world mutation share one
// phase: the store is single-writer for the whole of it.
func (l *Loop) phaseEventDispatch(ctx context.Context, onError func(error)) {
	l.mu.Lock()
	handlers := l.handlers
	l.mu.Unlock()

	l.incoming.Drain(func(pkt IncomingPacket) {
		h, ok := handlers[pkt.ID]
		if !ok {
			return
		}
		if err := h(ctx, pkt); err != nil && onError != nil {
			onError(fmt.Errorf("tick: handler for packet %d: %w", pkt.ID, err))
		}
	})
	l.incoming.Reset()
}

// phaseEgressAssembly drains the store's per-tick block-update batches
// and broadcasts each to players local to that column via the egress
// fan-out's BVH-backed proximity query.
func (l *Loop) phaseEgressAssembly(ctx context.Context, onError func(error)) {
	for _, batch := range l.store.DrainBlockUpdates() {
		payload := EncodeBlockUpdateBatch(batch)
		centerX := batch.Coord.CX
		centerZ := batch.Coord.CZ
		if err := l.egress.BroadcastLocal(ctx, centerX, centerZ, l.cfg.BroadcastRadius, payload); err != nil && onError != nil {
			onError(fmt.Errorf("tick: broadcast block update for %v: %w", batch.Coord, err))
		}
	}
	if err := l.egress.Flush(ctx); err != nil && onError != nil {
		onError(fmt.Errorf("tick: egress flush: %w", err))
	}
}
