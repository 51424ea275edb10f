// Package egress sits between game code and the proxy session: it
// accumulates the pending global-broadcast buffer with its exclusion
// list, resolves chunk-local multicast recipients via the spatial BVH,
// and translates all of that into proxy.ServerToProxy messages.
package egress

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/hyperion-mc/hyperion/bvh"
	"github.com/hyperion-mc/hyperion/proxy"
)

// Sender is the subset of proxy.Session egress needs, so tests can swap
// in a recorder without standing up a real connection.
type Sender interface {
	Send(ctx context.Context, msg proxy.ServerToProxy) error
}

// PlayerPos is one entry in the chunk-position snapshot the BVH is built
// over for broadcast_local queries.
type PlayerPos struct {
	Stream proxy.StreamID
	X, Z   int32
}

func playerPosAabb(p PlayerPos) bvh.Aabb {
	v := mgl32.Vec3{float32(p.X), 0, float32(p.Z)}
	return bvh.NewAabb(v, v)
}

// Buffer is the pending BroadcastGlobal accumulator (§3 "Exclusion
// list"). It is not safe for concurrent use from multiple goroutines at
// once without external synchronization; Egress wraps one in a mutex.
type Buffer struct {
	order      int64
	hasOrder   bool
	data       []byte
	exclusions map[proxy.StreamID][]proxy.Exclusion
}

func newBuffer() *Buffer {
	return &Buffer{exclusions: make(map[proxy.StreamID][]proxy.Exclusion)}
}

func (b *Buffer) reset() {
	b.order = 0
	b.hasOrder = false
	b.data = b.data[:0]
	for k := range b.exclusions {
		delete(b.exclusions, k)
	}
}

func (b *Buffer) isEmpty() bool { return len(b.data) == 0 && !b.hasOrder }

// Egress is the fan-out coordinator. Build one per game server instance
// and drive broadcast_global/broadcast_local/unicast from tick code; call
// Flush at the end of each tick's egress-assembly phase.
type Egress struct {
	sender Sender

	mu     sync.Mutex
	global *Buffer

	bvhPtr atomic.Pointer[bvh.Bvh[PlayerPos]]
}

// New returns an Egress that forwards flushed/unicast/multicast messages
// through sender.
func New(sender Sender) *Egress {
	e := &Egress{sender: sender, global: newBuffer()}
	e.bvhPtr.Store(bvh.Build[PlayerPos](nil, playerPosAabb))
	return e
}

// UpdateChunkPositions rebuilds the BVH snapshot broadcast_local queries
// run against. The old snapshot remains valid for any reader still mid
// query (copy-on-write via the atomic pointer swap).
func (e *Egress) UpdateChunkPositions(positions []PlayerPos) {
	e.bvhPtr.Store(bvh.Build(positions, playerPosAabb))
}

// BroadcastGlobal appends bytes to the pending global buffer. If
// orderKey differs from the buffer's current order, the buffer is
// flushed first (so each flushed message carries a single order key).
// When excludeStream is non-nil, the byte range bytes occupies within the
// (possibly just-reset) buffer is recorded as an exclusion for that
// player.
func (e *Egress) BroadcastGlobal(ctx context.Context, orderKey int64, payload []byte, excludeStream *proxy.StreamID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.global.hasOrder && e.global.order != orderKey {
		if err := e.flushLocked(ctx); err != nil {
			return err
		}
	}
	e.global.order = orderKey
	e.global.hasOrder = true

	start := len(e.global.data)
	e.global.data = append(e.global.data, payload...)
	end := len(e.global.data)

	if excludeStream != nil {
		e.global.exclusions[*excludeStream] = append(e.global.exclusions[*excludeStream], proxy.Exclusion{
			Stream: *excludeStream,
			Start:  int32(start),
			End:    int32(end),
		})
	}
	return nil
}

// Flush emits the pending global buffer (if non-empty) as one
// BroadcastGlobal message plus a Flush marker, then resets.
func (e *Egress) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flushLocked(ctx)
}

func (e *Egress) flushLocked(ctx context.Context) error {
	if !e.global.isEmpty() {
		flat := make([]proxy.Exclusion, 0, len(e.global.exclusions))
		for _, exs := range e.global.exclusions {
			flat = append(flat, exs...)
		}
		msg := proxy.ServerToProxy{
			Kind:       proxy.KindBroadcastGlobal,
			Order:      e.global.order,
			Bytes:      append([]byte(nil), e.global.data...),
			Exclusions: flat,
		}
		if err := e.sender.Send(ctx, msg); err != nil {
			return err
		}
		if err := e.sender.Send(ctx, proxy.Flush()); err != nil {
			return err
		}
	}
	e.global.reset()
	return nil
}

// BroadcastLocal resolves every player whose last-known chunk position
// falls within radius (Chebyshev: the square center±radius on chunk
// coords) of center, via
// the BVH snapshot, and emits one Multicast to them.
func (e *Egress) BroadcastLocal(ctx context.Context, centerX, centerZ, radius int32, payload []byte) error {
	tree := e.bvhPtr.Load()

	target := bvh.NewAabb(
		mgl32.Vec3{float32(centerX - radius), 0, float32(centerZ - radius)},
		mgl32.Vec3{float32(centerX + radius), 0, float32(centerZ + radius)},
	)

	var recipients []proxy.StreamID
	tree.ForEachOverlap(target, playerPosAabb, func(p PlayerPos) bool {
		recipients = append(recipients, p.Stream)
		return true
	})

	if len(recipients) == 0 {
		return nil
	}
	return e.sender.Send(ctx, proxy.Multicast(recipients, payload))
}

// Unicast forwards payload directly to one player with no local
// buffering. It takes no order key and the Unicast message carries none,
// so no ordering against BroadcastGlobal's order keys is expressed.
func (e *Egress) Unicast(ctx context.Context, stream proxy.StreamID, payload []byte) error {
	return e.sender.Send(ctx, proxy.Unicast(stream, payload))
}
