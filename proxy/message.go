// Package proxy implements the duplex session to the separate proxy
// process that terminates player TCP connections. The server never talks
// raw Minecraft protocol to a socket directly; it exchanges these framed,
// tagged-union control messages with the proxy, which does.
package proxy

import "fmt"

// StreamID is the proxy-assigned opaque handle for a connected player.
type StreamID uint64

// ChunkPos is a player's last-known chunk position, used by the server to
// rebuild the BVH egress.broadcast_local queries against.
type ChunkPos struct {
	Stream StreamID
	X, Z   int32
}

// Exclusion names a byte range within a pending BroadcastGlobal buffer
// that must be skipped for one recipient (see egress.Buffer).
type Exclusion struct {
	Stream     StreamID
	Start, End int32
}

// ServerToProxyKind tags the variant of a ServerToProxy message.
type ServerToProxyKind uint8

const (
	KindPlayerDisconnect ServerToProxyKind = iota
	KindUnicast
	KindMulticast
	KindBroadcastGlobal
	KindBroadcastLocal
	KindSetReceiveBroadcasts
	KindFlush
	KindUpdatePlayerChunkPositions
)

func (k ServerToProxyKind) String() string {
	switch k {
	case KindPlayerDisconnect:
		return "PlayerDisconnect"
	case KindUnicast:
		return "Unicast"
	case KindMulticast:
		return "Multicast"
	case KindBroadcastGlobal:
		return "BroadcastGlobal"
	case KindBroadcastLocal:
		return "BroadcastLocal"
	case KindSetReceiveBroadcasts:
		return "SetReceiveBroadcasts"
	case KindFlush:
		return "Flush"
	case KindUpdatePlayerChunkPositions:
		return "UpdatePlayerChunkPositions"
	default:
		return fmt.Sprintf("ServerToProxyKind(%d)", uint8(k))
	}
}

// ServerToProxy is the tagged union of every message the server may send
// to the proxy. Only the fields relevant to Kind are populated; see
// §4.G's message list for which.
type ServerToProxy struct {
	Kind ServerToProxyKind

	Stream    StreamID   // PlayerDisconnect, Unicast, SetReceiveBroadcasts
	Streams   []StreamID // Multicast, UpdatePlayerChunkPositions (ids only)
	Bytes     []byte     // Unicast, Multicast, BroadcastGlobal, BroadcastLocal

	Order          int64      // BroadcastGlobal
	HasExclude     bool       // BroadcastGlobal
	ExcludeStream  StreamID   // BroadcastGlobal, when HasExclude
	Exclusions     []Exclusion // BroadcastGlobal: per-recipient skipped ranges

	CenterX, CenterZ int32 // BroadcastLocal
	Radius           int32 // BroadcastLocal

	ChunkPositions []ChunkPos // UpdatePlayerChunkPositions
}

// PlayerDisconnect builds a PlayerDisconnect message.
func PlayerDisconnect(stream StreamID) ServerToProxy {
	return ServerToProxy{Kind: KindPlayerDisconnect, Stream: stream}
}

// Unicast builds a Unicast message.
func Unicast(stream StreamID, body []byte) ServerToProxy {
	return ServerToProxy{Kind: KindUnicast, Stream: stream, Bytes: body}
}

// Multicast builds a Multicast message.
func Multicast(streams []StreamID, body []byte) ServerToProxy {
	return ServerToProxy{Kind: KindMulticast, Streams: streams, Bytes: body}
}

// Flush builds a Flush marker message.
func Flush() ServerToProxy { return ServerToProxy{Kind: KindFlush} }

// SetReceiveBroadcasts builds a SetReceiveBroadcasts message.
func SetReceiveBroadcasts(stream StreamID) ServerToProxy {
	return ServerToProxy{Kind: KindSetReceiveBroadcasts, Stream: stream}
}

// UpdatePlayerChunkPositions builds an UpdatePlayerChunkPositions message.
func UpdatePlayerChunkPositions(positions []ChunkPos) ServerToProxy {
	return ServerToProxy{Kind: KindUpdatePlayerChunkPositions, ChunkPositions: positions}
}

// ProxyToServerKind tags the variant of a ProxyToServer message.
type ProxyToServerKind uint8

const (
	EventPlayerConnect ProxyToServerKind = iota
	EventPlayerDisconnect
	EventPlayerPackets
)

func (k ProxyToServerKind) String() string {
	switch k {
	case EventPlayerConnect:
		return "PlayerConnect"
	case EventPlayerDisconnect:
		return "PlayerDisconnect"
	case EventPlayerPackets:
		return "PlayerPackets"
	default:
		return fmt.Sprintf("ProxyToServerKind(%d)", uint8(k))
	}
}

// ProxyToServer is the tagged union of every message the proxy may send to
// the server.
type ProxyToServer struct {
	Kind   ProxyToServerKind
	Stream StreamID
	Bytes  []byte // PlayerPackets only
}
