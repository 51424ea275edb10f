package proxy

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameLen bounds a single proxy frame; frames above this are a framing
// error (the proxy process is trusted but not infallible).
const MaxFrameLen = 64 * 1024 * 1024

// WriteFrame writes an 8-byte big-endian length prefix followed by body.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameLen {
		return fmt.Errorf("proxy: frame of %d bytes exceeds max %d", len(body), MaxFrameLen)
	}
	var hdr [8]byte
	binary.BigEndian.PutUint64(hdr[:], uint64(len(body)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [8]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(hdr[:])
	if n > MaxFrameLen {
		return nil, fmt.Errorf("proxy: declared frame length %d exceeds max %d", n, MaxFrameLen)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

// EncodeServerToProxy serializes msg as a tagged union: 1-byte kind tag
// followed by kind-specific fields. Multi-byte integers are big-endian;
// variable-length fields (byte strings, id lists) are length-prefixed
// with a uint32.
func EncodeServerToProxy(w io.Writer, msg ServerToProxy) error {
	bw := bufio.NewWriter(w)
	if err := writeU8(bw, uint8(msg.Kind)); err != nil {
		return err
	}

	switch msg.Kind {
	case KindPlayerDisconnect, KindSetReceiveBroadcasts:
		if err := writeU64(bw, uint64(msg.Stream)); err != nil {
			return err
		}

	case KindUnicast:
		if err := writeU64(bw, uint64(msg.Stream)); err != nil {
			return err
		}
		if err := writeBytes(bw, msg.Bytes); err != nil {
			return err
		}

	case KindMulticast:
		if err := writeStreamIDs(bw, msg.Streams); err != nil {
			return err
		}
		if err := writeBytes(bw, msg.Bytes); err != nil {
			return err
		}

	case KindBroadcastGlobal:
		if err := writeI64(bw, msg.Order); err != nil {
			return err
		}
		if err := writeBytes(bw, msg.Bytes); err != nil {
			return err
		}
		if err := writeBool(bw, msg.HasExclude); err != nil {
			return err
		}
		if msg.HasExclude {
			if err := writeU64(bw, uint64(msg.ExcludeStream)); err != nil {
				return err
			}
		}
		if err := writeU32(bw, uint32(len(msg.Exclusions))); err != nil {
			return err
		}
		for _, ex := range msg.Exclusions {
			if err := writeU64(bw, uint64(ex.Stream)); err != nil {
				return err
			}
			if err := writeI32(bw, ex.Start); err != nil {
				return err
			}
			if err := writeI32(bw, ex.End); err != nil {
				return err
			}
		}

	case KindBroadcastLocal:
		if err := writeI32(bw, msg.CenterX); err != nil {
			return err
		}
		if err := writeI32(bw, msg.CenterZ); err != nil {
			return err
		}
		if err := writeI32(bw, msg.Radius); err != nil {
			return err
		}
		if err := writeBytes(bw, msg.Bytes); err != nil {
			return err
		}

	case KindFlush:
		// no payload

	case KindUpdatePlayerChunkPositions:
		if err := writeU32(bw, uint32(len(msg.ChunkPositions))); err != nil {
			return err
		}
		for _, p := range msg.ChunkPositions {
			if err := writeU64(bw, uint64(p.Stream)); err != nil {
				return err
			}
			if err := writeI32(bw, p.X); err != nil {
				return err
			}
			if err := writeI32(bw, p.Z); err != nil {
				return err
			}
		}

	default:
		return fmt.Errorf("proxy: unknown ServerToProxy kind %d", msg.Kind)
	}

	return bw.Flush()
}

// DecodeProxyToServer parses body (as produced by the proxy process) into
// a ProxyToServer message.
func DecodeProxyToServer(body []byte) (ProxyToServer, error) {
	if len(body) < 1 {
		return ProxyToServer{}, fmt.Errorf("proxy: empty message body")
	}
	kind := ProxyToServerKind(body[0])
	rest := body[1:]

	switch kind {
	case EventPlayerConnect, EventPlayerDisconnect:
		stream, _, err := readU64(rest)
		if err != nil {
			return ProxyToServer{}, fmt.Errorf("proxy: decode %s: %w", kind, err)
		}
		return ProxyToServer{Kind: kind, Stream: StreamID(stream)}, nil

	case EventPlayerPackets:
		stream, n, err := readU64(rest)
		if err != nil {
			return ProxyToServer{}, fmt.Errorf("proxy: decode %s stream id: %w", kind, err)
		}
		payload, _, err := readBytes(rest[n:])
		if err != nil {
			return ProxyToServer{}, fmt.Errorf("proxy: decode %s payload: %w", kind, err)
		}
		return ProxyToServer{Kind: kind, Stream: StreamID(stream), Bytes: payload}, nil

	default:
		return ProxyToServer{}, fmt.Errorf("proxy: unknown ProxyToServer kind %d", kind)
	}
}

func writeU8(w io.Writer, v uint8) error {
	_, err := w.Write([]byte{v})
	return err
}

func writeBool(w io.Writer, v bool) error {
	if v {
		return writeU8(w, 1)
	}
	return writeU8(w, 0)
}

func writeU32(w io.Writer, v uint32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI32(w io.Writer, v int32) error { return writeU32(w, uint32(v)) }

func writeU64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeI64(w io.Writer, v int64) error { return writeU64(w, uint64(v)) }

func writeBytes(w io.Writer, b []byte) error {
	if err := writeU32(w, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func writeStreamIDs(w io.Writer, ids []StreamID) error {
	if err := writeU32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeU64(w, uint64(id)); err != nil {
			return err
		}
	}
	return nil
}

func readU64(b []byte) (uint64, int, error) {
	if len(b) < 8 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint64(b), 8, nil
}

func readU32(b []byte) (uint32, int, error) {
	if len(b) < 4 {
		return 0, 0, io.ErrUnexpectedEOF
	}
	return binary.BigEndian.Uint32(b), 4, nil
}

func readBytes(b []byte) ([]byte, int, error) {
	n, consumed, err := readU32(b)
	if err != nil {
		return nil, 0, err
	}
	total := consumed + int(n)
	if len(b) < total {
		return nil, 0, io.ErrUnexpectedEOF
	}
	out := make([]byte, n)
	copy(out, b[consumed:total])
	return out, total, nil
}
