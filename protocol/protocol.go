// Package protocol implements the length-prefixed, optionally zlib
// compressed framing the ingest/egress path speaks: VarInt(packet_len)
// [VarInt(data_len) [zlib(data)]] where the inner data_len/compression
// wrapper only appears once compression has been negotiated.
package protocol

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/hyperion-mc/hyperion/varint"
)

// NoCompression disables the compression wrapper entirely: frames are
// VarInt(packet_len) followed directly by packet_len bytes.
const NoCompression = -1

// Frame is one decoded, decompressed packet: a VarInt id followed by its
// body, both already stripped out of the wire length/compression framing.
type Frame struct {
	ID   int32
	Body []byte
}

// Decoder accumulates raw bytes from the wire (via Queue) and peels off
// complete Frames once enough of the stream has arrived.
type Decoder struct {
	buf         bytes.Buffer
	threshold   int // -1 disables compression; must match the encoder's
}

// NewDecoder returns a Decoder with compression disabled.
func NewDecoder() *Decoder {
	return &Decoder{threshold: NoCompression}
}

// SetCompression enables zlib framing once a packet's decompressed size
// exceeds threshold bytes; pass NoCompression to disable.
func (d *Decoder) SetCompression(threshold int) { d.threshold = threshold }

// Compression returns the currently configured threshold.
func (d *Decoder) Compression() int { return d.threshold }

// Queue appends newly received bytes to the decode buffer.
func (d *Decoder) Queue(b []byte) { d.buf.Write(b) }

// Len reports how many undecoded bytes remain queued.
func (d *Decoder) Len() int { return d.buf.Len() }

// TryNextPacket attempts to decode one complete Frame from the queued
// bytes. It returns (nil, nil) when not enough data has arrived yet —
// callers should Queue more and retry.
func (d *Decoder) TryNextPacket() (*Frame, error) {
	raw := d.buf.Bytes()

	packetLen, lenSize, err := varint.PeekVarInt(raw)
	if err == varint.ErrIncomplete {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("protocol: malformed packet length varint: %w", err)
	}
	if packetLen < 0 || packetLen > varint.MaxPacketSize {
		return nil, fmt.Errorf("protocol: packet length %d out of bounds", packetLen)
	}

	if len(raw)-lenSize < int(packetLen) {
		return nil, nil // body hasn't fully arrived
	}

	body := raw[lenSize : lenSize+int(packetLen)]
	totalConsumed := lenSize + int(packetLen)

	var data []byte
	if d.threshold >= 0 {
		dataLen, dataLenSize, err := varint.PeekVarInt(body)
		if err != nil {
			return nil, fmt.Errorf("protocol: malformed data length varint: %w", err)
		}
		if dataLen < 0 || dataLen >= varint.MaxPacketSize {
			return nil, fmt.Errorf("protocol: decompressed length %d out of bounds", dataLen)
		}

		rest := body[dataLenSize:]
		if dataLen > 0 {
			if int(dataLen) <= d.threshold {
				return nil, fmt.Errorf("protocol: decompressed length %d <= compression threshold %d", dataLen, d.threshold)
			}
			zr, err := zlib.NewReader(bytes.NewReader(rest))
			if err != nil {
				return nil, fmt.Errorf("protocol: open zlib stream: %w", err)
			}
			out := make([]byte, dataLen)
			if _, err := io.ReadFull(zr, out); err != nil {
				return nil, fmt.Errorf("protocol: zlib decompress: %w", err)
			}
			_ = zr.Close()
			data = out
		} else {
			if len(rest) > d.threshold {
				return nil, fmt.Errorf("protocol: uncompressed length %d exceeds compression threshold %d", len(rest), d.threshold)
			}
			data = append([]byte(nil), rest...)
		}
	} else {
		data = append([]byte(nil), body...)
	}

	d.buf.Next(totalConsumed)

	id, idSize, err := varint.PeekVarInt(data)
	if err != nil {
		return nil, fmt.Errorf("protocol: decode packet id: %w", err)
	}

	return &Frame{ID: id, Body: data[idSize:]}, nil
}

// Encoder frames outgoing packets with the same length/compression rules
// TryNextPacket expects to decode.
type Encoder struct {
	threshold int
	level     int
}

// NewEncoder returns an Encoder with compression disabled and the zlib
// package's default compression level (see SetLevel to override it).
func NewEncoder() *Encoder {
	return &Encoder{threshold: NoCompression, level: zlib.DefaultCompression}
}

// SetCompression mirrors Decoder.SetCompression.
func (e *Encoder) SetCompression(threshold int) { e.threshold = threshold }

// SetLevel overrides the zlib compression level (1..9).
func (e *Encoder) SetLevel(level int) { e.level = level }

// AppendPacket writes one framed packet (id followed by body) to w.
func (e *Encoder) AppendPacket(w io.Writer, id int32, body []byte) error {
	var payload bytes.Buffer
	if err := varint.WriteVarInt(&payload, id); err != nil {
		return err
	}
	payload.Write(body)
	dataLen := payload.Len()

	if e.threshold < 0 {
		if err := varint.WriteVarInt(w, int32(dataLen)); err != nil {
			return err
		}
		_, err := w.Write(payload.Bytes())
		return err
	}

	if dataLen > e.threshold {
		var compressed bytes.Buffer
		zw, err := zlib.NewWriterLevel(&compressed, e.level)
		if err != nil {
			return fmt.Errorf("protocol: open zlib writer: %w", err)
		}
		if _, err := zw.Write(payload.Bytes()); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}

		var dataLenBuf bytes.Buffer
		if err := varint.WriteVarInt(&dataLenBuf, int32(dataLen)); err != nil {
			return err
		}
		packetLen := dataLenBuf.Len() + compressed.Len()
		if packetLen > varint.MaxPacketSize {
			return varint.ErrTooLarge
		}

		if err := varint.WriteVarInt(w, int32(packetLen)); err != nil {
			return err
		}
		if _, err := w.Write(dataLenBuf.Bytes()); err != nil {
			return err
		}
		_, err = w.Write(compressed.Bytes())
		return err
	}

	// Below threshold: still wrapped, with an explicit VarInt(0) marking
	// "not compressed".
	packetLen := 1 + dataLen
	if packetLen > varint.MaxPacketSize {
		return varint.ErrTooLarge
	}
	if err := varint.WriteVarInt(w, int32(packetLen)); err != nil {
		return err
	}
	if err := varint.WriteVarInt(w, 0); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}
