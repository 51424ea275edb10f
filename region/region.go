// Package region parses Anvil-format region files (.mca): a 32x32 tile of
// chunk columns sharing one on-disk file, plus .mcc sidecars for chunks
// whose payload didn't fit the inline size class. Region files are opened
// memory-mapped and cached by the region manager (manager.go) so repeated
// loads of nearby chunks don't re-open the file.
package region

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
	"golang.org/x/exp/mmap"
)

const (
	sectorSize        = 4096
	headerSectors     = 2 // sector 0: locations, sector 1: timestamps
	locationTableSize = 1024 * 4
)

// CompressionTag identifies how a chunk's payload is compressed on disk.
type CompressionTag byte

const (
	CompressionGZip    CompressionTag = 1
	CompressionZlib    CompressionTag = 2
	CompressionNone    CompressionTag = 3
	externalFlag       byte           = 0x80
)

var (
	// ErrChunkAbsent means the region file has no data for the requested
	// chunk (a zero location record) — not an error condition, a normal
	// "never generated" result.
	ErrChunkAbsent = fmt.Errorf("region: chunk absent")
)

// InvalidChunkSectorOffsetError is returned when a location record's
// sector offset is < 2 (header sectors).
type InvalidChunkSectorOffsetError struct{ Offset uint32 }

func (e InvalidChunkSectorOffsetError) Error() string {
	return fmt.Sprintf("region: invalid chunk sector offset %d (must be >= %d)", e.Offset, headerSectors)
}

// InvalidChunkSizeError is returned when a chunk's declared payload
// length exceeds what its allocated sectors (or the file itself) can
// hold.
type InvalidChunkSizeError struct{ Declared, Available int }

func (e InvalidChunkSizeError) Error() string {
	return fmt.Sprintf("region: declared chunk size %d exceeds available %d bytes", e.Declared, e.Available)
}

// FileName returns the conventional name for the region file containing
// chunk coordinates (cx, cz).
func FileName(cx, cz int32) string {
	rx, rz := cx>>5, cz>>5
	return fmt.Sprintf("r.%d.%d.mca", rx, rz)
}

// SidecarName returns the conventional name for a chunk's external .mcc
// payload file.
func SidecarName(cx, cz int32) string {
	return fmt.Sprintf("c.%d.%d.mcc", cx, cz)
}

// locationRecord is one 4-byte entry from the location table.
type locationRecord struct {
	sectorOffset uint32
	sectorCount  uint8
}

func (l locationRecord) isEmpty() bool { return l.sectorOffset == 0 && l.sectorCount == 0 }

// File is one opened, memory-mapped region file.
type File struct {
	path string
	ra   *mmap.ReaderAt
	dir  string // directory the file (and any .mcc sidecars) lives in
}

// Open memory-maps the region file at path.
func Open(path string) (*File, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("region: open %s: %w", path, err)
	}
	return &File{path: path, ra: ra, dir: filepath.Dir(path)}, nil
}

// Close unmaps the region file.
func (f *File) Close() error { return f.ra.Close() }

func chunkIndex(cx, cz int32) int {
	lx := int(((cx % 32) + 32) % 32)
	lz := int(((cz % 32) + 32) % 32)
	return lx + lz*32
}

func (f *File) readLocation(cx, cz int32) (locationRecord, error) {
	idx := chunkIndex(cx, cz)
	var buf [4]byte
	if _, err := f.ra.ReadAt(buf[:], int64(idx*4)); err != nil {
		return locationRecord{}, fmt.Errorf("region: read location record: %w", err)
	}
	offset := uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2])
	return locationRecord{sectorOffset: offset, sectorCount: buf[3]}, nil
}

// ReadChunk reads and decompresses the raw NBT payload bytes for chunk
// (cx, cz), resolving an external .mcc sidecar if the inline storage
// points to one. It returns ErrChunkAbsent when the location record is
// zero.
func (f *File) ReadChunk(cx, cz int32) ([]byte, error) {
	loc, err := f.readLocation(cx, cz)
	if err != nil {
		return nil, err
	}
	if loc.isEmpty() {
		return nil, ErrChunkAbsent
	}
	if loc.sectorOffset < headerSectors {
		return nil, InvalidChunkSectorOffsetError{Offset: loc.sectorOffset}
	}

	start := int64(loc.sectorOffset) * sectorSize
	available := int(loc.sectorCount) * sectorSize

	var header [5]byte
	if _, err := f.ra.ReadAt(header[:], start); err != nil {
		return nil, fmt.Errorf("region: read chunk header: %w", err)
	}
	declaredLen := int(header[0])<<24 | int(header[1])<<16 | int(header[2])<<8 | int(header[3])
	if declaredLen < 1 {
		return nil, InvalidChunkSizeError{Declared: declaredLen, Available: available}
	}
	if declaredLen-1 > available-5 && header[4]&externalFlag == 0 {
		return nil, InvalidChunkSizeError{Declared: declaredLen, Available: available - 5}
	}
	if fileLeft := int64(f.ra.Len()) - start - 5; int64(declaredLen-1) > fileLeft && header[4]&externalFlag == 0 {
		return nil, InvalidChunkSizeError{Declared: declaredLen, Available: int(fileLeft)}
	}

	tag := CompressionTag(header[4] &^ externalFlag)
	external := header[4]&externalFlag != 0

	var payload []byte
	if external {
		payload, err = readSidecar(f.dir, cx, cz)
		if err != nil {
			return nil, err
		}
	} else {
		payload = make([]byte, declaredLen-1)
		if _, err := f.ra.ReadAt(payload, start+5); err != nil {
			return nil, fmt.Errorf("region: read chunk payload: %w", err)
		}
	}

	return decompress(tag, payload)
}

func readSidecar(dir string, cx, cz int32) ([]byte, error) {
	path := filepath.Join(dir, SidecarName(cx, cz))
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("region: open sidecar %s: %w", path, err)
	}
	defer ra.Close()
	out := make([]byte, ra.Len())
	if _, err := ra.ReadAt(out, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("region: read sidecar %s: %w", path, err)
	}
	return out, nil
}

func decompress(tag CompressionTag, payload []byte) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return payload, nil
	case CompressionGZip:
		zr, err := gzip.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: open gzip stream: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionZlib:
		zr, err := zlib.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("region: open zlib stream: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return nil, fmt.Errorf("region: unknown compression tag %d", tag)
	}
}
