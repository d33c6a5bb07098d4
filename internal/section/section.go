// Package section implements the Section Reader/Writer: the 76-byte
// typed section descriptor that frames every payload inside an
// EWF/DWF segment file, plus the handful of fixed section types the
// rest of the engine needs to recognise.
package section

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// HeaderSize is the on-disk size of a section descriptor:
// 16-byte type name + 8-byte next offset + 8-byte size + 40 bytes of
// zero padding + 4-byte checksum.
const HeaderSize = 76

// checksumSpan is the number of leading bytes of the descriptor the
// trailing checksum covers (everything except the checksum itself).
const checksumSpan = 72

// Known section type names.
const (
	TypeHeader  = "header"
	TypeHeader2 = "header2"
	TypeXHeader = "xheader"
	TypeVolume  = "volume"
	TypeDisk    = "disk"
	TypeData    = "data"
	TypeSectors = "sectors"
	TypeTable   = "table"
	TypeTable2  = "table2"
	TypeNext    = "next"
	TypeLtype   = "ltype"
	TypeLtree   = "ltree"
	TypeMap     = "map"
	TypeSession = "session"
	TypeError2  = "error2"
	TypeDigest  = "digest"
	TypeHash    = "hash"
	TypeXHash   = "xhash"
	TypeDone    = "done"
	TypeDelta   = "delta_chunk"
)

// Header is the decoded, in-memory form of a section descriptor plus
// the absolute file offset it was read from — an arena+index
// representation that avoids back-pointers into the owning segment
// file.
type Header struct {
	Type        string
	StartOffset uint64
	NextOffset  uint64
	Size        uint64 // end_offset - start_offset, includes this descriptor
}

// PayloadOffset is the absolute offset of the first payload byte.
func (h Header) PayloadOffset() uint64 { return h.StartOffset + HeaderSize }

// PayloadSize is the payload length, excluding the descriptor itself.
func (h Header) PayloadSize() uint64 {
	if h.Size < HeaderSize {
		return 0
	}
	return h.Size - HeaderSize
}

// EndOffset is start_offset + size.
func (h Header) EndOffset() uint64 { return h.StartOffset + h.Size }

// Read decodes one section descriptor at offset from r and validates
// its trailing checksum. The 40 bytes of padding are
// ignored on read (the original format never assigns them meaning).
func Read(r io.ReaderAt, offset int64) (Header, error) {
	buf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(buf, offset); err != nil {
		return Header{}, fmt.Errorf("section: read descriptor at %d: %w", offset, err)
	}

	typeName := ioutilx.TrimNUL(buf[0:16])
	nextOffset := binary.LittleEndian.Uint64(buf[16:24])
	size := binary.LittleEndian.Uint64(buf[24:32])
	checksum := binary.LittleEndian.Uint32(buf[72:76])

	if !ioutilx.VerifyChecksum(buf[:checksumSpan], checksum) {
		return Header{}, fmt.Errorf("section: checksum mismatch for %q at %d", typeName, offset)
	}

	return Header{
		Type:        typeName,
		StartOffset: uint64(offset),
		NextOffset:  nextOffset,
		Size:        size,
	}, nil
}

// Write encodes and writes a section descriptor at offset. next and
// size are supplied by the caller (the Write-IO Coordinator knows them
// only once the payload has been laid out); for a "done" or "next"
// section next equals offset.
func Write(w io.WriterAt, offset int64, typeName string, next, size uint64) error {
	if len(typeName) > 16 {
		return fmt.Errorf("section: type name %q exceeds 16 bytes", typeName)
	}
	buf := make([]byte, HeaderSize)
	copy(buf[0:16], typeName)
	binary.LittleEndian.PutUint64(buf[16:24], next)
	binary.LittleEndian.PutUint64(buf[24:32], size)
	// bytes 32:72 stay zero (padding)
	checksum := ioutilx.Checksum(buf[:checksumSpan])
	binary.LittleEndian.PutUint32(buf[72:76], checksum)

	if _, err := w.WriteAt(buf, offset); err != nil {
		return fmt.Errorf("section: write descriptor %q at %d: %w", typeName, offset, err)
	}
	return nil
}

// IsTerminal reports whether typeName ends the section chain for one
// segment file: "next" or "done" is always last.
func IsTerminal(typeName string) bool {
	return typeName == TypeNext || typeName == TypeDone
}
