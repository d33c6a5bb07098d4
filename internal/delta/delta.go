// Package delta implements the Delta Overlay: an auxiliary DVF
// segment-file stream that records modified chunks without rewriting
// the base image, and a lookup the Chunk Table Index consults so
// reads transparently prefer the newest version of each chunk. For
// delta files, a separate latest-version map overlays the base table.
package delta

import (
	"fmt"
	"io"

	"github.com/forensicgo/goewf/internal/ioutilx"
	"github.com/forensicgo/goewf/internal/section"
)

// HeaderSize is the fixed portion of a delta_chunk payload before the
// chunk bytes: chunk_index(4) + chunk_data_size(4) + padding(6) +
// checksum(4) = 18.
const HeaderSize = 18

// ChunkHeader is the decoded fixed portion of one delta_chunk section.
type ChunkHeader struct {
	ChunkIndex    uint32
	ChunkDataSize uint32
	HeaderCRC     uint32
}

// Entry locates one stored delta chunk: which segment (by the
// caller's own file-entry numbering) and where its payload begins.
type Entry struct {
	SegmentEntry int32
	DataOffset   uint64
	Size         uint32
}

// Overlay is the in-memory "latest version wins" map the Chunk Table
// Index consults before falling back to the base image.
type Overlay struct {
	latest map[uint32]Entry
}

// NewOverlay creates an empty Overlay.
func NewOverlay() *Overlay { return &Overlay{latest: make(map[uint32]Entry)} }

// Record installs e as the newest known version of chunkIndex. Delta
// segment files are always read and appended in ascending rotation
// order, so the most recently Recorded entry for a given index is
// always the correct one to serve.
func (o *Overlay) Record(chunkIndex uint32, e Entry) {
	o.latest[chunkIndex] = e
}

// Lookup returns the newest delta Entry for chunkIndex, if any.
func (o *Overlay) Lookup(chunkIndex uint32) (Entry, bool) {
	e, ok := o.latest[chunkIndex]
	return e, ok
}

// Range calls fn once per recorded chunk index, in no particular order.
// Used by a Handle to fold a scanned Overlay into the Chunk Table Index.
func (o *Overlay) Range(fn func(chunkIndex uint32, e Entry)) {
	for idx, e := range o.latest {
		fn(idx, e)
	}
}

// ReadChunkHeader decodes the fixed portion of a delta_chunk payload.
func ReadChunkHeader(payload []byte) (ChunkHeader, error) {
	if len(payload) < HeaderSize {
		return ChunkHeader{}, fmt.Errorf("delta: payload too short for chunk header (%d bytes)", len(payload))
	}
	h := ChunkHeader{
		ChunkIndex:    ioutilx.Uint32LE(payload[0:4]),
		ChunkDataSize: ioutilx.Uint32LE(payload[4:8]),
		HeaderCRC:     ioutilx.Uint32LE(payload[14:18]),
	}
	return h, nil
}

// EncodeChunk serialises a delta_chunk payload: header, chunk bytes,
// trailing checksum over the chunk bytes.
func EncodeChunk(chunkIndex uint32, chunkData []byte) []byte {
	out := make([]byte, HeaderSize+len(chunkData)+4)
	ioutilx.PutUint32LE(out[0:4], chunkIndex)
	ioutilx.PutUint32LE(out[4:8], uint32(len(chunkData)))
	// bytes 8:14 padding stay zero
	headerChecksum := ioutilx.Checksum(out[0:14])
	ioutilx.PutUint32LE(out[14:18], headerChecksum)
	copy(out[HeaderSize:], chunkData)
	trailer := ioutilx.Checksum(chunkData)
	ioutilx.PutUint32LE(out[HeaderSize+len(chunkData):], trailer)
	return out
}

// DecodeChunk validates and extracts the chunk bytes from a full
// delta_chunk payload (header + data + trailing checksum).
func DecodeChunk(payload []byte) ([]byte, error) {
	h, err := ReadChunkHeader(payload)
	if err != nil {
		return nil, err
	}
	if !ioutilx.VerifyChecksum(payload[0:14], h.HeaderCRC) {
		return nil, fmt.Errorf("delta: header checksum mismatch for chunk %d", h.ChunkIndex)
	}
	end := HeaderSize + int(h.ChunkDataSize)
	if end+4 > len(payload) {
		return nil, fmt.Errorf("delta: truncated chunk %d payload", h.ChunkIndex)
	}
	data := payload[HeaderSize:end]
	trailer := ioutilx.Uint32LE(payload[end : end+4])
	if !ioutilx.VerifyChecksum(data, trailer) {
		return nil, fmt.Errorf("delta: chunk %d data checksum mismatch", h.ChunkIndex)
	}
	return data, nil
}

// ScanSegment reads every delta_chunk section in a DVF segment file
// starting at the first section offset (immediately after the
// 13-byte file header) and records each one into overlay, tagged with
// segmentEntry so the Chunk Table Index knows which backing file to
// read from later.
func ScanSegment(r io.ReaderAt, segmentEntry int32, firstSectionOffset int64, overlay *Overlay) error {
	offset := firstSectionOffset
	for {
		hdr, err := section.Read(r, offset)
		if err != nil {
			return fmt.Errorf("delta: read section at %d: %w", offset, err)
		}
		if hdr.Type == section.TypeDelta {
			payloadBuf := make([]byte, hdr.PayloadSize())
			if _, err := r.ReadAt(payloadBuf, int64(hdr.PayloadOffset())); err != nil {
				return fmt.Errorf("delta: read chunk payload at %d: %w", hdr.PayloadOffset(), err)
			}
			ch, err := ReadChunkHeader(payloadBuf)
			if err != nil {
				return err
			}
			overlay.Record(ch.ChunkIndex, Entry{
				SegmentEntry: segmentEntry,
				DataOffset:   hdr.PayloadOffset() + HeaderSize,
				Size:         ch.ChunkDataSize,
			})
		}
		if section.IsTerminal(hdr.Type) || hdr.NextOffset == 0 {
			return nil
		}
		offset = int64(hdr.NextOffset)
	}
}
