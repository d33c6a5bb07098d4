package ewf

import (
	"io"
)

// SeekOffset moves the Handle's media read cursor. whence follows
// io.Seeker's convention (io.SeekStart/Current/End).
func (h *Handle) SeekOffset(offset int64, whence int) (int64, error) {
	if h.reader == nil {
		return 0, newErr("SeekOffset", DomainRuntime, KindInvalidResource, nil)
	}
	abs, err := h.reader.Seek(offset, whence)
	if err != nil {
		return 0, newErr("SeekOffset", DomainArguments, KindValueOutOfBounds, err)
	}
	return abs, nil
}

// GetOffset returns the Handle's current media read cursor.
func (h *Handle) GetOffset() int64 {
	if h.reader == nil {
		return 0
	}
	return h.reader.Offset()
}

// ReadBuffer reads len(buf) bytes from the current cursor, advancing
// it. It returns however many bytes were available when the media end
// is reached, with io.EOF as the error in that case, matching
// io.Reader semantics.
func (h *Handle) ReadBuffer(buf []byte) (int, error) {
	if h.mode != ModeRead && h.mode != ModeWrite {
		return 0, newErr("ReadBuffer", DomainRuntime, KindInvalidResource, nil)
	}
	if err := h.checkAbort("ReadBuffer"); err != nil {
		return 0, err
	}
	n, err := h.reader.Read(buf)
	if err != nil && err != io.EOF {
		return n, newErr("ReadBuffer", DomainIO, KindReadFailed, err)
	}
	return n, err
}

// ReadRandom reads len(buf) bytes starting at the absolute media
// offset off, without disturbing the sequential cursor.
func (h *Handle) ReadRandom(buf []byte, off int64) (int, error) {
	if h.mode != ModeRead && h.mode != ModeWrite {
		return 0, newErr("ReadRandom", DomainRuntime, KindInvalidResource, nil)
	}
	if err := h.checkAbort("ReadRandom"); err != nil {
		return 0, err
	}
	n, err := h.reader.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return n, newErr("ReadRandom", DomainIO, KindReadFailed, err)
	}
	return n, err
}

// ChunkReadResult is ReadChunk's decoded result, translated from the
// C-style out-parameter convention into a single returned struct.
type ChunkReadResult struct {
	Data       []byte
	Compressed bool
}

// ReadChunk returns the decoded logical bytes of the chunkIndex-th
// chunk (0-based), serving from the Chunk Cache and decoding
// at-most-once on a miss.
func (h *Handle) ReadChunk(chunkIndex uint64) (ChunkReadResult, error) {
	if err := h.checkAbort("ReadChunk"); err != nil {
		return ChunkReadResult{}, err
	}
	desc, ok := h.index.Get(chunkIndex)
	if !ok {
		return ChunkReadResult{}, newErr("ReadChunk", DomainArguments, KindValueOutOfBounds, nil)
	}
	data, err := h.reader.ReadChunk(chunkIndex)
	if err != nil {
		return ChunkReadResult{}, newErr("ReadChunk", DomainIO, KindChecksumMismatch, err)
	}
	return ChunkReadResult{Data: data, Compressed: desc.Compressed()}, nil
}

// ChunkCount returns the number of chunk slots currently indexed.
func (h *Handle) ChunkCount() uint64 { return h.index.Len() }

// MediaSize returns the logical media size in bytes.
func (h *Handle) MediaSize() uint64 { return h.media.MediaSize }
