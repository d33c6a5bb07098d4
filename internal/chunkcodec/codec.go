// Package chunkcodec packs and unpacks one chunk's worth of media
// bytes: optional compression, a trailing 32-bit checksum, and the
// "empty-block" fast path for all-zero chunks.
package chunkcodec

import (
	"bytes"
	"fmt"

	"github.com/forensicgo/goewf/internal/compressadapter"
	"github.com/forensicgo/goewf/internal/ioutilx"
)

// Packed is the on-disk representation of one chunk: its bytes (which
// may be compressed) plus whether they are compressed and whether a
// trailing checksum was appended.
type Packed struct {
	Data       []byte
	Compressed bool
	// ChecksumAppended is true when Data's final 4 bytes are the
	// Adler-32 of the *uncompressed* chunk (uncompressed storage path,
	// or EWF-S01's "packed-with-trailing-checksum" flag).
	ChecksumAppended bool
}

// ZeroTemplate precomputes the compressed form of an all-zero buffer
// of chunkSize bytes,
// so Pack can recognise and reuse it without recompressing every
// all-zero chunk a caller writes.
func ZeroTemplate(adapter compressadapter.Adapter, chunkSize int, level compressadapter.Level) (Packed, error) {
	zero := make([]byte, chunkSize)
	compressed, err := adapter.Compress(zero, level)
	if err != nil {
		return Packed{}, fmt.Errorf("chunkcodec: build zero template: %w", err)
	}
	return Packed{Data: compressed, Compressed: true}, nil
}

// Pack implements the write path. in is the chunk's logical
// bytes (it may be shorter than chunkSize only for the final chunk of
// an image whose media_size is known). zeroTemplate, if non-nil, is
// compared first so whole-zero chunks reuse the precomputed template
// instead of compressing again.
func Pack(adapter compressadapter.Adapter, in []byte, compress bool, level compressadapter.Level, zeroTemplate *Packed) (Packed, error) {
	if zeroTemplate != nil && isAllZero(in) {
		return *zeroTemplate, nil
	}

	if !compress {
		return packUncompressed(in), nil
	}

	compressed, err := adapter.Compress(in, level)
	if err != nil {
		return Packed{}, fmt.Errorf("chunkcodec: compress: %w", err)
	}

	// If the compressed result is >= uncompressed + 4, store
	// uncompressed-with-trailing-checksum instead.
	if len(compressed) >= len(in)+4 {
		return packUncompressed(in), nil
	}
	return Packed{Data: compressed, Compressed: true}, nil
}

func packUncompressed(in []byte) Packed {
	buf := make([]byte, len(in)+4)
	copy(buf, in)
	ioutilx.PutUint32LE(buf[len(in):], ioutilx.Checksum(in))
	return Packed{Data: buf, Compressed: false, ChecksumAppended: true}
}

// Unpack implements the read path. checksumErr is non-nil when an
// uncompressed chunk's trailing checksum failed to verify; the caller
// (the Chunk Table Index / Read-IO Coordinator) decides whether to
// zero-fill or serve the raw bytes per handle policy.
func Unpack(adapter compressadapter.Adapter, packed []byte, compressed bool, expectedSize int) (data []byte, checksumErr error) {
	if compressed {
		out, err := adapter.Decompress(packed)
		if err != nil {
			return nil, fmt.Errorf("chunkcodec: decompress: %w", err)
		}
		return out, nil
	}

	if len(packed) < 4 {
		return nil, fmt.Errorf("chunkcodec: uncompressed chunk shorter than its checksum trailer")
	}
	data = packed[:len(packed)-4]
	stored := ioutilx.Uint32LE(packed[len(packed)-4:])
	if !ioutilx.VerifyChecksum(data, stored) {
		checksumErr = fmt.Errorf("chunkcodec: checksum mismatch (stored %08x, computed %08x)", stored, ioutilx.Checksum(data))
	}
	if expectedSize > 0 && len(data) != expectedSize {
		// Tolerate the final, possibly short, chunk of an image.
	}
	return data, checksumErr
}

func isAllZero(b []byte) bool {
	return bytes.Count(b, []byte{0}) == len(b)
}
