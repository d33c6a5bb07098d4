// Package compressadapter implements a thin compression capability
// contract ({compress, decompress, bound}). The default adapter wraps
// the standard library's zlib; an alternate adapter wraps
// klauspost/compress/zlib for callers who want a faster deflate
// implementation without touching the Chunk Codec that consumes this
// interface.
package compressadapter

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	kzlib "github.com/klauspost/compress/zlib"
)

// Level mirrors the EWF on-disk compression_level byte:
// None/Good/Best map onto zlib's NoCompression/DefaultCompression/
// BestCompression.
type Level int

const (
	LevelNone Level = iota
	LevelGood
	LevelBest
)

func (l Level) zlibLevel() int {
	switch l {
	case LevelNone:
		return zlib.NoCompression
	case LevelBest:
		return zlib.BestCompression
	default:
		return zlib.DefaultCompression
	}
}

// Adapter is the capability the Chunk Codec is built on.
type Adapter interface {
	// Compress returns the compressed form of in at level. This method
	// simply compresses once; the Chunk Codec's Pack stores the chunk
	// uncompressed when the result is not smaller than the input plus
	// its 4-byte checksum.
	Compress(in []byte, level Level) ([]byte, error)
	// Decompress inflates in fully.
	Decompress(in []byte) ([]byte, error)
	// Bound returns the codec's worst-case output size for an input of
	// size n, or -1 if the underlying codec does not expose one.
	Bound(n int) int
}

// StdZlib is the default adapter: compress/zlib, used for header and
// chunk payloads.
type StdZlib struct{}

func (StdZlib) Compress(in []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level.zlibLevel())
	if err != nil {
		return nil, fmt.Errorf("compressadapter: new zlib writer: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressadapter: zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressadapter: zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (StdZlib) Decompress(in []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("compressadapter: new zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compressadapter: zlib inflate: %w", err)
	}
	return out, nil
}

// Bound: compress/zlib does not expose compressBound, so this reports -1.
func (StdZlib) Bound(int) int { return -1 }

// FastZlib adapts klauspost/compress/zlib; used when a caller wants
// throughput over the stdlib implementation's simplicity. Selected via
// ewf.WithCompressionAdapter.
type FastZlib struct{}

func (FastZlib) Compress(in []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := kzlib.NewWriterLevel(&buf, level.zlibLevel())
	if err != nil {
		return nil, fmt.Errorf("compressadapter: new fast zlib writer: %w", err)
	}
	if _, err := w.Write(in); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressadapter: fast zlib write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compressadapter: fast zlib close: %w", err)
	}
	return buf.Bytes(), nil
}

func (FastZlib) Decompress(in []byte) ([]byte, error) {
	r, err := kzlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, fmt.Errorf("compressadapter: new fast zlib reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("compressadapter: fast zlib inflate: %w", err)
	}
	return out, nil
}

// Bound reports a conservative deflate bound: source + source/1000 + 12,
// the classic zlib compressBound formula.
func (FastZlib) Bound(n int) int {
	return n + n/1000 + 12
}
