package segment

import (
	"fmt"
	"io"

	"github.com/forensicgo/goewf/internal/chunkcodec"
	"github.com/forensicgo/goewf/internal/compressadapter"
	"github.com/forensicgo/goewf/internal/iopool"
	"github.com/forensicgo/goewf/internal/table"
)

// Reader is the Read-IO Coordinator:
// buffered random read over the Chunk Table Index and Chunk Cache,
// with a zero-on-checksum-error policy and a tracked "current media
// offset" so sequential callers avoid recomputing their chunk index
// every call.
//
// Delta-overlaid chunk descriptors (table.Descriptor.Delta()) store
// their FileOffset pointing directly at the already-decoded chunk
// bytes inside a DVF segment — the delta write path never
// compresses, so those chunks skip the Chunk Codec entirely and are
// read verbatim.
type Reader struct {
	Pool    *iopool.Pool
	Index   *table.Index
	Cache   *table.Cache
	Adapter compressadapter.Adapter

	ChunkSize           uint32
	MediaSize           uint64
	ZeroOnChecksumError bool

	// OnChecksumError, if set, is called with the failing chunk index
	// before ReadChunk zero-fills or returns the error
	// so a caller can record it in the Acquisition Metadata Store's
	// checksum-error list.
	OnChecksumError func(chunkIndex uint64)

	offset int64 // current media offset
}

// NewReader builds a Read-IO Coordinator over an already-populated
// Chunk Table Index.
func NewReader(pool *iopool.Pool, index *table.Index, cache *table.Cache, adapter compressadapter.Adapter, chunkSize uint32, mediaSize uint64) *Reader {
	return &Reader{Pool: pool, Index: index, Cache: cache, Adapter: adapter, ChunkSize: chunkSize, MediaSize: mediaSize}
}

// ReadChunk returns the decoded logical bytes of chunkIndex, serving
// from the Chunk Cache when present and decoding
// at-most-once on a miss.
func (r *Reader) ReadChunk(chunkIndex uint64) ([]byte, error) {
	return r.Cache.GetOrLoad(chunkIndex, func() ([]byte, error) {
		desc, ok := r.Index.Get(chunkIndex)
		if !ok {
			return nil, fmt.Errorf("segment: no descriptor for chunk %d", chunkIndex)
		}

		if desc.Delta() {
			buf := make([]byte, desc.SizeOnDisk)
			if _, err := r.Pool.ReadAt(iopool.Entry(desc.FileIOEntry), buf, int64(desc.FileOffset)); err != nil {
				return nil, fmt.Errorf("segment: read delta chunk %d: %w", chunkIndex, err)
			}
			return buf, nil
		}

		packed := make([]byte, desc.SizeOnDisk)
		if _, err := r.Pool.ReadAt(iopool.Entry(desc.FileIOEntry), packed, int64(desc.FileOffset)); err != nil {
			return nil, fmt.Errorf("segment: read chunk %d: %w", chunkIndex, err)
		}

		data, checksumErr := chunkcodec.Unpack(r.Adapter, packed, desc.Compressed(), int(r.ChunkSize))
		if checksumErr != nil {
			if r.OnChecksumError != nil {
				r.OnChecksumError(chunkIndex)
			}
			if r.ZeroOnChecksumError {
				return make([]byte, r.ChunkSize), nil
			}
			return data, checksumErr
		}
		return data, nil
	})
}

// ReadAt implements io.ReaderAt over the full media stream: it resolves
// off to a chunk index and intra-chunk byte offset, reads as many
// whole or partial chunks as needed to fill p, and returns the usual
// io.ReaderAt semantics (err == nil only when len(p) bytes were read).
func (r *Reader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("segment: negative read offset %d", off)
	}
	if r.MediaSize > 0 && uint64(off) >= r.MediaSize {
		return 0, io.EOF
	}

	total := 0
	for total < len(p) {
		mediaOffset := uint64(off) + uint64(total)
		if r.MediaSize > 0 && mediaOffset >= r.MediaSize {
			return total, io.EOF
		}

		chunkIndex := mediaOffset / uint64(r.ChunkSize)
		chunkStart := chunkIndex * uint64(r.ChunkSize)
		intraOffset := mediaOffset - chunkStart

		chunk, err := r.ReadChunk(chunkIndex)
		if err != nil {
			return total, err
		}
		if intraOffset >= uint64(len(chunk)) {
			return total, io.EOF
		}

		n := copy(p[total:], chunk[intraOffset:])
		total += n
	}
	return total, nil
}

// Seek implements io.Seeker over the tracked media offset cursor.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.offset + offset
	case io.SeekEnd:
		abs = int64(r.MediaSize) + offset
	default:
		return 0, fmt.Errorf("segment: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("segment: negative seek result %d", abs)
	}
	r.offset = abs
	return abs, nil
}

// Read implements io.Reader from the tracked media offset cursor,
// advancing it by the number of bytes returned.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := r.ReadAt(p, r.offset)
	r.offset += int64(n)
	return n, err
}

// Offset returns the reader's current media offset.
func (r *Reader) Offset() int64 { return r.offset }
