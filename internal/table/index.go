package table

import (
	"fmt"
	"sync"
)

// MaxChunksPerSection is the EnCase-compatibility cap on the number of
// offsets a single restricted table section may carry.
const MaxChunksPerSection = 16375

// MaxUnrestrictedFileOffset is the 2^31-1 bound on a chunk's relative
// file offset when unrestrict_offset_table is enabled.
const MaxUnrestrictedFileOffset = 1<<31 - 1

// Index is the Chunk Table Index: a list of per-segment arrays of
// Descriptors, logically concatenated into one sequence addressed by
// global chunk index, with a delta overlay taking precedence.
type Index struct {
	mu       sync.RWMutex
	segments [][]Descriptor // per-segment arrays, in segment order
	overlay  map[uint64]Descriptor // delta overlay: chunk index -> latest version
}

// New creates an empty Chunk Table Index.
func New() *Index {
	return &Index{overlay: make(map[uint64]Descriptor)}
}

// AppendSegment adds one segment's worth of descriptors (as read from
// its table/table2 sections, in order) to the end of the index.
func (idx *Index) AppendSegment(descs []Descriptor) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.segments = append(idx.segments, descs)
}

// Len returns the total number of base (non-overlay) chunk slots.
func (idx *Index) Len() uint64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	var n uint64
	for _, seg := range idx.segments {
		n += uint64(len(seg))
	}
	return n
}

// Resize truncates the index to n base chunks, used by the resume
// path to drop descriptors for chunks whose containing
// chunks-section is being re-tabulated. It only ever shrinks the last
// segment's array (resume never touches earlier, already-closed
// segments).
func (idx *Index) Resize(n uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	total := uint64(0)
	for i, seg := range idx.segments {
		if total+uint64(len(seg)) <= n {
			total += uint64(len(seg))
			continue
		}
		keep := n - total
		idx.segments[i] = seg[:keep]
		idx.segments = idx.segments[:i+1]
		return nil
	}
	if n > total {
		return fmt.Errorf("table: resize(%d) exceeds current length %d", n, total)
	}
	return nil
}

// segmentAndLocal maps a global chunk index to (segment index, local
// index within that segment).
func (idx *Index) segmentAndLocal(chunkIndex uint64) (int, int, bool) {
	var base uint64
	for si, seg := range idx.segments {
		if chunkIndex < base+uint64(len(seg)) {
			return si, int(chunkIndex - base), true
		}
		base += uint64(len(seg))
	}
	return 0, 0, false
}

// Get resolves chunkIndex to its Descriptor, preferring the delta
// overlay's latest version when present.
func (idx *Index) Get(chunkIndex uint64) (Descriptor, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if d, ok := idx.overlay[chunkIndex]; ok {
		return d, true
	}
	si, li, ok := idx.segmentAndLocal(chunkIndex)
	if !ok {
		return Descriptor{}, false
	}
	return idx.segments[si][li], true
}

// Set installs a descriptor for chunkIndex directly into the base
// table (used while writing, before the chunk's segment is closed).
// source distinguishes an authoritative write from a tentative
// recovery entry produced by table/table2 mismatch recovery.
func (idx *Index) Set(chunkIndex uint64, d Descriptor, source DescriptorSource) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if source == SourceTentative {
		d.Flags |= FlagTentative
	}
	si, li, ok := idx.segmentAndLocal(chunkIndex)
	if !ok {
		// Extend the last segment (or create the first one).
		if len(idx.segments) == 0 {
			idx.segments = append(idx.segments, nil)
		}
		last := len(idx.segments) - 1
		idx.segments[last] = append(idx.segments[last], d)
		return
	}
	idx.segments[si][li] = d
}

// SetDelta installs d as the latest overlay version of chunkIndex on
// the delta overlay write path.
func (idx *Index) SetDelta(chunkIndex uint64, d Descriptor) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	d.Flags |= FlagDelta
	idx.overlay[chunkIndex] = d
}

// HasDelta reports whether chunkIndex has an overlay version.
func (idx *Index) HasDelta(chunkIndex uint64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.overlay[chunkIndex]
	return ok
}
