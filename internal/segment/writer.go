package segment

import (
	"github.com/forensicgo/goewf/internal/section"
)

// MaxInt31 is the 2^31-1 upper bound on both the chunks-per-segment
// estimate and several section-size guards.
const MaxInt31 = 1<<31 - 1

// Budget tracks the Write-IO Coordinator's running counters for one
// segment file: how much room is left, how many chunks
// have gone where, and whether the current chunks-section or segment
// should close.
type Budget struct {
	ChunkSize               uint32
	RestrictOffsetTable     bool // EnCase-compatibility cap on chunks per offset table
	MaxChunksPerSection     uint64
	CompressedChunkBudget   bool // S01/EnCase1 heuristic: chunk_size+16 instead of chunk_size+4
	NumberOfChunks          uint64 // 0 when media size is unknown
	MediaSize               uint64 // 0 when unknown
	InputWriteCount         uint64 // bytes of media written so far

	RemainingSegmentFileSize int64
	ChunksPerSegmentEstimate uint64
	NumberOfChunksWrittenToSegment uint64
	NumberOfChunksWrittenToSection uint64

	// ChunksSectionOffset is the absolute file offset of the current
	// chunks-section's `sectors` start, or -1 if no section is open.
	ChunksSectionOffset int64
	SegmentOffset       int64
}

// perChunkDivisor returns chunk_size+4, or chunk_size+16 for the
// S01/EnCase1 compressed-chunk heuristic.
func (b *Budget) perChunkDivisor() int64 {
	if b.CompressedChunkBudget {
		return int64(b.ChunkSize) + 16
	}
	return int64(b.ChunkSize) + 4
}

// offsetTableEntrySize is 2 bytes/offset for the S01/EnCase1 heuristic
// (table only, no table2 kept resident) or 4 bytes/offset otherwise
// (table+table2 each carry a full 32-bit entry, counted here as the
// combined reservation, 4 bytes per max_chunks_per_section entry).
func (b *Budget) offsetTableEntrySize() int64 {
	if b.CompressedChunkBudget {
		return 2
	}
	return 4
}

// EstimateChunksPerSegment recomputes ChunksPerSegmentEstimate from
// RemainingSegmentFileSize, and stores and returns the result.
func (b *Budget) EstimateChunksPerSegment() uint64 {
	reserved := int64(section.HeaderSize) + // terminal next/done
		3*int64(section.HeaderSize) + // sectors + table + table2 headers
		int64(b.MaxChunksPerSection)*b.offsetTableEntrySize()

	avail := b.RemainingSegmentFileSize - reserved
	divisor := b.perChunkDivisor()

	var estimate int64
	if avail > 0 && divisor > 0 {
		estimate = avail / divisor
	}
	if estimate < 1 {
		estimate = 1
	}
	if estimate > MaxInt31 {
		estimate = MaxInt31
	}

	if b.NumberOfChunks > 0 {
		remainingChunks := b.NumberOfChunks - b.NumberOfChunksWrittenToSegment
		if uint64(estimate) > remainingChunks && remainingChunks > 0 {
			estimate = int64(remainingChunks)
		}
	}

	b.ChunksPerSegmentEstimate = uint64(estimate)
	return b.ChunksPerSegmentEstimate
}

// SegmentFull reports whether the current segment file should be closed.
func (b *Budget) SegmentFull() bool {
	if b.NumberOfChunks > 0 && b.NumberOfChunksWrittenToSegment == b.NumberOfChunks {
		return true
	}
	if b.MediaSize > 0 && b.InputWriteCount >= b.MediaSize {
		return true
	}
	if b.CompressedChunkBudget && b.NumberOfChunksWrittenToSegment >= b.ChunksPerSegmentEstimate {
		return true
	}
	if b.RemainingSegmentFileSize < int64(b.ChunkSize)+4 {
		return true
	}
	return false
}

// SectionFull reports whether the current chunks-section should be
// closed. It always returns false while no chunks-section is open
// (ChunksSectionOffset < 0).
func (b *Budget) SectionFull() bool {
	if b.ChunksSectionOffset < 0 {
		return false
	}
	if b.MediaSize > 0 && b.InputWriteCount >= b.MediaSize {
		return true
	}
	if b.RestrictOffsetTable && b.NumberOfChunksWrittenToSection >= b.MaxChunksPerSection {
		return true
	}
	if b.NumberOfChunksWrittenToSection > MaxInt31 {
		return true
	}
	if b.SegmentOffset-b.ChunksSectionOffset > MaxInt31 {
		return true
	}
	if b.CompressedChunkBudget && b.NumberOfChunksWrittenToSection >= b.ChunksPerSegmentEstimate {
		return true
	}
	if b.RemainingSegmentFileSize < int64(b.ChunkSize)+4 {
		return true
	}
	return false
}

// RecordChunkWritten advances the budget's counters after one chunk of
// sizeOnDisk bytes has been appended to the currently open segment.
func (b *Budget) RecordChunkWritten(sizeOnDisk uint32, mediaBytes uint32) {
	b.NumberOfChunksWrittenToSegment++
	b.NumberOfChunksWrittenToSection++
	b.InputWriteCount += uint64(mediaBytes)
	b.RemainingSegmentFileSize -= int64(sizeOnDisk)
	b.SegmentOffset += int64(sizeOnDisk)
}

// ResetForSegment reinitialises the per-segment counters when a fresh
// segment file has just had its header-group and volume section
// written, leaving the cross-segment counters (InputWriteCount) intact:
// "segment full" is evaluated per segment, "media written" accumulates
// across the whole image.
func (b *Budget) ResetForSegment(remainingSize, segmentOffset int64) {
	b.RemainingSegmentFileSize = remainingSize
	b.NumberOfChunksWrittenToSegment = 0
	b.SegmentOffset = segmentOffset
	b.ChunksSectionOffset = -1
}

// OpenSection marks the start of a new chunks-section at the given
// absolute file offset.
func (b *Budget) OpenSection(offset int64) {
	b.ChunksSectionOffset = offset
	b.NumberOfChunksWrittenToSection = 0
}

// CloseSection clears the open chunks-section marker once its
// table/table2 have been flushed.
func (b *Budget) CloseSection() {
	b.ChunksSectionOffset = -1
}
