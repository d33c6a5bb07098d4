package segment

import "testing"

func TestBudgetEstimateChunksPerSegment(t *testing.T) {
	b := &Budget{
		ChunkSize:               4096,
		MaxChunksPerSection:     16375,
		RemainingSegmentFileSize: 1 << 20, // 1 MiB
	}
	got := b.EstimateChunksPerSegment()
	if got == 0 {
		t.Fatal("EstimateChunksPerSegment() = 0, want > 0")
	}
	if b.ChunksPerSegmentEstimate != got {
		t.Errorf("ChunksPerSegmentEstimate = %d, want %d (returned value)", b.ChunksPerSegmentEstimate, got)
	}
}

func TestBudgetEstimateChunksPerSegmentClampsToRemainingChunks(t *testing.T) {
	b := &Budget{
		ChunkSize:               4096,
		MaxChunksPerSection:     16375,
		RemainingSegmentFileSize: 1 << 30, // plenty of room
		NumberOfChunks:          10,
		NumberOfChunksWrittenToSegment: 7,
	}
	got := b.EstimateChunksPerSegment()
	if got != 3 {
		t.Errorf("EstimateChunksPerSegment() = %d, want 3 (remaining media chunks)", got)
	}
}

func TestBudgetEstimateChunksPerSegmentNeverBelowOne(t *testing.T) {
	b := &Budget{
		ChunkSize:               4096,
		MaxChunksPerSection:     16375,
		RemainingSegmentFileSize: 10, // far too small for even one chunk's reservation
	}
	if got := b.EstimateChunksPerSegment(); got != 1 {
		t.Errorf("EstimateChunksPerSegment() = %d, want 1 (floor)", got)
	}
}

func TestBudgetSegmentFullByChunkCount(t *testing.T) {
	b := &Budget{NumberOfChunks: 5, NumberOfChunksWrittenToSegment: 5}
	if !b.SegmentFull() {
		t.Error("SegmentFull() = false when every expected chunk has been written")
	}
}

func TestBudgetSegmentFullByMediaSize(t *testing.T) {
	b := &Budget{MediaSize: 100, InputWriteCount: 100}
	if !b.SegmentFull() {
		t.Error("SegmentFull() = false when media_size has been fully consumed")
	}
}

func TestBudgetSegmentFullByRemainingSpace(t *testing.T) {
	b := &Budget{ChunkSize: 1024, RemainingSegmentFileSize: 10}
	if !b.SegmentFull() {
		t.Error("SegmentFull() = false when remaining space cannot fit another chunk")
	}
}

func TestBudgetSegmentNotFullWithRoom(t *testing.T) {
	b := &Budget{ChunkSize: 1024, RemainingSegmentFileSize: 1 << 20, MediaSize: 1 << 30}
	if b.SegmentFull() {
		t.Error("SegmentFull() = true with plenty of room left")
	}
}

func TestBudgetSectionFullRequiresOpenSection(t *testing.T) {
	b := &Budget{ChunksSectionOffset: -1, RestrictOffsetTable: true, MaxChunksPerSection: 1, NumberOfChunksWrittenToSection: 5}
	if b.SectionFull() {
		t.Error("SectionFull() = true with no section open (ChunksSectionOffset < 0)")
	}
}

func TestBudgetSectionFullByRestrictedChunkCount(t *testing.T) {
	b := &Budget{
		ChunksSectionOffset:            0,
		RestrictOffsetTable:            true,
		MaxChunksPerSection:            10,
		NumberOfChunksWrittenToSection: 10,
		ChunkSize:                      1024,
		RemainingSegmentFileSize:       1 << 20,
	}
	if !b.SectionFull() {
		t.Error("SectionFull() = false at the EnCase-compatibility chunk cap")
	}
}

func TestBudgetRecordChunkWrittenAdvancesCounters(t *testing.T) {
	b := &Budget{RemainingSegmentFileSize: 1000, SegmentOffset: 500}
	b.RecordChunkWritten(100, 90)
	if b.NumberOfChunksWrittenToSegment != 1 || b.NumberOfChunksWrittenToSection != 1 {
		t.Errorf("chunk counters = (%d, %d), want (1, 1)", b.NumberOfChunksWrittenToSegment, b.NumberOfChunksWrittenToSection)
	}
	if b.InputWriteCount != 90 {
		t.Errorf("InputWriteCount = %d, want 90", b.InputWriteCount)
	}
	if b.RemainingSegmentFileSize != 900 {
		t.Errorf("RemainingSegmentFileSize = %d, want 900", b.RemainingSegmentFileSize)
	}
	if b.SegmentOffset != 600 {
		t.Errorf("SegmentOffset = %d, want 600", b.SegmentOffset)
	}
}

func TestBudgetResetForSegmentPreservesInputWriteCount(t *testing.T) {
	b := &Budget{InputWriteCount: 12345, NumberOfChunksWrittenToSegment: 7}
	b.ResetForSegment(1 << 20, 13)
	if b.InputWriteCount != 12345 {
		t.Errorf("InputWriteCount = %d, want 12345 (preserved across segments)", b.InputWriteCount)
	}
	if b.NumberOfChunksWrittenToSegment != 0 {
		t.Errorf("NumberOfChunksWrittenToSegment = %d, want 0", b.NumberOfChunksWrittenToSegment)
	}
	if b.SegmentOffset != 13 {
		t.Errorf("SegmentOffset = %d, want 13", b.SegmentOffset)
	}
	if b.ChunksSectionOffset != -1 {
		t.Errorf("ChunksSectionOffset = %d, want -1 (no section open yet)", b.ChunksSectionOffset)
	}
}

func TestBudgetOpenAndCloseSection(t *testing.T) {
	b := &Budget{NumberOfChunksWrittenToSection: 9}
	b.OpenSection(4096)
	if b.ChunksSectionOffset != 4096 {
		t.Errorf("ChunksSectionOffset = %d, want 4096", b.ChunksSectionOffset)
	}
	if b.NumberOfChunksWrittenToSection != 0 {
		t.Errorf("NumberOfChunksWrittenToSection = %d, want 0 after OpenSection", b.NumberOfChunksWrittenToSection)
	}
	b.CloseSection()
	if b.ChunksSectionOffset != -1 {
		t.Errorf("ChunksSectionOffset = %d, want -1 after CloseSection", b.ChunksSectionOffset)
	}
}
