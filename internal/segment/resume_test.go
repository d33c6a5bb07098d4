package segment

import (
	"encoding/binary"
	"testing"

	"github.com/forensicgo/goewf/internal/ioutilx"
	"github.com/forensicgo/goewf/internal/section"
)

// tableSectionSize returns the on-disk size of a table/table2 section
// holding n chunk offset entries: descriptor + fixed header + n
// offsets + trailing checksum.
func tableSectionSize(n int) int64 {
	const headerWireSize = 24
	return int64(section.HeaderSize) + headerWireSize + int64(n)*4 + 4
}

// writeTablePayload writes a valid table/table2 section at offset
// holding n chunk offset entries, and returns its section.Header.
func writeTablePayload(t *testing.T, f *memFile, offset int64, typeName string, n int, next uint64) section.Header {
	t.Helper()
	const headerWireSize = 24
	payload := make([]byte, headerWireSize+n*4+4)
	binary.LittleEndian.PutUint32(payload[0:4], uint32(n))
	binary.LittleEndian.PutUint64(payload[8:16], 0)
	binary.LittleEndian.PutUint32(payload[20:24], ioutilx.Checksum(payload[:20]))
	dataStart, dataEnd := headerWireSize, headerWireSize+n*4
	binary.LittleEndian.PutUint32(payload[dataEnd:dataEnd+4], ioutilx.Checksum(payload[dataStart:dataEnd]))

	size := uint64(section.HeaderSize) + uint64(len(payload))
	if err := section.Write(f, offset, typeName, next, size); err != nil {
		t.Fatalf("section.Write(%s): %v", typeName, err)
	}
	if _, err := f.WriteAt(payload, offset+section.HeaderSize); err != nil {
		t.Fatalf("write table payload: %v", err)
	}
	h, err := section.Read(f, offset)
	if err != nil {
		t.Fatalf("section.Read(%s): %v", typeName, err)
	}
	return h
}

func TestClassifyFreshSegmentWhenEmpty(t *testing.T) {
	f := &memFile{}
	seg := &Segment{}
	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeFreshSegment {
		t.Errorf("Action = %v, want ResumeFreshSegment", plan.Action)
	}
	if plan.TruncateOffset != FileHeaderSize {
		t.Errorf("TruncateOffset = %d, want %d", plan.TruncateOffset, uint64(FileHeaderSize))
	}
}

func TestClassifyFreshSegmentWhenTerminal(t *testing.T) {
	f := &memFile{}
	seg := &Segment{Sections: []section.Header{
		{Type: section.TypeVolume, StartOffset: FileHeaderSize, Size: 100},
		{Type: section.TypeDone, StartOffset: FileHeaderSize + 100, Size: section.HeaderSize},
	}}
	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeFreshSegment {
		t.Errorf("Action = %v, want ResumeFreshSegment", plan.Action)
	}
	want := seg.Sections[1].EndOffset()
	if plan.TruncateOffset != want {
		t.Errorf("TruncateOffset = %d, want %d", plan.TruncateOffset, want)
	}
}

func TestClassifyDropsMetadataTail(t *testing.T) {
	f := &memFile{}
	sectorsOffset := int64(FileHeaderSize)
	if err := section.Write(f, sectorsOffset, section.TypeSectors, uint64(sectorsOffset)+100, 100); err != nil {
		t.Fatalf("section.Write(sectors): %v", err)
	}
	tableOffset := sectorsOffset + 100
	table2Offset := tableOffset + tableSectionSize(2)
	writeTablePayload(t, f, tableOffset, section.TypeTable, 2, uint64(table2Offset))
	hashOffset := table2Offset + tableSectionSize(2)
	table2Hdr := writeTablePayload(t, f, table2Offset, section.TypeTable2, 2, uint64(hashOffset))
	if err := section.Write(f, hashOffset, section.TypeHash, uint64(hashOffset), section.HeaderSize+20); err != nil {
		t.Fatalf("section.Write(hash): %v", err)
	}

	sections, err := Walk(f)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	seg := &Segment{Sections: sections}

	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeDropMetadata {
		t.Errorf("Action = %v, want ResumeDropMetadata", plan.Action)
	}
	if plan.TruncateOffset != table2Hdr.EndOffset() {
		t.Errorf("TruncateOffset = %d, want %d (end of table2)", plan.TruncateOffset, table2Hdr.EndOffset())
	}
}

func TestClassifyDropsTable2CountingOffsets(t *testing.T) {
	f := &memFile{}
	sectorsOffset := int64(FileHeaderSize)
	if err := section.Write(f, sectorsOffset, section.TypeSectors, uint64(sectorsOffset)+100, 100); err != nil {
		t.Fatalf("section.Write(sectors): %v", err)
	}
	tableOffset := sectorsOffset + 100
	table2Offset := tableOffset + tableSectionSize(3)
	tableHdr := writeTablePayload(t, f, tableOffset, section.TypeTable, 3, uint64(table2Offset))
	table2Hdr := writeTablePayload(t, f, table2Offset, section.TypeTable2, 3, uint64(table2Offset))

	sections, err := Walk(f)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	seg := &Segment{Sections: sections}
	_ = table2Hdr

	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeDropTable2 {
		t.Errorf("Action = %v, want ResumeDropTable2", plan.Action)
	}
	if plan.TruncateOffset != tableHdr.StartOffset {
		t.Errorf("TruncateOffset = %d, want %d (start of table)", plan.TruncateOffset, tableHdr.StartOffset)
	}
	if plan.ChunksToDiscard != 3 {
		t.Errorf("ChunksToDiscard = %d, want 3", plan.ChunksToDiscard)
	}
}

func TestClassifyDropsTableWithNoTable2(t *testing.T) {
	f := &memFile{}
	sectorsOffset := int64(FileHeaderSize)
	if err := section.Write(f, sectorsOffset, section.TypeSectors, uint64(sectorsOffset)+100, 100); err != nil {
		t.Fatalf("section.Write(sectors): %v", err)
	}
	tableOffset := sectorsOffset + 100
	tableHdr := writeTablePayload(t, f, tableOffset, section.TypeTable, 4, uint64(tableOffset))

	sections, err := Walk(f)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	seg := &Segment{Sections: sections}

	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeDropTable {
		t.Errorf("Action = %v, want ResumeDropTable", plan.Action)
	}
	if plan.TruncateOffset != uint64(sectorsOffset) {
		t.Errorf("TruncateOffset = %d, want %d (start of sectors)", plan.TruncateOffset, sectorsOffset)
	}
	if plan.ChunksToDiscard != 4 {
		t.Errorf("ChunksToDiscard = %d, want 4", plan.ChunksToDiscard)
	}
}

func TestClassifyDropsUnfinishedSectors(t *testing.T) {
	f := &memFile{}
	sectorsOffset := int64(FileHeaderSize)
	if err := section.Write(f, sectorsOffset, section.TypeSectors, uint64(sectorsOffset), 500); err != nil {
		t.Fatalf("section.Write(sectors): %v", err)
	}

	sections, err := Walk(f)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	seg := &Segment{Sections: sections}

	plan, err := Classify(f, seg)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if plan.Action != ResumeDropSectors {
		t.Errorf("Action = %v, want ResumeDropSectors", plan.Action)
	}
	if plan.TruncateOffset != uint64(sectorsOffset) {
		t.Errorf("TruncateOffset = %d, want %d", plan.TruncateOffset, sectorsOffset)
	}
}

func TestClassifyRejectsUnexpectedLastType(t *testing.T) {
	f := &memFile{}
	seg := &Segment{Sections: []section.Header{
		{Type: section.TypeVolume, StartOffset: FileHeaderSize, Size: 100, NextOffset: FileHeaderSize + 100},
	}}
	if _, err := Classify(f, seg); err == nil {
		t.Error("Classify accepted a segment whose last section is neither terminal, metadata, nor chunks-related")
	}
}
