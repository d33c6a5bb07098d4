package segment

import (
	"testing"

	"github.com/forensicgo/goewf/internal/section"
)

func writeSectionChain(t *testing.T, f *memFile, descriptors []struct {
	typeName string
	size     uint64
}) {
	t.Helper()
	offset := int64(FileHeaderSize)
	for i, d := range descriptors {
		var next uint64
		if i+1 < len(descriptors) {
			next = uint64(offset) + d.size
		} else {
			next = uint64(offset) // terminal section points at itself
		}
		if err := section.Write(f, offset, d.typeName, next, d.size); err != nil {
			t.Fatalf("section.Write(%s): %v", d.typeName, err)
		}
		offset += int64(d.size)
	}
}

func TestWalkFollowsSectionChainToTerminal(t *testing.T) {
	f := &memFile{}
	writeSectionChain(t, f, []struct {
		typeName string
		size     uint64
	}{
		{section.TypeHeader, section.HeaderSize + 10},
		{section.TypeVolume, section.HeaderSize + 20},
		{section.TypeDone, section.HeaderSize},
	})

	sections, err := Walk(f)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("len(sections) = %d, want 3", len(sections))
	}
	if sections[0].Type != section.TypeHeader || sections[1].Type != section.TypeVolume || sections[2].Type != section.TypeDone {
		t.Errorf("sections = %+v, want header, volume, done", sections)
	}
}

func TestSegmentChunksSectionsGroupsTriples(t *testing.T) {
	seg := &Segment{
		Sections: []section.Header{
			{Type: section.TypeHeader},
			{Type: section.TypeSectors},
			{Type: section.TypeTable},
			{Type: section.TypeTable2},
			{Type: section.TypeSectors},
			{Type: section.TypeTable},
			{Type: section.TypeTable2},
			{Type: section.TypeDone},
		},
	}

	groups := seg.ChunksSections()
	if len(groups) != 2 {
		t.Fatalf("len(groups) = %d, want 2", len(groups))
	}
	for i, g := range groups {
		if g.Sectors == nil || g.Table == nil || g.Table2 == nil {
			t.Errorf("groups[%d] = %+v, want all three sections present", i, g)
		}
	}
}

func TestSegmentLastAndIsComplete(t *testing.T) {
	empty := &Segment{}
	if _, ok := empty.Last(); ok {
		t.Error("Last() on empty Segment found a section, want none")
	}
	if empty.IsComplete() {
		t.Error("IsComplete() on empty Segment = true, want false")
	}

	complete := &Segment{Sections: []section.Header{{Type: section.TypeVolume}, {Type: section.TypeDone}}}
	if !complete.IsComplete() {
		t.Error("IsComplete() = false for a segment ending in `done`")
	}

	incomplete := &Segment{Sections: []section.Header{{Type: section.TypeVolume}, {Type: section.TypeSectors}}}
	if incomplete.IsComplete() {
		t.Error("IsComplete() = true for a segment not ending in a terminal section")
	}
}

func TestSegmentHeaderGroup(t *testing.T) {
	seg := &Segment{
		Sections: []section.Header{
			{Type: section.TypeHeader},
			{Type: section.TypeVolume},
			{Type: section.TypeHeader2},
			{Type: section.TypeXHeader},
			{Type: section.TypeDone},
		},
	}
	got := seg.HeaderGroup()
	if len(got) != 3 {
		t.Fatalf("len(HeaderGroup()) = %d, want 3", len(got))
	}
}
