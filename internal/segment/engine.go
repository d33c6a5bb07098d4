package segment

import (
	"fmt"
	"io"

	"github.com/forensicgo/goewf/internal/iopool"
	"github.com/forensicgo/goewf/internal/section"
)

// Segment is the Segment File Engine's in-memory model of one opened
// segment file: its file header, its pool entry, and the
// section chain discovered by walking from the first section offset.
type Segment struct {
	Entry      iopool.Entry
	Number     uint16
	Header     FileHeader
	Sections   []section.Header // in on-disk order
	Size       int64
}

// ChunksSection groups one `sectors`+`table`+`table2` triple, the unit
// the Write-IO Coordinator and Resume logic reason about.
type ChunksSection struct {
	Sectors *section.Header
	Table   *section.Header
	Table2  *section.Header
}

// Walk reads every section descriptor in a segment file, starting
// immediately after the 13-byte file header, and returns them in
// on-disk order. It stops at the first terminal (`next`/`done`)
// section.
func Walk(r io.ReaderAt) ([]section.Header, error) {
	var out []section.Header
	offset := int64(FileHeaderSize)
	for {
		hdr, err := section.Read(r, offset)
		if err != nil {
			return out, fmt.Errorf("segment: walk at %d: %w", offset, err)
		}
		out = append(out, hdr)
		if section.IsTerminal(hdr.Type) {
			return out, nil
		}
		if hdr.NextOffset == 0 || hdr.NextOffset == hdr.StartOffset {
			return out, nil
		}
		offset = int64(hdr.NextOffset)
	}
}

// Open reads a segment file's header and full section chain via the
// File I/O Pool entry, producing the engine's in-memory model.
func Open(pool *iopool.Pool, entry iopool.Entry, number uint16) (*Segment, error) {
	f, err := pool.Open(entry)
	if err != nil {
		return nil, fmt.Errorf("segment: open entry %d: %w", entry, err)
	}
	fh, err := ReadFileHeader(f)
	if err != nil {
		return nil, err
	}
	sections, err := Walk(f)
	if err != nil {
		return nil, err
	}
	size, err := pool.Size(entry)
	if err != nil {
		return nil, err
	}
	return &Segment{Entry: entry, Number: number, Header: fh, Sections: sections, Size: size}, nil
}

// ChunksSections groups seg.Sections into consecutive
// sectors/table/table2 triples, in the order they appear.
func (seg *Segment) ChunksSections() []ChunksSection {
	var groups []ChunksSection
	var cur ChunksSection
	flush := func() {
		if cur.Sectors != nil {
			groups = append(groups, cur)
		}
		cur = ChunksSection{}
	}
	for i := range seg.Sections {
		h := &seg.Sections[i]
		switch h.Type {
		case section.TypeSectors:
			flush()
			cur.Sectors = h
		case section.TypeTable:
			cur.Table = h
		case section.TypeTable2:
			cur.Table2 = h
			flush()
		}
	}
	flush()
	return groups
}

// HeaderGroup returns the header/header2/xheader sections, in the
// order they appear.
func (seg *Segment) HeaderGroup() []section.Header {
	var out []section.Header
	for _, h := range seg.Sections {
		switch h.Type {
		case section.TypeHeader, section.TypeHeader2, section.TypeXHeader:
			out = append(out, h)
		}
	}
	return out
}

// Last returns the final section descriptor, if any.
func (seg *Segment) Last() (section.Header, bool) {
	if len(seg.Sections) == 0 {
		return section.Header{}, false
	}
	return seg.Sections[len(seg.Sections)-1], true
}

// IsComplete reports whether the segment ends with a terminal section.
func (seg *Segment) IsComplete() bool {
	last, ok := seg.Last()
	return ok && section.IsTerminal(last.Type)
}
