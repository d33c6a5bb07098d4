package segment

import (
	"fmt"
	"io"

	"github.com/forensicgo/goewf/internal/section"
	"github.com/forensicgo/goewf/internal/table"
)

// ResumeAction classifies what the Resume Write path must do with the
// last section of the last (possibly incomplete) segment file.
type ResumeAction int

const (
	// ResumeFreshSegment means the segment already ends in `done`/`next`;
	// a brand new segment should be opened for further writes.
	ResumeFreshSegment ResumeAction = iota
	// ResumeDropMetadata truncates back to the end of the preceding
	// table2, discarding trailing metadata sections.
	ResumeDropMetadata
	// ResumeDropTable2 truncates to the start of `table`, discarding a
	// flushed table2 (and the table before it).
	ResumeDropTable2
	// ResumeDropTable truncates to the start of `sectors`, discarding a
	// flushed table with no table2 yet.
	ResumeDropTable
	// ResumeDropSectors truncates to the start of `sectors`, discarding
	// the whole unfinished chunks-section.
	ResumeDropSectors
)

// ResumePlan is the decision produced by Classify: where to truncate
// the segment file and how many trailing chunk descriptors the Chunk
// Table Index must drop to stay consistent with that truncation.
type ResumePlan struct {
	Action          ResumeAction
	TruncateOffset  uint64
	ChunksToDiscard uint64
}

var metadataTailTypes = map[string]bool{
	section.TypeData:    true,
	section.TypeHash:    true,
	section.TypeXHash:   true,
	section.TypeDigest:  true,
	section.TypeError2:  true,
	section.TypeSession: true,
}

// Classify walks seg's sections backwards to decide where a resumed
// write should truncate, reading table/table2 payloads through r (the
// segment's own backing file) when it needs the discarded chunk count.
func Classify(r io.ReaderAt, seg *Segment) (ResumePlan, error) {
	last, ok := seg.Last()
	if !ok {
		return ResumePlan{Action: ResumeFreshSegment, TruncateOffset: FileHeaderSize}, nil
	}

	if section.IsTerminal(last.Type) {
		return ResumePlan{Action: ResumeFreshSegment, TruncateOffset: last.EndOffset()}, nil
	}

	if metadataTailTypes[last.Type] {
		groups := seg.ChunksSections()
		if len(groups) == 0 {
			return ResumePlan{Action: ResumeDropMetadata, TruncateOffset: FileHeaderSize}, nil
		}
		lastGroup := groups[len(groups)-1]
		if lastGroup.Table2 != nil {
			return ResumePlan{Action: ResumeDropMetadata, TruncateOffset: lastGroup.Table2.EndOffset()}, nil
		}
		// No table2 was ever flushed for the final chunks-section; fall
		// back to truncating at the start of that section's sectors.
		return ResumePlan{Action: ResumeDropMetadata, TruncateOffset: lastGroup.Sectors.StartOffset}, nil
	}

	switch last.Type {
	case section.TypeTable2:
		groups := seg.ChunksSections()
		g := groups[len(groups)-1]
		n, err := countOffsets(r, g.Table2)
		if err != nil {
			return ResumePlan{}, err
		}
		return ResumePlan{Action: ResumeDropTable2, TruncateOffset: g.Table.StartOffset, ChunksToDiscard: n}, nil

	case section.TypeTable:
		groups := seg.ChunksSections()
		g := groups[len(groups)-1]
		n, err := countOffsets(r, g.Table)
		if err != nil {
			return ResumePlan{}, err
		}
		return ResumePlan{Action: ResumeDropTable, TruncateOffset: g.Sectors.StartOffset, ChunksToDiscard: n}, nil

	case section.TypeSectors:
		return ResumePlan{Action: ResumeDropSectors, TruncateOffset: last.StartOffset}, nil

	default:
		return ResumePlan{}, fmt.Errorf("segment: resume: unexpected last section type %q", last.Type)
	}
}

func countOffsets(r io.ReaderAt, h *section.Header) (uint64, error) {
	if h == nil {
		return 0, nil
	}
	buf := make([]byte, h.PayloadSize())
	if _, err := r.ReadAt(buf, int64(h.PayloadOffset())); err != nil {
		return 0, fmt.Errorf("segment: resume: read table payload: %w", err)
	}
	raw, err := table.ParseRaw(buf)
	if err != nil {
		return 0, fmt.Errorf("segment: resume: parse table payload: %w", err)
	}
	return uint64(len(raw.Offsets)), nil
}
