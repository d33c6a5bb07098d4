package filesystem

import (
	"fmt"
	"io"
)

// MediaReader adapts any random-access media stream — typically a
// Handle's Read-IO Coordinator — into the Reader
// interface the filesystem parsers consume, optionally offset into one
// partition's byte range (see the partition package for MBR/GPT
// lookup).
type MediaReader struct {
	ra         io.ReaderAt
	sectorSize uint32
	baseOffset int64 // byte offset of this partition/volume within ra
	sectorCount uint64
}

// NewMediaReader builds a MediaReader over ra, exposing sectorCount
// sectors of sectorSize bytes starting at baseOffset.
func NewMediaReader(ra io.ReaderAt, sectorSize uint32, baseOffset int64, sectorCount uint64) *MediaReader {
	return &MediaReader{ra: ra, sectorSize: sectorSize, baseOffset: baseOffset, sectorCount: sectorCount}
}

func (m *MediaReader) ReadSector(sectorNumber uint64) ([]byte, error) {
	return m.ReadSectors(sectorNumber, 1)
}

func (m *MediaReader) ReadSectors(startSector, count uint64) ([]byte, error) {
	if count == 0 {
		return nil, nil
	}
	if m.sectorCount > 0 && startSector+count > m.sectorCount {
		return nil, fmt.Errorf("filesystem: read sectors [%d,%d) exceeds volume of %d sectors", startSector, startSector+count, m.sectorCount)
	}
	buf := make([]byte, count*uint64(m.sectorSize))
	off := m.baseOffset + int64(startSector)*int64(m.sectorSize)
	if _, err := m.ra.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("filesystem: read sectors at %d: %w", off, err)
	}
	return buf, nil
}

func (m *MediaReader) ReadBytes(offset uint64, size uint64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := m.ra.ReadAt(buf, m.baseOffset+int64(offset)); err != nil {
		return nil, fmt.Errorf("filesystem: read bytes at %d: %w", offset, err)
	}
	return buf, nil
}

func (m *MediaReader) GetSectorSize() uint32 { return m.sectorSize }

func (m *MediaReader) GetSectorCount() uint64 { return m.sectorCount }
