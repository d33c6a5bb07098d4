package ewf

import (
	"fmt"
	"sort"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// SectorRange is one (start_sector, number_of_sectors) entry shared by
// every Acquisition Metadata list.
type SectorRange struct {
	StartSector     uint64
	NumberOfSectors uint64
}

// End returns the sector immediately after the range.
func (r SectorRange) End() uint64 { return r.StartSector + r.NumberOfSectors }

// Contains reports whether sector falls inside the range.
func (r SectorRange) Contains(sector uint64) bool {
	return sector >= r.StartSector && sector < r.End()
}

// AcquisitionMetadata holds three append-only ordered lists (sessions,
// tracks, acquisition-errors) plus a parallel checksum-error list
// populated at read time.
type AcquisitionMetadata struct {
	Sessions         []SectorRange
	Tracks           []SectorRange
	AcquisitionErrors []SectorRange
	ChecksumErrors    []SectorRange
}

// NewAcquisitionMetadata creates an empty Acquisition Metadata Store.
func NewAcquisitionMetadata() *AcquisitionMetadata { return &AcquisitionMetadata{} }

// AppendSession appends a new session range. Cue-sheet track layout
// flows in via cuesheet.Sheet.Sessions and is translated here by the
// caller (the Handle's acquisition-import path).
func (a *AcquisitionMetadata) AppendSession(r SectorRange) { a.Sessions = append(a.Sessions, r) }

// AppendTrack appends a new track range.
func (a *AcquisitionMetadata) AppendTrack(r SectorRange) { a.Tracks = append(a.Tracks, r) }

// AppendAcquisitionError appends a new acquisition-error range (a
// sector range the acquisition software flagged as unreadable from
// the source media).
func (a *AcquisitionMetadata) AppendAcquisitionError(r SectorRange) {
	a.AcquisitionErrors = append(a.AcquisitionErrors, r)
}

// AppendChecksumError appends a new checksum-error range (a chunk
// whose stored checksum failed to verify on read).
func (a *AcquisitionMetadata) AppendChecksumError(r SectorRange) {
	a.ChecksumErrors = append(a.ChecksumErrors, r)
}

// lookup returns the range covering sector, if any, via linear scan
// (these lists are expected to hold at most a few hundred entries for
// realistic acquisitions, so a binary search over a sorted copy is not
// worth the bookkeeping).
func lookup(ranges []SectorRange, sector uint64) (SectorRange, bool) {
	for _, r := range ranges {
		if r.Contains(sector) {
			return r, true
		}
	}
	return SectorRange{}, false
}

// SessionAt returns the session range containing sector, if any.
func (a *AcquisitionMetadata) SessionAt(sector uint64) (SectorRange, bool) {
	return lookup(a.Sessions, sector)
}

// TrackAt returns the track range containing sector, if any.
func (a *AcquisitionMetadata) TrackAt(sector uint64) (SectorRange, bool) {
	return lookup(a.Tracks, sector)
}

// HasAcquisitionError reports whether sector falls inside a recorded
// acquisition-error range.
func (a *AcquisitionMetadata) HasAcquisitionError(sector uint64) bool {
	_, ok := lookup(a.AcquisitionErrors, sector)
	return ok
}

// HasChecksumError reports whether sector falls inside a recorded
// checksum-error range.
func (a *AcquisitionMetadata) HasChecksumError(sector uint64) bool {
	_, ok := lookup(a.ChecksumErrors, sector)
	return ok
}

// sortRanges orders ranges by start sector.
func sortRanges(ranges []SectorRange) {
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].StartSector < ranges[j].StartSector })
}

// rangeEntrySize is the on-disk width of one (start_sector,
// number_of_sectors) pair: two little-endian uint64s.
const rangeEntrySize = 8 + 8

// rangeHeaderSize is the fixed header in front of a `session`/`error2`
// payload's entry array: a uint32 entry count followed by reserved
// padding, mirroring the fixed leading header every other EWF metadata
// section (`volume`, `digest`) carries.
const rangeHeaderSize = 4 + 28

// encodeSectorRanges serialises ranges into a `session`/`error2`
// section payload: count, padding, the entries themselves, and a
// trailing Adler-32 checksum over everything before it.
func encodeSectorRanges(ranges []SectorRange) []byte {
	buf := make([]byte, rangeHeaderSize+len(ranges)*rangeEntrySize+4)
	ioutilx.PutUint32LE(buf[0:4], uint32(len(ranges)))
	off := rangeHeaderSize
	for _, r := range ranges {
		ioutilx.PutUint64LE(buf[off:off+8], r.StartSector)
		ioutilx.PutUint64LE(buf[off+8:off+16], r.NumberOfSectors)
		off += rangeEntrySize
	}
	checksum := ioutilx.Checksum(buf[:off])
	ioutilx.PutUint32LE(buf[off:off+4], checksum)
	return buf
}

// decodeSectorRanges parses a `session`/`error2` section payload back
// into an ordered list of SectorRange.
func decodeSectorRanges(payload []byte) ([]SectorRange, error) {
	if len(payload) < rangeHeaderSize+4 {
		return nil, fmt.Errorf("ewf: session/error2 payload too short (%d bytes)", len(payload))
	}
	count := int(ioutilx.Uint32LE(payload[0:4]))
	end := rangeHeaderSize + count*rangeEntrySize
	if count < 0 || len(payload) < end+4 {
		return nil, fmt.Errorf("ewf: session/error2 payload too short for %d entries", count)
	}
	checksum := ioutilx.Uint32LE(payload[end : end+4])
	if !ioutilx.VerifyChecksum(payload[:end], checksum) {
		return nil, fmt.Errorf("ewf: session/error2 checksum mismatch")
	}
	ranges := make([]SectorRange, count)
	off := rangeHeaderSize
	for i := range ranges {
		ranges[i] = SectorRange{
			StartSector:     ioutilx.Uint64LE(payload[off : off+8]),
			NumberOfSectors: ioutilx.Uint64LE(payload[off+8 : off+16]),
		}
		off += rangeEntrySize
	}
	return ranges, nil
}

// EncodeSession serialises a Sessions list into a `session` section
// payload.
func EncodeSession(sessions []SectorRange) []byte { return encodeSectorRanges(sessions) }

// DecodeSession parses a `session` section payload into a Sessions
// list.
func DecodeSession(payload []byte) ([]SectorRange, error) { return decodeSectorRanges(payload) }

// EncodeError2 serialises an AcquisitionErrors list into an `error2`
// section payload — byte-identical layout to `session`.
func EncodeError2(errs []SectorRange) []byte { return encodeSectorRanges(errs) }

// DecodeError2 parses an `error2` section payload into an
// AcquisitionErrors list.
func DecodeError2(payload []byte) ([]SectorRange, error) { return decodeSectorRanges(payload) }
