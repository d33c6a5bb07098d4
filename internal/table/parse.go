package table

import (
	"encoding/binary"
	"fmt"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// HeaderWireSize is the fixed portion of a table/table2 section before
// the offset array: number_of_offsets(4) + unknown(4) + base_offset(8)
// + unknown(4) + checksum(4) = 24.
const HeaderWireSize = 24

// offsetCompressedBit marks an offset entry as "chunk is compressed".
const offsetCompressedBit = 1 << 31

// Raw is the decoded wire form of one table/table2 section, before it
// is turned into Descriptors (which needs the enclosing sectors
// section's bounds to size the final entry).
type Raw struct {
	NumberOfOffsets uint32
	BaseOffset      uint64
	HeaderChecksum  uint32
	HeaderValid     bool
	Offsets         []uint32 // raw 32-bit entries, MSB = compressed
	DataChecksum    uint32
	DataValid       bool
}

// ParseRaw decodes a table/table2 section payload (the bytes
// immediately following the 76-byte section descriptor).
func ParseRaw(payload []byte) (Raw, error) {
	if len(payload) < HeaderWireSize {
		return Raw{}, fmt.Errorf("table: payload too short for header (%d bytes)", len(payload))
	}

	var r Raw
	r.NumberOfOffsets = ioutilx.Uint32LE(payload[0:4])
	r.BaseOffset = ioutilx.Uint64LE(payload[8:16])
	r.HeaderChecksum = ioutilx.Uint32LE(payload[20:24])
	r.HeaderValid = ioutilx.VerifyChecksum(payload[:20], r.HeaderChecksum)

	want := int(r.NumberOfOffsets)
	start := HeaderWireSize
	end := start + want*4
	if end+4 > len(payload) {
		// Truncated or corrupt; take however many whole entries fit.
		avail := (len(payload) - start - 4) / 4
		if avail < 0 {
			avail = 0
		}
		want = avail
		end = start + want*4
	}

	r.Offsets = make([]uint32, want)
	for i := 0; i < want; i++ {
		r.Offsets[i] = binary.LittleEndian.Uint32(payload[start+i*4 : start+i*4+4])
	}
	if end+4 <= len(payload) {
		r.DataChecksum = ioutilx.Uint32LE(payload[end : end+4])
		r.DataValid = ioutilx.VerifyChecksum(payload[start:end], r.DataChecksum)
	}
	return r, nil
}

// ToDescriptors converts a validated Raw table into Descriptors.
// sectionsPayloadSize is the payload length of the enclosing `sectors`
// section, used to bound the final entry's size when the table itself
// carries no per-entry size field.
func (r Raw) ToDescriptors(segmentEntry int32, sectionsPayloadSize uint64) []Descriptor {
	descs := make([]Descriptor, len(r.Offsets))
	for i, raw := range r.Offsets {
		compressed := raw&offsetCompressedBit != 0
		relOffset := uint64(raw &^ offsetCompressedBit)
		fileOffset := r.BaseOffset + relOffset

		var next uint64
		if i+1 < len(r.Offsets) {
			nextRaw := r.Offsets[i+1] &^ offsetCompressedBit
			next = r.BaseOffset + uint64(nextRaw)
		} else {
			next = r.BaseOffset + sectionsPayloadSize
		}
		size := uint32(0)
		if next > fileOffset {
			size = uint32(next - fileOffset)
		}

		flags := uint32(0)
		if compressed {
			flags |= FlagCompressed
		} else {
			flags |= FlagPackedWithTrailingChecksum
		}
		descs[i] = Descriptor{
			FileIOEntry: segmentEntry,
			FileOffset:  fileOffset,
			SizeOnDisk:  size,
			Flags:       flags,
		}
	}
	return descs
}

// Reconcile implements table/table2 cross-validation: differences
// resolve to table2 when both checksums pass, otherwise to whichever
// passes. When neither passes, ok is false and the caller falls back
// to sectors-derived sizing with tentative flags.
func Reconcile(t, t2 Raw) (chosen Raw, ok bool) {
	t1Valid := t.HeaderValid && t.DataValid
	t2Valid := t2.HeaderValid && t2.DataValid

	switch {
	case t1Valid && t2Valid:
		return t2, true
	case t2Valid:
		return t2, true
	case t1Valid:
		return t, true
	default:
		return Raw{}, false
	}
}
