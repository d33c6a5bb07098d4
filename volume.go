package ewf

import (
	"fmt"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// volumePayloadSize is the fixed `volume`/`disk`/`data` section
// payload size: every field up to and including the trailing
// checksum.
const volumePayloadSize = 4 + 4 + 4 + 4 + 8 + 12 + 1 + 3 + 4 + 4 + 1 + 1 + 4 + 4 + 16 + 963 + 4

// DecodeVolume parses a `volume`/`disk`/`data` section payload into
// MediaValues.
func DecodeVolume(payload []byte) (MediaValues, error) {
	if len(payload) < volumePayloadSize {
		return MediaValues{}, fmt.Errorf("ewf: volume payload too short (%d bytes, want %d)", len(payload), volumePayloadSize)
	}

	checksumOffset := volumePayloadSize - 4
	checksum := ioutilx.Uint32LE(payload[checksumOffset : checksumOffset+4])
	if !ioutilx.VerifyChecksum(payload[:checksumOffset], checksum) {
		return MediaValues{}, fmt.Errorf("ewf: volume checksum mismatch")
	}

	var m MediaValues
	m.MediaType = payload[0]
	// payload[1:4] unused, it precedes number_of_chunks by convention
	// matching EnCase's field ordering: media_type is 1 byte followed
	// by 3 reserved bytes before the first u32.
	off := 4
	m.NumberOfChunks = ioutilx.Uint32LE(payload[off : off+4])
	off += 4
	m.SectorsPerChunk = ioutilx.Uint32LE(payload[off : off+4])
	off += 4
	m.BytesPerSector = ioutilx.Uint32LE(payload[off : off+4])
	off += 4
	m.NumberOfSectors = ioutilx.Uint64LE(payload[off : off+8])
	off += 8
	off += 12 // CHS cylinders/heads/sectors, not modelled
	m.MediaFlags = payload[off]
	off += 1 + 3 // media_flags + unknown[3]
	off += 4     // palm/SMART start sector, not modelled
	off += 4     // SMART number_of_sectors, not modelled
	m.CompressionLevel = payload[off]
	off += 1 + 1 // compression_level + unknown
	m.ErrorGranularity = ioutilx.Uint32LE(payload[off : off+4])
	off += 4 + 4 // error_granularity + unknown[4]
	copy(m.SetIdentifier[:], payload[off:off+16])

	m.MediaSize = m.NumberOfSectors * uint64(m.BytesPerSector)
	return m, nil
}

// EncodeVolume serialises m into a `volume`/`disk`/`data` section
// payload.
func EncodeVolume(m *MediaValues) []byte {
	buf := make([]byte, volumePayloadSize)
	buf[0] = m.MediaType
	off := 4
	ioutilx.PutUint32LE(buf[off:off+4], m.NumberOfChunks)
	off += 4
	ioutilx.PutUint32LE(buf[off:off+4], m.SectorsPerChunk)
	off += 4
	ioutilx.PutUint32LE(buf[off:off+4], m.BytesPerSector)
	off += 4
	ioutilx.PutUint64LE(buf[off:off+8], m.NumberOfSectors)
	off += 8
	off += 12
	buf[off] = m.MediaFlags
	off += 1 + 3
	off += 4
	off += 4
	buf[off] = m.CompressionLevel
	off += 1 + 1
	ioutilx.PutUint32LE(buf[off:off+4], m.ErrorGranularity)
	off += 4 + 4
	copy(buf[off:off+16], m.SetIdentifier[:])

	checksumOffset := volumePayloadSize - 4
	checksum := ioutilx.Checksum(buf[:checksumOffset])
	ioutilx.PutUint32LE(buf[checksumOffset:checksumOffset+4], checksum)
	return buf
}
