package table

import (
	"encoding/binary"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// Encode serialises offsets (relative to baseOffset, MSB set for
// compressed chunks) into a table/table2 section payload. table2 is
// written as a byte-for-byte copy of the same payload: it is a
// byte-identical mirror of table.
func Encode(baseOffset uint64, offsets []uint32) []byte {
	n := len(offsets)
	payload := make([]byte, HeaderWireSize+n*4+4)

	ioutilx.PutUint32LE(payload[0:4], uint32(n))
	// bytes 4:8 unknown/reserved, left zero
	ioutilx.PutUint64LE(payload[8:16], baseOffset)
	// bytes 16:20 unknown/reserved, left zero
	headerChecksum := ioutilx.Checksum(payload[:20])
	ioutilx.PutUint32LE(payload[20:24], headerChecksum)

	start := HeaderWireSize
	for i, off := range offsets {
		binary.LittleEndian.PutUint32(payload[start+i*4:start+i*4+4], off)
	}
	end := start + n*4
	dataChecksum := ioutilx.Checksum(payload[start:end])
	ioutilx.PutUint32LE(payload[end:end+4], dataChecksum)

	return payload
}

// EncodeOffset builds one offset entry: relative file offset with the
// compressed flag in the MSB
func EncodeOffset(fileOffset, baseOffset uint64, compressed bool) uint32 {
	rel := uint32(fileOffset - baseOffset)
	if compressed {
		rel |= offsetCompressedBit
	}
	return rel
}
