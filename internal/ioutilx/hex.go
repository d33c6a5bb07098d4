package ioutilx

import (
	"encoding/binary"
	"fmt"
)

// HexEncode renders b as lower-case base16, the usual formatting for
// digest fields.
func HexEncode(b []byte) string {
	return fmt.Sprintf("%x", b)
}

// PutUint32LE and friends centralise the endian conventions used by
// every on-disk struct in this module: everything in EWF is little
// endian except nothing — the format has no big-endian fields, but
// we still name the helpers explicitly so a reader never has to
// guess which byte order a call site means.

func PutUint32LE(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }
func PutUint64LE(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }
func Uint32LE(buf []byte) uint32       { return binary.LittleEndian.Uint32(buf) }
func Uint64LE(buf []byte) uint64       { return binary.LittleEndian.Uint64(buf) }

// TrimNUL trims trailing NUL bytes from a fixed-width ASCII field,
// e.g. a section type name or a segment signature field.
func TrimNUL(b []byte) string {
	n := len(b)
	for n > 0 && b[n-1] == 0 {
		n--
	}
	return string(b[:n])
}
