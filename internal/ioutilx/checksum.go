// Package ioutilx holds the byte/bit helpers shared by every EWF
// component: fixed-width little-endian accessors and the
// Adler-32-style chunk checksum used throughout the segment file
// format (section checksums, chunk checksums, table checksums).
package ioutilx

import "hash/adler32"

// Checksum computes the Adler-32 checksum EWF uses for section and
// chunk trailers. The algorithm is bit-for-bit standard Adler-32
// (seed 1, modulus 65521); this wrapper exists so call sites read
// "ewf checksum" instead of reaching for hash/adler32 directly, and so
// the seed convention stays in one place if a variant ever needs it.
func Checksum(data []byte) uint32 {
	return adler32.Checksum(data)
}

// VerifyChecksum reports whether data's checksum matches expected. A
// stored checksum of 0 is treated as "not present" and always passes,
// the usual convention for sections that predate checksum coverage.
func VerifyChecksum(data []byte, expected uint32) bool {
	if expected == 0 {
		return true
	}
	return Checksum(data) == expected
}
