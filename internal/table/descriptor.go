// Package table implements the Chunk Table Index and the Chunk Cache:
// the structures that map a global chunk index to its physical
// location and serve reads with at-most-one decompression per cache
// hit.
package table

// Flag bits carried by a ChunkDescriptor.
const (
	FlagCompressed uint32 = 1 << iota
	FlagDelta
	FlagTentative
	FlagPackedWithTrailingChecksum
)

// DescriptorSource records where a descriptor came from, for
// table/table2 cross-validation.
type DescriptorSource int

const (
	SourceAuthoritative DescriptorSource = iota
	SourceTentative
)

// Descriptor is one per-chunk record: which segment backs it, where
// in that segment's file, how many bytes it occupies on disk, and its
// flags.
type Descriptor struct {
	FileIOEntry int32
	FileOffset  uint64
	SizeOnDisk  uint32
	Flags       uint32
}

func (d Descriptor) Compressed() bool { return d.Flags&FlagCompressed != 0 }
func (d Descriptor) Delta() bool      { return d.Flags&FlagDelta != 0 }
func (d Descriptor) Tentative() bool  { return d.Flags&FlagTentative != 0 }
func (d Descriptor) PackedWithTrailingChecksum() bool {
	return d.Flags&FlagPackedWithTrailingChecksum != 0
}

// Validate enforces the Chunk Descriptor invariant: size_on_disk >= 1,
// and if stored uncompressed with a trailing checksum,
// size_on_disk == chunk_size + 4.
func (d Descriptor) Validate(chunkSize uint32) error {
	if d.SizeOnDisk < 1 {
		return errInvalidDescriptor("size_on_disk must be >= 1")
	}
	if !d.Compressed() && d.PackedWithTrailingChecksum() && d.SizeOnDisk != chunkSize+4 {
		return errInvalidDescriptor("uncompressed packed chunk must be chunk_size+4 bytes")
	}
	return nil
}

type descriptorError string

func (e descriptorError) Error() string { return string(e) }

func errInvalidDescriptor(msg string) error { return descriptorError("table: " + msg) }
