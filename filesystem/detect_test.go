package filesystem

import (
	"encoding/binary"
	"fmt"
	"testing"
)

type stubReader struct {
	sectors map[uint64][]byte
	bytes   map[uint64][]byte
}

func (s *stubReader) ReadSector(n uint64) ([]byte, error) {
	if b, ok := s.sectors[n]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no sector %d", n)
}

func (s *stubReader) ReadSectors(start, count uint64) ([]byte, error) {
	var out []byte
	for i := uint64(0); i < count; i++ {
		b, err := s.ReadSector(start + i)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

func (s *stubReader) ReadBytes(offset, size uint64) ([]byte, error) {
	if b, ok := s.bytes[offset]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no bytes at %d", offset)
}

func (s *stubReader) GetSectorSize() uint32  { return 512 }
func (s *stubReader) GetSectorCount() uint64 { return 100 }

func bootSectorWithSignature() []byte {
	b := make([]byte, 512)
	b[510], b[511] = 0x55, 0xAA
	return b
}

func TestDetectPartitionFileSystemNTFS(t *testing.T) {
	b := make([]byte, 512) // no 0x55AA, so the NTFS branch is reachable
	copy(b[3:11], []byte("NTFS    "))
	if got := detectPartitionFileSystem(b, 0); got != FileSystemTypeNTFS {
		t.Errorf("detectPartitionFileSystem() = %v, want NTFS", got)
	}
}

func TestDetectPartitionFileSystemByPartitionType(t *testing.T) {
	tests := []struct {
		name string
		typ  byte
		want FileSystemType
	}{
		{"FAT16 type 0x06", 0x06, FileSystemTypeFAT16},
		{"FAT32 type 0x0C", 0x0C, FileSystemTypeFAT32},
		{"FAT16 type 0x01", 0x01, FileSystemTypeFAT16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bootSectorWithSignature()
			if got := detectPartitionFileSystem(b, tt.typ); got != tt.want {
				t.Errorf("detectPartitionFileSystem(type=%#x) = %v, want %v", tt.typ, got, tt.want)
			}
		})
	}
}

func TestDetectPartitionFileSystemTooShort(t *testing.T) {
	if got := detectPartitionFileSystem(make([]byte, 10), 0); got != FileSystemTypeUnknown {
		t.Errorf("detectPartitionFileSystem() on a too-short buffer = %v, want Unknown", got)
	}
}

func TestDetectFileSystemDetectsNTFSDirectly(t *testing.T) {
	boot := make([]byte, 512)
	copy(boot[3:11], []byte("NTFS    "))
	r := &stubReader{sectors: map[uint64][]byte{0: boot}}

	got, err := DetectFileSystem(r)
	if err != nil {
		t.Fatalf("DetectFileSystem: %v", err)
	}
	if got != FileSystemTypeNTFS {
		t.Errorf("DetectFileSystem() = %v, want NTFS", got)
	}
}

func TestDetectFileSystemDetectsExt2ViaSuperblock(t *testing.T) {
	boot := make([]byte, 512) // no signature, no FAT/NTFS match

	superblock := make([]byte, 1024)
	binary.LittleEndian.PutUint16(superblock[56:58], 0xEF53)
	// featureCompat/featureIncompat left zero: plain EXT2, no journal/extents.

	r := &stubReader{
		sectors: map[uint64][]byte{0: boot},
		bytes:   map[uint64][]byte{1024: superblock},
	}

	got, err := DetectFileSystem(r)
	if err != nil {
		t.Fatalf("DetectFileSystem: %v", err)
	}
	if got != FileSystemTypeEXT2 {
		t.Errorf("DetectFileSystem() = %v, want EXT2", got)
	}
}

func TestDetectFileSystemDetectsExt4ViaExtentFlag(t *testing.T) {
	boot := make([]byte, 512)

	superblock := make([]byte, 1024)
	binary.LittleEndian.PutUint16(superblock[56:58], 0xEF53)
	binary.LittleEndian.PutUint32(superblock[96:100], 0x40) // INCOMPAT_EXTENTS

	r := &stubReader{
		sectors: map[uint64][]byte{0: boot},
		bytes:   map[uint64][]byte{1024: superblock},
	}

	got, err := DetectFileSystem(r)
	if err != nil {
		t.Fatalf("DetectFileSystem: %v", err)
	}
	if got != FileSystemTypeEXT4 {
		t.Errorf("DetectFileSystem() = %v, want EXT4", got)
	}
}

func TestDetectFileSystemFallsBackToRaw(t *testing.T) {
	boot := make([]byte, 512)
	r := &stubReader{sectors: map[uint64][]byte{0: boot}}

	got, err := DetectFileSystem(r)
	if err != nil {
		t.Fatalf("DetectFileSystem: %v", err)
	}
	if got != FileSystemTypeRaw {
		t.Errorf("DetectFileSystem() = %v, want Raw for an unrecognised boot sector", got)
	}
}
