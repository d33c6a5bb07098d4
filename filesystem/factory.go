package filesystem

import (
	"fmt"
	"time"
)

// CreateFileSystem sniffs reader's filesystem type and returns the
// matching parser, falling back to RawFileSystem for an unrecognized
// volume rather than failing outright.
func CreateFileSystem(reader Reader) (FileSystem, error) {
	fsType, err := DetectFileSystem(reader)
	if err != nil {
		return nil, fmt.Errorf("detect filesystem: %w", err)
	}
	if fsType == FileSystemTypeUnknown {
		return nil, fmt.Errorf("unable to detect filesystem type")
	}

	switch fsType {
	case FileSystemTypeFAT12, FileSystemTypeFAT16, FileSystemTypeFAT32:
		return NewFAT32FileSystem(reader)
	case FileSystemTypeEXT2:
		return NewEXT2(reader)
	case FileSystemTypeEXT3:
		return NewEXT3(reader)
	case FileSystemTypeEXT4:
		return NewEXT4(reader)
	case FileSystemTypeNTFS:
		return NewNTFSFileSystem(reader)
	case FileSystemTypeRaw:
		return NewRawFileSystem(reader)
	default:
		return nil, fmt.Errorf("unsupported filesystem type: %s", fsType)
	}
}

// NewRawFileSystem wraps reader in a FileSystem that exposes no
// structure, for volumes CreateFileSystem could not identify.
func NewRawFileSystem(reader Reader) (FileSystem, error) {
	return &RawFileSystem{reader: reader}, nil
}

// RawFileSystem is the FileSystem fallback for an unrecognized volume.
type RawFileSystem struct {
	reader Reader
}

func (fs *RawFileSystem) GetType() FileSystemType {
	return FileSystemTypeRaw
}

func (fs *RawFileSystem) GetRootDirectory() (Directory, error) {
	return &RawDirectory{fs: fs, name: "/", path: "/"}, nil
}

func (fs *RawFileSystem) GetFileByPath(path string) (File, error) {
	return nil, fmt.Errorf("raw filesystem does not support lookup by path")
}

func (fs *RawFileSystem) GetDirectoryByPath(path string) (Directory, error) {
	if path == "/" {
		return fs.GetRootDirectory()
	}
	return nil, fmt.Errorf("raw filesystem does not support lookup by path")
}

// RawDirectory is the sole (empty) directory a RawFileSystem exposes.
type RawDirectory struct {
	fs   *RawFileSystem
	name string
	path string
}

func (d *RawDirectory) GetName() string               { return d.name }
func (d *RawDirectory) GetPath() string                { return d.path }
func (d *RawDirectory) GetSize() uint64                { return 0 }
func (d *RawDirectory) IsDirectory() bool              { return true }
func (d *RawDirectory) GetModificationTime() time.Time { return time.Now() }
func (d *RawDirectory) GetCreationTime() time.Time     { return time.Now() }
func (d *RawDirectory) GetAccessTime() time.Time       { return time.Now() }
func (d *RawDirectory) GetAttributes() uint32          { return 0 }
func (d *RawDirectory) IsDeleted() bool                { return false }

func (d *RawDirectory) GetEntries() ([]FileSystemEntry, error) {
	return []FileSystemEntry{}, nil
}

func (d *RawDirectory) GetEntry(name string) (FileSystemEntry, error) {
	return nil, fmt.Errorf("raw filesystem directory has no entries")
}

func (d *RawDirectory) GetDirectories() ([]Directory, error) {
	return []Directory{}, nil
}

func (d *RawDirectory) GetFiles() ([]File, error) {
	return []File{}, nil
}
