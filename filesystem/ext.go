package filesystem

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"time"
)

// EXT superblock magic; ext2, ext3, and ext4 all share the same value
// and are told apart by their feature flags.
const (
	EXT_SUPER_MAGIC  = 0xEF53
	EXT4_SUPER_MAGIC = 0xEF53
	EXT3_SUPER_MAGIC = 0xEF53
	EXT2_SUPER_MAGIC = 0xEF53
)

// EXTSuperBlock is the fixed-layout portion of an ext2/3/4 superblock.
type EXTSuperBlock struct {
	InodesCount       uint32
	BlocksCount       uint32
	ReservedBlocks    uint32
	FreeBlocksCount   uint32
	FreeInodesCount   uint32
	FirstDataBlock    uint32
	LogBlockSize      uint32
	LogClusterSize    uint32
	BlocksPerGroup    uint32
	FragmentsPerGroup uint32
	InodesPerGroup    uint32
	Mtime             uint32
	Wtime             uint32
	MountCount        uint16
	MaxMountCount     uint16
	Magic             uint16
	State             uint16
	Errors            uint16
	MinorRevision     uint16
	LastCheck         uint32
	CheckInterval     uint32
	CreatorOS         uint32
	RevisionLevel     uint32
	ReservedUID       uint16
	ReservedGID       uint16
	FirstInode        uint32
	InodeSize         uint16
	BlockGroupNumber  uint16
	FeatureCompat     uint32
	FeatureIncompat   uint32
	FeatureROCompat   uint32
	UUID              [16]byte
	VolumeName        [16]byte
	LastMounted       [64]byte
	AlgorithmBitmap   uint32
	PreallocBlocks    uint8
	PreallocDirBlks   uint8
	ReservedGDTBlks   uint16
	JournalUUID       [16]byte
	JournalInum       uint32
	JournalDev        uint32
	LastOrphan        uint32
	HashSeed          [4]uint32
	DefaultHashVer    uint8
	JournalBackup     uint8
	GroupDescSize     uint16
	DefaultMountOpts  uint32
	FirstMetaBG       uint32
	MkfsTime          uint32
	JournalBlocks     [17]uint32
	Reserved          [98]uint32
}

// EXTFileSystem is an ext2/3/4 reader over a Reader-backed volume.
type EXTFileSystem struct {
	reader     Reader
	superBlock *EXTSuperBlock
	blockSize  uint32
	fsType     FileSystemType
}

func NewEXT4(reader Reader) (FileSystem, error) {
	return newEXTFileSystem(reader, FileSystemTypeEXT4)
}

func NewEXT3(reader Reader) (FileSystem, error) {
	return newEXTFileSystem(reader, FileSystemTypeEXT3)
}

func NewEXT2(reader Reader) (FileSystem, error) {
	return newEXTFileSystem(reader, FileSystemTypeEXT2)
}

func newEXTFileSystem(reader Reader, fsType FileSystemType) (FileSystem, error) {
	superBlock := &EXTSuperBlock{}
	superBlockData, err := reader.ReadBytes(1024, 1024)
	if err != nil {
		return nil, fmt.Errorf("read ext superblock: %w", err)
	}
	if err := binary.Read(bytes.NewReader(superBlockData), binary.LittleEndian, superBlock); err != nil {
		return nil, fmt.Errorf("parse ext superblock: %w", err)
	}
	if superBlock.Magic != EXT_SUPER_MAGIC {
		return nil, fmt.Errorf("not an ext filesystem: bad superblock magic")
	}

	blockSize := uint32(1) << (10 + superBlock.LogBlockSize)

	return &EXTFileSystem{
		reader:     reader,
		superBlock: superBlock,
		blockSize:  blockSize,
		fsType:     fsType,
	}, nil
}

func (fs *EXTFileSystem) GetType() FileSystemType {
	return fs.fsType
}

func (fs *EXTFileSystem) GetRootDirectory() (Directory, error) {
	rootInode, err := fs.readInode(2) // root directory is always inode 2
	if err != nil {
		return nil, err
	}
	return &EXTDirectory{fs: fs, inode: rootInode, path: "/"}, nil
}

func (fs *EXTFileSystem) GetFileByPath(path string) (File, error) {
	return resolveFileByPath(fs, path)
}

func (fs *EXTFileSystem) GetDirectoryByPath(path string) (Directory, error) {
	return resolveDirectoryByPath(fs, path)
}

// EXTFile is a regular file reached through an ext inode chain.
type EXTFile struct {
	fs    *EXTFileSystem
	inode *EXTInode
	path  string
	size  uint64
	name  string
}

func (f *EXTFile) GetName() string                     { return f.name }
func (f *EXTFile) GetPath() string                     { return f.path }
func (f *EXTFile) GetSize() uint64                     { return f.size }
func (f *EXTFile) IsDirectory() bool                   { return false }
func (f *EXTFile) GetModificationTime() time.Time      { return time.Unix(int64(f.inode.Mtime), 0) }
func (f *EXTFile) GetCreationTime() time.Time          { return time.Unix(int64(f.inode.Ctime), 0) }
func (f *EXTFile) GetAccessTime() time.Time            { return time.Unix(int64(f.inode.Atime), 0) }
func (f *EXTFile) GetAttributes() uint32                { return uint32(f.inode.Mode) }
func (f *EXTFile) ReadAll() ([]byte, error)            { return f.fs.readInodeData(f.inode) }
func (f *EXTFile) IsDeleted() bool                     { return f.inode.Mode == 0 }

func (f *EXTFile) ReadAt(p []byte, off int64) (n int, err error) {
	data, err := f.fs.readInodeData(f.inode)
	if err != nil {
		return 0, err
	}
	if off >= int64(len(data)) {
		return 0, io.EOF
	}
	n = copy(p, data[off:])
	return n, nil
}

func (f *EXTFile) Open() (io.Reader, error) {
	return &EXTFileReader{file: f, offset: 0}, nil
}

// EXTDirectory is a directory reached through an ext inode chain.
type EXTDirectory struct {
	fs    *EXTFileSystem
	inode *EXTInode
	path  string
}

func (d *EXTDirectory) GetName() string                { return filepath.Base(d.path) }
func (d *EXTDirectory) GetPath() string                { return d.path }
func (d *EXTDirectory) GetSize() uint64                { return 0 }
func (d *EXTDirectory) IsDirectory() bool              { return true }
func (d *EXTDirectory) GetModificationTime() time.Time { return time.Unix(int64(d.inode.Mtime), 0) }
func (d *EXTDirectory) GetCreationTime() time.Time     { return time.Unix(int64(d.inode.Ctime), 0) }
func (d *EXTDirectory) GetAccessTime() time.Time       { return time.Unix(int64(d.inode.Atime), 0) }
func (d *EXTDirectory) GetAttributes() uint32          { return uint32(d.inode.Mode) }
func (d *EXTDirectory) IsDeleted() bool                { return d.inode.Mode == 0 }

func (d *EXTDirectory) GetEntries() ([]FileSystemEntry, error) {
	data, err := d.fs.readInodeData(d.inode)
	if err != nil {
		return nil, err
	}

	var entries []FileSystemEntry
	offset := 0

	for offset < len(data) {
		entry := &EXTDirEntry{}
		if err := binary.Read(bytes.NewReader(data[offset:]), binary.LittleEndian, entry); err != nil {
			return nil, err
		}

		if entry.NameLen == 1 && data[offset+8] == '.' {
			offset += int(entry.RecLen)
			continue
		}
		if entry.NameLen == 2 && data[offset+8] == '.' && data[offset+9] == '.' {
			offset += int(entry.RecLen)
			continue
		}

		name := string(data[offset+8 : offset+8+int(entry.NameLen)])
		inode, err := d.fs.readInode(entry.Inode)
		if err != nil {
			return nil, err
		}

		entryPath := filepath.Join(d.path, name)
		if inode.Mode&0xF000 == 0x4000 {
			entries = append(entries, &EXTDirectory{fs: d.fs, inode: inode, path: entryPath})
		} else {
			entries = append(entries, &EXTFile{
				fs:    d.fs,
				inode: inode,
				path:  entryPath,
				size:  uint64(inode.Size),
				name:  name,
			})
		}

		offset += int(entry.RecLen)
	}

	return entries, nil
}

func (d *EXTDirectory) GetEntry(name string) (FileSystemEntry, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.GetName() == name {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("entry not found: %s", name)
}

func (d *EXTDirectory) GetDirectories() ([]Directory, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	_, dirs := splitEntries(entries)
	return dirs, nil
}

func (d *EXTDirectory) GetFiles() ([]File, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	files, _ := splitEntries(entries)
	return files, nil
}

// EXTFileReader is a stateful io.Reader over an EXTFile's contents.
type EXTFileReader struct {
	file   *EXTFile
	offset int64
}

func (r *EXTFileReader) Read(p []byte) (n int, err error) {
	if r.offset >= int64(r.file.size) {
		return 0, io.EOF
	}

	remaining := int64(r.file.size) - r.offset
	toRead := int64(len(p))
	if toRead > remaining {
		toRead = remaining
	}

	data, err := r.file.ReadAt(p[:toRead], r.offset)
	if err != nil {
		return data, err
	}

	r.offset += int64(data)
	return data, nil
}

// EXTInode is the fixed-layout portion of an ext2/3 inode (128 bytes).
type EXTInode struct {
	Mode       uint16
	UID        uint16
	Size       uint32
	Atime      uint32
	Ctime      uint32
	Mtime      uint32
	Dtime      uint32
	GID        uint16
	LinksCount uint16
	Blocks     uint32
	Flags      uint32
	OSD1       uint32
	Block      [15]uint32
	Generation uint32
	FileACL    uint32
	DirACL     uint32
	FAddr      uint32
	OSD2       [12]byte
}

// EXTDirEntry is one linear-directory entry: a fixed header followed
// by a NameLen-byte name, packed to RecLen bytes.
type EXTDirEntry struct {
	Inode    uint32
	RecLen   uint16
	NameLen  uint8
	FileType uint8
	Name     [255]byte
}

func (fs *EXTFileSystem) readInode(inodeNum uint32) (*EXTInode, error) {
	groupNum := (inodeNum - 1) / fs.superBlock.InodesPerGroup
	inodeIndex := (inodeNum - 1) % fs.superBlock.InodesPerGroup

	inodeTableBlock := fs.superBlock.FirstDataBlock + 1 + groupNum*fs.superBlock.BlocksPerGroup
	inodeData, err := fs.reader.ReadBytes(uint64(inodeTableBlock)*uint64(fs.blockSize), uint64(fs.blockSize))
	if err != nil {
		return nil, err
	}

	inode := &EXTInode{}
	offset := int(inodeIndex) * 128
	if err := binary.Read(bytes.NewReader(inodeData[offset:offset+128]), binary.LittleEndian, inode); err != nil {
		return nil, err
	}

	return inode, nil
}

func (fs *EXTFileSystem) readInodeData(inode *EXTInode) ([]byte, error) {
	var data []byte
	remainingSize := inode.Size

	for i := 0; i < 12 && remainingSize > 0; i++ {
		if inode.Block[i] == 0 {
			break
		}

		blockData, err := fs.reader.ReadBytes(uint64(inode.Block[i])*uint64(fs.blockSize), uint64(fs.blockSize))
		if err != nil {
			return nil, err
		}

		bytesToRead := uint32(len(blockData))
		if bytesToRead > remainingSize {
			bytesToRead = remainingSize
		}

		data = append(data, blockData[:bytesToRead]...)
		remainingSize -= bytesToRead
	}

	// single indirect block only; double/triple indirection is beyond
	// what this reader needs for forensic browsing of small volumes.
	if remainingSize > 0 && inode.Block[12] != 0 {
		indirectData, err := fs.reader.ReadBytes(uint64(inode.Block[12])*uint64(fs.blockSize), uint64(fs.blockSize))
		if err != nil {
			return nil, err
		}

		indirectBlocks := make([]uint32, len(indirectData)/4)
		if err := binary.Read(bytes.NewReader(indirectData), binary.LittleEndian, indirectBlocks); err != nil {
			return nil, err
		}

		for _, block := range indirectBlocks {
			if block == 0 || remainingSize == 0 {
				break
			}

			blockData, err := fs.reader.ReadBytes(uint64(block)*uint64(fs.blockSize), uint64(fs.blockSize))
			if err != nil {
				return nil, err
			}

			bytesToRead := uint32(len(blockData))
			if bytesToRead > remainingSize {
				bytesToRead = remainingSize
			}

			data = append(data, blockData[:bytesToRead]...)
			remainingSize -= bytesToRead
		}
	}

	return data, nil
}

