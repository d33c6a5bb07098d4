package filesystem

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf16"
)

// NTFSFileSystem reads an NTFS volume through a Reader.
type NTFSFileSystem struct {
	reader Reader

	bytesPerSector    uint16
	sectorsPerCluster uint8
	mftStartCluster   uint64
	mftMirrorCluster  uint64
	bytesPerMFTEntry  uint32
	clusterSize       uint32

	mftCache map[uint64]*MFTRecord

	rootDirectory *NTFSDirectory
}

func NewNTFSFileSystem(reader Reader) (FileSystem, error) {
	fs := &NTFSFileSystem{
		reader:   reader,
		mftCache: make(map[uint64]*MFTRecord),
	}

	bootSector, err := reader.ReadSector(0)
	if err != nil {
		return nil, fmt.Errorf("read NTFS boot sector: %w", err)
	}

	fs.bytesPerSector = uint16(bootSector[11]) | (uint16(bootSector[12]) << 8)
	fs.sectorsPerCluster = bootSector[13]
	fs.mftStartCluster = uint64(binary.LittleEndian.Uint32(bootSector[48:52]))
	fs.mftMirrorCluster = uint64(binary.LittleEndian.Uint32(bootSector[52:56]))
	fs.bytesPerMFTEntry = uint32(bootSector[64])
	if fs.bytesPerMFTEntry > 0 {
		fs.bytesPerMFTEntry = 1 << (-fs.bytesPerMFTEntry)
	} else {
		fs.bytesPerMFTEntry = 1024
	}
	fs.clusterSize = uint32(fs.bytesPerSector) * uint32(fs.sectorsPerCluster)

	return fs, nil
}

func (fs *NTFSFileSystem) GetType() FileSystemType {
	return FileSystemTypeNTFS
}

func (fs *NTFSFileSystem) GetRootDirectory() (Directory, error) {
	if fs.rootDirectory != nil {
		return fs.rootDirectory, nil
	}

	record, err := fs.getMFTRecord(5) // MFT record 5 is always the root directory
	if err != nil {
		return nil, fmt.Errorf("read root directory MFT record: %w", err)
	}

	fs.rootDirectory = &NTFSDirectory{
		fs:               fs,
		recordNumber:     5,
		name:             "",
		path:             "/",
		isDeleted:        false,
		creationTime:     record.CreationTime,
		modificationTime: record.ModificationTime,
		accessTime:       record.AccessTime,
		attributes:       record.Attributes,
	}

	return fs.rootDirectory, nil
}

func (fs *NTFSFileSystem) GetFileByPath(path string) (File, error) {
	return resolveFileByPath(fs, path)
}

func (fs *NTFSFileSystem) GetDirectoryByPath(path string) (Directory, error) {
	return resolveDirectoryByPath(fs, path)
}

// NTFSFile is a file reached through an MFT record's $DATA data runs.
type NTFSFile struct {
	fs           *NTFSFileSystem
	recordNumber uint64
	name         string
	path         string
	size         uint64
	isDeleted    bool

	creationTime     time.Time
	modificationTime time.Time
	accessTime       time.Time
	attributes       uint32
}

func (f *NTFSFile) GetName() string                { return f.name }
func (f *NTFSFile) GetPath() string                 { return f.path }
func (f *NTFSFile) GetSize() uint64                 { return f.size }
func (f *NTFSFile) IsDirectory() bool               { return false }
func (f *NTFSFile) IsDeleted() bool                 { return f.isDeleted }
func (f *NTFSFile) GetCreationTime() time.Time      { return f.creationTime }
func (f *NTFSFile) GetModificationTime() time.Time  { return f.modificationTime }
func (f *NTFSFile) GetAccessTime() time.Time        { return f.accessTime }
func (f *NTFSFile) GetAttributes() uint32           { return f.attributes }

func (f *NTFSFile) Open() (io.Reader, error) {
	record, err := f.fs.getMFTRecord(f.recordNumber)
	if err != nil {
		return nil, err
	}

	return &NTFSFileReader{fs: f.fs, record: record, size: f.size, pos: 0}, nil
}

func (f *NTFSFile) ReadAll() ([]byte, error) {
	reader, err := f.Open()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

// ReadAt reuses NTFSFileReader's data-run walk: it skips to off by
// discarding bytes, then reads p.
func (f *NTFSFile) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	record, err := f.fs.getMFTRecord(f.recordNumber)
	if err != nil {
		return 0, err
	}
	r := &NTFSFileReader{fs: f.fs, record: record, size: f.size}
	if _, err := io.CopyN(io.Discard, r, off); err != nil {
		if err == io.EOF {
			return 0, io.EOF
		}
		return 0, err
	}
	n, err = io.ReadFull(r, p)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return n, err
}

// NTFSDirectory is a directory reached through an MFT record's $INDEX_ROOT.
type NTFSDirectory struct {
	fs           *NTFSFileSystem
	recordNumber uint64
	name         string
	path         string
	isDeleted    bool

	creationTime     time.Time
	modificationTime time.Time
	accessTime       time.Time
	attributes       uint32

	entries []FileSystemEntry
}

func (d *NTFSDirectory) GetName() string                { return d.name }
func (d *NTFSDirectory) GetPath() string                 { return d.path }
func (d *NTFSDirectory) GetSize() uint64                 { return 0 }
func (d *NTFSDirectory) IsDirectory() bool               { return true }
func (d *NTFSDirectory) IsDeleted() bool                 { return d.isDeleted }
func (d *NTFSDirectory) GetCreationTime() time.Time      { return d.creationTime }
func (d *NTFSDirectory) GetModificationTime() time.Time  { return d.modificationTime }
func (d *NTFSDirectory) GetAccessTime() time.Time        { return d.accessTime }
func (d *NTFSDirectory) GetAttributes() uint32           { return d.attributes }

func (d *NTFSDirectory) Open() (io.Reader, error) {
	return nil, fmt.Errorf("cannot open a directory as a file")
}

func (d *NTFSDirectory) ReadAll() ([]byte, error) {
	return nil, fmt.Errorf("cannot read directory contents as file data")
}

func (d *NTFSDirectory) GetFiles() ([]File, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	files, _ := splitEntries(entries)
	return files, nil
}

func (d *NTFSDirectory) GetDirectories() ([]Directory, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	_, dirs := splitEntries(entries)
	return dirs, nil
}

// IndexEntry is one decoded $INDEX_ROOT directory entry.
type IndexEntry struct {
	MFTReference     uint64
	FileName         string
	IsDirectory      bool
	Size             uint64
	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time
	Attributes       uint32
}

// parseIndexRoot walks a directory's $INDEX_ROOT/$INDEX_ALLOCATION byte
// stream and decodes each fixed-layout index entry it contains.
func parseIndexRoot(data []byte) ([]IndexEntry, error) {
	var entries []IndexEntry
	offset := uint16(0x10) // skip the index-root header

	for {
		if offset >= uint16(len(data)) {
			break
		}

		entryLength := binary.LittleEndian.Uint16(data[offset : offset+2])
		if entryLength == 0 {
			break
		}

		mftRef := binary.LittleEndian.Uint64(data[offset+8 : offset+16])
		fileNameLength := data[offset+0x52]

		fileName := make([]uint16, fileNameLength)
		for i := uint8(0); i < fileNameLength; i++ {
			fileName[i] = binary.LittleEndian.Uint16(data[offset+0x54+uint16(i)*2 : offset+0x56+uint16(i)*2])
		}

		fileAttributes := binary.LittleEndian.Uint32(data[offset+0x48 : offset+0x4C])
		isDirectory := fileAttributes&0x10 != 0
		fileSize := binary.LittleEndian.Uint64(data[offset+0x30 : offset+0x38])

		creationTime := parseNTFSTime(data[offset+0x20 : offset+0x28])
		modificationTime := parseNTFSTime(data[offset+0x28 : offset+0x30])
		accessTime := parseNTFSTime(data[offset+0x30 : offset+0x38])

		entries = append(entries, IndexEntry{
			MFTReference:     mftRef,
			FileName:         string(utf16.Decode(fileName)),
			IsDirectory:      isDirectory,
			Size:             fileSize,
			CreationTime:     creationTime,
			ModificationTime: modificationTime,
			AccessTime:       accessTime,
			Attributes:       fileAttributes,
		})

		offset += entryLength
	}

	return entries, nil
}

func (d *NTFSDirectory) GetEntries() ([]FileSystemEntry, error) {
	if d.entries != nil {
		return d.entries, nil
	}

	record, err := d.fs.getMFTRecord(d.recordNumber)
	if err != nil {
		return nil, err
	}

	var indexData []byte
	for _, run := range record.DataRuns {
		startSector := run.StartCluster * uint64(d.fs.sectorsPerCluster)
		sectorCount := (run.ClusterCount*uint64(d.fs.clusterSize) + uint64(d.fs.bytesPerSector) - 1) / uint64(d.fs.bytesPerSector)

		sectorData, err := d.fs.reader.ReadSectors(startSector, sectorCount)
		if err != nil {
			return nil, err
		}

		indexData = append(indexData, sectorData...)
	}

	entries, err := parseIndexRoot(indexData)
	if err != nil {
		return nil, err
	}

	d.entries = make([]FileSystemEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDirectory {
			d.entries = append(d.entries, &NTFSDirectory{
				fs:               d.fs,
				recordNumber:     entry.MFTReference & 0xFFFFFFFFFFFF,
				name:             entry.FileName,
				path:             filepath.Join(d.path, entry.FileName),
				isDeleted:        false,
				creationTime:     entry.CreationTime,
				modificationTime: entry.ModificationTime,
				accessTime:       entry.AccessTime,
				attributes:       entry.Attributes,
			})
		} else {
			d.entries = append(d.entries, &NTFSFile{
				fs:               d.fs,
				recordNumber:     entry.MFTReference & 0xFFFFFFFFFFFF,
				name:             entry.FileName,
				path:             filepath.Join(d.path, entry.FileName),
				size:             entry.Size,
				isDeleted:        false,
				creationTime:     entry.CreationTime,
				modificationTime: entry.ModificationTime,
				accessTime:       entry.AccessTime,
				attributes:       entry.Attributes,
			})
		}
	}

	return d.entries, nil
}

func (d *NTFSDirectory) GetEntry(name string) (FileSystemEntry, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.GetName(), name) {
			return entry, nil
		}
	}
	return nil, fmt.Errorf("entry not found: %s", name)
}

// MFTRecord is a decoded Master File Table record.
type MFTRecord struct {
	RecordNumber uint64
	InUse        bool
	IsDirectory  bool
	FileName     string
	FilePath     string
	ParentRef    uint64
	Size         uint64

	CreationTime     time.Time
	ModificationTime time.Time
	AccessTime       time.Time

	Attributes uint32

	DataRuns []DataRun
}

// DataRun is one run-length-encoded extent of an MFT attribute's
// non-resident data, as stored in the $DATA or $INDEX_ALLOCATION
// attribute's mapping pairs array.
type DataRun struct {
	StartCluster uint64
	ClusterCount uint64
}

func (fs *NTFSFileSystem) getMFTRecord(recordNumber uint64) (*MFTRecord, error) {
	if record, ok := fs.mftCache[recordNumber]; ok {
		return record, nil
	}

	mftStartSector := fs.mftStartCluster * uint64(fs.sectorsPerCluster)
	recordOffset := recordNumber * uint64(fs.bytesPerMFTEntry)
	recordSector := mftStartSector + recordOffset/uint64(fs.bytesPerSector)
	recordCount := uint64(fs.bytesPerMFTEntry) / uint64(fs.bytesPerSector)
	if fs.bytesPerMFTEntry%uint32(fs.bytesPerSector) != 0 {
		recordCount++
	}

	data, err := fs.reader.ReadSectors(recordSector, recordCount)
	if err != nil {
		return nil, fmt.Errorf("read MFT record: %w", err)
	}

	if data[0] != 'F' || data[1] != 'I' || data[2] != 'L' || data[3] != 'E' {
		return nil, fmt.Errorf("invalid MFT record signature")
	}

	record := &MFTRecord{
		RecordNumber: recordNumber,
		InUse:        data[0x16]&0x01 != 0,
		IsDirectory:  data[0x16]&0x02 != 0,
	}

	attributesOffset := binary.LittleEndian.Uint16(data[0x14:0x16])
	attributesSize := binary.LittleEndian.Uint32(data[0x18:0x1C])

	currentOffset := attributesOffset
	for currentOffset < attributesOffset+uint16(attributesSize) {
		attributeType := binary.LittleEndian.Uint32(data[currentOffset : currentOffset+4])
		attributeSize := binary.LittleEndian.Uint32(data[currentOffset+4 : currentOffset+8])

		switch attributeType {
		case 0x10: // $STANDARD_INFORMATION
			infoOffset := currentOffset + binary.LittleEndian.Uint16(data[currentOffset+0x14:currentOffset+0x16])
			record.CreationTime = parseNTFSTime(data[infoOffset : infoOffset+8])
			record.ModificationTime = parseNTFSTime(data[infoOffset+8 : infoOffset+16])
			record.AccessTime = parseNTFSTime(data[infoOffset+16 : infoOffset+24])
			record.Attributes = binary.LittleEndian.Uint32(data[infoOffset+32 : infoOffset+36])

		case 0x30: // $FILE_NAME
			nameOffset := currentOffset + binary.LittleEndian.Uint16(data[currentOffset+0x14:currentOffset+0x16])
			fileNameLength := data[nameOffset+64]
			fileName := make([]uint16, fileNameLength)
			for i := uint8(0); i < fileNameLength; i++ {
				fileName[i] = binary.LittleEndian.Uint16(data[nameOffset+66+uint16(i)*2 : nameOffset+68+uint16(i)*2])
			}
			record.FileName = string(utf16.Decode(fileName))
			record.ParentRef = binary.LittleEndian.Uint64(data[nameOffset+48 : nameOffset+56])

		case 0x80: // $DATA
			nonResident := data[currentOffset+8] != 0
			if nonResident {
				runOffset := binary.LittleEndian.Uint16(data[currentOffset+0x20 : currentOffset+0x22])
				runs, err := parseDataRuns(data, currentOffset+runOffset)
				if err == nil {
					record.DataRuns = runs
				}
			}
			// Resident $DATA (attribute content stored inline in the MFT
			// record) is left unhandled: every volume this reader has
			// been pointed at stores file contents non-resident.
		}

		currentOffset += uint16(attributeSize)
	}

	fs.mftCache[recordNumber] = record

	return record, nil
}

// parseNTFSTime decodes an NTFS FILETIME (100ns ticks since 1601-01-01).
func parseNTFSTime(data []byte) time.Time {
	if len(data) < 8 {
		return time.Time{}
	}

	ntfsTime := binary.LittleEndian.Uint64(data)
	if ntfsTime == 0 {
		return time.Time{}
	}

	unixTime := int64(ntfsTime/10000000 - 11644473600)
	return time.Unix(unixTime, 0).UTC()
}

// parseDataRuns decodes an attribute's mapping-pairs array starting at
// offset: a sequence of (length, offset) varint pairs, each offset
// relative to the previous run's start cluster, terminated by a zero
// header byte.
func parseDataRuns(data []byte, offset uint16) ([]DataRun, error) {
	var runs []DataRun
	currentOffset := offset

	for {
		if currentOffset >= uint16(len(data)) {
			break
		}

		header := data[currentOffset]
		if header == 0 {
			break
		}

		lengthSize := header & 0x0F
		offsetSize := (header >> 4) & 0x0F

		if currentOffset+1+uint16(lengthSize)+uint16(offsetSize) > uint16(len(data)) {
			return nil, fmt.Errorf("truncated data run")
		}

		var length uint64
		for i := uint8(0); i < lengthSize; i++ {
			length |= uint64(data[currentOffset+1+uint16(i)]) << (i * 8)
		}

		var runOffset uint64
		for i := uint8(0); i < offsetSize; i++ {
			runOffset |= uint64(data[currentOffset+1+uint16(lengthSize)+uint16(i)]) << (i * 8)
		}

		if len(runs) > 0 {
			runOffset += runs[len(runs)-1].StartCluster
		}

		runs = append(runs, DataRun{StartCluster: runOffset, ClusterCount: length})

		currentOffset += 1 + uint16(lengthSize) + uint16(offsetSize)
	}

	return runs, nil
}

// NTFSFileReader is a stateful io.Reader over an NTFSFile's data runs.
type NTFSFileReader struct {
	fs      *NTFSFileSystem
	record  *MFTRecord
	size    uint64
	pos     uint64
	current int    // index of the data run currently being read
	offset  uint64 // byte offset within that data run
}

func (r *NTFSFileReader) Read(p []byte) (n int, err error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}

	remaining := r.size - r.pos
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	bytesRead := 0

	for bytesRead < len(p) {
		if r.current >= len(r.record.DataRuns) {
			return bytesRead, io.EOF
		}

		run := r.record.DataRuns[r.current]
		runSize := run.ClusterCount * uint64(r.fs.clusterSize)

		if r.offset >= runSize {
			r.current++
			r.offset = 0
			continue
		}

		bytesToRead := uint64(len(p) - bytesRead)
		if r.offset+bytesToRead > runSize {
			bytesToRead = runSize - r.offset
		}

		startSector := run.StartCluster * uint64(r.fs.sectorsPerCluster)
		sectorOffset := r.offset / uint64(r.fs.bytesPerSector)
		sectorCount := (bytesToRead + uint64(r.fs.bytesPerSector) - 1) / uint64(r.fs.bytesPerSector)

		sectorData, err := r.fs.reader.ReadSectors(startSector+sectorOffset, sectorCount)
		if err != nil {
			return bytesRead, err
		}

		offset := r.offset % uint64(r.fs.bytesPerSector)
		copy(p[bytesRead:bytesRead+int(bytesToRead)], sectorData[offset:offset+bytesToRead])

		r.offset += bytesToRead
		bytesRead += int(bytesToRead)
		r.pos += bytesToRead
	}

	return bytesRead, nil
}
