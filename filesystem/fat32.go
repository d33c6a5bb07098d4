package filesystem

import (
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// FAT32FileSystem reads a FAT32 volume through a Reader.
type FAT32FileSystem struct {
	reader Reader

	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numberOfFATs      uint8
	sectorsPerFAT     uint32
	rootCluster       uint32
	fatStartSector    uint64
	dataStartSector   uint64
	totalSectors      uint32
}

func NewFAT32FileSystem(reader Reader) (FileSystem, error) {
	fs := &FAT32FileSystem{reader: reader}

	bootSector, err := reader.ReadSector(0)
	if err != nil {
		return nil, fmt.Errorf("read FAT32 boot sector: %w", err)
	}

	fs.bytesPerSector = binary.LittleEndian.Uint16(bootSector[11:13])
	fs.sectorsPerCluster = bootSector[13]
	fs.reservedSectors = binary.LittleEndian.Uint16(bootSector[14:16])
	fs.numberOfFATs = bootSector[16]
	fs.sectorsPerFAT = binary.LittleEndian.Uint32(bootSector[36:40])
	fs.rootCluster = binary.LittleEndian.Uint32(bootSector[44:48])
	fs.totalSectors = binary.LittleEndian.Uint32(bootSector[32:36])

	fs.fatStartSector = uint64(fs.reservedSectors)
	fs.dataStartSector = fs.fatStartSector + uint64(fs.numberOfFATs*uint8(fs.sectorsPerFAT))

	return fs, nil
}

func (fs *FAT32FileSystem) GetType() FileSystemType {
	return FileSystemTypeFAT32
}

func (fs *FAT32FileSystem) GetRootDirectory() (Directory, error) {
	return fs.getDirectoryByCluster(fs.rootCluster, "/")
}

func (fs *FAT32FileSystem) GetFileByPath(path string) (File, error) {
	return resolveFileByPath(fs, path)
}

func (fs *FAT32FileSystem) GetDirectoryByPath(path string) (Directory, error) {
	return resolveDirectoryByPath(fs, path)
}

func (fs *FAT32FileSystem) getDirectoryByCluster(cluster uint32, path string) (*FAT32Directory, error) {
	return &FAT32Directory{
		fs:      fs,
		cluster: cluster,
		name:    filepath.Base(path),
		path:    path,
	}, nil
}

// FAT32Directory is a directory reached through a FAT32 cluster chain.
type FAT32Directory struct {
	fs      *FAT32FileSystem
	cluster uint32
	path    string
	name    string

	entries []FileSystemEntry

	creationTime     time.Time
	modificationTime time.Time
	accessTime       time.Time
	attributes       uint32
}

func (d *FAT32Directory) GetName() string                { return d.name }
func (d *FAT32Directory) GetPath() string                 { return d.path }
func (d *FAT32Directory) GetSize() uint64                 { return 0 }
func (d *FAT32Directory) IsDirectory() bool               { return true }
func (d *FAT32Directory) IsDeleted() bool                 { return false }
func (d *FAT32Directory) GetCreationTime() time.Time      { return d.creationTime }
func (d *FAT32Directory) GetModificationTime() time.Time  { return d.modificationTime }
func (d *FAT32Directory) GetAccessTime() time.Time        { return d.accessTime }
func (d *FAT32Directory) GetAttributes() uint32           { return d.attributes }

func (d *FAT32Directory) Open() (io.Reader, error) {
	return nil, fmt.Errorf("cannot open a directory as a file")
}

func (d *FAT32Directory) ReadAll() ([]byte, error) {
	return nil, fmt.Errorf("cannot read directory contents as file data")
}

func (d *FAT32Directory) GetFiles() ([]File, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	files, _ := splitEntries(entries)
	return files, nil
}

func (d *FAT32Directory) GetDirectories() ([]Directory, error) {
	entries, err := d.GetEntries()
	if err != nil {
		return nil, err
	}
	_, dirs := splitEntries(entries)
	return dirs, nil
}

func (d *FAT32Directory) GetEntries() ([]FileSystemEntry, error) {
	entries, err := d.readEntries()
	if err != nil {
		return nil, err
	}

	result := make([]FileSystemEntry, len(entries))
	copy(result, entries)
	return result, nil
}

func (d *FAT32Directory) GetEntry(name string) (FileSystemEntry, error) {
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

// readEntries walks the directory's cluster chain and decodes each
// 32-byte 8.3 directory entry. TODO: VFAT long-name entries (attribute
// 0x0F) are skipped rather than assembled, so files with long names
// surface under their short 8.3 alias only.
func (d *FAT32Directory) readEntries() ([]FileSystemEntry, error) {
	if d.entries != nil {
		return d.entries, nil
	}

	clusters, err := d.fs.getClusterChain(d.cluster)
	if err != nil {
		return nil, err
	}

	d.entries = []FileSystemEntry{}

	for _, cluster := range clusters {
		startSector := d.fs.dataStartSector + uint64(cluster-2)*uint64(d.fs.sectorsPerCluster)

		clusterData, err := d.fs.reader.ReadSectors(startSector, uint64(d.fs.sectorsPerCluster))
		if err != nil {
			return nil, err
		}

		for offset := 0; offset < len(clusterData); offset += 32 {
			if offset+32 > len(clusterData) {
				break
			}

			entryData := clusterData[offset : offset+32]

			firstByte := entryData[0]
			if firstByte == 0x00 { // end of directory
				break
			}
			if firstByte == 0xE5 { // deleted entry
				continue
			}
			if entryData[11] == 0x0F { // VFAT long-name entry
				continue
			}

			name := ""
			for i := 0; i < 8; i++ {
				if entryData[i] == 0x20 {
					break
				}
				name += string(entryData[i])
			}

			extension := ""
			for i := 8; i < 11; i++ {
				if entryData[i] == 0x20 {
					break
				}
				extension += string(entryData[i])
			}

			fileName := name
			if extension != "" {
				fileName += "." + extension
			}

			attributes := uint32(entryData[11])
			isDirectory := attributes&0x10 != 0

			creationDate := binary.LittleEndian.Uint16(entryData[16:18])
			creationTime := binary.LittleEndian.Uint16(entryData[14:16])
			modificationDate := binary.LittleEndian.Uint16(entryData[24:26])
			modificationTime := binary.LittleEndian.Uint16(entryData[22:24])
			accessDate := binary.LittleEndian.Uint16(entryData[18:20])

			clusterHigh := uint32(binary.LittleEndian.Uint16(entryData[20:22]))
			clusterLow := uint32(binary.LittleEndian.Uint16(entryData[26:28]))
			fileCluster := (clusterHigh << 16) | clusterLow

			fileSize := binary.LittleEndian.Uint32(entryData[28:32])

			filePath := d.path
			if filePath != "/" {
				filePath += "/"
			}
			filePath += fileName

			var entry FileSystemEntry
			if isDirectory {
				if fileName == "." || fileName == ".." {
					continue
				}

				subDir := &FAT32Directory{
					fs:      d.fs,
					cluster: fileCluster,
					path:    filePath,
					name:    fileName,
				}
				subDir.creationTime = parseFATTime(creationDate, creationTime)
				subDir.modificationTime = parseFATTime(modificationDate, modificationTime)
				subDir.accessTime = parseFATTime(accessDate, 0)
				subDir.attributes = attributes

				entry = subDir
			} else {
				file := &FAT32File{
					fs:         d.fs,
					cluster:    fileCluster,
					size:       uint64(fileSize),
					name:       fileName,
					path:       filePath,
					isDeleted:  false,
					attributes: attributes,
				}
				file.creationTime = parseFATTime(creationDate, creationTime)
				file.modificationTime = parseFATTime(modificationDate, modificationTime)
				file.accessTime = parseFATTime(accessDate, 0)

				entry = file
			}

			d.entries = append(d.entries, entry)
		}
	}

	return d.entries, nil
}

// FAT32File is a file reached through a FAT32 cluster chain.
type FAT32File struct {
	fs        *FAT32FileSystem
	cluster   uint32
	size      uint64
	name      string
	path      string
	isDeleted bool

	creationTime     time.Time
	modificationTime time.Time
	accessTime       time.Time
	attributes       uint32
}

func (f *FAT32File) GetName() string                { return f.name }
func (f *FAT32File) GetPath() string                 { return f.path }
func (f *FAT32File) GetSize() uint64                 { return f.size }
func (f *FAT32File) IsDirectory() bool               { return false }
func (f *FAT32File) IsDeleted() bool                 { return f.isDeleted }
func (f *FAT32File) GetCreationTime() time.Time      { return f.creationTime }
func (f *FAT32File) GetModificationTime() time.Time  { return f.modificationTime }
func (f *FAT32File) GetAccessTime() time.Time        { return f.accessTime }
func (f *FAT32File) GetAttributes() uint32           { return f.attributes }

func (f *FAT32File) Open() (io.Reader, error) {
	return &FAT32FileReader{fs: f.fs, cluster: f.cluster, size: f.size, pos: 0}, nil
}

func (f *FAT32File) ReadAll() ([]byte, error) {
	reader, err := f.Open()
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}

// ReadAt reuses FAT32FileReader's cluster-chain walk: it skips to off
// by discarding bytes, then reads p, so there is exactly one
// implementation of the chain-walking algorithm instead of two.
func (f *FAT32File) ReadAt(p []byte, off int64) (n int, err error) {
	if off < 0 {
		return 0, fmt.Errorf("negative offset")
	}
	r := &FAT32FileReader{fs: f.fs, cluster: f.cluster, size: f.size}
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

// FAT32FileReader is a stateful io.Reader over a FAT32File's cluster chain.
type FAT32FileReader struct {
	fs      *FAT32FileSystem
	cluster uint32
	size    uint64
	pos     uint64

	currentCluster uint32
	clusterData    []byte
	clusterPos     int
}

func (r *FAT32FileReader) Read(p []byte) (n int, err error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}

	remaining := r.size - r.pos
	if uint64(len(p)) > remaining {
		p = p[:remaining]
	}

	bytesRead := 0

	for bytesRead < len(p) {
		if r.clusterData == nil || r.clusterPos >= len(r.clusterData) {
			if r.currentCluster == 0 {
				r.currentCluster = r.cluster
			} else {
				var err error
				r.currentCluster, err = r.fs.getNextCluster(r.currentCluster)
				if err != nil {
					return bytesRead, err
				}
				if r.currentCluster >= 0x0FFFFFF8 {
					return bytesRead, io.EOF
				}
			}

			var err error
			startSector := r.fs.dataStartSector + uint64(r.currentCluster-2)*uint64(r.fs.sectorsPerCluster)
			r.clusterData, err = r.fs.reader.ReadSectors(startSector, uint64(r.fs.sectorsPerCluster))
			if err != nil {
				return bytesRead, err
			}

			r.clusterPos = 0
		}

		bytesToCopy := len(r.clusterData) - r.clusterPos
		if bytesToCopy > len(p)-bytesRead {
			bytesToCopy = len(p) - bytesRead
		}

		copy(p[bytesRead:bytesRead+bytesToCopy], r.clusterData[r.clusterPos:r.clusterPos+bytesToCopy])

		r.clusterPos += bytesToCopy
		bytesRead += bytesToCopy
		r.pos += uint64(bytesToCopy)

		if r.pos >= r.size {
			return bytesRead, io.EOF
		}
	}

	return bytesRead, nil
}

func (fs *FAT32FileSystem) getNextCluster(cluster uint32) (uint32, error) {
	if cluster < 2 {
		return 0, fmt.Errorf("invalid cluster number: %d", cluster)
	}

	fatOffset := cluster * 4
	fatSector := fs.fatStartSector + uint64(fatOffset)/uint64(fs.bytesPerSector)
	entryOffset := fatOffset % uint32(fs.bytesPerSector)

	sectorData, err := fs.reader.ReadSector(fatSector)
	if err != nil {
		return 0, err
	}

	nextCluster := binary.LittleEndian.Uint32(sectorData[entryOffset : entryOffset+4])
	nextCluster &= 0x0FFFFFFF

	return nextCluster, nil
}

func (fs *FAT32FileSystem) getClusterChain(startCluster uint32) ([]uint32, error) {
	if startCluster < 2 {
		return nil, fmt.Errorf("invalid start cluster: %d", startCluster)
	}

	chain := []uint32{startCluster}
	currentCluster := startCluster

	for {
		nextCluster, err := fs.getNextCluster(currentCluster)
		if err != nil {
			return nil, err
		}
		if nextCluster >= 0x0FFFFFF8 {
			break
		}

		chain = append(chain, nextCluster)
		currentCluster = nextCluster

		if len(chain) > 1000000 {
			return nil, fmt.Errorf("cluster chain too long, possible cycle")
		}
	}

	return chain, nil
}

// parseFATTime decodes the FAT date/time pair (2-second resolution).
func parseFATTime(dateVal, timeVal uint16) time.Time {
	if dateVal == 0 && timeVal == 0 {
		return time.Time{}
	}

	year := int((dateVal>>9)&0x7F) + 1980
	month := time.Month((dateVal >> 5) & 0x0F)
	day := int(dateVal & 0x1F)

	hour := int((timeVal >> 11) & 0x1F)
	minute := int((timeVal >> 5) & 0x3F)
	second := int((timeVal & 0x1F) * 2)

	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}
	if hour > 23 {
		hour = 0
	}
	if minute > 59 {
		minute = 0
	}
	if second > 59 {
		second = 0
	}

	return time.Date(year, month, day, hour, minute, second, 0, time.UTC)
}
