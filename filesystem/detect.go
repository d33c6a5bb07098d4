package filesystem

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DetectFileSystem sniffs the filesystem type visible through reader by
// inspecting its boot sector, MBR partition table, and well-known
// superblock offsets, in that order.
func DetectFileSystem(reader Reader) (FileSystemType, error) {
	sector, err := reader.ReadSector(0)
	if err != nil {
		return FileSystemTypeUnknown, fmt.Errorf("read boot sector: %w", err)
	}

	if len(sector) >= 512 && sector[510] == 0x55 && sector[511] == 0xAA {
		const partitionOffset = 446
		for i := 0; i < 4; i++ {
			entry := sector[partitionOffset+i*16 : partitionOffset+(i+1)*16]
			partitionType := entry[4]

			if entry[0] == 0x80 || entry[0] == 0x00 {
				startSector := binary.LittleEndian.Uint32(entry[8:12])
				if startSector > 0 {
					partitionSector, err := reader.ReadSector(uint64(startSector))
					if err != nil {
						continue
					}
					if fsType := detectPartitionFileSystem(partitionSector, partitionType); fsType != FileSystemTypeUnknown {
						return fsType, nil
					}
				}
			}
		}
	}

	if fsType := detectPartitionFileSystem(sector, 0); fsType != FileSystemTypeUnknown {
		return fsType, nil
	}

	// EXT superblocks sit 1024 bytes into the volume regardless of
	// block size.
	superBlock, err := reader.ReadBytes(1024, 1024)
	if err == nil && len(superBlock) >= 1024 {
		magic := binary.LittleEndian.Uint16(superBlock[56:58])
		if magic == 0xEF53 {
			featureCompat := binary.LittleEndian.Uint32(superBlock[92:96])
			featureIncompat := binary.LittleEndian.Uint32(superBlock[96:100])
			hasJournal := featureCompat&0x4 != 0
			hasExtent := featureIncompat&0x40 != 0
			switch {
			case hasExtent:
				return FileSystemTypeEXT4, nil
			case hasJournal:
				return FileSystemTypeEXT3, nil
			default:
				return FileSystemTypeEXT2, nil
			}
		}
	}

	for i := uint64(1); i < 10; i++ {
		additionalSector, err := reader.ReadSector(i)
		if err != nil {
			break
		}
		if fsType := detectPartitionFileSystem(additionalSector, 0); fsType != FileSystemTypeUnknown {
			return fsType, nil
		}
	}

	return FileSystemTypeRaw, nil
}

// detectPartitionFileSystem classifies a single sector (plus, for EXT
// and HFS, the bytes at the fixed superblock offset beyond it) against
// the signatures of the filesystem types this package supports.
func detectPartitionFileSystem(sector []byte, partitionType byte) FileSystemType {
	if len(sector) < 512 {
		return FileSystemTypeUnknown
	}

	if sector[510] == 0x55 && sector[511] == 0xAA {
		switch partitionType {
		case 0x01, 0x04, 0x06, 0x0E:
			return FileSystemTypeFAT16
		case 0x0B, 0x0C:
			return FileSystemTypeFAT32
		}

		bytesPerSector := binary.LittleEndian.Uint16(sector[11:13])
		if bytesPerSector == 0 {
			bytesPerSector = 512
		}
		sectorsPerCluster := sector[13]
		if sectorsPerCluster == 0 {
			sectorsPerCluster = 1
		}
		reservedSectors := binary.LittleEndian.Uint16(sector[14:16])
		numFATs := sector[16]
		if numFATs == 0 {
			numFATs = 2
		}
		rootEntries := binary.LittleEndian.Uint16(sector[17:19])
		totalSectors16 := binary.LittleEndian.Uint16(sector[19:21])
		sectorsPerFAT16 := binary.LittleEndian.Uint16(sector[22:24])
		totalSectors32 := binary.LittleEndian.Uint32(sector[32:36])

		if sectorsPerFAT16 == 0 {
			sectorsPerFAT32 := binary.LittleEndian.Uint32(sector[36:40])
			if sectorsPerFAT32 > 0 {
				return FileSystemTypeFAT32
			}
		}

		if bytes.Equal(sector[54:62], []byte("FAT16   ")) {
			return FileSystemTypeFAT16
		}
		if bytes.Equal(sector[54:62], []byte("FAT12   ")) {
			return FileSystemTypeFAT12
		}

		totalSectors := totalSectors16
		if totalSectors16 == 0 {
			totalSectors = uint16(totalSectors32)
		}

		if bytesPerSector == 0 || sectorsPerCluster == 0 {
			if rootEntries > 512 {
				return FileSystemTypeFAT16
			}
			return FileSystemTypeFAT12
		}

		dataSectors := uint32(totalSectors) - uint32(reservedSectors) - uint32(numFATs)*uint32(sectorsPerFAT16) - uint32(rootEntries)*32/uint32(bytesPerSector)
		clusterCount := dataSectors / uint32(sectorsPerCluster)
		if clusterCount < 4085 {
			return FileSystemTypeFAT12
		}
		return FileSystemTypeFAT16
	}

	if bytes.Equal(sector[3:11], []byte("NTFS    ")) {
		return FileSystemTypeNTFS
	}

	if len(sector) >= 1024 && binary.LittleEndian.Uint16(sector[1024+56:1024+58]) == 0xEF53 {
		return FileSystemTypeEXT2
	}

	if len(sector) >= 1024 {
		switch {
		case bytes.Equal(sector[1024:1026], []byte("H+")):
			return FileSystemTypeHFSPlus
		case bytes.Equal(sector[1024:1026], []byte("HX")):
			return FileSystemTypeHFSPlus
		case bytes.Equal(sector[1024:1026], []byte("BD")):
			return FileSystemTypeHFS
		}
	}

	return FileSystemTypeUnknown
}
