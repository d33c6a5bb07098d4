package filesystem

// FileSystemType names a filesystem this package knows how to parse.
type FileSystemType string

const (
	FileSystemTypeUnknown FileSystemType = "UNKNOWN"
	FileSystemTypeFAT12   FileSystemType = "FAT12"
	FileSystemTypeFAT16   FileSystemType = "FAT16"
	FileSystemTypeFAT32   FileSystemType = "FAT32"
	FileSystemTypeNTFS    FileSystemType = "NTFS"
	FileSystemTypeEXT2    FileSystemType = "EXT2"
	FileSystemTypeEXT3    FileSystemType = "EXT3"
	FileSystemTypeEXT4    FileSystemType = "EXT4"
	FileSystemTypeHFS     FileSystemType = "HFS"
	FileSystemTypeHFSPlus FileSystemType = "HFS+"
	FileSystemTypeRaw     FileSystemType = "RAW" // unrecognized volume, browsed as a flat byte range
)
