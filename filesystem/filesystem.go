// Package filesystem parses well-known disk filesystems (FAT12/16/32,
// NTFS, ext2/3/4) directly from a sector-addressable Reader, so a
// forensic image's logical content can be browsed without mounting it.
package filesystem

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// FileSystemEntry is the common surface shared by File and Directory.
type FileSystemEntry interface {
	GetName() string
	GetPath() string
	GetSize() uint64
	IsDirectory() bool
	GetModificationTime() time.Time
	GetCreationTime() time.Time
	GetAccessTime() time.Time
	GetAttributes() uint32
	IsDeleted() bool
}

// File is a regular file within a parsed filesystem.
type File interface {
	FileSystemEntry
	ReadAll() ([]byte, error)
	ReadAt(p []byte, off int64) (n int, err error)
	Open() (io.Reader, error)
}

// Directory is a directory within a parsed filesystem.
type Directory interface {
	FileSystemEntry
	GetEntries() ([]FileSystemEntry, error)
	GetEntry(name string) (FileSystemEntry, error)
	GetDirectories() ([]Directory, error)
	GetFiles() ([]File, error)
}

// FileSystem is a parsed volume, rooted at GetRootDirectory.
type FileSystem interface {
	GetType() FileSystemType
	GetRootDirectory() (Directory, error)
	GetFileByPath(path string) (File, error)
	GetDirectoryByPath(path string) (Directory, error)
}

// Reader is the sector-addressable byte source a FileSystem parses,
// implemented by MediaReader over a Handle's decoded media stream.
type Reader interface {
	ReadSector(sectorNumber uint64) ([]byte, error)
	ReadSectors(startSector, count uint64) ([]byte, error)
	ReadBytes(offset uint64, size uint64) ([]byte, error)
	GetSectorSize() uint32
	GetSectorCount() uint64
}

// normalizePath cleans path into a slash-rooted absolute form, the
// shape every FileSystem.GetFileByPath/GetDirectoryByPath implementation
// expects to walk.
func normalizePath(path string) string {
	path = filepath.Clean(path)
	path = strings.Replace(path, "\\", "/", -1)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// splitEntries partitions a directory listing into its Files and
// Directories, the common tail of every GetFiles/GetDirectories
// implementation.
func splitEntries(entries []FileSystemEntry) (files []File, dirs []Directory) {
	for _, entry := range entries {
		if entry.IsDirectory() {
			if dir, ok := entry.(Directory); ok {
				dirs = append(dirs, dir)
			}
			continue
		}
		if file, ok := entry.(File); ok {
			files = append(files, file)
		}
	}
	return files, dirs
}

// resolveDirectoryByPath walks fs from its root directory to path one
// component at a time via Directory.GetEntry, so each filesystem's own
// name-matching rules (FAT/NTFS fold case, ext does not) apply without
// this helper re-implementing them.
func resolveDirectoryByPath(fs FileSystem, path string) (Directory, error) {
	path = normalizePath(path)
	if path == "/" {
		return fs.GetRootDirectory()
	}

	current, err := fs.GetRootDirectory()
	if err != nil {
		return nil, err
	}

	for _, part := range strings.Split(strings.Trim(path, "/"), "/") {
		if part == "" {
			continue
		}
		entry, err := current.GetEntry(part)
		if err != nil {
			return nil, fmt.Errorf("directory not found: %s in %s", part, path)
		}
		dir, ok := entry.(Directory)
		if !ok || !entry.IsDirectory() {
			return nil, fmt.Errorf("not a directory: %s in %s", part, path)
		}
		current = dir
	}
	return current, nil
}

// resolveFileByPath resolves path's parent directory via
// resolveDirectoryByPath, then looks up the final path component as a
// File.
func resolveFileByPath(fs FileSystem, path string) (File, error) {
	path = normalizePath(path)
	if path == "/" {
		return nil, fmt.Errorf("root is not a file")
	}

	parentDir, err := resolveDirectoryByPath(fs, filepath.Dir(path))
	if err != nil {
		return nil, err
	}

	name := filepath.Base(path)
	entry, err := parentDir.GetEntry(name)
	if err != nil {
		return nil, err
	}
	if entry.IsDirectory() {
		return nil, fmt.Errorf("path is a directory: %s", path)
	}
	file, ok := entry.(File)
	if !ok {
		return nil, fmt.Errorf("entry is not a file: %s", path)
	}
	return file, nil
}
