package filesystem

import "testing"

func TestCreateFileSystemFallsBackToRaw(t *testing.T) {
	boot := make([]byte, 512)
	r := &stubReader{sectors: map[uint64][]byte{0: boot}}

	fs, err := CreateFileSystem(r)
	if err != nil {
		t.Fatalf("CreateFileSystem: %v", err)
	}
	if fs.GetType() != FileSystemTypeRaw {
		t.Fatalf("GetType() = %v, want Raw", fs.GetType())
	}

	root, err := fs.GetRootDirectory()
	if err != nil {
		t.Fatalf("GetRootDirectory: %v", err)
	}
	entries, err := root.GetEntries()
	if err != nil {
		t.Fatalf("GetEntries: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("RawFileSystem root has %d entries, want 0", len(entries))
	}

	if _, err := fs.GetFileByPath("/anything"); err == nil {
		t.Error("RawFileSystem.GetFileByPath succeeded, want error")
	}
}

func TestCreateFileSystemDispatchesNTFS(t *testing.T) {
	boot := make([]byte, 512)
	copy(boot[3:11], []byte("NTFS    "))
	r := &stubReader{sectors: map[uint64][]byte{0: boot}}

	fs, err := CreateFileSystem(r)
	if err != nil {
		t.Fatalf("CreateFileSystem: %v", err)
	}
	if fs.GetType() != FileSystemTypeNTFS {
		t.Errorf("GetType() = %v, want NTFS", fs.GetType())
	}
}

func TestCreateFileSystemDispatchesEXT2(t *testing.T) {
	boot := make([]byte, 512)
	r := &stubReader{
		sectors: map[uint64][]byte{0: boot},
		bytes:   map[uint64][]byte{1024: buildEXT2Image(t).data[1024:2048]},
	}

	fs, err := CreateFileSystem(r)
	if err != nil {
		t.Fatalf("CreateFileSystem: %v", err)
	}
	if fs.GetType() != FileSystemTypeEXT2 {
		t.Errorf("GetType() = %v, want EXT2", fs.GetType())
	}
}
