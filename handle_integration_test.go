package ewf

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
)

func TestCreateWriteFinalizeOpenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "case001")

	h, err := Create(basePath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetBytesPerSector(512); err != nil {
		t.Fatalf("SetBytesPerSector: %v", err)
	}
	if err := h.SetSectorsPerChunk(4); err != nil {
		t.Fatalf("SetSectorsPerChunk: %v", err)
	}
	if err := h.SetNumberOfSectors(16); err != nil {
		t.Fatalf("SetNumberOfSectors: %v", err)
	}

	media := make([]byte, 16*512)
	for i := range media {
		media[i] = byte(i % 251)
	}
	if _, err := h.WriteBuffer(media); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := h.WriteFinalize(); err != nil {
		t.Fatalf("WriteFinalize: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	firstSegment := basePath + ".E01"
	paths, err := Glob(firstSegment)
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("Glob returned %d segments, want 1", len(paths))
	}

	r, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	if r.MediaSize() != uint64(len(media)) {
		t.Errorf("MediaSize() = %d, want %d", r.MediaSize(), len(media))
	}

	got := make([]byte, len(media))
	n, err := r.ReadBuffer(got)
	if err != nil && err != io.EOF {
		t.Fatalf("ReadBuffer: %v", err)
	}
	if n != len(media) {
		t.Fatalf("ReadBuffer returned %d bytes, want %d", n, len(media))
	}
	if !bytes.Equal(got, media) {
		t.Errorf("round-tripped media does not match original")
	}
}

func TestWriteChunkRejectsNonSequentialIndex(t *testing.T) {
	dir := t.TempDir()
	h, err := Create(filepath.Join(dir, "case002"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetBytesPerSector(512); err != nil {
		t.Fatalf("SetBytesPerSector: %v", err)
	}
	if err := h.SetSectorsPerChunk(1); err != nil {
		t.Fatalf("SetSectorsPerChunk: %v", err)
	}
	if err := h.SetNumberOfSectors(2); err != nil {
		t.Fatalf("SetNumberOfSectors: %v", err)
	}

	if err := h.WriteChunk(1, make([]byte, 512)); err == nil {
		t.Error("WriteChunk(1, ...) on an empty image succeeded, want error (chunk 0 must come first)")
	}
}

func TestReadRandomDoesNotDisturbSequentialCursor(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "case003")

	h, err := Create(basePath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetBytesPerSector(512); err != nil {
		t.Fatalf("SetBytesPerSector: %v", err)
	}
	if err := h.SetSectorsPerChunk(1); err != nil {
		t.Fatalf("SetSectorsPerChunk: %v", err)
	}
	if err := h.SetNumberOfSectors(4); err != nil {
		t.Fatalf("SetNumberOfSectors: %v", err)
	}
	media := make([]byte, 4*512)
	for i := range media {
		media[i] = byte(i)
	}
	if _, err := h.WriteBuffer(media); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := h.WriteFinalize(); err != nil {
		t.Fatalf("WriteFinalize: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	paths, err := Glob(basePath + ".E01")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	r, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	before := r.GetOffset()
	buf := make([]byte, 512)
	if _, err := r.ReadRandom(buf, 1024); err != nil && err != io.EOF {
		t.Fatalf("ReadRandom: %v", err)
	}
	if r.GetOffset() != before {
		t.Errorf("GetOffset() changed from %d to %d after ReadRandom", before, r.GetOffset())
	}
	if !bytes.Equal(buf, media[1024:1024+512]) {
		t.Errorf("ReadRandom returned wrong bytes")
	}
}

func TestCloneIsIndependentHandle(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "case004")

	h, err := Create(basePath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetBytesPerSector(512); err != nil {
		t.Fatalf("SetBytesPerSector: %v", err)
	}
	if err := h.SetSectorsPerChunk(1); err != nil {
		t.Fatalf("SetSectorsPerChunk: %v", err)
	}
	if err := h.SetNumberOfSectors(1); err != nil {
		t.Fatalf("SetNumberOfSectors: %v", err)
	}
	if _, err := h.WriteBuffer(make([]byte, 512)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := h.WriteFinalize(); err != nil {
		t.Fatalf("WriteFinalize: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	paths, err := Glob(basePath + ".E01")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	orig, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer orig.Close()

	clone, err := orig.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	defer clone.Close()

	if _, err := clone.SeekOffset(512, io.SeekStart); err != nil {
		t.Fatalf("SeekOffset on clone: %v", err)
	}
	if orig.GetOffset() != 0 {
		t.Errorf("orig.GetOffset() = %d after seeking only the clone, want 0", orig.GetOffset())
	}
}

func TestSignalAbortStopsReadBuffer(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "case005")

	h, err := Create(basePath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := h.SetBytesPerSector(512); err != nil {
		t.Fatalf("SetBytesPerSector: %v", err)
	}
	if err := h.SetSectorsPerChunk(1); err != nil {
		t.Fatalf("SetSectorsPerChunk: %v", err)
	}
	if err := h.SetNumberOfSectors(1); err != nil {
		t.Fatalf("SetNumberOfSectors: %v", err)
	}
	if _, err := h.WriteBuffer(make([]byte, 512)); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if err := h.WriteFinalize(); err != nil {
		t.Fatalf("WriteFinalize: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	paths, err := Glob(basePath + ".E01")
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	r, err := Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	r.SignalAbort()
	if !r.Aborted() {
		t.Fatal("Aborted() = false after SignalAbort")
	}
	if _, err := r.ReadBuffer(make([]byte, 512)); err == nil {
		t.Error("ReadBuffer succeeded on an aborted Handle, want error")
	}
	r.ResetAbort()
	if r.Aborted() {
		t.Error("Aborted() = true after ResetAbort")
	}
}
