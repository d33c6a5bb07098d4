package chunkcodec

import (
	"bytes"
	"testing"

	"github.com/forensicgo/goewf/internal/compressadapter"
)

func TestPackUnpackRoundTripCompressed(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	original := bytes.Repeat([]byte("forensic image chunk "), 200)

	packed, err := Pack(adapter, original, true, compressadapter.LevelGood, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !packed.Compressed {
		t.Fatal("expected compressible input to be stored compressed")
	}

	data, checksumErr := Unpack(adapter, packed.Data, packed.Compressed, len(original))
	if checksumErr != nil {
		t.Fatalf("Unpack checksum error: %v", checksumErr)
	}
	if !bytes.Equal(data, original) {
		t.Error("round trip data mismatch")
	}
}

func TestPackFallsBackToUncompressedWhenLarger(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	// Random-looking small input typically does not compress smaller than itself + 4.
	random := []byte{0x3a, 0x91, 0x02, 0xff, 0x77, 0x10, 0x00, 0x8c}

	packed, err := Pack(adapter, random, true, compressadapter.LevelBest, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if packed.Compressed {
		t.Skip("adapter managed to shrink this input; fallback path not exercised")
	}
	if !packed.ChecksumAppended {
		t.Error("uncompressed fallback must carry ChecksumAppended")
	}

	data, checksumErr := Unpack(adapter, packed.Data, false, len(random))
	if checksumErr != nil {
		t.Fatalf("Unpack: %v", checksumErr)
	}
	if !bytes.Equal(data, random) {
		t.Error("uncompressed round trip mismatch")
	}
}

func TestPackNoCompressionStoresRaw(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	in := []byte("plain bytes")

	packed, err := Pack(adapter, in, false, compressadapter.LevelNone, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if packed.Compressed {
		t.Error("Pack with compress=false returned Compressed=true")
	}
	if len(packed.Data) != len(in)+4 {
		t.Errorf("len(packed.Data) = %d, want %d (payload + 4-byte checksum)", len(packed.Data), len(in)+4)
	}
}

func TestZeroTemplateReusedForAllZeroChunks(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	const chunkSize = 4096
	tmpl, err := ZeroTemplate(adapter, chunkSize, compressadapter.LevelGood)
	if err != nil {
		t.Fatalf("ZeroTemplate: %v", err)
	}

	zero := make([]byte, chunkSize)
	packed, err := Pack(adapter, zero, true, compressadapter.LevelGood, &tmpl)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if !bytes.Equal(packed.Data, tmpl.Data) {
		t.Error("Pack of an all-zero chunk did not reuse the precomputed zero template")
	}
}

func TestUnpackDetectsChecksumMismatch(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	in := []byte("tamper target")
	packed, err := Pack(adapter, in, false, compressadapter.LevelNone, nil)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	packed.Data[0] ^= 0xff // corrupt a data byte, checksum trailer now disagrees

	_, checksumErr := Unpack(adapter, packed.Data, false, len(in))
	if checksumErr == nil {
		t.Error("Unpack did not report a checksum mismatch on tampered data")
	}
}

func TestUnpackRejectsTooShortUncompressed(t *testing.T) {
	adapter := compressadapter.StdZlib{}
	_, err := Unpack(adapter, []byte{1, 2, 3}, false, 0)
	if err == nil {
		t.Error("Unpack accepted a payload shorter than the checksum trailer")
	}
}
