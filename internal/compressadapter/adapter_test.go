package compressadapter

import (
	"bytes"
	"testing"
)

func TestStdZlibRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		level Level
		data  []byte
	}{
		{"empty", LevelGood, nil},
		{"none level", LevelNone, []byte("hello world")},
		{"best level", LevelBest, bytes.Repeat([]byte("abc"), 500)},
	}
	var a StdZlib
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := a.Compress(tt.data, tt.level)
			if err != nil {
				t.Fatalf("Compress: %v", err)
			}
			out, err := a.Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress: %v", err)
			}
			if !bytes.Equal(out, tt.data) && !(len(out) == 0 && len(tt.data) == 0) {
				t.Errorf("round trip mismatch: got %v, want %v", out, tt.data)
			}
		})
	}
}

func TestStdZlibBoundIsUnknown(t *testing.T) {
	var a StdZlib
	if got := a.Bound(1024); got != -1 {
		t.Errorf("StdZlib.Bound(1024) = %d, want -1", got)
	}
}

func TestFastZlibRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("the quick brown fox"), 200)
	var a FastZlib
	compressed, err := a.Compress(data, LevelBest)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	out, err := a.Decompress(compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("round trip mismatch: got %d bytes, want %d bytes", len(out), len(data))
	}
}

func TestFastZlibBound(t *testing.T) {
	if got := (FastZlib{}).Bound(1000); got != 1000+1+12 {
		t.Errorf("FastZlib.Bound(1000) = %d, want %d", got, 1000+1+12)
	}
}

func TestFastZlibAndStdZlibInterop(t *testing.T) {
	data := []byte("cross-adapter payload, compressed by one, read by the other")
	var fast FastZlib
	var std StdZlib

	compressed, err := fast.Compress(data, LevelGood)
	if err != nil {
		t.Fatalf("FastZlib.Compress: %v", err)
	}
	out, err := std.Decompress(compressed)
	if err != nil {
		t.Fatalf("StdZlib.Decompress of FastZlib output: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Errorf("cross-adapter round trip mismatch")
	}
}
