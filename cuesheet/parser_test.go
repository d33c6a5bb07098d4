package cuesheet

import (
	"strings"
	"testing"
)

func TestTokenizeLineHandlesQuotedFields(t *testing.T) {
	got := tokenizeLine(`TITLE "Track One" PERFORMER "Some Artist"`)
	want := []string{"TITLE", "Track One", "PERFORMER", "Some Artist"}
	if len(got) != len(want) {
		t.Fatalf("tokenizeLine() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("field %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseMSF(t *testing.T) {
	m, err := parseMSF("01:02:03")
	if err != nil {
		t.Fatalf("parseMSF: %v", err)
	}
	if m != (MSF{Minutes: 1, Seconds: 2, Frames: 3}) {
		t.Errorf("parseMSF() = %+v, want {1 2 3}", m)
	}

	if _, err := parseMSF("bad"); err == nil {
		t.Error("parseMSF(\"bad\") returned nil error, want error")
	}
}

const sampleCue = `FILE "image.bin" BINARY
  TRACK 01 MODE1/2352
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    INDEX 00 00:02:00
    INDEX 01 00:04:00
`

func TestParseSimpleCueSheet(t *testing.T) {
	sheet, err := Parse(strings.NewReader(sampleCue))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(sheet.Files) != 1 || sheet.Files[0].Path != "image.bin" {
		t.Fatalf("Files = %+v, want one file named image.bin", sheet.Files)
	}
	if len(sheet.Tracks) != 2 {
		t.Fatalf("len(Tracks) = %d, want 2", len(sheet.Tracks))
	}
	if sheet.Tracks[0].Mode != ModeMode1_2352 {
		t.Errorf("Tracks[0].Mode = %s, want %s", sheet.Tracks[0].Mode, ModeMode1_2352)
	}
	wantBase := (MSF{0, 4, 0}).ToSectors()
	if sheet.Tracks[1].FileSectorBase != wantBase {
		t.Errorf("Tracks[1].FileSectorBase = %d, want %d", sheet.Tracks[1].FileSectorBase, wantBase)
	}
}

func TestParseRejectsOutOfOrderTrackNumbers(t *testing.T) {
	cue := `FILE "a.bin" BINARY
  TRACK 01 MODE1/2352
    INDEX 01 00:00:00
  TRACK 03 AUDIO
    INDEX 01 00:02:00
`
	if _, err := Parse(strings.NewReader(cue)); err == nil {
		t.Error("Parse accepted non-sequential TRACK numbers")
	}
}

func TestParseRejectsTrackOutsideFile(t *testing.T) {
	cue := `TRACK 01 MODE1/2352
  INDEX 01 00:00:00
`
	if _, err := Parse(strings.NewReader(cue)); err == nil {
		t.Error("Parse accepted a TRACK line with no preceding FILE")
	}
}

func TestParseSessionAndCatalog(t *testing.T) {
	cue := `CATALOG 1234567890123
FILE "a.bin" BINARY
  REMARK SESSION 1
  TRACK 01 MODE1/2352
    INDEX 01 00:00:00
`
	sheet, err := Parse(strings.NewReader(cue))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if sheet.Catalog != "1234567890123" {
		t.Errorf("Catalog = %q, want %q", sheet.Catalog, "1234567890123")
	}
	if len(sheet.Sessions) != 1 || sheet.Sessions[0].Number != 1 {
		t.Errorf("Sessions = %+v, want one session numbered 1", sheet.Sessions)
	}
}
