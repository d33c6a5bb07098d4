package cuesheet

import "testing"

func TestResolveComputesAbsoluteSectorsAndLengths(t *testing.T) {
	sheet := &Sheet{
		Files: []FileRef{{Path: "a.bin"}, {Path: "b.bin"}},
		Tracks: []Track{
			{Number: 1, FileIndex: 0, FileSectorBase: 0},
			{Number: 2, FileIndex: 0, FileSectorBase: 1000},
			{Number: 3, FileIndex: 1, FileSectorBase: 0},
		},
	}

	if err := sheet.Resolve([]int64{2000, 500}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if sheet.Tracks[0].StartSector != 0 {
		t.Errorf("Tracks[0].StartSector = %d, want 0", sheet.Tracks[0].StartSector)
	}
	if sheet.Tracks[0].NumberOfSectors != 1000 {
		t.Errorf("Tracks[0].NumberOfSectors = %d, want 1000", sheet.Tracks[0].NumberOfSectors)
	}
	if sheet.Tracks[1].StartSector != 1000 {
		t.Errorf("Tracks[1].StartSector = %d, want 1000", sheet.Tracks[1].StartSector)
	}
	if sheet.Tracks[1].NumberOfSectors != 1000 {
		t.Errorf("Tracks[1].NumberOfSectors = %d, want 1000 (file 0 ends at 2000)", sheet.Tracks[1].NumberOfSectors)
	}
	if sheet.Tracks[2].StartSector != 2000 {
		t.Errorf("Tracks[2].StartSector = %d, want 2000 (file 1 base)", sheet.Tracks[2].StartSector)
	}
	if sheet.Tracks[2].NumberOfSectors != 500 {
		t.Errorf("Tracks[2].NumberOfSectors = %d, want 500", sheet.Tracks[2].NumberOfSectors)
	}
}

func TestResolveRejectsMismatchedFileCounts(t *testing.T) {
	sheet := &Sheet{Files: []FileRef{{Path: "a.bin"}}}
	if err := sheet.Resolve([]int64{100, 200}); err == nil {
		t.Error("Resolve accepted a sector-count slice with the wrong length")
	}
}

func TestResolveRejectsUnknownFileIndex(t *testing.T) {
	sheet := &Sheet{
		Files:  []FileRef{{Path: "a.bin"}},
		Tracks: []Track{{Number: 1, FileIndex: 5}},
	}
	if err := sheet.Resolve([]int64{100}); err == nil {
		t.Error("Resolve accepted a track referencing an out-of-range file index")
	}
}

func TestResolveAssignsSessionRanges(t *testing.T) {
	sheet := &Sheet{
		Files: []FileRef{{Path: "a.bin"}},
		Tracks: []Track{
			{Number: 1, FileIndex: 0, FileSectorBase: 0},
			{Number: 2, FileIndex: 0, FileSectorBase: 1000},
		},
		Sessions: []Session{{Number: 1}, {Number: 2}},
	}

	if err := sheet.Resolve([]int64{2000}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(sheet.Sessions) != 2 {
		t.Fatalf("len(Sessions) = %d, want 2", len(sheet.Sessions))
	}
	if sheet.Sessions[0].StartSector != 0 {
		t.Errorf("Sessions[0].StartSector = %d, want 0", sheet.Sessions[0].StartSector)
	}
	if sheet.Sessions[1].StartSector != 1000 {
		t.Errorf("Sessions[1].StartSector = %d, want 1000", sheet.Sessions[1].StartSector)
	}
}
