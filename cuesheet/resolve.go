package cuesheet

import "fmt"

// Resolve converts every track's file-relative sector position into an
// absolute LBA and fills in NumberOfSectors, given the actual sector
// count of each referenced FILE. This runs as a single pass once file
// sizes, which the parser itself cannot know, are available.
//
// fileSectorCounts must have one entry per s.Files, each the file's
// total length in that track's sector size.
func (s *Sheet) Resolve(fileSectorCounts []int64) error {
	if len(fileSectorCounts) != len(s.Files) {
		return fmt.Errorf("cuesheet: resolve: need %d file sector counts, got %d", len(s.Files), len(fileSectorCounts))
	}

	fileBase := make([]int64, len(s.Files))
	var running int64
	for i, n := range fileSectorCounts {
		fileBase[i] = running
		running += n
	}

	for i := range s.Tracks {
		t := &s.Tracks[i]
		if t.FileIndex < 0 || t.FileIndex >= len(fileBase) {
			return fmt.Errorf("cuesheet: resolve: track %d references unknown file %d", t.Number, t.FileIndex)
		}
		t.StartSector = fileBase[t.FileIndex] + t.FileSectorBase
	}

	for i := range s.Tracks {
		if i+1 < len(s.Tracks) {
			s.Tracks[i].NumberOfSectors = s.Tracks[i+1].StartSector - s.Tracks[i].StartSector
		} else {
			s.Tracks[i].NumberOfSectors = running - s.Tracks[i].StartSector
		}
		if s.Tracks[i].NumberOfSectors < 0 {
			return fmt.Errorf("cuesheet: resolve: track %d has negative length", s.Tracks[i].Number)
		}
	}

	if len(s.Sessions) > 0 {
		resolveSessions(s)
	}
	return nil
}

// resolveSessions assigns each session the sector range spanned by an
// equal share of the tracks, taken in order; the last session also takes
// any remaining tracks. Where the session markers sit among the tracks
// in the sheet is not used.
func resolveSessions(s *Sheet) {
	if len(s.Tracks) == 0 {
		return
	}
	tracksPerSession := len(s.Tracks) / len(s.Sessions)
	if tracksPerSession < 1 {
		tracksPerSession = 1
	}
	idx := 0
	for i := range s.Sessions {
		start := idx
		end := start + tracksPerSession
		if i == len(s.Sessions)-1 || end > len(s.Tracks) {
			end = len(s.Tracks)
		}
		if start >= len(s.Tracks) {
			break
		}
		s.Sessions[i].StartSector = s.Tracks[start].StartSector
		last := s.Tracks[end-1]
		s.Sessions[i].NumberOfSectors = last.StartSector + last.NumberOfSectors - s.Sessions[i].StartSector
		idx = end
	}
}
