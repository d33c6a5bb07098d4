// Package cuesheet implements a CUE/TOC descriptor parser: it decodes
// a cue-sheet (or TOC file) binding one or more raw media files to a
// session/track/index layout so an ODRAW-style Handle can serve a CD
// image as a sequence of sectors.
package cuesheet

import "fmt"

// TrackMode names the packed sector layout a TRACK line declares.
type TrackMode string

const (
	ModeAudio      TrackMode = "AUDIO"
	ModeCDG        TrackMode = "CDG"
	ModeMode1_2048 TrackMode = "MODE1/2048"
	ModeMode1_2352 TrackMode = "MODE1/2352"
	ModeMode2_2048 TrackMode = "MODE2/2048"
	ModeMode2_2324 TrackMode = "MODE2/2324"
	ModeMode2_2336 TrackMode = "MODE2/2336"
	ModeMode2_2352 TrackMode = "MODE2/2352"
	ModeCDI_2336   TrackMode = "CDI/2336"
	ModeCDI_2352   TrackMode = "CDI/2352"
)

// sectorSize returns the on-disk bytes per sector for a track mode,
// used to convert between byte offsets and relative-file sectors.
func (m TrackMode) sectorSize() int64 {
	switch m {
	case ModeAudio, ModeMode1_2352, ModeMode2_2352, ModeCDI_2352:
		return 2352
	case ModeCDG:
		return 2448
	case ModeMode1_2048, ModeMode2_2048:
		return 2048
	case ModeMode2_2324:
		return 2324
	case ModeMode2_2336, ModeCDI_2336:
		return 2336
	default:
		return 2352
	}
}

// FramesPerSecond is the CD timebase used for MSF parsing:
// "MM:SS:FF" at 75 frames/second.
const FramesPerSecond = 75

// MSF is a minutes:seconds:frames timecode, relative to the enclosing
// FILE unless stated otherwise.
type MSF struct {
	Minutes int
	Seconds int
	Frames  int
}

// ToSectors converts an MSF timecode to an absolute sector count.
func (m MSF) ToSectors() int64 {
	return int64(m.Minutes)*60*FramesPerSecond + int64(m.Seconds)*FramesPerSecond + int64(m.Frames)
}

func (m MSF) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", m.Minutes, m.Seconds, m.Frames)
}

// FileRef is one `FILE <path> <type>` declaration.
type FileRef struct {
	Path string
	Type string // e.g. "BINARY", "WAVE", "MOTOROLA"
}

// IndexPoint is one `INDEX <nn> <MSF>` line: nn 00 marks the pre-gap
// start, 01 the track start proper, 02+ sub-indexes.
type IndexPoint struct {
	Number int
	// FileSector is the MSF converted to sectors, relative to the
	// enclosing FILE.
	FileSector int64
}

// Track is one closed `TRACK <nn> <mode>` block, with its absolute
// position resolved against its enclosing FILE's base sector:
// previous_track_start_sector, number_of_sectors, type, file_index,
// and file_sector_offset are all derived once Resolve runs.
type Track struct {
	Number          int
	Mode            TrackMode
	ISRC            string
	Flags           []string
	CDText          map[string]string
	Pregap          *MSF
	Indexes         []IndexPoint
	Postgap         *MSF
	FileIndex       int   // index into Sheet.Files
	FileSectorBase  int64 // this track's INDEX 01, relative to its file
	StartSector     int64 // absolute LBA, set once the sheet is closed
	NumberOfSectors int64 // set once the next track/session boundary is known
}

// Session is one closed `REMARK SESSION <n>` block.
type Session struct {
	Number          int
	StartSector     int64
	NumberOfSectors int64
}

// LeadOut is a `REMARK LEAD-OUT <MSF>` or `REMARK RUN-OUT <MSF>` marker.
type LeadOut struct {
	RunOut      bool
	SectorCount int64
}

// Sheet is the fully parsed cue/toc descriptor.
type Sheet struct {
	Catalog    string
	CDTextFile string
	CDText     map[string]string
	Files      []FileRef
	Tracks     []Track
	Sessions   []Session
	LeadOuts   []LeadOut
}
