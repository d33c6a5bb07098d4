package ewf

import (
	"fmt"

	"github.com/forensicgo/goewf/cuesheet"
	"github.com/forensicgo/goewf/filesystem"
	"github.com/forensicgo/goewf/partition"
)

// Partitions reads the MBR (and, if it is a protective MBR, the
// primary GPT) from the start of the media stream: partition-aware
// navigation on top of the raw sector stream a Handle already
// exposes.
func (h *Handle) Partitions() (partition.MBR, *partition.GPT, error) {
	if h.reader == nil {
		return partition.MBR{}, nil, newErr("Partitions", DomainRuntime, KindInvalidResource, nil)
	}
	mbr, err := partition.ReadMBR(h.reader)
	if err != nil {
		return partition.MBR{}, nil, newErr("Partitions", DomainIO, KindReadFailed, err)
	}
	if !mbr.IsProtective() {
		return mbr, nil, nil
	}
	gpt, err := partition.ReadGPT(h.reader)
	if err != nil {
		return mbr, nil, newErr("Partitions", DomainIO, KindReadFailed, err)
	}
	return mbr, &gpt, nil
}

// FileSystem detects and opens the filesystem starting baseOffset
// bytes into the media stream and spanning sectorCount sectors (0
// meaning "to the end of the media"), using the partition layout
// Partitions reports to locate a volume's byte range.
func (h *Handle) FileSystem(baseOffset int64, sectorCount uint64) (filesystem.FileSystem, error) {
	if h.reader == nil {
		return nil, newErr("FileSystem", DomainRuntime, KindInvalidResource, nil)
	}
	mr := filesystem.NewMediaReader(h.reader, h.media.BytesPerSector, baseOffset, sectorCount)
	fs, err := filesystem.CreateFileSystem(mr)
	if err != nil {
		return nil, newErr("FileSystem", DomainInput, KindInvalidValue, err)
	}
	return fs, nil
}

// ImportCuesheet folds a resolved cuesheet.Sheet's sessions and tracks
// into the Acquisition Metadata Store: the bridge between the CUE/TOC
// descriptor parser and a Handle being built for an optical-media
// image. sheet must already have had Resolve called.
func (h *Handle) ImportCuesheet(sheet *cuesheet.Sheet) error {
	if h.mode != ModeWrite {
		return newErr("ImportCuesheet", DomainRuntime, KindInvalidResource, nil)
	}
	for _, s := range sheet.Sessions {
		if s.NumberOfSectors <= 0 {
			continue
		}
		h.acquisition.AppendSession(SectorRange{
			StartSector:     uint64(s.StartSector),
			NumberOfSectors: uint64(s.NumberOfSectors),
		})
	}
	for _, t := range sheet.Tracks {
		if t.NumberOfSectors <= 0 {
			continue
		}
		h.acquisition.AppendTrack(SectorRange{
			StartSector:     uint64(t.StartSector),
			NumberOfSectors: uint64(t.NumberOfSectors),
		})
	}
	if len(sheet.Sessions) == 0 && len(sheet.Tracks) == 0 {
		return fmt.Errorf("ewf: ImportCuesheet: sheet has no resolved sessions or tracks")
	}
	return nil
}
