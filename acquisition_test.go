package ewf

import "testing"

func TestSectorRangeEndAndContains(t *testing.T) {
	r := SectorRange{StartSector: 100, NumberOfSectors: 50}
	if got := r.End(); got != 150 {
		t.Errorf("End() = %d, want 150", got)
	}
	if !r.Contains(100) || !r.Contains(149) {
		t.Error("Contains() rejected a sector within [start, end)")
	}
	if r.Contains(150) || r.Contains(99) {
		t.Error("Contains() accepted a sector outside [start, end)")
	}
}

func TestAcquisitionMetadataAppendAndLookup(t *testing.T) {
	a := NewAcquisitionMetadata()
	a.AppendSession(SectorRange{StartSector: 0, NumberOfSectors: 1000})
	a.AppendSession(SectorRange{StartSector: 1000, NumberOfSectors: 500})
	a.AppendTrack(SectorRange{StartSector: 0, NumberOfSectors: 300})
	a.AppendAcquisitionError(SectorRange{StartSector: 50, NumberOfSectors: 1})
	a.AppendChecksumError(SectorRange{StartSector: 900, NumberOfSectors: 1})

	if got, ok := a.SessionAt(1200); !ok || got.StartSector != 1000 {
		t.Errorf("SessionAt(1200) = (%+v, %v), want second session", got, ok)
	}
	if _, ok := a.SessionAt(5000); ok {
		t.Error("SessionAt(5000) found a session, want none")
	}
	if got, ok := a.TrackAt(150); !ok || got.NumberOfSectors != 300 {
		t.Errorf("TrackAt(150) = (%+v, %v), want the first track", got, ok)
	}
	if !a.HasAcquisitionError(50) {
		t.Error("HasAcquisitionError(50) = false, want true")
	}
	if a.HasAcquisitionError(51) {
		t.Error("HasAcquisitionError(51) = true, want false")
	}
	if !a.HasChecksumError(900) {
		t.Error("HasChecksumError(900) = false, want true")
	}
}

func TestSortRangesOrdersByStartSector(t *testing.T) {
	ranges := []SectorRange{
		{StartSector: 500, NumberOfSectors: 10},
		{StartSector: 0, NumberOfSectors: 10},
		{StartSector: 200, NumberOfSectors: 10},
	}
	sortRanges(ranges)
	for i := 1; i < len(ranges); i++ {
		if ranges[i-1].StartSector > ranges[i].StartSector {
			t.Fatalf("sortRanges did not order ranges ascending: %+v", ranges)
		}
	}
}
