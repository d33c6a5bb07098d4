package ewf

// Media-values getters/setters. Setters are only meaningful on a
// Handle opened for writing, before the first chunk has been written:
// chunk geometry is fixed once the first chunk is written.

func (h *Handle) BytesPerSector() uint32  { return h.media.BytesPerSector }
func (h *Handle) SectorsPerChunk() uint32 { return h.media.SectorsPerChunk }
func (h *Handle) NumberOfChunks() uint32  { return h.media.NumberOfChunks }
func (h *Handle) NumberOfSectors() uint64 { return h.media.NumberOfSectors }
func (h *Handle) MediaType() uint8        { return h.media.MediaType }
func (h *Handle) MediaFlags() uint8       { return h.media.MediaFlags }
func (h *Handle) ErrorGranularity() uint32 { return h.media.ErrorGranularity }
func (h *Handle) CompressionLevelByte() uint8 { return h.media.CompressionLevel }
func (h *Handle) SetIdentifier() [16]byte { return h.media.SetIdentifier }

func (h *Handle) SetBytesPerSector(v uint32) error {
	if h.media.chunkSizeFixed {
		return newErr("SetBytesPerSector", DomainRuntime, KindValueAlreadySet, nil)
	}
	h.media.BytesPerSector = v
	return nil
}

func (h *Handle) SetSectorsPerChunk(v uint32) error {
	if h.media.chunkSizeFixed {
		return newErr("SetSectorsPerChunk", DomainRuntime, KindValueAlreadySet, nil)
	}
	h.media.SectorsPerChunk = v
	return nil
}

func (h *Handle) SetNumberOfSectors(v uint64) error {
	if h.mode != ModeWrite {
		return newErr("SetNumberOfSectors", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.NumberOfSectors = v
	h.media.MediaSize = v * uint64(h.media.BytesPerSector)
	return nil
}

func (h *Handle) SetMediaType(v uint8) error {
	if h.mode != ModeWrite {
		return newErr("SetMediaType", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.MediaType = v
	return nil
}

func (h *Handle) SetMediaFlags(v uint8) error {
	if h.mode != ModeWrite {
		return newErr("SetMediaFlags", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.MediaFlags = v
	return nil
}

func (h *Handle) SetErrorGranularity(v uint32) error {
	if h.mode != ModeWrite {
		return newErr("SetErrorGranularity", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.ErrorGranularity = v
	return nil
}

func (h *Handle) SetCompressionLevelByte(v uint8) error {
	if h.mode != ModeWrite {
		return newErr("SetCompressionLevelByte", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.CompressionLevel = v
	return nil
}

func (h *Handle) SetSetIdentifier(v [16]byte) error {
	if h.mode != ModeWrite {
		return newErr("SetSetIdentifier", DomainRuntime, KindInvalidResource, nil)
	}
	h.media.SetIdentifier = v
	return nil
}

// Header-value get/set, keyed by canonical name. This library only
// ever models the canonical name — legacy single-letter identifiers
// are a wire-format detail private to header.go's encode/decode path.

func (h *Handle) HeaderValue(key string) (string, bool) { return h.headers.Get(key) }
func (h *Handle) SetHeaderValue(key, value string) error {
	if h.mode != ModeWrite {
		return newErr("SetHeaderValue", DomainRuntime, KindInvalidResource, nil)
	}
	h.headers.Set(key, value)
	return nil
}
func (h *Handle) HeaderKeys() []string { return h.headers.Keys() }

// Hash-value get/set, keyed by canonical digest name.

func (h *Handle) HashValue(key string) (string, bool) { return h.hashes.Get(key) }
func (h *Handle) SetHashValue(key, value string) error {
	if h.mode != ModeWrite {
		return newErr("SetHashValue", DomainRuntime, KindInvalidResource, nil)
	}
	h.hashes.Set(key, value)
	return nil
}
func (h *Handle) HashKeys() []string { return h.hashes.Keys() }

// Sessions/tracks/acquiry-errors/checksum-errors query and append.

func (h *Handle) Sessions() []SectorRange         { return h.acquisition.Sessions }
func (h *Handle) Tracks() []SectorRange           { return h.acquisition.Tracks }
func (h *Handle) AcquisitionErrors() []SectorRange { return h.acquisition.AcquisitionErrors }
func (h *Handle) ChecksumErrors() []SectorRange   { return h.acquisition.ChecksumErrors }

func (h *Handle) AppendSession(r SectorRange) error {
	if h.mode != ModeWrite {
		return newErr("AppendSession", DomainRuntime, KindInvalidResource, nil)
	}
	h.acquisition.AppendSession(r)
	return nil
}

func (h *Handle) AppendTrack(r SectorRange) error {
	if h.mode != ModeWrite {
		return newErr("AppendTrack", DomainRuntime, KindInvalidResource, nil)
	}
	h.acquisition.AppendTrack(r)
	return nil
}

func (h *Handle) AppendAcquisitionError(r SectorRange) error {
	if h.mode != ModeWrite {
		return newErr("AppendAcquisitionError", DomainRuntime, KindInvalidResource, nil)
	}
	h.acquisition.AppendAcquisitionError(r)
	return nil
}

// recordChunkChecksumError translates a failing chunk index into the
// sector range it covers and records it in the checksum-error list;
// wired as the Read-IO Coordinator's OnChecksumError hook, it is not
// part of the public write API since it reflects what the read side
// observed, not acquisition-time input.
func (h *Handle) recordChunkChecksumError(chunkIndex uint64) {
	if h.media.SectorsPerChunk == 0 {
		return
	}
	startSector := chunkIndex * uint64(h.media.SectorsPerChunk)
	h.acquisition.AppendChecksumError(SectorRange{StartSector: startSector, NumberOfSectors: uint64(h.media.SectorsPerChunk)})
}

func (h *Handle) SessionAt(sector uint64) (SectorRange, bool) { return h.acquisition.SessionAt(sector) }
func (h *Handle) TrackAt(sector uint64) (SectorRange, bool)   { return h.acquisition.TrackAt(sector) }
func (h *Handle) HasAcquisitionError(sector uint64) bool {
	return h.acquisition.HasAcquisitionError(sector)
}
func (h *Handle) HasChecksumError(sector uint64) bool { return h.acquisition.HasChecksumError(sector) }

// Logical-file-entry navigation (Logical Evidence / L01 images only).

// LogicalRoot returns the root of the Logical File Tree, or nil if
// this image carries no `ltree` section.
func (h *Handle) LogicalRoot() *LogicalFileEntry {
	if h.ltree == nil {
		return nil
	}
	return h.ltree.Root
}

// WalkLogicalFiles visits every Logical File Entry in pre-order; a
// no-op if this image carries no `ltree` section.
func (h *Handle) WalkLogicalFiles(visit func(e *LogicalFileEntry, depth int)) {
	if h.ltree == nil {
		return
	}
	h.ltree.Walk(visit)
}

// SetLogicalTree installs the Logical File Tree a Logical Evidence
// (L01) image's WriteFinalize will serialise into an `ltree` section.
func (h *Handle) SetLogicalTree(tree *LogicalFileTree) error {
	if h.mode != ModeWrite {
		return newErr("SetLogicalTree", DomainRuntime, KindInvalidResource, nil)
	}
	h.ltree = tree
	return nil
}
