package ewf

import (
	"fmt"

	"github.com/forensicgo/goewf/internal/chunkcodec"
	"github.com/forensicgo/goewf/internal/delta"
	"github.com/forensicgo/goewf/internal/iopool"
	"github.com/forensicgo/goewf/internal/section"
	"github.com/forensicgo/goewf/internal/segment"
	"github.com/forensicgo/goewf/internal/table"
)

// DefaultMaxSegmentSize is the default per-segment file size cap the
// Write-IO Coordinator budgets against: just under 2 GiB,
// the historical EnCase-compatible ceiling.
const DefaultMaxSegmentSize = 1<<31 - 1

// WithMaxSegmentSize overrides DefaultMaxSegmentSize for Create.
func WithMaxSegmentSize(n int64) Option {
	return func(c *handleConfig) { c.maxSegmentSize = n }
}

// poolWriterAt and poolReaderAt adapt one File I/O Pool entry to the
// io.WriterAt/io.ReaderAt interfaces the section/table/delta packages
// are written against.
type poolWriterAt struct {
	h     *Handle
	entry iopool.Entry
}

func (p poolWriterAt) WriteAt(buf []byte, off int64) (int, error) { return p.h.pool.WriteAt(p.entry, buf, off) }

type writeState struct {
	basePath       string
	segmentNumber  int
	entry          iopool.Entry
	budget         *segment.Budget
	cursor         int64 // absolute write cursor inside the current segment
	sectorsOffset  int64 // absolute offset of the open chunks-section's `sectors` descriptor
	sectorsPayload int64 // absolute offset of the first chunk byte in the open chunks-section
	offsets        []uint32
	chunkIndex     uint64
	chunkBuffer    []byte
	zeroTemplate   *chunkcodec.Packed
	maxSegmentSize int64
	finalized      bool

	// deltaEntry/deltaBudget are set instead of the above when this
	// Handle is a delta-authoring handle (CreateDelta), which appends
	// delta_chunk sections to a single DVF file rather than running
	// the full sectors/table/table2 cycle.
	deltaEntry    iopool.Entry
	deltaCursor   int64
	deltaOverlay  *delta.Overlay
	isDeltaAuthor bool
}

// Create opens a brand new image for writing: basePath is the segment
// path without its
// extension, e.g. "/evidence/case001" produces "/evidence/case001.E01"
// and onward. Media geometry (BytesPerSector, SectorsPerChunk,
// NumberOfSectors) must be set before the first WriteBuffer/WriteChunk
// call, which fixes the chunk size for the rest of the image.
func Create(basePath string, opts ...Option) (*Handle, error) {
	cfg := defaultConfig()
	cfg.maxSegmentSize = DefaultMaxSegmentSize
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Handle{
		mode:                ModeWrite,
		format:              cfg.format,
		pool:                iopool.New(cfg.maxOpenFiles),
		index:               table.New(),
		cache:               table.NewCache(cfg.cacheCapacity),
		adapter:             cfg.adapter,
		level:               cfg.level,
		logger:              cfg.logger,
		zeroOnChecksumError: cfg.zeroOnChecksumError,
		headers:             NewHeaderValues(),
		hashes:              NewHashValues(),
		acquisition:         NewAcquisitionMetadata(),
	}
	h.writer = &writeState{basePath: basePath, maxSegmentSize: cfg.maxSegmentSize, sectorsOffset: -1}
	return h, nil
}

// CreateDelta opens a new DVF delta overlay file that records writes
// against an already-open base Handle without touching its segment
// files. Chunks written through the returned Handle's
// WriteChunk become visible to base's own reads only after the caller
// folds the produced overlay back in (re-opening base via
// OpenWithDelta, or calling base.AdoptDelta).
func CreateDelta(basePath string, base *Handle, opts ...Option) (*Handle, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	h := &Handle{
		mode:        ModeWrite,
		format:      base.format,
		delta:       true,
		pool:        iopool.New(cfg.maxOpenFiles),
		index:       base.index,
		cache:       base.cache,
		adapter:     cfg.adapter,
		level:       cfg.level,
		logger:      cfg.logger,
		headers:     base.headers,
		hashes:      base.hashes,
		acquisition: base.acquisition,
		media:       base.media,
	}
	h.media.lockChunkSize()
	entry := h.pool.Append(basePath, iopool.ModeCreate)
	if err := segment.WriteFileHeader(poolWriterAt{h, entry}, segment.SignatureDVF, 1); err != nil {
		return nil, newErr("CreateDelta", DomainIO, KindWriteFailed, err)
	}
	h.writer = &writeState{
		isDeltaAuthor: true,
		deltaEntry:    entry,
		deltaCursor:   segment.FileHeaderSize,
		deltaOverlay:  delta.NewOverlay(),
	}
	return h, nil
}

// AdoptDelta folds a finalized delta-authoring Handle's overlay
// directly into base's Chunk Table Index, without re-reading the DVF
// file from disk (base and d share the same Index already, by
// construction of CreateDelta, so this only needs to cover the case
// where the caller built the Overlay by hand).
func (base *Handle) AdoptDelta(d *Handle) {
	if d.writer == nil || d.writer.deltaOverlay == nil {
		return
	}
	d.writer.deltaOverlay.Range(func(chunkIndex uint32, e delta.Entry) {
		base.index.SetDelta(uint64(chunkIndex), table.Descriptor{
			FileIOEntry: e.SegmentEntry,
			FileOffset:  e.DataOffset,
			SizeOnDisk:  e.Size,
			Flags:       table.FlagDelta,
		})
	})
}

// WriteChunk writes one already-chunk_size-aligned buffer of logical
// media bytes as chunk chunkIndex. On a plain (non-delta) Handle,
// chunkIndex must equal the next sequential chunk; on a
// delta-authoring Handle, any chunkIndex may be rewritten.
func (h *Handle) WriteChunk(chunkIndex uint64, raw []byte) error {
	if h.mode != ModeWrite {
		return newErr("WriteChunk", DomainRuntime, KindInvalidResource, nil)
	}
	if err := h.checkAbort("WriteChunk"); err != nil {
		return err
	}
	if h.writer.isDeltaAuthor {
		return h.writeDeltaChunk(chunkIndex, raw)
	}
	if chunkIndex != h.writer.chunkIndex {
		return newErrParam("WriteChunk", DomainArguments, KindInvalidValue, "chunkIndex", fmt.Errorf("want %d, got %d (sequential writes only)", h.writer.chunkIndex, chunkIndex))
	}
	return h.writeSequentialChunk(raw)
}

// WriteBuffer appends buf to the media stream, splitting it into
// chunk_size-aligned chunks as they complete. A final short chunk is
// only flushed by WriteFinalize.
func (h *Handle) WriteBuffer(buf []byte) (int, error) {
	if h.mode != ModeWrite || h.writer.isDeltaAuthor {
		return 0, newErr("WriteBuffer", DomainRuntime, KindInvalidResource, nil)
	}
	if err := h.ensureSegmentOpen(); err != nil {
		return 0, err
	}
	chunkSize := int(h.media.ChunkSize())

	n := 0
	w := h.writer
	w.chunkBuffer = append(w.chunkBuffer, buf...)
	n = len(buf)
	for len(w.chunkBuffer) >= chunkSize {
		if err := h.checkAbort("WriteBuffer"); err != nil {
			return n, err
		}
		chunk := w.chunkBuffer[:chunkSize]
		if err := h.writeSequentialChunk(chunk); err != nil {
			return n, err
		}
		w.chunkBuffer = append([]byte(nil), w.chunkBuffer[chunkSize:]...)
	}
	return n, nil
}

// WriteRandom is unsupported on a base image Handle: only the delta
// overlay models a modified chunk after it has been written. Use
// CreateDelta and WriteChunk on the resulting Handle instead.
func (h *Handle) WriteRandom(buf []byte, off int64) (int, error) {
	if h.writer != nil && h.writer.isDeltaAuthor {
		chunkSize := int64(h.media.ChunkSize())
		if off%chunkSize != 0 || int64(len(buf)) != chunkSize {
			return 0, newErr("WriteRandom", DomainArguments, KindInvalidValue, fmt.Errorf("delta writes must be exactly one chunk, chunk-aligned"))
		}
		if err := h.WriteChunk(uint64(off/chunkSize), buf); err != nil {
			return 0, err
		}
		return len(buf), nil
	}
	return 0, newErr("WriteRandom", DomainArguments, KindUnsupportedValue, fmt.Errorf("base images are append-only; open a delta overlay with CreateDelta"))
}

func (h *Handle) writeDeltaChunk(chunkIndex uint64, raw []byte) error {
	w := h.writer
	payload := delta.EncodeChunk(uint32(chunkIndex), raw)
	off := w.deltaCursor
	payloadOff := off + section.HeaderSize
	if _, err := h.pool.WriteAt(w.deltaEntry, payload, payloadOff); err != nil {
		return newErr("WriteChunk", DomainIO, KindWriteFailed, err)
	}
	size := uint64(section.HeaderSize + len(payload))
	next := off + int64(size)
	if err := section.Write(poolWriterAt{h, w.deltaEntry}, off, section.TypeDelta, uint64(next), size); err != nil {
		return newErr("WriteChunk", DomainIO, KindWriteFailed, err)
	}
	w.deltaCursor = next
	w.deltaOverlay.Record(uint32(chunkIndex), delta.Entry{
		SegmentEntry: int32(w.deltaEntry),
		DataOffset:   uint64(payloadOff) + delta.HeaderSize,
		Size:         uint32(len(raw)),
	})
	h.index.SetDelta(chunkIndex, table.Descriptor{
		FileIOEntry: int32(w.deltaEntry),
		FileOffset:  uint64(payloadOff) + delta.HeaderSize,
		SizeOnDisk:  uint32(len(raw)),
		Flags:       table.FlagDelta,
	})
	return nil
}

func (h *Handle) writeSequentialChunk(raw []byte) error {
	if err := h.ensureSegmentOpen(); err != nil {
		return err
	}
	w := h.writer
	if w.budget.SectionFull() {
		if err := h.closeChunksSection(); err != nil {
			return err
		}
	}
	if w.budget.SegmentFull() {
		if err := h.rolloverSegment(); err != nil {
			return err
		}
	}
	if w.sectorsOffset < 0 {
		if err := h.openChunksSection(); err != nil {
			return err
		}
	}

	packed, err := chunkcodec.Pack(h.adapter, raw, h.media.CompressionLevel != CompressionNone, h.level, w.zeroTemplate)
	if err != nil {
		return newErr("WriteChunk", DomainCompression, KindGeneric, err)
	}
	fileOffset := uint64(w.cursor)
	if _, err := h.pool.WriteAt(w.entry, packed.Data, w.cursor); err != nil {
		return newErr("WriteChunk", DomainIO, KindWriteFailed, err)
	}

	flags := uint32(0)
	if packed.Compressed {
		flags |= table.FlagCompressed
	} else {
		flags |= table.FlagPackedWithTrailingChecksum
	}
	h.index.Set(w.chunkIndex, table.Descriptor{
		FileIOEntry: int32(w.entry),
		FileOffset:  fileOffset,
		SizeOnDisk:  uint32(len(packed.Data)),
		Flags:       flags,
	}, table.SourceAuthoritative)
	w.offsets = append(w.offsets, table.EncodeOffset(fileOffset, uint64(w.sectorsPayload), packed.Compressed))

	w.budget.RecordChunkWritten(uint32(len(packed.Data)), uint32(len(raw)))
	w.cursor += int64(len(packed.Data))
	w.chunkIndex++
	return nil
}

func (h *Handle) ensureSegmentOpen() error {
	w := h.writer
	if w.entry != 0 {
		return nil
	}
	if err := h.media.Validate(); err != nil {
		return newErr("ensureSegmentOpen", DomainArguments, KindConflictingValue, err)
	}
	if h.media.ChunkSize() == 0 {
		return newErr("ensureSegmentOpen", DomainArguments, KindValueMissing, fmt.Errorf("bytes-per-sector/sectors-per-chunk must be set before the first write"))
	}
	h.media.lockChunkSize()

	zt, err := chunkcodec.ZeroTemplate(h.adapter, int(h.media.ChunkSize()), h.level)
	if err != nil {
		return newErr("ensureSegmentOpen", DomainCompression, KindGeneric, err)
	}
	w.zeroTemplate = &zt
	w.budget = &segment.Budget{
		ChunkSize:             h.media.ChunkSize(),
		RestrictOffsetTable:   h.format.restrictsOffsetTable(),
		MaxChunksPerSection:   table.MaxChunksPerSection,
		CompressedChunkBudget: h.format.usesCompressedChunkBudget(),
		NumberOfChunks:        uint64(h.media.NumberOfChunks),
		MediaSize:             h.media.MediaSize,
	}
	return h.openNewSegment()
}

func (h *Handle) openNewSegment() error {
	w := h.writer
	w.segmentNumber++
	filename, err := SegmentFilename(w.basePath, h.format, false, false, w.segmentNumber)
	if err != nil {
		return newErr("openNewSegment", DomainArguments, KindValueExceedsMaximum, err)
	}
	entry := h.pool.Append(filename, iopool.ModeCreate)
	w.entry = entry

	sig := segment.SignatureEWF
	if h.format == FormatLogical {
		sig = segment.SignatureLVF
	}
	if err := segment.WriteFileHeader(poolWriterAt{h, entry}, sig, uint16(w.segmentNumber)); err != nil {
		return newErr("openNewSegment", DomainIO, KindWriteFailed, err)
	}
	w.cursor = segment.FileHeaderSize

	for _, pair := range [...]struct {
		typ   string
		build func() ([]byte, error)
	}{
		{section.TypeHeader, func() ([]byte, error) { return EncodeHeader(h.headers) }},
		{section.TypeHeader2, func() ([]byte, error) { return EncodeHeader2(h.headers) }},
		{section.TypeXHeader, func() ([]byte, error) { return EncodeXHeader(h.headers) }},
	} {
		payload, err := pair.build()
		if err != nil {
			return newErr("openNewSegment", DomainCompression, KindGeneric, err)
		}
		if err := h.writeFramedSection(pair.typ, payload); err != nil {
			return err
		}
	}

	volumeType := section.TypeVolume
	switch {
	case h.format == FormatSMART:
		volumeType = section.TypeDisk
	case h.format == FormatEnCase6 || h.format == FormatEnCase7 || h.format == FormatEWFX:
		volumeType = section.TypeData
	}
	if err := h.writeFramedSection(volumeType, EncodeVolume(&h.media)); err != nil {
		return err
	}

	w.budget.ResetForSegment(w.maxSegmentSize-w.cursor, w.cursor)
	w.sectorsOffset = -1
	return nil
}

func (h *Handle) rolloverSegment() error {
	w := h.writer
	if w.sectorsOffset >= 0 {
		if err := h.closeChunksSection(); err != nil {
			return err
		}
	}
	if err := h.writeFramedSection(section.TypeNext, nil); err != nil {
		return err
	}
	return h.openNewSegment()
}

func (h *Handle) openChunksSection() error {
	w := h.writer
	w.sectorsOffset = w.cursor
	w.sectorsPayload = w.cursor + section.HeaderSize
	w.offsets = w.offsets[:0]
	// Placeholder descriptor; patched by closeChunksSection once the
	// payload size is known.
	if err := section.Write(poolWriterAt{h, w.entry}, w.sectorsOffset, section.TypeSectors, 0, 0); err != nil {
		return newErr("openChunksSection", DomainIO, KindWriteFailed, err)
	}
	w.cursor = w.sectorsPayload
	w.budget.OpenSection(w.sectorsOffset)
	return nil
}

func (h *Handle) closeChunksSection() error {
	w := h.writer
	if w.sectorsOffset < 0 {
		return nil
	}
	sectorsSize := uint64(w.cursor - w.sectorsOffset)
	tableOffset := w.cursor
	if err := section.Write(poolWriterAt{h, w.entry}, w.sectorsOffset, section.TypeSectors, uint64(tableOffset), sectorsSize); err != nil {
		return newErr("closeChunksSection", DomainIO, KindWriteFailed, err)
	}

	payload := table.Encode(uint64(w.sectorsPayload), w.offsets)
	if err := h.writeFramedSection(section.TypeTable, payload); err != nil {
		return err
	}
	if err := h.writeFramedSection(section.TypeTable2, payload); err != nil {
		return err
	}

	w.budget.CloseSection()
	w.sectorsOffset = -1
	return nil
}

// writeFramedSection writes one section descriptor at the current
// cursor, with payload immediately following, and advances the cursor
// past both.
func (h *Handle) writeFramedSection(typeName string, payload []byte) error {
	w := h.writer
	off := w.cursor
	payloadOff := off + section.HeaderSize
	if len(payload) > 0 {
		if _, err := h.pool.WriteAt(w.entry, payload, payloadOff); err != nil {
			return newErr("writeFramedSection", DomainIO, KindWriteFailed, err)
		}
	}
	size := uint64(section.HeaderSize + len(payload))
	next := off + int64(size)
	if typeName == section.TypeNext || typeName == section.TypeDone {
		next = off // terminal sections point at themselves
	}
	if err := section.Write(poolWriterAt{h, w.entry}, off, typeName, uint64(next), size); err != nil {
		return newErr("writeFramedSection", DomainIO, KindWriteFailed, err)
	}
	w.cursor = off + int64(size)
	return nil
}

// WriteFinalize flushes any pending partial chunk, closes the open
// chunks-section, writes the digest/hash/session/error2 metadata tail,
// and terminates the image with a `done` section.
func (h *Handle) WriteFinalize() error {
	if h.mode != ModeWrite {
		return newErr("WriteFinalize", DomainRuntime, KindInvalidResource, nil)
	}
	w := h.writer
	if w.finalized {
		return nil
	}
	if w.isDeltaAuthor {
		if err := h.writeFramedSection(section.TypeDone, nil); err != nil {
			return err
		}
		w.finalized = true
		return nil
	}

	if len(w.chunkBuffer) > 0 {
		if err := h.writeSequentialChunk(w.chunkBuffer); err != nil {
			return err
		}
		w.chunkBuffer = nil
	}
	if err := h.ensureSegmentOpen(); err != nil {
		return err
	}
	if w.sectorsOffset >= 0 {
		if err := h.closeChunksSection(); err != nil {
			return err
		}
	}

	if len(h.hashes.Keys()) > 0 {
		if err := h.writeFramedSection(section.TypeDigest, EncodeDigest(h.hashes)); err != nil {
			return err
		}
	}
	if err := h.writeFramedSection(section.TypeSession, EncodeSession(h.acquisition.Sessions)); err != nil {
		return err
	}
	if err := h.writeFramedSection(section.TypeError2, EncodeError2(h.acquisition.AcquisitionErrors)); err != nil {
		return err
	}
	if err := h.writeFramedSection(section.TypeHash, EncodeHash(h.hashes)); err != nil {
		return err
	}
	if h.ltree != nil {
		payload, err := EncodeLtree(h.ltree)
		if err != nil {
			return newErr("WriteFinalize", DomainCompression, KindGeneric, err)
		}
		if err := h.writeFramedSection(section.TypeLtree, payload); err != nil {
			return err
		}
	}
	if err := h.writeFramedSection(section.TypeDone, nil); err != nil {
		return err
	}
	w.finalized = true
	return nil
}
