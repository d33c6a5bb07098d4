// Package ewf implements the Expert Witness Compression Format (EWF)
// and its CUE/TOC sibling ODRAW: segmented, chunked, checksummed
// forensic disk images, addressed through a single Handle facade.
package ewf

import (
	"fmt"
	"sync/atomic"

	"github.com/forensicgo/goewf/internal/compressadapter"
	"github.com/forensicgo/goewf/internal/delta"
	"github.com/forensicgo/goewf/internal/iopool"
	"github.com/forensicgo/goewf/internal/section"
	"github.com/forensicgo/goewf/internal/segment"
	"github.com/forensicgo/goewf/internal/table"
)

// Mode is the access mode a Handle was opened under.
type Mode int

const (
	ModeClosed Mode = iota
	ModeRead
	ModeWrite
)

// Handle is the facade every other package in this module is built to
// be driven through: it owns the File I/O Pool, the
// Chunk Table Index and Cache, the Read/Write-IO Coordinators, and the
// metadata stores (header, hash, acquisition, logical file tree) for
// one open image.
//
// A Handle is not safe for concurrent use: access is single-threaded
// cooperative per handle. Two Handles opened on
// disjoint files are independent; Clone gives a caller a second,
// independent Handle over the same backing files when that is needed.
type Handle struct {
	mode   Mode
	format Format
	delta  bool

	pool         *iopool.Pool
	entries      []iopool.Entry
	segments     []*segment.Segment
	deltaEntries []iopool.Entry

	index *table.Index
	cache *table.Cache

	adapter compressadapter.Adapter
	level   compressadapter.Level

	reader *segment.Reader
	writer *writeState

	media       MediaValues
	headers     *HeaderValues
	hashes      *HashValues
	acquisition *AcquisitionMetadata
	ltree       *LogicalFileTree

	logger  Logger
	abort   atomic.Bool
	zeroOnChecksumError bool

	paths      []string
	deltaPaths []string
}

// Option configures Open/Create.
type Option func(*handleConfig)

type handleConfig struct {
	maxOpenFiles        int
	cacheCapacity       int
	adapter             compressadapter.Adapter
	level               compressadapter.Level
	logger              Logger
	zeroOnChecksumError bool
	format              Format
	maxSegmentSize      int64
}

func defaultConfig() handleConfig {
	return handleConfig{
		maxOpenFiles:        64,
		cacheCapacity:       table.DefaultCacheCapacity,
		adapter:             compressadapter.StdZlib{},
		level:               compressadapter.LevelGood,
		logger:              nopLogger{},
		zeroOnChecksumError: true,
		format:              FormatEnCase6,
		maxSegmentSize:      DefaultMaxSegmentSize,
	}
}

// WithMaxOpenFiles bounds the File I/O Pool's concurrently open
// descriptors.
func WithMaxOpenFiles(n int) Option {
	return func(c *handleConfig) { c.maxOpenFiles = n }
}

// WithCacheCapacity bounds the Chunk Cache's resident decompressed
// chunks.
func WithCacheCapacity(n int) Option {
	return func(c *handleConfig) { c.cacheCapacity = n }
}

// WithCompressionAdapter selects the Chunk Codec's compression
// capability; the default is compressadapter.StdZlib{}.
func WithCompressionAdapter(a compressadapter.Adapter) Option {
	return func(c *handleConfig) { c.adapter = a }
}

// WithCompressionLevel sets the level new chunks are compressed at
// (compression_level). Has no effect on an opened read handle.
func WithCompressionLevel(l compressadapter.Level) Option {
	return func(c *handleConfig) { c.level = l }
}

// WithLogger installs the sink for non-fatal diagnostics (table/table2
// recovery, header sections that fail to decode and are skipped).
func WithLogger(l Logger) Option {
	return func(c *handleConfig) { c.logger = l }
}

// WithZeroOnChecksumError controls whether a chunk whose trailing
// checksum fails verification is served as all-zero bytes (true,
// default) or returned alongside the checksum error (false).
func WithZeroOnChecksumError(zero bool) Option {
	return func(c *handleConfig) { c.zeroOnChecksumError = zero }
}

// WithFormat selects the on-disk variant for Create; ignored by Open,
// which infers the format from the segment files themselves.
func WithFormat(f Format) Option {
	return func(c *handleConfig) { c.format = f }
}

// Open opens an existing EWF/DWF/LWF image from its segment files, in
// segment order. Use Glob to discover the full segment set from the
// first segment's path.
func Open(paths []string, opts ...Option) (*Handle, error) {
	return openHandle(paths, nil, opts...)
}

// OpenWithDelta opens an image together with one or more delta overlay
// (DWF/.d01) files, whose chunks take precedence over the base image's
// own.
func OpenWithDelta(paths, deltaPaths []string, opts ...Option) (*Handle, error) {
	return openHandle(paths, deltaPaths, opts...)
}

func openHandle(paths, deltaPaths []string, opts ...Option) (*Handle, error) {
	if len(paths) == 0 {
		return nil, newErr("Open", DomainArguments, KindValueMissing, nil)
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &Handle{
		mode:                ModeRead,
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
		paths:               append([]string(nil), paths...),
		deltaPaths:          append([]string(nil), deltaPaths...),
	}

	for i, p := range paths {
		h.entries = append(h.entries, h.pool.Append(p, iopool.ModeRead))
		seg, err := segment.Open(h.pool, h.entries[i], uint16(i+1))
		if err != nil {
			return nil, newErrParam("Open", DomainIO, KindOpenFailed, p, err)
		}
		h.segments = append(h.segments, seg)
	}

	switch h.segments[0].Header.Signature {
	case segment.SignatureLVF:
		h.format = FormatLogical
	default:
		h.format = cfg.format
	}

	if err := h.loadHeaderValues(); err != nil {
		return nil, err
	}
	if err := h.loadMediaValues(); err != nil {
		return nil, err
	}
	if err := h.loadChunkTable(); err != nil {
		return nil, err
	}
	if err := h.loadTailMetadata(); err != nil {
		return nil, err
	}

	h.reader = segment.NewReader(h.pool, h.index, h.cache, h.adapter, h.media.ChunkSize(), h.media.MediaSize)
	h.reader.ZeroOnChecksumError = h.zeroOnChecksumError
	h.reader.OnChecksumError = h.recordChunkChecksumError

	if len(deltaPaths) > 0 {
		if err := h.loadDelta(deltaPaths); err != nil {
			return nil, err
		}
	}

	return h, nil
}

func (h *Handle) loadDelta(deltaPaths []string) error {
	h.delta = true
	overlay := delta.NewOverlay()
	for _, p := range deltaPaths {
		entry := h.pool.Append(p, iopool.ModeReadWrite)
		h.deltaEntries = append(h.deltaEntries, entry)
		f, err := h.pool.Open(entry)
		if err != nil {
			return newErrParam("OpenWithDelta", DomainIO, KindOpenFailed, p, err)
		}
		if _, err := segment.ReadFileHeader(f); err != nil {
			return newErrParam("OpenWithDelta", DomainIO, KindOpenFailed, p, err)
		}
		if err := delta.ScanSegment(f, int32(entry), segment.FileHeaderSize, overlay); err != nil {
			return newErrParam("OpenWithDelta", DomainIO, KindReadFailed, p, err)
		}
	}
	overlay.Range(func(chunkIndex uint32, e delta.Entry) {
		h.index.SetDelta(uint64(chunkIndex), table.Descriptor{
			FileIOEntry: e.SegmentEntry,
			FileOffset:  e.DataOffset,
			SizeOnDisk:  e.Size,
			Flags:       table.FlagDelta,
		})
	})
	return nil
}

// loadHeaderValues decodes the header-group sections of the first
// segment, merging
// with xheader taking precedence over header2 over header — each later
// variant in the legacy acquisition chain is a superset of the
// previous one.
func (h *Handle) loadHeaderValues() error {
	seg := h.segments[0]
	f, err := h.pool.Open(seg.Entry)
	if err != nil {
		return newErr("Open", DomainIO, KindOpenFailed, err)
	}
	for _, hdr := range seg.HeaderGroup() {
		payload := make([]byte, hdr.PayloadSize())
		if _, err := f.ReadAt(payload, int64(hdr.PayloadOffset())); err != nil {
			return newErr("Open", DomainIO, KindReadFailed, err)
		}
		var hv *HeaderValues
		var decodeErr error
		switch hdr.Type {
		case section.TypeHeader:
			hv, decodeErr = DecodeHeader(payload)
		case section.TypeHeader2:
			hv, decodeErr = DecodeHeader2(payload)
		case section.TypeXHeader:
			hv, decodeErr = DecodeXHeader(payload)
		}
		if decodeErr != nil {
			h.logger.Printf("open: skipping unreadable %s section: %v", hdr.Type, decodeErr)
			continue
		}
		for _, k := range hv.Keys() {
			v, _ := hv.Get(k)
			h.headers.Set(k, v)
		}
	}
	return nil
}

// loadMediaValues decodes the first volume/disk/data section found
// across the segment set: present once, in the first segment for
// every format this library writes.
func (h *Handle) loadMediaValues() error {
	for _, seg := range h.segments {
		f, err := h.pool.Open(seg.Entry)
		if err != nil {
			return newErr("Open", DomainIO, KindOpenFailed, err)
		}
		for _, hdr := range seg.Sections {
			switch hdr.Type {
			case section.TypeVolume, section.TypeDisk, section.TypeData:
				payload := make([]byte, hdr.PayloadSize())
				if _, err := f.ReadAt(payload, int64(hdr.PayloadOffset())); err != nil {
					return newErr("Open", DomainIO, KindReadFailed, err)
				}
				m, err := DecodeVolume(payload)
				if err != nil {
					return newErr("Open", DomainInput, KindInvalidValue, err)
				}
				h.media = m
				h.media.lockChunkSize()
				return nil
			}
		}
	}
	return newErr("Open", DomainInput, KindValueMissing, fmt.Errorf("no volume/disk/data section found"))
}

// loadChunkTable walks every segment's chunks-sections in order,
// reconciling table/table2 and appending the result to the Chunk Table
// Index.
func (h *Handle) loadChunkTable() error {
	for _, seg := range h.segments {
		f, err := h.pool.Open(seg.Entry)
		if err != nil {
			return newErr("Open", DomainIO, KindOpenFailed, err)
		}
		for _, group := range seg.ChunksSections() {
			if group.Table == nil && group.Table2 == nil {
				continue // unfinished tail, handled by the resume path, not plain Open
			}
			var t, t2 table.Raw
			if group.Table != nil {
				payload := make([]byte, group.Table.PayloadSize())
				if _, err := f.ReadAt(payload, int64(group.Table.PayloadOffset())); err != nil {
					return newErr("Open", DomainIO, KindReadFailed, err)
				}
				t, err = table.ParseRaw(payload)
				if err != nil {
					return newErr("Open", DomainInput, KindInvalidValue, err)
				}
			}
			if group.Table2 != nil {
				payload := make([]byte, group.Table2.PayloadSize())
				if _, err := f.ReadAt(payload, int64(group.Table2.PayloadOffset())); err != nil {
					return newErr("Open", DomainIO, KindReadFailed, err)
				}
				t2, err = table.ParseRaw(payload)
				if err != nil {
					return newErr("Open", DomainInput, KindInvalidValue, err)
				}
			}

			var chosen table.Raw
			var ok bool
			switch {
			case group.Table != nil && group.Table2 != nil:
				chosen, ok = table.Reconcile(t, t2)
			case group.Table2 != nil:
				chosen, ok = t2, t2.HeaderValid && t2.DataValid
			default:
				chosen, ok = t, t.HeaderValid && t.DataValid
			}
			if !ok {
				h.logger.Printf("open: segment %d: table/table2 both failed validation, using tentative sizing", seg.Number)
				chosen = t
				if group.Table2 != nil {
					chosen = t2
				}
			}

			descs := chosen.ToDescriptors(int32(seg.Entry), group.Sectors.PayloadSize())
			if !ok {
				for i := range descs {
					descs[i].Flags |= table.FlagTentative
				}
			}
			h.index.AppendSegment(descs)
		}
	}
	return nil
}

// loadTailMetadata decodes digest/hash/session/error2/ltree sections,
// which the acquisition tools place near the end of the last segment.
func (h *Handle) loadTailMetadata() error {
	seg := h.segments[len(h.segments)-1]
	f, err := h.pool.Open(seg.Entry)
	if err != nil {
		return newErr("Open", DomainIO, KindOpenFailed, err)
	}
	for _, hdr := range seg.Sections {
		payload := func() ([]byte, error) {
			buf := make([]byte, hdr.PayloadSize())
			_, err := f.ReadAt(buf, int64(hdr.PayloadOffset()))
			return buf, err
		}
		switch hdr.Type {
		case section.TypeDigest:
			buf, err := payload()
			if err != nil {
				return newErr("Open", DomainIO, KindReadFailed, err)
			}
			hv, err := DecodeDigest(buf)
			if err == nil {
				for _, k := range hv.Keys() {
					v, _ := hv.Get(k)
					h.hashes.Set(k, v)
				}
			}
		case section.TypeHash:
			buf, err := payload()
			if err != nil {
				return newErr("Open", DomainIO, KindReadFailed, err)
			}
			hv, err := DecodeHash(buf)
			if err == nil {
				for _, k := range hv.Keys() {
					v, _ := hv.Get(k)
					h.hashes.Set(k, v)
				}
			}
		case section.TypeSession:
			buf, err := payload()
			if err != nil {
				return newErr("Open", DomainIO, KindReadFailed, err)
			}
			sessions, err := DecodeSession(buf)
			if err == nil {
				h.acquisition.Sessions = sessions
			}
		case section.TypeError2:
			buf, err := payload()
			if err != nil {
				return newErr("Open", DomainIO, KindReadFailed, err)
			}
			errs, err := DecodeError2(buf)
			if err == nil {
				h.acquisition.AcquisitionErrors = errs
			}
		case section.TypeLtree:
			buf, err := payload()
			if err != nil {
				return newErr("Open", DomainIO, KindReadFailed, err)
			}
			tree, err := DecodeLtree(buf)
			if err == nil {
				h.ltree = tree
			}
		}
	}
	return nil
}

// Close releases every open backing file. A closed Handle must not be
// used again.
func (h *Handle) Close() error {
	if h.mode == ModeClosed {
		return nil
	}
	h.mode = ModeClosed
	return h.pool.CloseAll()
}

// Clone opens a brand new, independent Handle over the same backing
// paths. The two Handles share no mutable state: each gets its own
// File I/O Pool, Chunk Table Index, and Chunk Cache.
func (h *Handle) Clone() (*Handle, error) {
	cfg := []Option{
		WithCompressionAdapter(h.adapter),
		WithCompressionLevel(h.level),
		WithLogger(h.logger),
		WithZeroOnChecksumError(h.zeroOnChecksumError),
		WithFormat(h.format),
	}
	if h.delta {
		return OpenWithDelta(h.paths, h.deltaPaths, cfg...)
	}
	return Open(h.paths, cfg...)
}

// SignalAbort requests that any in-progress long-running operation
// (a multi-chunk read or write loop) stop at the next chunk boundary.
// It is the one Handle method safe to call from a different goroutine
// than the one driving the Handle.
func (h *Handle) SignalAbort() { h.abort.Store(true) }

// Aborted reports whether SignalAbort has been called and not yet
// cleared by ResetAbort.
func (h *Handle) Aborted() bool { return h.abort.Load() }

// ResetAbort clears a prior SignalAbort, allowing the Handle to be
// reused for further operations.
func (h *Handle) ResetAbort() { h.abort.Store(false) }

func (h *Handle) checkAbort(op string) error {
	if h.abort.Load() {
		return newErr(op, DomainRuntime, KindAborted, nil)
	}
	return nil
}

// Format returns the on-disk variant this Handle was opened as (or
// will create).
func (h *Handle) Format() Format { return h.format }

// Mode returns whether the Handle is open for read or write, or closed.
func (h *Handle) Mode() Mode { return h.mode }
