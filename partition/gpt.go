package partition

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// gptHeaderSize is the fixed portion of the GPT header (signature
// through partition-entry CRC32); the remainder of the first GPT
// header sector is reserved and ignored.
const gptHeaderSize = 92

// gptEntrySize is the fixed GPT partition-entry size used by every
// implementation this library has encountered, even though the GPT
// header technically carries its own (variable) entry size field.
const gptEntrySize = 128

// GPTHeader is the decoded fields of the primary GPT header, at LBA 1.
type GPTHeader struct {
	Signature           [8]byte
	Revision            uint32
	HeaderSize          uint32
	CurrentLBA          uint64
	BackupLBA           uint64
	FirstUsableLBA      uint64
	LastUsableLBA       uint64
	DiskGUID            uuid.UUID
	PartitionEntriesLBA uint64
	NumberOfEntries     uint32
	EntrySize           uint32
}

// GPTEntry is one partition entry in the GPT partition array.
type GPTEntry struct {
	TypeGUID      uuid.UUID
	PartitionGUID uuid.UUID
	StartLBA      uint64
	EndLBA        uint64
	Attributes    uint64
	Name          string
}

// GPT is the decoded GPT header plus its non-empty partition entries.
type GPT struct {
	Header   GPTHeader
	Entries  []GPTEntry
}

// ReadGPT decodes the primary GPT header at LBA 1 and its partition
// entry array from r.
func ReadGPT(r io.ReaderAt) (GPT, error) {
	buf := make([]byte, SectorSize)
	if _, err := r.ReadAt(buf, SectorSize); err != nil {
		return GPT{}, fmt.Errorf("partition: read GPT header: %w", err)
	}
	if string(buf[0:8]) != "EFI PART" {
		return GPT{}, fmt.Errorf("partition: bad GPT signature %q", buf[0:8])
	}

	h := GPTHeader{
		Revision:            binary.LittleEndian.Uint32(buf[8:12]),
		HeaderSize:          binary.LittleEndian.Uint32(buf[12:16]),
		CurrentLBA:          binary.LittleEndian.Uint64(buf[24:32]),
		BackupLBA:           binary.LittleEndian.Uint64(buf[32:40]),
		FirstUsableLBA:      binary.LittleEndian.Uint64(buf[40:48]),
		LastUsableLBA:       binary.LittleEndian.Uint64(buf[48:56]),
		PartitionEntriesLBA: binary.LittleEndian.Uint64(buf[72:80]),
		NumberOfEntries:     binary.LittleEndian.Uint32(buf[80:84]),
		EntrySize:           binary.LittleEndian.Uint32(buf[84:88]),
	}
	copy(h.Signature[:], buf[0:8])
	if g, err := uuid.FromBytes(mixedEndianGUID(buf[56:72])); err == nil {
		h.DiskGUID = g
	}

	entrySize := int(h.EntrySize)
	if entrySize <= 0 {
		entrySize = gptEntrySize
	}
	tableBytes := int(h.NumberOfEntries) * entrySize
	table := make([]byte, tableBytes)
	if _, err := r.ReadAt(table, int64(h.PartitionEntriesLBA)*SectorSize); err != nil {
		return GPT{}, fmt.Errorf("partition: read GPT entries: %w", err)
	}

	var entries []GPTEntry
	for i := 0; i < int(h.NumberOfEntries); i++ {
		raw := table[i*entrySize : i*entrySize+entrySize]
		startLBA := binary.LittleEndian.Uint64(raw[32:40])
		endLBA := binary.LittleEndian.Uint64(raw[40:48])
		if startLBA == 0 && endLBA == 0 {
			continue
		}
		e := GPTEntry{
			StartLBA:   startLBA,
			EndLBA:     endLBA,
			Attributes: binary.LittleEndian.Uint64(raw[48:56]),
		}
		if g, err := uuid.FromBytes(mixedEndianGUID(raw[0:16])); err == nil {
			e.TypeGUID = g
		}
		if g, err := uuid.FromBytes(mixedEndianGUID(raw[16:32])); err == nil {
			e.PartitionGUID = g
		}
		e.Name = decodeUTF16LEName(raw[56:128])
		entries = append(entries, e)
	}

	return GPT{Header: h, Entries: entries}, nil
}

// mixedEndianGUID reorders a 16-byte Microsoft-style mixed-endian GUID
// field (first three components little-endian, last two big-endian)
// into the big-endian byte order uuid.FromBytes expects.
func mixedEndianGUID(b []byte) []byte {
	out := make([]byte, 16)
	out[0], out[1], out[2], out[3] = b[3], b[2], b[1], b[0]
	out[4], out[5] = b[5], b[4]
	out[6], out[7] = b[7], b[6]
	copy(out[8:], b[8:16])
	return out
}

// decodeUTF16LEName decodes a NUL-terminated UTF-16LE partition name,
// matching the header-value decoding idiom used for EWF header2 text.
func decodeUTF16LEName(raw []byte) string {
	end := len(raw)
	for i := 0; i+1 < len(raw); i += 2 {
		if raw[i] == 0 && raw[i+1] == 0 {
			end = i
			break
		}
	}
	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(decoder, raw[:end])
	if err != nil {
		return ""
	}
	return string(out)
}
