package ewf

import (
	"fmt"
	"strconv"
	"strings"
)

// LogicalFileEntry is one node of the Logical File Tree, used by the
// Logical Evidence (L01) format's in-image file listing.
type LogicalFileEntry struct {
	Name                     string
	Type                     uint8
	Flags                    uint32
	Size                     uint64
	CreationTime             uint32 // POSIX time
	AccessTime               uint32
	ModificationTime         uint32
	EntryModificationTime    uint32
	MD5                      [16]byte
	MediaDataOffset          uint64
	MediaDataSize            uint64
	DuplicateMediaDataOffset uint64

	Children []*LogicalFileEntry
}

// LogicalFileEntry.Type values.
const (
	LogicalEntryTypeFile uint8 = iota
	LogicalEntryTypeDirectory
)

// LogicalFileTree owns every LogicalFileEntry decoded from an `ltree`
// section; it is destroyed with its owning Handle.
type LogicalFileTree struct {
	Root *LogicalFileEntry
}

// DecodeLtree parses an `ltree` section payload (zlib-compressed text,
// matching the `header`/`xheader` compression convention) into a
// LogicalFileTree. Each line is one entry:
// "parent_index\tname\ttype\tflags\tsize\tctime\tatime\tmtime\tetime\tmd5_hex\tmedia_offset\tmedia_size\tdup_offset",
// with parent_index -1 marking the root and every other entry naming
// the 0-based line number of its parent (lines are written in
// pre-order, so a parent always precedes its children).
func DecodeLtree(payload []byte) (*LogicalFileTree, error) {
	text, err := inflateText(payload)
	if err != nil {
		return nil, fmt.Errorf("ewf: decode ltree: %w", err)
	}

	var entries []*LogicalFileEntry
	var parents []int
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 13 {
			return nil, fmt.Errorf("ewf: decode ltree: malformed line %q", line)
		}
		parentIdx, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("ewf: decode ltree: bad parent index: %w", err)
		}
		e := &LogicalFileEntry{Name: fields[1]}
		if v, err := strconv.ParseUint(fields[2], 10, 8); err == nil {
			e.Type = uint8(v)
		}
		if v, err := strconv.ParseUint(fields[3], 10, 32); err == nil {
			e.Flags = uint32(v)
		}
		if v, err := strconv.ParseUint(fields[4], 10, 64); err == nil {
			e.Size = v
		}
		if v, err := strconv.ParseUint(fields[5], 10, 32); err == nil {
			e.CreationTime = uint32(v)
		}
		if v, err := strconv.ParseUint(fields[6], 10, 32); err == nil {
			e.AccessTime = uint32(v)
		}
		if v, err := strconv.ParseUint(fields[7], 10, 32); err == nil {
			e.ModificationTime = uint32(v)
		}
		if v, err := strconv.ParseUint(fields[8], 10, 32); err == nil {
			e.EntryModificationTime = uint32(v)
		}
		if md5 := mustHexDecode(fields[9]); len(md5) == 16 {
			copy(e.MD5[:], md5)
		}
		if v, err := strconv.ParseUint(fields[10], 10, 64); err == nil {
			e.MediaDataOffset = v
		}
		if v, err := strconv.ParseUint(fields[11], 10, 64); err == nil {
			e.MediaDataSize = v
		}
		if v, err := strconv.ParseUint(fields[12], 10, 64); err == nil {
			e.DuplicateMediaDataOffset = v
		}

		entries = append(entries, e)
		parents = append(parents, parentIdx)
	}

	tree := &LogicalFileTree{}
	for i, e := range entries {
		if parents[i] < 0 {
			if tree.Root != nil {
				return nil, fmt.Errorf("ewf: decode ltree: multiple root entries")
			}
			tree.Root = e
			continue
		}
		if parents[i] >= i || parents[i] >= len(entries) {
			return nil, fmt.Errorf("ewf: decode ltree: entry %d has invalid parent %d", i, parents[i])
		}
		entries[parents[i]].Children = append(entries[parents[i]].Children, e)
	}
	if tree.Root == nil && len(entries) > 0 {
		return nil, fmt.Errorf("ewf: decode ltree: no root entry")
	}
	return tree, nil
}

// EncodeLtree serialises tree into an `ltree` section payload in the
// pre-order line format DecodeLtree reads back.
func EncodeLtree(tree *LogicalFileTree) ([]byte, error) {
	var b strings.Builder
	if tree.Root != nil {
		n := 0
		writeLtreeEntry(&b, tree.Root, -1, &n)
	}
	return deflate([]byte(b.String()))
}

func writeLtreeEntry(b *strings.Builder, e *LogicalFileEntry, parentIdx int, n *int) int {
	idx := *n
	*n++
	fmt.Fprintf(b, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%x\t%d\t%d\t%d\n",
		parentIdx, e.Name, e.Type, e.Flags, e.Size,
		e.CreationTime, e.AccessTime, e.ModificationTime, e.EntryModificationTime,
		e.MD5[:], e.MediaDataOffset, e.MediaDataSize, e.DuplicateMediaDataOffset)
	for _, child := range e.Children {
		writeLtreeEntry(b, child, idx, n)
	}
	return idx
}

// Walk visits every entry in the tree in pre-order.
func (t *LogicalFileTree) Walk(visit func(e *LogicalFileEntry, depth int)) {
	if t.Root == nil {
		return
	}
	var walk func(e *LogicalFileEntry, depth int)
	walk = func(e *LogicalFileEntry, depth int) {
		visit(e, depth)
		for _, c := range e.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
}
