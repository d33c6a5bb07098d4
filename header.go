package ewf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Canonical Header Value keys.
const (
	HeaderCaseNumber       = "case_number"
	HeaderDescription      = "description"
	HeaderExaminerName     = "examiner_name"
	HeaderEvidenceNumber   = "evidence_number"
	HeaderNotes            = "notes"
	HeaderAcquiryDate      = "acquiry_date"
	HeaderSystemDate       = "system_date"
	HeaderAcquiryOS        = "acquiry_operating_system"
	HeaderAcquirySoftware  = "acquiry_software_version"
	HeaderPassword         = "password"
	HeaderCompressionLevel = "compression_level"
	HeaderModel            = "model"
	HeaderSerialNumber     = "serial_number"
)

// legacyTag maps the single-letter tab-separated tags the original
// EWF header text uses to their canonical HeaderValues keys.
var legacyTag = map[string]string{
	"c": HeaderCaseNumber, "n": HeaderEvidenceNumber, "a": HeaderDescription,
	"e": HeaderExaminerName, "t": HeaderNotes, "av": HeaderAcquirySoftware,
	"ov": HeaderAcquiryOS, "m": HeaderAcquiryDate, "u": HeaderSystemDate,
	"p": HeaderPassword, "r": HeaderCompressionLevel,
	"dc": HeaderModel, "sn": HeaderSerialNumber,
}

var canonicalToTag = func() map[string]string {
	m := make(map[string]string, len(legacyTag))
	for tag, canonical := range legacyTag {
		if _, exists := m[canonical]; !exists {
			m[canonical] = tag
		}
	}
	return m
}()

// HeaderDateLayout is the acquiry/system date serialisation this
// library writes: EnCase's "M/D/Y H:M:S" is the one this package
// emits, and the only one AcquiryDate parses.
const HeaderDateLayout = "1/2/2006 15:4:5"

// HeaderValues is an ordered string→string map. Insertion order is
// preserved on both decode and encode so a round-tripped header blob
// stays byte-for-byte comparable where the source format allows.
type HeaderValues struct {
	order []string
	m     map[string]string
}

// NewHeaderValues creates an empty, ordered Header Value Store.
func NewHeaderValues() *HeaderValues {
	return &HeaderValues{m: make(map[string]string)}
}

// Get returns (value, true) if key is set.
func (h *HeaderValues) Get(key string) (string, bool) {
	v, ok := h.m[key]
	return v, ok
}

// Set installs key=value, appending key to the iteration order the
// first time it is set.
func (h *HeaderValues) Set(key, value string) {
	if _, exists := h.m[key]; !exists {
		h.order = append(h.order, key)
	}
	h.m[key] = value
}

// Keys returns the keys in insertion order.
func (h *HeaderValues) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// AcquiryDate parses HeaderAcquiryDate using HeaderDateLayout.
func (h *HeaderValues) AcquiryDate() (time.Time, error) {
	v, ok := h.Get(HeaderAcquiryDate)
	if !ok {
		return time.Time{}, newErr("HeaderValues.AcquiryDate", DomainInput, KindValueMissing, nil)
	}
	t, err := time.Parse(HeaderDateLayout, v)
	if err != nil {
		return time.Time{}, newErr("HeaderValues.AcquiryDate", DomainConversion, KindInvalidValue, err)
	}
	return t, nil
}

// SetAcquiryDate serialises t with HeaderDateLayout into HeaderAcquiryDate.
func (h *HeaderValues) SetAcquiryDate(t time.Time) {
	h.Set(HeaderAcquiryDate, t.Format(HeaderDateLayout))
}

// encodeLegacy renders h as the tab-separated "tag\tvalue" lines the
// `header`/`header2` text payload carries, one line per
// key that has a known legacy tag; unrecognised keys (as would appear
// only in `xheader`, which instead uses an XML-ish key/value form) are
// skipped.
func (h *HeaderValues) encodeLegacy() string {
	var b strings.Builder
	b.WriteString("1\n")
	for _, key := range h.order {
		tag, ok := canonicalToTag[key]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s\t%s\n", tag, h.m[key])
	}
	return b.String()
}

// decodeLegacy parses the tab-separated "tag\tvalue" body text shared
// by `header` and `header2` payloads.
func decodeLegacy(text string) *HeaderValues {
	hv := NewHeaderValues()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			continue
		}
		tag := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if canonical, ok := legacyTag[tag]; ok {
			hv.Set(canonical, value)
		}
	}
	return hv
}

// DecodeHeader decompresses and parses a `header` section payload
// (ASCII/codepage text).
func DecodeHeader(payload []byte) (*HeaderValues, error) {
	text, err := inflateText(payload)
	if err != nil {
		return nil, fmt.Errorf("ewf: decode header: %w", err)
	}
	return decodeLegacy(text), nil
}

// DecodeHeader2 decompresses and parses a `header2` section payload
// (UTF-16LE with BOM).
func DecodeHeader2(payload []byte) (*HeaderValues, error) {
	raw, err := inflate(payload)
	if err != nil {
		return nil, fmt.Errorf("ewf: decode header2: %w", err)
	}
	text, err := decodeUTF16(raw)
	if err != nil {
		return nil, fmt.Errorf("ewf: decode header2: %w", err)
	}
	return decodeLegacy(text), nil
}

// DecodeXHeader decompresses and parses an `xheader` section payload
// (UTF-8 XML-ish key/value text).
func DecodeXHeader(payload []byte) (*HeaderValues, error) {
	text, err := inflateText(payload)
	if err != nil {
		return nil, fmt.Errorf("ewf: decode xheader: %w", err)
	}
	hv := NewHeaderValues()
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "<") {
			continue
		}
		key, value, ok := parseXHeaderLine(line)
		if ok {
			hv.Set(key, value)
		}
	}
	return hv, nil
}

// parseXHeaderLine extracts key/value from a "<key>value</key>" line.
func parseXHeaderLine(line string) (key, value string, ok bool) {
	if !strings.HasPrefix(line, "<") {
		return "", "", false
	}
	end := strings.Index(line, ">")
	if end < 0 {
		return "", "", false
	}
	key = line[1:end]
	rest := line[end+1:]
	closeTag := "</" + key + ">"
	idx := strings.Index(rest, closeTag)
	if idx < 0 {
		return "", "", false
	}
	return key, rest[:idx], true
}

// EncodeHeader compresses h into a `header` section payload.
func EncodeHeader(h *HeaderValues) ([]byte, error) {
	return deflate([]byte(h.encodeLegacy()))
}

// EncodeHeader2 compresses h into a `header2` section payload,
// prefixing the UTF-16LE byte-order mark.
func EncodeHeader2(h *HeaderValues) ([]byte, error) {
	encoder := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	utf16le, _, err := transform.String(encoder, h.encodeLegacy())
	if err != nil {
		return nil, fmt.Errorf("ewf: encode header2: %w", err)
	}
	return deflate([]byte(utf16le))
}

// EncodeXHeader compresses h into an `xheader` section payload.
func EncodeXHeader(h *HeaderValues) ([]byte, error) {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<xheader>\n")
	for _, key := range h.order {
		fmt.Fprintf(&b, "\t<%s>%s</%s>\n", key, h.m[key], key)
	}
	b.WriteString("</xheader>\n")
	return deflate([]byte(b.String()))
}

func inflate(payload []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	defer r.Close()
	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return out.Bytes(), nil
}

func inflateText(payload []byte) (string, error) {
	raw, err := inflate(payload)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func deflate(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, fmt.Errorf("zlib: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeUTF16 decodes a BOM-prefixed UTF-16 byte slice to UTF-8,
// matching the header2 decoding idiom used throughout this library.
func decodeUTF16(raw []byte) (string, error) {
	if len(raw) < 2 {
		return "", fmt.Errorf("too short for a BOM")
	}
	var bo unicode.Endianness
	switch {
	case raw[0] == 0xff && raw[1] == 0xfe:
		bo = unicode.LittleEndian
	case raw[0] == 0xfe && raw[1] == 0xff:
		bo = unicode.BigEndian
	default:
		bo = unicode.LittleEndian
	}
	decoder := unicode.UTF16(bo, unicode.ExpectBOM).NewDecoder()
	out, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
