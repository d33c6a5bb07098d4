package ewf

import (
	"fmt"

	"github.com/forensicgo/goewf/internal/ioutilx"
)

// Canonical Hash Values keys.
const (
	HashMD5  = "MD5"
	HashSHA1 = "SHA1"
)

// HashValues is the ordered map of digest algorithm name to hex digest,
// with canonical keys MD5 and SHA1.
type HashValues struct {
	order []string
	m     map[string]string
}

// NewHashValues creates an empty Hash Value Store.
func NewHashValues() *HashValues {
	return &HashValues{m: make(map[string]string)}
}

func (h *HashValues) Get(key string) (string, bool) {
	v, ok := h.m[key]
	return v, ok
}

func (h *HashValues) Set(key, value string) {
	if _, exists := h.m[key]; !exists {
		h.order = append(h.order, key)
	}
	h.m[key] = value
}

func (h *HashValues) Keys() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

// digestPayloadSize is the fixed `digest` section payload: 16-byte
// MD5 + 20-byte SHA1 + 40 bytes padding + 4-byte checksum.
const digestPayloadSize = 16 + 20 + 40 + 4

// DecodeDigest parses a `digest` section payload into HashValues.
func DecodeDigest(payload []byte) (*HashValues, error) {
	if len(payload) < digestPayloadSize {
		return nil, fmt.Errorf("ewf: digest payload too short (%d bytes)", len(payload))
	}
	checksum := ioutilx.Uint32LE(payload[76:80])
	if !ioutilx.VerifyChecksum(payload[:76], checksum) {
		return nil, fmt.Errorf("ewf: digest checksum mismatch")
	}
	hv := NewHashValues()
	if !isAllZeroBytes(payload[0:16]) {
		hv.Set(HashMD5, ioutilx.HexEncode(payload[0:16]))
	}
	if !isAllZeroBytes(payload[16:36]) {
		hv.Set(HashSHA1, ioutilx.HexEncode(payload[16:36]))
	}
	return hv, nil
}

// EncodeDigest serialises HashValues into a `digest` section payload.
func EncodeDigest(h *HashValues) []byte {
	buf := make([]byte, digestPayloadSize)
	if md5, ok := h.Get(HashMD5); ok {
		copy(buf[0:16], mustHexDecode(md5))
	}
	if sha1, ok := h.Get(HashSHA1); ok {
		copy(buf[16:36], mustHexDecode(sha1))
	}
	checksum := ioutilx.Checksum(buf[:76])
	ioutilx.PutUint32LE(buf[76:80], checksum)
	return buf
}

// DecodeHash parses a `hash` section payload — byte-identical layout
// to `digest`.
func DecodeHash(payload []byte) (*HashValues, error) { return DecodeDigest(payload) }

// EncodeHash serialises HashValues into a `hash` section payload.
func EncodeHash(h *HashValues) []byte { return EncodeDigest(h) }

func isAllZeroBytes(b []byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func mustHexDecode(s string) []byte {
	out := make([]byte, len(s)/2)
	for i := range out {
		var v byte
		fmt.Sscanf(s[i*2:i*2+2], "%02x", &v)
		out[i] = v
	}
	return out
}
