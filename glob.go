package ewf

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/forensicgo/goewf/internal/segment"
)

// MaxSegments is the hard cap on the number of segment files one image
// may use.
const MaxSegments = segment.MaxSegments

// startLetter returns the segment-extension leading letter for format.
// delta overrides format's own letter since a delta overlay always
// uses the `d01` family regardless of the base image's format.
func startLetter(format Format, delta, lowerCase bool) byte {
	var upper byte
	switch {
	case delta:
		upper = 'D'
	case format == FormatSMART:
		upper = 'S'
	case format == FormatLogical:
		upper = 'L'
	default:
		upper = 'E'
	}
	if lowerCase {
		return upper - 'A' + 'a'
	}
	return upper
}

// SegmentExtension builds the three-letter extension for segment
// number n (1-based) of an image in the given format.
func SegmentExtension(format Format, delta, lowerCase bool, n int) (string, error) {
	return segment.Extension(startLetter(format, delta, lowerCase), n)
}

// SegmentFilename builds the full segment filename for base (without
// extension) and segment number n.
func SegmentFilename(base string, format Format, delta, lowerCase bool, n int) (string, error) {
	ext, err := SegmentExtension(format, delta, lowerCase, n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", base, ext), nil
}

// Glob finds every segment file belonging to the image named by
// firstSegmentPath (its .E01/.e01/.s01/.L01-style first segment),
// returning the paths in segment order. It stops at the first gap.
func Glob(firstSegmentPath string) ([]string, error) {
	ext := filepath.Ext(firstSegmentPath)
	if len(ext) != 4 {
		return nil, fmt.Errorf("ewf: %q does not look like a segment file (need a 3-letter extension)", firstSegmentPath)
	}
	base := strings.TrimSuffix(firstSegmentPath, ext)
	letter := ext[1]

	lowerCase := letter >= 'a' && letter <= 'z'
	delta := letter == 'd' || letter == 'D'
	var format Format
	switch {
	case letter == 's' || letter == 'S':
		format = FormatSMART
	case letter == 'l' || letter == 'L':
		format = FormatLogical
	default:
		format = FormatEnCase1
	}

	var paths []string
	for n := 1; n <= MaxSegments; n++ {
		name, err := SegmentFilename(base, format, delta, lowerCase, n)
		if err != nil {
			return paths, err
		}
		if n == 1 {
			paths = append(paths, firstSegmentPath)
			continue
		}
		if !fileExists(name) {
			break
		}
		paths = append(paths, name)
	}
	return paths, nil
}
