package cuesheet

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var cdTextFields = map[string]bool{
	"TITLE": true, "PERFORMER": true, "SONGWRITER": true, "COMPOSER": true,
	"ARRANGER": true, "MESSAGE": true, "DISC_ID": true, "GENRE": true,
	"TOC_INFO1": true, "TOC_INFO2": true, "UPC_EAN": true, "ISRC": true,
	"SIZE_INFO": true,
}

// parser holds the semantic-action state the reference grammar threads
// through its actions: the session/track/index monotonic counters and
// the relative-MSF tracking per enclosing FILE.
type parser struct {
	sheet *Sheet

	haveFile      bool
	currentFile   int // index into sheet.Files
	currentTrack  *Track
	lastSession   int
	lastTrack     int
	lastIndex     int
	haveLastIndex bool
	prevFileSector int64
}

// Parse decodes a CUE or TOC descriptor from r. TOC files
// differ only in a slightly richer keyword set, which this parser
// accepts as a superset (unrecognised TOC-only keywords are read and
// ignored rather than rejected, since they carry no semantics this
// library's consumers need).
func Parse(r io.Reader) (*Sheet, error) {
	p := &parser{sheet: &Sheet{CDText: map[string]string{}}, currentFile: -1}

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := tokenizeLine(line)
		if len(fields) == 0 {
			continue
		}
		if err := p.dispatch(fields); err != nil {
			return nil, fmt.Errorf("cuesheet: line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cuesheet: scan: %w", err)
	}
	p.closeTrack()
	return p.sheet, nil
}

func (p *parser) dispatch(fields []string) error {
	kw := strings.ToUpper(fields[0])

	switch kw {
	case "CATALOG":
		if len(fields) < 2 {
			return fmt.Errorf("CATALOG requires an argument")
		}
		p.sheet.Catalog = fields[1]

	case "CDTEXTFILE":
		if len(fields) < 2 {
			return fmt.Errorf("CDTEXTFILE requires a path")
		}
		p.sheet.CDTextFile = fields[1]

	case "FILE":
		if len(fields) < 3 {
			return fmt.Errorf("FILE requires <path> <type>")
		}
		p.closeTrack()
		p.sheet.Files = append(p.sheet.Files, FileRef{Path: fields[1], Type: fields[2]})
		p.currentFile = len(p.sheet.Files) - 1
		p.haveFile = true
		p.prevFileSector = 0

	case "REMARK":
		return p.dispatchRemark(fields[1:])

	case "TRACK":
		return p.dispatchTrack(fields[1:])

	case "ISRC":
		if p.currentTrack == nil || len(fields) < 2 {
			return fmt.Errorf("ISRC outside TRACK")
		}
		p.currentTrack.ISRC = fields[1]

	case "FLAGS":
		if p.currentTrack == nil {
			return fmt.Errorf("FLAGS outside TRACK")
		}
		p.currentTrack.Flags = append(p.currentTrack.Flags, fields[1:]...)

	case "PREGAP":
		if p.currentTrack == nil || len(fields) < 2 {
			return fmt.Errorf("PREGAP outside TRACK")
		}
		msf, err := parseMSF(fields[1])
		if err != nil {
			return err
		}
		p.currentTrack.Pregap = &msf

	case "POSTGAP":
		if p.currentTrack == nil || len(fields) < 2 {
			return fmt.Errorf("POSTGAP outside TRACK")
		}
		msf, err := parseMSF(fields[1])
		if err != nil {
			return err
		}
		p.currentTrack.Postgap = &msf

	case "INDEX":
		return p.dispatchIndex(fields[1:])

	default:
		if cdTextFields[kw] && len(fields) >= 2 {
			value := strings.Join(fields[1:], " ")
			if p.currentTrack != nil {
				if p.currentTrack.CDText == nil {
					p.currentTrack.CDText = map[string]string{}
				}
				p.currentTrack.CDText[kw] = value
			} else {
				p.sheet.CDText[kw] = value
			}
			return nil
		}
		// Unknown/TOC-only keyword: ignore per the superset policy above.
	}
	return nil
}

func (p *parser) dispatchRemark(fields []string) error {
	if len(fields) == 0 {
		return nil
	}
	head := strings.ToUpper(fields[0])
	switch {
	case head == "ORIGINAL" && len(fields) >= 3 && strings.ToUpper(fields[1]) == "MEDIA" && strings.ToUpper(fields[2]) == "TYPE":
		// Carried for completeness; no structural effect on track layout.
		return nil
	case head == "SESSION" && len(fields) >= 2:
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return fmt.Errorf("bad SESSION number %q: %w", fields[1], err)
		}
		if n != p.lastSession+1 {
			return fmt.Errorf("session numbers must increase by 1 from 1 (got %d after %d)", n, p.lastSession)
		}
		p.lastSession = n
		p.sheet.Sessions = append(p.sheet.Sessions, Session{Number: n})
		return nil
	case head == "LEAD-OUT" && len(fields) >= 2:
		msf, err := parseMSF(fields[1])
		if err != nil {
			return err
		}
		p.sheet.LeadOuts = append(p.sheet.LeadOuts, LeadOut{RunOut: false, SectorCount: msf.ToSectors()})
		return nil
	case head == "RUN-OUT" && len(fields) >= 2:
		msf, err := parseMSF(fields[1])
		if err != nil {
			return err
		}
		p.sheet.LeadOuts = append(p.sheet.LeadOuts, LeadOut{RunOut: true, SectorCount: msf.ToSectors()})
		return nil
	}
	return nil
}

func (p *parser) dispatchTrack(fields []string) error {
	if len(fields) < 2 {
		return fmt.Errorf("TRACK requires <nn> <mode>")
	}
	if !p.haveFile {
		return fmt.Errorf("TRACK outside FILE")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("bad TRACK number %q: %w", fields[0], err)
	}
	if n != p.lastTrack+1 {
		return fmt.Errorf("track numbers must increase by 1 from 1 (got %d after %d)", n, p.lastTrack)
	}
	p.closeTrack()
	p.lastTrack = n
	p.lastIndex = 0
	p.haveLastIndex = false

	p.currentTrack = &Track{
		Number:    n,
		Mode:      TrackMode(fields[1]),
		FileIndex: p.currentFile,
	}
	return nil
}

func (p *parser) dispatchIndex(fields []string) error {
	if p.currentTrack == nil {
		return fmt.Errorf("INDEX outside TRACK")
	}
	if len(fields) < 2 {
		return fmt.Errorf("INDEX requires <nn> <MSF>")
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil {
		return fmt.Errorf("bad INDEX number %q: %w", fields[0], err)
	}
	if p.haveLastIndex {
		if n != p.lastIndex+1 {
			return fmt.Errorf("index numbers must increase by 1 (got %d after %d)", n, p.lastIndex)
		}
	} else if n != 0 && n != 1 {
		return fmt.Errorf("first index of a track must be 00 or 01 (got %d)", n)
	}
	p.lastIndex = n
	p.haveLastIndex = true

	msf, err := parseMSF(fields[1])
	if err != nil {
		return err
	}
	fileSector := msf.ToSectors()
	if fileSector < p.prevFileSector {
		return fmt.Errorf("INDEX sectors must be non-decreasing within a file (got %d after %d)", fileSector, p.prevFileSector)
	}
	p.prevFileSector = fileSector

	p.currentTrack.Indexes = append(p.currentTrack.Indexes, IndexPoint{Number: n, FileSector: fileSector})
	if n == 1 {
		p.currentTrack.FileSectorBase = fileSector
	}
	return nil
}

// closeTrack appends the in-progress track (if any) to the sheet.
// Absolute sector resolution happens later, in Resolve, once the
// caller can supply each referenced file's actual sector count.
func (p *parser) closeTrack() {
	if p.currentTrack == nil {
		return
	}
	p.sheet.Tracks = append(p.sheet.Tracks, *p.currentTrack)
	p.currentTrack = nil
}

func parseMSF(s string) (MSF, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return MSF{}, fmt.Errorf("bad MSF %q: expected MM:SS:FF", s)
	}
	vals := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return MSF{}, fmt.Errorf("bad MSF %q: %w", s, err)
		}
		vals[i] = n
	}
	return MSF{Minutes: vals[0], Seconds: vals[1], Frames: vals[2]}, nil
}
