package cuesheet

import "strings"

// tokenizeLine splits one cue-sheet line into whitespace-separated
// fields, treating a double-quoted run as a single field (cue sheets
// quote titles/performers containing spaces) — the lexical rule the
// reference grammar's flex scanner applies before handing tokens to
// the parser.
func tokenizeLine(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			fields = append(fields, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' || r == '\t':
			if inQuotes {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return fields
}
