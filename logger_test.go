package ewf

import (
	"bytes"
	"strings"
	"testing"
)

func TestNopLoggerDiscardsOutput(t *testing.T) {
	var l Logger = nopLogger{}
	l.Printf("should go nowhere: %d", 42) // must not panic
}

func TestNewStdLoggerWritesPrefixedOutput(t *testing.T) {
	var buf bytes.Buffer
	l := NewStdLogger(&buf)

	l.Printf("retrying chunk %d", 7)

	got := buf.String()
	if !strings.Contains(got, "ewf: ") {
		t.Errorf("output %q missing expected prefix", got)
	}
	if !strings.Contains(got, "retrying chunk 7") {
		t.Errorf("output %q missing formatted message", got)
	}
}
