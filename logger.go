package ewf

import (
	"io"
	"log"
)

// Logger receives non-fatal diagnostics (table/table2 recovery, header
// sections that fail to decode and are skipped) as an injected
// dependency rather than through global state.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// stdLogger adapts the standard library's log.Logger for diagnostic
// output when the caller doesn't supply one of its own.
type stdLogger struct{ l *log.Logger }

func (s stdLogger) Printf(format string, args ...any) { s.l.Printf(format, args...) }

// NewStdLogger wraps w in the standard library logger, prefixed for
// this package's diagnostics.
func NewStdLogger(w io.Writer) Logger {
	return stdLogger{l: log.New(w, "ewf: ", log.LstdFlags)}
}
