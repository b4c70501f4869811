package debug

import (
	"io"
	"log"
	"os"
)

// Logger writes verbose request and model traces when enabled and is a
// no-op otherwise. A nil *Logger is valid and silent.
type Logger struct {
	enabled bool
	out     *log.Logger
	file    *os.File
}

// NewLogger returns a logger writing to path, or to stderr when path is empty.
// If the file cannot be opened it falls back to stderr.
func NewLogger(enabled bool, path string) *Logger {
	if !enabled {
		return &Logger{}
	}

	var w io.Writer = os.Stderr
	var file *os.File
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err == nil {
			w = f
			file = f
		}
	}

	l := &Logger{
		enabled: true,
		out:     log.New(w, "[chatdragon] ", log.LstdFlags|log.Lmicroseconds),
		file:    file,
	}
	l.Printf("=== DEBUG MODE ENABLED ===")
	return l
}

// NewWriterLogger returns an enabled logger writing to w. Used by tests.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{enabled: true, out: log.New(w, "", 0)}
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d.IsEnabled() {
		d.out.Printf(format, args...)
	}
}

func (d *Logger) Println(args ...interface{}) {
	if d.IsEnabled() {
		d.out.Println(args...)
	}
}

func (d *Logger) IsEnabled() bool {
	return d != nil && d.enabled
}

// Close releases the log file, if any.
func (d *Logger) Close() error {
	if d == nil || d.file == nil {
		return nil
	}
	return d.file.Close()
}
