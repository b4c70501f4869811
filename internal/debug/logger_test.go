package debug

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogger(t *testing.T) {
	t.Run("nil and disabled loggers are silent", func(t *testing.T) {
		var nilLogger *Logger
		nilLogger.Printf("ignored %d", 1)
		nilLogger.Println("ignored")
		if nilLogger.IsEnabled() {
			t.Error("Expected nil logger to be disabled")
		}
		if err := nilLogger.Close(); err != nil {
			t.Errorf("Expected nil Close to succeed, got %v", err)
		}

		if NewLogger(false, "").IsEnabled() {
			t.Error("Expected disabled logger")
		}
	})

	t.Run("writer logger", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewWriterLogger(&buf)
		l.Printf("hello %s", "dragon")
		if got := buf.String(); got != "hello dragon\n" {
			t.Errorf("Expected %q, got %q", "hello dragon\n", got)
		}
	})

	t.Run("file logger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "debug.log")
		l := NewLogger(true, path)
		l.Println("written to file")
		if err := l.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read log: %v", err)
		}
		if !strings.Contains(string(data), "written to file") {
			t.Errorf("Expected message in log file, got %q", data)
		}
	})
}
