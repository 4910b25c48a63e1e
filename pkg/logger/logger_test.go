package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWithFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "bot.log")

	l, err := New(&Config{Level: "debug", Format: "json", Output: logFile}, "test-service")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Info("hello")
	_ = l.Sync()

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), `"service":"test-service"`) {
		t.Errorf("log line missing service field: %s", data)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log line missing message: %s", data)
	}
}

func TestNewStdoutFormats(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		if _, err := New(&Config{Level: "info", Format: format, Output: "stderr"}, DefaultServiceName); err != nil {
			t.Errorf("format %q: %v", format, err)
		}
	}
}

func TestNewNilConfig(t *testing.T) {
	l, err := New(nil, DefaultServiceName)
	if err != nil {
		t.Fatalf("New(nil) failed: %v", err)
	}
	if l == nil {
		t.Fatal("logger is nil")
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}, DefaultServiceName); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}
	if _, err := New(&Config{Level: "info", Format: "xml"}, DefaultServiceName); !errors.Is(err, ErrInvalidLogFormat) {
		t.Errorf("expected ErrInvalidLogFormat, got %v", err)
	}
}
