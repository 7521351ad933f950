package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestSimpleFormatter(t *testing.T) {
	f := &SimpleFormatter{TimestampFormat: "2006/01/02 15:04:05"}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 4, 6, 17, 30, 0, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "stream idle",
		Data:    logrus.Fields{"backend": "zeromq", "hz": 100},
	}

	out, err := f.Format(entry)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}

	expected := "2025/04/06 17:30:00 [WAR] stream idle backend=zeromq hz=100\n"
	if string(out) != expected {
		t.Errorf("Expected %q, got %q", expected, string(out))
	}
}

func TestNewLogrusLoggerConsoleAndFile(t *testing.T) {
	var console bytes.Buffer
	dir := t.TempDir()

	logger, closer, err := NewLogrusLogger(Options{Level: "debug", LogDir: dir, Console: &console})
	if err != nil {
		t.Fatalf("NewLogrusLogger failed: %v", err)
	}

	logger.WithField("component", "outlet").Debugf("bound to %s", "tcp://*:5560")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if !strings.Contains(console.String(), "[DEB] bound to tcp://*:5560 component=outlet") {
		t.Errorf("Expected debug line on console, got %q", console.String())
	}

	data, err := os.ReadFile(filepath.Join(dir, "mousetracker.log"))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "bound to tcp://*:5560") {
		t.Errorf("Expected log file to contain entry, got %q", string(data))
	}
}

func TestNewLogrusLoggerInvalidLevelDefaultsToInfo(t *testing.T) {
	var console bytes.Buffer
	logger, _, err := NewLogrusLogger(Options{Level: "chatty", Console: &console})
	if err != nil {
		t.Fatalf("NewLogrusLogger failed: %v", err)
	}

	logger.Debugf("hidden")
	logger.Infof("visible")

	if strings.Contains(console.String(), "hidden") {
		t.Errorf("Expected debug entry to be filtered at info level")
	}
	if !strings.Contains(console.String(), "[INF] visible") {
		t.Errorf("Expected info entry, got %q", console.String())
	}
}
