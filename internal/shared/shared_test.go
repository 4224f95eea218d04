package shared

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestGenerateID(t *testing.T) {
	a := GenerateID()
	b := GenerateID()

	if a == b {
		t.Error("expected distinct IDs")
	}

	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("expected a valid UUID, got %q: %v", a, err)
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewLogger(buf)

	logger.Info("hello", "key", "value")

	out := buf.String()
	if out == "" {
		t.Fatal("expected log output")
	}
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestNewFileLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create file logger: %v", err)
	}

	logger.Info("written to file")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file should exist: %v", err)
	}
	if !bytes.Contains(data, []byte("written to file")) {
		t.Errorf("expected message in log file, got %q", string(data))
	}
}
