package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNewFileWriter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	w, err := NewFileWriter(dir)
	if err != nil {
		t.Fatalf("NewFileWriter() error = %v", err)
	}
	defer w.Close()

	if w.Filename != filepath.Join(dir, FileName) {
		t.Errorf("Filename = %q", w.Filename)
	}

	logger := zerolog.New(w)
	logger.Info().Str("kpi", "Energy").Msg("calculated")

	data, err := os.ReadFile(w.Filename)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"kpi":"Energy"`) {
		t.Errorf("log file = %s", data)
	}
	if _, err := os.Stat(filepath.Join(dir, ".write-test")); !os.IsNotExist(err) {
		t.Error("write probe was not removed")
	}
}

func TestNewFileWriterNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFileWriter(filepath.Join(file, "logs")); err == nil {
		t.Error("expected error when the parent is a file")
	}
}
