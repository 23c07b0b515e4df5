package observability

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetOutputAndFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, slog.LevelDebug)
	t.Cleanup(func() { SetOutput(os.Stderr, slog.LevelInfo) })

	WithFields("component", "scheduler").Warn("audio unavailable")

	out := buf.String()
	if !strings.Contains(out, "audio unavailable") || !strings.Contains(out, "component=scheduler") {
		t.Errorf("unexpected log output: %q", out)
	}
}

func TestRedirectToFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STILLNESS_HOME", dir)

	restore, err := RedirectToFile()
	if err != nil {
		t.Fatalf("RedirectToFile: %v", err)
	}
	Logger().Info("hello file")
	restore()

	data, err := os.ReadFile(filepath.Join(dir, "stillness.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "hello file") {
		t.Errorf("log file missing entry: %q", data)
	}
}
