package paths

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDataDirUsesStillnessHome(t *testing.T) {
	t.Setenv("STILLNESS_HOME", "/fake/home")
	if got := DataDir(); got != "/fake/home" {
		t.Errorf("DataDir() = %q, want %q", got, "/fake/home")
	}
}

func TestDataDirUsesAPPDATA(t *testing.T) {
	t.Setenv("STILLNESS_HOME", "")
	t.Setenv("APPDATA", "/fake/appdata")
	got := DataDir()
	want := filepath.Join("/fake/appdata", AppDirName)
	if got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}
}

func TestDataDirFallsBackWithoutAPPDATA(t *testing.T) {
	t.Setenv("STILLNESS_HOME", "")
	t.Setenv("APPDATA", "")
	got := DataDir()

	// Either ~/.config/stillness or the temp dir; the base is the app name.
	if filepath.Base(got) != AppDirName {
		t.Errorf("DataDir() = %q, expected base dir %q", got, AppDirName)
	}
}

func TestDurationsPath(t *testing.T) {
	t.Setenv("STILLNESS_HOME", "/x")
	if got := DurationsPath(); got != filepath.Join("/x", DurationsFileName) {
		t.Errorf("DurationsPath() = %q", got)
	}
}

func TestAtomicWriteCreatesDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "state.json")
	if err := AtomicWrite(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("AtomicWrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q", data)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}
