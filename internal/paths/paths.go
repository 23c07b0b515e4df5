package paths

import (
	"os"
	"path/filepath"
)

const (
	AppDirName        = "stillness"
	ConfigBaseName    = "stillness-config"
	DurationsFileName = "durations.json"
	HistoryDBName     = "stillness.db"
	HistoryLogName    = "history.log"
	LogFileName       = "stillness.log"
	CertDirName       = "certs"
	DirPerm           = 0755
	FilePerm          = 0644
)

// AtomicWrite writes data to path via a temporary file + rename to avoid
// partial writes. The parent directory is created if needed.
func AtomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), DirPerm); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, FilePerm); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// DataDir returns the platform-specific data directory for stillness:
//   - $STILLNESS_HOME if set
//   - Windows: %APPDATA%\stillness
//   - Unix:    ~/.config/stillness
//
// Falls back to os.TempDir()/stillness if neither is available.
func DataDir() string {
	if dir := os.Getenv("STILLNESS_HOME"); dir != "" {
		return dir
	}
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		return filepath.Join(appdata, AppDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), AppDirName)
	}
	return filepath.Join(home, ".config", AppDirName)
}

// DurationsPath is where the chosen phase durations are persisted.
func DurationsPath() string {
	return filepath.Join(DataDir(), DurationsFileName)
}
