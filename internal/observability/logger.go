package observability

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Mavwarf/stillness/internal/paths"
)

var (
	mu     sync.RWMutex
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Logger returns the process-wide logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithFields returns a logger with additional fields.
func WithFields(kv ...any) *slog.Logger {
	return Logger().With(kv...)
}

// SetOutput replaces the destination of the process-wide logger.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// RedirectToFile sends log output to DataDir()/stillness.log so it does not
// draw over a full-screen terminal UI. The returned func closes the file and
// restores stderr.
func RedirectToFile() (func(), error) {
	path := filepath.Join(paths.DataDir(), paths.LogFileName)
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return func() {}, err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FilePerm)
	if err != nil {
		return func() {}, err
	}
	SetOutput(f, slog.LevelInfo)
	return func() {
		SetOutput(os.Stderr, slog.LevelInfo)
		f.Close()
	}, nil
}
