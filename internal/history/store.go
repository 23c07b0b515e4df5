// Package history records finished sessions and summarizes them.
package history

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/Mavwarf/stillness/internal/paths"
	"github.com/Mavwarf/stillness/internal/settings"
)

// Outcome is how a session ended.
type Outcome string

const (
	Completed Outcome = "completed"
	Stopped   Outcome = "stopped"
)

// Record is one finished session.
type Record struct {
	Start     time.Time          `json:"start"`
	Durations settings.Durations `json:"durations"`
	Outcome   Outcome            `json:"outcome"`
	Elapsed   time.Duration      `json:"elapsed"`
}

// Store abstracts history storage. FileStore keeps a flat log file;
// SQLiteStore keeps a database.
type Store interface {
	// Write
	Record(r Record) error

	// Read
	Recent(n int) ([]Record, error)           // newest first, 0 = all
	Since(cutoff time.Time) ([]Record, error) // oldest first
	Summary(since time.Time) (Summary, error) // aggregate of Since

	// Maintenance
	Clean(days int) (int, error) // remove older than N days, return removed count
	Clear() error                // delete all data

	// Metadata
	Path() string
	Close() error
}

// Open returns the store for kind ("sqlite", "file" or "none") under dir.
func Open(kind, dir string) (Store, error) {
	switch kind {
	case "", "sqlite":
		return NewSQLiteStore(filepath.Join(dir, paths.HistoryDBName))
	case "file":
		return NewFileStore(filepath.Join(dir, paths.HistoryLogName)), nil
	case "none":
		return Discard{}, nil
	}
	return nil, fmt.Errorf("history: unknown storage %q", kind)
}

// Discard is a Store that keeps nothing.
type Discard struct{}

func (Discard) Record(Record) error                { return nil }
func (Discard) Recent(int) ([]Record, error)       { return nil, nil }
func (Discard) Since(time.Time) ([]Record, error)  { return nil, nil }
func (Discard) Summary(time.Time) (Summary, error) { return Summary{}, nil }
func (Discard) Clean(int) (int, error)             { return 0, nil }
func (Discard) Clear() error                       { return nil }
func (Discard) Path() string                       { return "" }
func (Discard) Close() error                       { return nil }

// DayCutoff returns midnight N days ago (inclusive) in the local timezone.
// For days=1 it returns today at midnight, for days=7 it returns 6 days ago, etc.
func DayCutoff(days int) time.Time {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -(days - 1))
}
