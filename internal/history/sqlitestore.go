package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/paths"
	"github.com/Mavwarf/stillness/internal/settings"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) a SQLite database at path, creates
// the schema, and performs a one-time import of history.log if it exists
// in the same directory.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), paths.DirPerm); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    started   TEXT    NOT NULL,
    settle    INTEGER NOT NULL,
    meditate  INTEGER NOT NULL,
    emerge    INTEGER NOT NULL,
    outcome   TEXT    NOT NULL,
    elapsed   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started DESC);
`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	s := &SQLiteStore{db: db, path: path}

	logPath := filepath.Join(filepath.Dir(path), paths.HistoryLogName)
	if _, err := os.Stat(logPath); err == nil {
		if err := s.migrateFromFile(logPath); err != nil {
			observability.Logger().Warn("history: migration failed", "err", err)
		}
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Record(r Record) error {
	_, err := s.db.Exec(
		`INSERT INTO sessions (started, settle, meditate, emerge, outcome, elapsed)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.Start.UTC().Format(time.RFC3339), r.Durations.Settle, r.Durations.Meditate,
		r.Durations.Emerge, string(r.Outcome), int(r.Elapsed.Seconds()),
	)
	return err
}

func (s *SQLiteStore) Recent(n int) ([]Record, error) {
	query := `SELECT started, settle, meditate, emerge, outcome, elapsed
		FROM sessions ORDER BY started DESC, id DESC`
	var args []any
	if n > 0 {
		query += ` LIMIT ?`
		args = append(args, n)
	}
	return s.queryRecords(query, args...)
}

func (s *SQLiteStore) Since(cutoff time.Time) ([]Record, error) {
	return s.queryRecords(
		`SELECT started, settle, meditate, emerge, outcome, elapsed
		 FROM sessions WHERE started >= ? ORDER BY started, id`,
		cutoff.UTC().Format(time.RFC3339))
}

func (s *SQLiteStore) queryRecords(query string, args ...any) ([]Record, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var started, outcome string
		var d settings.Durations
		var elapsed int
		if err := rows.Scan(&started, &d.Settle, &d.Meditate, &d.Emerge, &outcome, &elapsed); err != nil {
			return nil, err
		}
		ts, err := time.Parse(time.RFC3339, started)
		if err != nil {
			continue
		}
		out = append(out, Record{
			Start:     ts,
			Durations: d,
			Outcome:   Outcome(outcome),
			Elapsed:   time.Duration(elapsed) * time.Second,
		})
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Summary(since time.Time) (Summary, error) {
	recs, err := s.Since(since)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(recs, time.Now()), nil
}

func (s *SQLiteStore) Clean(days int) (int, error) {
	cutoff := DayCutoff(days).UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`DELETE FROM sessions WHERE started < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLiteStore) Clear() error {
	_, err := s.db.Exec(`DELETE FROM sessions`)
	return err
}

func (s *SQLiteStore) Path() string {
	return s.path
}

// migrateFromFile imports an existing history.log into the database and
// renames it to history.log.migrated.
func (s *SQLiteStore) migrateFromFile(logPath string) error {
	recs, err := NewFileStore(logPath).readAll()
	if err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, r := range recs {
		if _, err := tx.Exec(
			`INSERT INTO sessions (started, settle, meditate, emerge, outcome, elapsed)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.Start.UTC().Format(time.RFC3339), r.Durations.Settle, r.Durations.Meditate,
			r.Durations.Emerge, string(r.Outcome), int(r.Elapsed.Seconds()),
		); err != nil {
			return fmt.Errorf("migrate session: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	observability.Logger().Info("history: migrated sessions from log", "count", len(recs))
	return os.Rename(logPath, logPath+".migrated")
}
