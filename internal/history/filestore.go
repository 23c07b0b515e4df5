package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Mavwarf/stillness/internal/paths"
	"github.com/Mavwarf/stillness/internal/settings"
)

// FileStore implements Store using a flat log file, one session per line:
//
//	2026-01-01T07:00:00Z  outcome=completed  settle=2  meditate=20  emerge=2  elapsed=1440
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore that reads and writes the given log file.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// FormatLine renders r as a log line without the trailing newline.
func FormatLine(r Record) string {
	return fmt.Sprintf("%s  outcome=%s  settle=%d  meditate=%d  emerge=%d  elapsed=%d",
		r.Start.Format(time.RFC3339), r.Outcome,
		r.Durations.Settle, r.Durations.Meditate, r.Durations.Emerge,
		int(r.Elapsed.Seconds()))
}

// ParseLine parses one log line. Malformed lines report false.
func ParseLine(line string) (Record, bool) {
	ts, ok := extractTimestamp(line)
	if !ok {
		return Record{}, false
	}
	outcome := Outcome(extractField(line, "outcome"))
	if outcome != Completed && outcome != Stopped {
		return Record{}, false
	}
	var nums [4]int
	for i, key := range []string{"settle", "meditate", "emerge", "elapsed"} {
		n, err := strconv.Atoi(extractField(line, key))
		if err != nil {
			return Record{}, false
		}
		nums[i] = n
	}
	return Record{
		Start:     ts,
		Durations: settings.Durations{Settle: nums[0], Meditate: nums[1], Emerge: nums[2]},
		Outcome:   outcome,
		Elapsed:   time.Duration(nums[3]) * time.Second,
	}, true
}

// extractTimestamp parses the RFC3339 timestamp at the start of a log line
// (everything before the first "  " double-space separator).
func extractTimestamp(line string) (time.Time, bool) {
	tsEnd := strings.Index(line, "  ")
	if tsEnd < 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339, line[:tsEnd])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// extractField returns the value after "key=" in a space-separated line.
// Returns "" if not found.
func extractField(line, key string) string {
	prefix := key + "="
	for _, field := range strings.Fields(line) {
		if strings.HasPrefix(field, prefix) {
			return field[len(prefix):]
		}
	}
	return ""
}

func (f *FileStore) Record(r Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), paths.DirPerm); err != nil {
		return err
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, paths.FilePerm)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = fmt.Fprintln(file, FormatLine(r))
	return err
}

// readAll returns every parseable record in file order.
func (f *FileStore) readAll() ([]Record, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var out []Record
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		if r, ok := ParseLine(sc.Text()); ok {
			out = append(out, r)
		}
	}
	return out, sc.Err()
}

func (f *FileStore) Recent(n int) ([]Record, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.After(all[j].Start) })
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all, nil
}

func (f *FileStore) Since(cutoff time.Time) ([]Record, error) {
	all, err := f.readAll()
	if err != nil {
		return nil, err
	}
	var out []Record
	for _, r := range all {
		if !r.Start.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FileStore) Summary(since time.Time) (Summary, error) {
	recs, err := f.Since(since)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(recs, time.Now()), nil
}

func (f *FileStore) Clean(days int) (int, error) {
	all, err := f.readAll()
	if err != nil || len(all) == 0 {
		return 0, err
	}
	cutoff := DayCutoff(days)
	var b strings.Builder
	removed := 0
	for _, r := range all {
		if r.Start.Before(cutoff) {
			removed++
			continue
		}
		b.WriteString(FormatLine(r))
		b.WriteByte('\n')
	}
	if removed == 0 {
		return 0, nil
	}
	if b.Len() == 0 {
		_ = os.Remove(f.path)
		return removed, nil
	}
	if err := paths.AtomicWrite(f.path, []byte(b.String())); err != nil {
		return 0, err
	}
	return removed, nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Close() error { return nil }
