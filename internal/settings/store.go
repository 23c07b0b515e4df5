package settings

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mavwarf/stillness/internal/paths"
)

// Store persists Durations as a single JSON record.
type Store struct {
	path string
}

// NewStore returns a Store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the Store at DataDir()/durations.json.
func DefaultStore() *Store {
	return NewStore(paths.DurationsPath())
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the stored durations. A missing, unreadable, malformed or
// out-of-range record yields Default() (fail-open, never an error).
func (s *Store) Load() Durations {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Default()
	}
	return decode(data)
}

// Save writes d. Callers persist on every adjustment.
func (s *Store) Save(d Durations) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := paths.AtomicWrite(s.path, data); err != nil {
		return fmt.Errorf("settings: write %s: %w", s.path, err)
	}
	return nil
}

// decode accepts only a record whose three fields are present, integral
// and within bounds; anything else falls back to the defaults as a whole.
func decode(data []byte) Durations {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Default()
	}
	var d Durations
	for _, f := range []Field{Settle, Meditate, Emerge} {
		msg, ok := raw[f.String()]
		if !ok {
			return Default()
		}
		var v int
		if err := json.Unmarshal(msg, &v); err != nil {
			return Default()
		}
		d.set(f, v)
	}
	if !d.Valid() {
		return Default()
	}
	return d
}
