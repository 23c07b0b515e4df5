package settings

import (
	"fmt"
	"strings"
)

// Field names one of the three adjustable phase durations.
type Field int

const (
	Settle Field = iota
	Meditate
	Emerge
)

func (f Field) String() string {
	switch f {
	case Settle:
		return "settle"
	case Meditate:
		return "meditate"
	case Emerge:
		return "emerge"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// ParseField maps "settle", "meditate" or "emerge" to a Field.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "settle":
		return Settle, nil
	case "meditate":
		return Meditate, nil
	case "emerge":
		return Emerge, nil
	}
	return 0, fmt.Errorf("unknown duration field %q (want settle, meditate or emerge)", s)
}

// Bounds is the inclusive range, in minutes, a field may hold.
type Bounds struct {
	Min, Max int
}

var limits = map[Field]Bounds{
	Settle:   {Min: 1, Max: 30},
	Meditate: {Min: 1, Max: 120},
	Emerge:   {Min: 1, Max: 30},
}

// Limits returns the bounds of f.
func Limits(f Field) Bounds {
	return limits[f]
}

// Durations holds the three phase lengths in whole minutes.
type Durations struct {
	Settle   int `json:"settle"`
	Meditate int `json:"meditate"`
	Emerge   int `json:"emerge"`
}

// Default is used whenever no valid record has been stored.
func Default() Durations {
	return Durations{Settle: 2, Meditate: 20, Emerge: 2}
}

// Get returns the minutes stored for f.
func (d Durations) Get(f Field) int {
	switch f {
	case Settle:
		return d.Settle
	case Meditate:
		return d.Meditate
	case Emerge:
		return d.Emerge
	}
	return 0
}

func (d *Durations) set(f Field, v int) {
	switch f {
	case Settle:
		d.Settle = v
	case Meditate:
		d.Meditate = v
	case Emerge:
		d.Emerge = v
	}
}

// Valid reports whether every field lies within its bounds.
func (d Durations) Valid() bool {
	for f, b := range limits {
		v := d.Get(f)
		if v < b.Min || v > b.Max {
			return false
		}
	}
	return true
}

// Total returns the session length in minutes.
func (d Durations) Total() int {
	return d.Settle + d.Meditate + d.Emerge
}

// Adjust moves f by direction minutes, clamped to the field's bounds.
// It is the only way durations change once loaded.
func (d Durations) Adjust(f Field, direction int) Durations {
	b, ok := limits[f]
	if !ok {
		return d
	}
	v := d.Get(f) + direction
	if v < b.Min {
		v = b.Min
	}
	if v > b.Max {
		v = b.Max
	}
	d.set(f, v)
	return d
}

// Set assigns an absolute value, clamped to the field's bounds.
func (d Durations) Set(f Field, minutes int) Durations {
	return d.Adjust(f, minutes-d.Get(f))
}

// String formats the durations as "2/20/2 (24 min)".
func (d Durations) String() string {
	return fmt.Sprintf("%d/%d/%d (%d min)", d.Settle, d.Meditate, d.Emerge, d.Total())
}
