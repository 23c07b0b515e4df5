// Package timeline turns phase durations into the wall-clock phases and
// bell instants of one session.
package timeline

import (
	"fmt"
	"time"

	"github.com/Mavwarf/stillness/internal/settings"
)

// PhaseName identifies one of the three sequential phases.
type PhaseName string

const (
	Settle   PhaseName = "settle"
	Meditate PhaseName = "meditate"
	Emerge   PhaseName = "emerge"
)

// Phase is a half-open wall-clock interval [Start, End).
type Phase struct {
	Name  PhaseName
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (p Phase) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// Contains reports whether now falls inside the phase.
func (p Phase) Contains(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.End)
}

// Bell is one strike. At is the wall-clock instant used by the UI; Offset
// is the same instant relative to session start, used for audio scheduling.
type Bell struct {
	Index  int
	At     time.Time
	Offset time.Duration
	Fired  bool
}

// Timeline is the full schedule of one session. Only the bells' Fired
// flags change after Build.
type Timeline struct {
	Start  time.Time
	End    time.Time
	Phases [3]Phase
	Bells  [4]Bell
}

// Build computes phases and bells for d starting at start.
func Build(d settings.Durations, start time.Time) *Timeline {
	settle := time.Duration(d.Settle) * time.Minute
	meditate := time.Duration(d.Meditate) * time.Minute
	emerge := time.Duration(d.Emerge) * time.Minute

	offsets := [4]time.Duration{0, settle, settle + meditate, settle + meditate + emerge}
	names := [3]PhaseName{Settle, Meditate, Emerge}

	tl := &Timeline{Start: start, End: start.Add(offsets[3])}
	for i, name := range names {
		tl.Phases[i] = Phase{Name: name, Start: start.Add(offsets[i]), End: start.Add(offsets[i+1])}
	}
	for i, off := range offsets {
		tl.Bells[i] = Bell{Index: i, At: start.Add(off), Offset: off}
	}
	return tl
}

// Total returns the session length, bell tail excluded.
func (tl *Timeline) Total() time.Duration {
	return tl.End.Sub(tl.Start)
}

// Offsets returns the audio-relative bell offsets in order.
func (tl *Timeline) Offsets() []time.Duration {
	out := make([]time.Duration, len(tl.Bells))
	for i, b := range tl.Bells {
		out[i] = b.Offset
	}
	return out
}

// PhaseAt returns the phase containing now. Past the session end the last
// phase is returned so the display holds while the final bell rings out.
// Before Start it returns false.
func (tl *Timeline) PhaseAt(now time.Time) (Phase, bool) {
	for _, p := range tl.Phases {
		if p.Contains(now) {
			return p, true
		}
	}
	if !now.Before(tl.End) {
		return tl.Phases[len(tl.Phases)-1], true
	}
	return Phase{}, false
}

// PendingBellsAsOf returns the indexes of bells due at or before now that
// have not been marked fired, in order. It does not mark them.
func (tl *Timeline) PendingBellsAsOf(now time.Time) []int {
	var due []int
	for _, b := range tl.Bells {
		if !b.Fired && !now.Before(b.At) {
			due = append(due, b.Index)
		}
	}
	return due
}

// MarkFired flags bell i as acknowledged. It reports false if the bell
// was already fired or i is out of range.
func (tl *Timeline) MarkFired(i int) bool {
	if i < 0 || i >= len(tl.Bells) || tl.Bells[i].Fired {
		return false
	}
	tl.Bells[i].Fired = true
	return true
}

// Remaining returns the time left in p at now, never negative.
func Remaining(p Phase, now time.Time) time.Duration {
	r := p.End.Sub(now)
	if r < 0 {
		return 0
	}
	if d := p.Duration(); r > d {
		return d
	}
	return r
}

// Progress returns 1 - remaining/duration, clamped to [0, 1].
func Progress(p Phase, now time.Time) float64 {
	d := p.Duration()
	if d <= 0 {
		return 0
	}
	f := 1 - float64(Remaining(p, now))/float64(d)
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// FormatRemaining renders d as M:SS, truncating sub-second parts.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
