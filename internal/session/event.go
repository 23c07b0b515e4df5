package session

import (
	"time"

	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// Kind names a session event.
type Kind string

const (
	EventStarted   Kind = "started"
	EventBell      Kind = "bell"
	EventPhase     Kind = "phase"
	EventCompleted Kind = "completed"
	EventStopped   Kind = "stopped"
	EventReset     Kind = "reset"
	EventPreview   Kind = "preview"
	EventSettings  Kind = "settings"
)

// Event is delivered to subscribers after every observable change.
type Event struct {
	Kind       Kind               `json:"kind"`
	At         time.Time          `json:"at"`
	Generation uint64             `json:"generation"`
	Bell       int                `json:"bell,omitempty"`
	Phase      timeline.PhaseName `json:"phase,omitempty"`
	Durations  settings.Durations `json:"durations"`
	Start      time.Time          `json:"start,omitempty"`
	// Elapsed is the time from session start to completion or stop.
	Elapsed time.Duration `json:"elapsed,omitempty"`
}

// Announced reports whether events of kind k are published to external
// hooks. Bells and previews are too chatty; settings are local.
func Announced(k Kind) bool {
	switch k {
	case EventStarted, EventPhase, EventCompleted, EventStopped:
		return true
	}
	return false
}
