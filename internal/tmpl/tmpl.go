package tmpl

import (
	"strings"
	"time"

	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// Vars holds the runtime values available to hook message templates.
type Vars struct {
	Event     string // "started", "phase", "completed", "stopped"
	Phase     string // "settle", "meditate", "emerge"
	Remaining string // time left in the session, "M:SS"
	Total     string // planned session length, "M:SS"
}

// FromEvent builds template variables for ev.
func FromEvent(ev session.Event) Vars {
	total := time.Duration(ev.Durations.Total()) * time.Minute
	remaining := total - ev.Elapsed
	if ev.Kind == session.EventPhase || ev.Kind == session.EventBell {
		remaining = ev.Start.Add(total).Sub(ev.At)
	}
	if ev.Kind == session.EventCompleted || remaining < 0 {
		remaining = 0
	}
	return Vars{
		Event:     string(ev.Kind),
		Phase:     string(ev.Phase),
		Remaining: timeline.FormatRemaining(remaining),
		Total:     timeline.FormatRemaining(total),
	}
}

// Expand replaces template placeholders in s with runtime values.
// {phase} → phase name as-is, {Phase} → title-cased.
func Expand(s string, v Vars) string {
	s = strings.ReplaceAll(s, "{event}", v.Event)
	s = strings.ReplaceAll(s, "{Phase}", TitleCase(v.Phase))
	s = strings.ReplaceAll(s, "{phase}", v.Phase)
	s = strings.ReplaceAll(s, "{remaining}", v.Remaining)
	s = strings.ReplaceAll(s, "{total}", v.Total)
	return s
}

// TitleCase uppercases the first byte of s.
func TitleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
