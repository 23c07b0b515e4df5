package history

import (
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/session"
)

// Attach records every stopped or completed session of m into s.
// Write failures are logged and dropped.
func Attach(m *session.Machine, s Store) {
	log := observability.WithFields("component", "history")
	m.Subscribe(func(ev session.Event) {
		var outcome Outcome
		switch ev.Kind {
		case session.EventCompleted:
			outcome = Completed
		case session.EventStopped:
			outcome = Stopped
		default:
			return
		}
		r := Record{Start: ev.Start, Durations: ev.Durations, Outcome: outcome, Elapsed: ev.Elapsed}
		if err := s.Record(r); err != nil {
			log.Warn("recording session failed", "err", err)
		}
	})
}
