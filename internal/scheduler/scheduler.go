// Package scheduler guarantees the session bells play at their offsets.
// The timing itself lives in a Backend committed at arm time; nothing here
// relies on a software timer to trigger a sound.
package scheduler

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// ErrAudioUnavailable is returned by backends that cannot reach an output.
var ErrAudioUnavailable = errors.New("scheduler: audio unavailable")

// Backend is a platform mechanism able to commit a whole session's bells
// in one synchronous call.
type Backend interface {
	// Arm commits all bells of tl. The first bell must be sounding (or
	// queued on the device) by the time Arm returns.
	Arm(tl *timeline.Timeline) error
	// Cancel stops all pending and playing session audio and releases any
	// generated resource. Safe to call when nothing is armed.
	Cancel()
	// PreviewOne strikes the bell once through the same path as a session.
	PreviewOne() error
}

// Scheduler arms a Backend for one session at a time and degrades to
// silence when the backend fails.
type Scheduler struct {
	mu       sync.Mutex
	backend  Backend
	armed    bool
	degraded bool
	log      *slog.Logger
}

// New returns a Scheduler driving b.
func New(b Backend) *Scheduler {
	return &Scheduler{backend: b, log: observability.WithFields("component", "scheduler")}
}

// Arm tears down any previous schedule and then commits tl. Failure is
// logged and leaves the session silent; it is never returned.
func (s *Scheduler) Arm(tl *timeline.Timeline) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.armed {
		s.backend.Cancel()
		s.armed = false
	}
	if err := s.backend.Arm(tl); err != nil {
		s.degraded = true
		s.log.Warn("session will be silent", "err", err)
		s.backend.Cancel()
		return
	}
	s.degraded = false
	s.armed = true
}

// Cancel halts all session audio synchronously.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backend.Cancel()
	s.armed = false
}

// Preview strikes one bell outside a session.
func (s *Scheduler) Preview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.PreviewOne(); err != nil {
		s.degraded = true
		s.log.Warn("preview bell failed", "err", err)
	}
}

// Armed reports whether a session schedule is committed.
func (s *Scheduler) Armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.armed
}

// Degraded reports whether the last arm or preview failed.
func (s *Scheduler) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// SilentBackend is a Backend that plays nothing.
type SilentBackend struct{}

func (SilentBackend) Arm(*timeline.Timeline) error { return nil }
func (SilentBackend) Cancel()                      {}
func (SilentBackend) PreviewOne() error            { return nil }
