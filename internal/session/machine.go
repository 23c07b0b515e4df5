// Package session drives the idle → running → complete lifecycle of a
// meditation session and exposes its observables.
package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/observability"
	"github.com/Mavwarf/stillness/internal/scheduler"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// State is the machine's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Complete
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "idle"
	}
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a state name written by MarshalText.
func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "idle":
		*s = Idle
	case "running":
		*s = Running
	case "complete":
		*s = Complete
	default:
		return fmt.Errorf("session: unknown state %q", b)
	}
	return nil
}

// DefaultAutoReset is how long a completed session stays on screen.
const DefaultAutoReset = 10 * time.Second

// Persister loads and saves durations. settings.Store implements it.
type Persister interface {
	Load() settings.Durations
	Save(settings.Durations) error
}

// WakeLockFunc acquires a keep-awake hold and returns its release func.
type WakeLockFunc func() (release func(), err error)

// Options configures a Machine. Zero values pick defaults.
type Options struct {
	Scheduler *scheduler.Scheduler
	Settings  Persister
	Clock     Clock
	WakeLock  WakeLockFunc
	// AutoReset is the complete → idle delay. Negative disables it.
	AutoReset time.Duration
	// TailGrace delays completion past the last bell so it can ring out.
	TailGrace time.Duration
}

// Machine is the session state machine. All methods are safe for
// concurrent use; subscribers run after the lock is released.
type Machine struct {
	mu         sync.Mutex
	sched      *scheduler.Scheduler
	store      Persister
	clock      Clock
	wakeLock   WakeLockFunc
	autoReset  time.Duration
	tailGrace  time.Duration
	state      State
	durations  settings.Durations
	tl         *timeline.Timeline
	phase      timeline.PhaseName
	release    func()
	resetTimer Timer
	tailTimer  Timer
	gen        uint64
	listeners  []func(Event)
	log        *slog.Logger
}

// New returns an idle Machine with durations loaded from opts.Settings.
func New(opts Options) *Machine {
	m := &Machine{
		sched:     opts.Scheduler,
		store:     opts.Settings,
		clock:     opts.Clock,
		wakeLock:  opts.WakeLock,
		autoReset: opts.AutoReset,
		tailGrace: opts.TailGrace,
		durations: settings.Default(),
		log:       observability.WithFields("component", "session"),
	}
	if m.sched == nil {
		m.sched = scheduler.New(scheduler.SilentBackend{})
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.autoReset == 0 {
		m.autoReset = DefaultAutoReset
	}
	if m.store != nil {
		m.durations = m.store.Load()
	}
	return m
}

// Subscribe registers fn for every event. It must not call back into
// the machine synchronously in a way that expects to observe the event
// it is handling as the latest state.
func (m *Machine) Subscribe(fn func(Event)) {
	m.mu.Lock()
	m.listeners = append(m.listeners, fn)
	m.mu.Unlock()
}

func (m *Machine) emit(ls []func(Event), evs []Event) {
	for _, ev := range evs {
		for _, fn := range ls {
			fn(ev)
		}
	}
}

// Start begins a session. While running it stops instead; while
// complete it discards the finished session and starts a fresh one.
func (m *Machine) Start() {
	m.mu.Lock()
	var evs []Event
	if m.state == Running {
		evs = m.stopLocked()
	} else {
		evs = m.startLocked()
	}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, evs)
}

func (m *Machine) startLocked() []Event {
	m.clearLocked()

	now := m.clock.Now()
	m.gen++
	m.tl = timeline.Build(m.durations, now)

	// Arming must complete before anything else touches audio.
	m.sched.Arm(m.tl)
	m.tl.MarkFired(0)

	if m.wakeLock != nil {
		release, err := m.wakeLock()
		if err != nil {
			m.log.Warn("wake lock unavailable", "err", err)
		} else {
			m.release = release
		}
	}
	m.state = Running
	m.phase = m.tl.Phases[0].Name

	base := Event{At: now, Generation: m.gen, Durations: m.durations, Start: now}
	started, bell := base, base
	started.Kind = EventStarted
	started.Phase = m.phase
	bell.Kind = EventBell
	bell.Bell = 0
	return []Event{started, bell}
}

// Stop ends a running session, or dismisses a completed one.
func (m *Machine) Stop() {
	m.mu.Lock()
	var evs []Event
	switch m.state {
	case Running:
		evs = m.stopLocked()
	case Complete:
		m.clearLocked()
		evs = []Event{{Kind: EventReset, At: m.clock.Now(), Generation: m.gen, Durations: m.durations}}
	}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, evs)
}

func (m *Machine) stopLocked() []Event {
	now := m.clock.Now()
	ev := Event{
		Kind:       EventStopped,
		At:         now,
		Generation: m.gen,
		Durations:  m.durations,
		Phase:      m.phase,
		Start:      m.tl.Start,
		Elapsed:    now.Sub(m.tl.Start),
	}
	m.clearLocked()
	return []Event{ev}
}

// clearLocked releases every resource of the current session and
// returns to Idle.
func (m *Machine) clearLocked() {
	m.sched.Cancel()
	m.releaseWakeLock()
	if m.resetTimer != nil {
		m.resetTimer.Stop()
		m.resetTimer = nil
	}
	if m.tailTimer != nil {
		m.tailTimer.Stop()
		m.tailTimer = nil
	}
	m.tl = nil
	m.phase = ""
	m.state = Idle
}

func (m *Machine) releaseWakeLock() {
	if m.release != nil {
		m.release()
		m.release = nil
	}
}

// Tick advances the session to now: newly passed bells are reported once,
// phase changes are announced and completion is detected.
func (m *Machine) Tick(now time.Time) {
	m.mu.Lock()
	if m.state != Running {
		m.mu.Unlock()
		return
	}
	var evs []Event
	base := Event{At: now, Generation: m.gen, Durations: m.durations, Start: m.tl.Start}

	for _, i := range m.tl.PendingBellsAsOf(now) {
		if m.tl.MarkFired(i) {
			ev := base
			ev.Kind = EventBell
			ev.Bell = i
			evs = append(evs, ev)
		}
	}
	if p, ok := m.tl.PhaseAt(now); ok && p.Name != m.phase {
		m.phase = p.Name
		ev := base
		ev.Kind = EventPhase
		ev.Phase = p.Name
		evs = append(evs, ev)
	}
	if !now.Before(m.tl.End.Add(m.tailGrace)) {
		evs = append(evs, m.completeLocked(now, base))
	}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, evs)
}

func (m *Machine) completeLocked(now time.Time, base Event) Event {
	m.state = Complete
	m.releaseWakeLock()

	gen := m.gen
	// The last bell may still be ringing; stop the audio once it is done.
	if left := m.tl.End.Add(audio.BellLength).Sub(now); left > 0 {
		m.tailTimer = m.clock.AfterFunc(left, func() { m.finishAudio(gen) })
	} else {
		m.sched.Cancel()
	}
	if m.autoReset > 0 {
		m.resetTimer = m.clock.AfterFunc(m.autoReset, func() { m.expire(gen) })
	}

	ev := base
	ev.Kind = EventCompleted
	ev.Phase = m.phase
	ev.Elapsed = m.tl.Total()
	m.tl = nil
	return ev
}

func (m *Machine) finishAudio(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen == gen && m.state != Running {
		m.sched.Cancel()
		m.tailTimer = nil
	}
}

// expire is the auto-reset callback for session gen.
func (m *Machine) expire(gen uint64) {
	m.mu.Lock()
	if m.state != Complete || m.gen != gen {
		m.mu.Unlock()
		return
	}
	m.resetTimer = nil
	m.clearLocked()
	ev := Event{Kind: EventReset, At: m.clock.Now(), Generation: gen, Durations: m.durations}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, []Event{ev})
}

// PreviewBell strikes the bell once through the session audio path.
func (m *Machine) PreviewBell() {
	m.mu.Lock()
	m.sched.Preview()
	ev := Event{Kind: EventPreview, At: m.clock.Now(), Generation: m.gen, Durations: m.durations}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, []Event{ev})
}

// AdjustDuration moves field by direction minutes, clamped to its
// bounds, and persists the result. Ignored unless idle. It
// reports whether the durations changed.
func (m *Machine) AdjustDuration(f settings.Field, direction int) bool {
	m.mu.Lock()
	if m.state != Idle {
		m.mu.Unlock()
		return false
	}
	next := m.durations.Adjust(f, direction)
	if next == m.durations {
		m.mu.Unlock()
		return false
	}
	m.durations = next
	m.persistLocked()
	ev := Event{Kind: EventSettings, At: m.clock.Now(), Generation: m.gen, Durations: next}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, []Event{ev})
	return true
}

// SetDurations replaces all durations when idle and valid.
func (m *Machine) SetDurations(d settings.Durations) bool {
	m.mu.Lock()
	if m.state != Idle || !d.Valid() || d == m.durations {
		m.mu.Unlock()
		return false
	}
	m.durations = d
	m.persistLocked()
	ev := Event{Kind: EventSettings, At: m.clock.Now(), Generation: m.gen, Durations: d}
	ls := m.listeners
	m.mu.Unlock()
	m.emit(ls, []Event{ev})
	return true
}

func (m *Machine) persistLocked() {
	if m.store == nil {
		return
	}
	if err := m.store.Save(m.durations); err != nil {
		m.log.Warn("saving durations failed", "err", err)
	}
}

// Durations returns the configured phase lengths.
func (m *Machine) Durations() settings.Durations {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.durations
}

// State returns the lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Timeline returns a copy of the live timeline, or nil when idle.
func (m *Machine) Timeline() *timeline.Timeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tl == nil {
		return nil
	}
	tl := *m.tl
	return &tl
}

// Now returns the machine's clock time.
func (m *Machine) Now() time.Time { return m.clock.Now() }
