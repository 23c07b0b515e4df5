package session

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Mavwarf/stillness/internal/scheduler"
	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
)

type manualTimer struct {
	c       *manualClock
	at      time.Time
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

// manualClock only moves when Advance is called, firing due callbacks
// in order.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*manualTimer
	var rest []*manualTimer
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		if !t.at.After(now) {
			t.stopped = true
			due = append(due, t)
		} else {
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()
	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type recordingBackend struct {
	mu       sync.Mutex
	armed    []*timeline.Timeline
	cancels  int
	previews int
	err      error
}

func (r *recordingBackend) Arm(tl *timeline.Timeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.armed = append(r.armed, tl)
	return r.err
}

func (r *recordingBackend) Cancel() {
	r.mu.Lock()
	r.cancels++
	r.mu.Unlock()
}

func (r *recordingBackend) PreviewOne() error {
	r.mu.Lock()
	r.previews++
	r.mu.Unlock()
	return r.err
}

type memStore struct {
	d     settings.Durations
	saves int
}

func (s *memStore) Load() settings.Durations { return s.d }
func (s *memStore) Save(d settings.Durations) error {
	s.d = d
	s.saves++
	return nil
}

type fixture struct {
	m       *Machine
	clock   *manualClock
	backend *recordingBackend
	store   *memStore
	events  []Event
	locks   int
	unlocks int
}

func newFixture(t *testing.T, d settings.Durations, grace time.Duration) *fixture {
	t.Helper()
	f := &fixture{
		clock:   newManualClock(),
		backend: &recordingBackend{},
		store:   &memStore{d: d},
	}
	f.m = New(Options{
		Scheduler: scheduler.New(f.backend),
		Settings:  f.store,
		Clock:     f.clock,
		WakeLock: func() (func(), error) {
			f.locks++
			return func() { f.unlocks++ }, nil
		},
		TailGrace: grace,
	})
	f.m.Subscribe(func(ev Event) { f.events = append(f.events, ev) })
	return f
}

func (f *fixture) kinds() []Kind {
	var out []Kind
	for _, ev := range f.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (f *fixture) count(k Kind) int {
	n := 0
	for _, ev := range f.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

var oneEach = settings.Durations{Settle: 1, Meditate: 1, Emerge: 1}

func TestStartArmsAndFiresFirstBell(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()

	if f.m.State() != Running {
		t.Fatalf("state = %v, want running", f.m.State())
	}
	if len(f.backend.armed) != 1 {
		t.Fatalf("armed %d times, want 1", len(f.backend.armed))
	}
	offs := f.backend.armed[0].Offsets()
	want := []time.Duration{0, time.Minute, 2 * time.Minute, 3 * time.Minute}
	for i := range want {
		if offs[i] != want[i] {
			t.Errorf("offset %d = %v, want %v", i, offs[i], want[i])
		}
	}
	if f.locks != 1 {
		t.Errorf("wake lock acquired %d times, want 1", f.locks)
	}
	got := f.kinds()
	if len(got) != 2 || got[0] != EventStarted || got[1] != EventBell || f.events[1].Bell != 0 {
		t.Errorf("events = %v", got)
	}

	// Scenario A: settle counts down from 1:00.
	v := f.m.Snapshot(f.clock.Now())
	if v.Phase != timeline.Settle || v.RemainingText != "1:00" || v.Progress != 0 {
		t.Errorf("view = %+v", v)
	}
}

func TestDoubleStartEqualsStartStop(t *testing.T) {
	a := newFixture(t, oneEach, 0)
	a.m.Start()
	a.m.Start()

	b := newFixture(t, oneEach, 0)
	b.m.Start()
	b.m.Stop()

	if a.m.State() != b.m.State() || a.m.State() != Idle {
		t.Errorf("states %v vs %v, want idle", a.m.State(), b.m.State())
	}
	if a.m.Timeline() != nil || b.m.Timeline() != nil {
		t.Error("timeline survived stop")
	}
	va, vb := a.m.Snapshot(a.clock.Now()), b.m.Snapshot(b.clock.Now())
	if va != vb {
		t.Errorf("views differ:\n%+v\n%+v", va, vb)
	}
	if a.unlocks != 1 || b.unlocks != 1 {
		t.Errorf("wake lock releases %d/%d, want 1/1", a.unlocks, b.unlocks)
	}
	if a.count(EventStopped) != 1 {
		t.Errorf("stopped events = %d, want 1", a.count(EventStopped))
	}
}

func TestStopCancelsAudio(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	before := f.backend.cancels
	f.m.Stop()
	if f.backend.cancels <= before {
		t.Error("Stop did not cancel the backend")
	}
	f.m.Stop()
	if f.count(EventStopped) != 1 {
		t.Errorf("stop while idle emitted an event")
	}
}

func TestTickScenarioB(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	f.clock.Advance(125 * time.Second)
	now := f.clock.Now()
	f.m.Tick(now)

	v := f.m.Snapshot(now)
	if v.Phase != timeline.Emerge {
		t.Errorf("phase = %s, want emerge", v.Phase)
	}
	if v.Remaining != 55*time.Second || v.RemainingText != "0:55" {
		t.Errorf("remaining = %v %q", v.Remaining, v.RemainingText)
	}
	if want := 1 - 55.0/60; v.Progress < want-1e-9 || v.Progress > want+1e-9 {
		t.Errorf("progress = %f, want %f", v.Progress, want)
	}
	if v.Bells != 3 {
		t.Errorf("bells = %d, want 3", v.Bells)
	}
}

func TestEachBellFlashesOnce(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	for i := 0; i < 50; i++ {
		f.m.Tick(f.clock.Now().Add(90 * time.Second))
	}
	if n := f.count(EventBell); n != 2 {
		t.Errorf("bell events = %d, want 2 (start + settle end)", n)
	}
	var phases []timeline.PhaseName
	for _, ev := range f.events {
		if ev.Kind == EventPhase {
			phases = append(phases, ev.Phase)
		}
	}
	if len(phases) != 1 || phases[0] != timeline.Meditate {
		t.Errorf("phase events = %v", phases)
	}
}

func TestCompletesAfterTailGrace(t *testing.T) {
	f := newFixture(t, oneEach, 6*time.Second)
	f.m.Start()

	f.clock.Advance(3 * time.Minute)
	f.m.Tick(f.clock.Now())
	if f.m.State() != Running {
		t.Fatalf("completed before the tail grace")
	}
	if n := f.count(EventBell); n != 4 {
		t.Errorf("bell events = %d, want 4", n)
	}
	f.clock.Advance(6 * time.Second)
	f.m.Tick(f.clock.Now())
	if f.m.State() != Complete {
		t.Fatalf("state = %v, want complete", f.m.State())
	}
	if f.unlocks != 1 {
		t.Errorf("wake lock releases = %d, want 1", f.unlocks)
	}
	last := f.events[len(f.events)-1]
	if last.Kind != EventCompleted || last.Elapsed != 3*time.Minute {
		t.Errorf("last event = %+v", last)
	}
	v := f.m.Snapshot(f.clock.Now())
	if v.Progress != 1 || v.RemainingText != "0:00" || v.Bells != 4 {
		t.Errorf("complete view = %+v", v)
	}
	if f.m.Timeline() != nil {
		t.Error("timeline kept after completion")
	}
}

func TestAutoReset(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	f.clock.Advance(3 * time.Minute)
	f.m.Tick(f.clock.Now())
	if f.m.State() != Complete {
		t.Fatal("not complete")
	}
	f.clock.Advance(9 * time.Second)
	if f.m.State() != Complete {
		t.Fatal("reset before 10s")
	}
	f.clock.Advance(time.Second)
	if f.m.State() != Idle {
		t.Errorf("state = %v after 10s, want idle", f.m.State())
	}
	if f.count(EventReset) != 1 {
		t.Errorf("reset events = %d, want 1", f.count(EventReset))
	}
}

func TestStaleAutoResetIgnored(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	f.clock.Advance(3 * time.Minute)
	f.m.Tick(f.clock.Now())

	// Scenario D: restart from complete gets a fresh timeline.
	f.clock.Advance(5 * time.Second)
	f.m.Start()
	if f.m.State() != Running {
		t.Fatalf("state = %v, want running", f.m.State())
	}
	tl := f.m.Timeline()
	if !tl.Start.Equal(f.clock.Now()) {
		t.Errorf("timeline starts %v, want %v", tl.Start, f.clock.Now())
	}
	for i, b := range tl.Bells {
		if b.Fired != (i == 0) {
			t.Errorf("bell %d fired = %v on fresh timeline", i, b.Fired)
		}
	}
	if tl.Total() != 3*time.Minute {
		t.Errorf("total = %v", tl.Total())
	}

	f.clock.Advance(10 * time.Second)
	if f.m.State() != Running {
		t.Errorf("old auto-reset stopped the new session")
	}
}

func TestCompletionStopsTailAudio(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	f.clock.Advance(3 * time.Minute)
	f.m.Tick(f.clock.Now())
	before := f.backend.cancels
	f.clock.Advance(6 * time.Second)
	if f.backend.cancels != before+1 {
		t.Errorf("cancels = %d, want %d", f.backend.cancels, before+1)
	}
}

func TestAdjustDuration(t *testing.T) {
	f := newFixture(t, settings.Durations{Settle: 30, Meditate: 20, Emerge: 2}, 0)
	if f.m.AdjustDuration(settings.Settle, 1) {
		t.Error("adjust past max reported a change")
	}
	if got := f.m.Durations().Settle; got != 30 {
		t.Errorf("settle = %d, want 30", got)
	}
	if !f.m.AdjustDuration(settings.Meditate, -1) {
		t.Error("adjust down reported no change")
	}
	if f.store.d.Meditate != 19 || f.store.saves != 1 {
		t.Errorf("store = %+v saves=%d", f.store.d, f.store.saves)
	}

	f.m.Start()
	if f.m.AdjustDuration(settings.Meditate, 1) {
		t.Error("adjust while running was applied")
	}
}

func TestAudioFailureKeepsTimer(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.backend.err = errors.New("no device")
	f.m.Start()
	if f.m.State() != Running {
		t.Fatalf("state = %v, want running", f.m.State())
	}
	v := f.m.Snapshot(f.clock.Now())
	if !v.Degraded {
		t.Error("view not degraded")
	}
	f.clock.Advance(3 * time.Minute)
	f.m.Tick(f.clock.Now())
	if f.m.State() != Complete {
		t.Errorf("silent session did not complete")
	}
}

func TestWakeLockFailureIgnored(t *testing.T) {
	m := New(Options{
		Clock:    newManualClock(),
		WakeLock: func() (func(), error) { return nil, errors.New("denied") },
	})
	m.Start()
	if m.State() != Running {
		t.Errorf("state = %v, want running", m.State())
	}
	m.Stop()
}

func TestPreviewBell(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.PreviewBell()
	if f.backend.previews != 1 || f.count(EventPreview) != 1 {
		t.Errorf("previews=%d events=%d", f.backend.previews, f.count(EventPreview))
	}
}

func TestStateText(t *testing.T) {
	b, _ := Complete.MarshalText()
	if string(b) != "complete" {
		t.Errorf("MarshalText = %q", b)
	}
	for _, s := range []State{Idle, Running, Complete} {
		text, _ := s.MarshalText()
		var got State
		if err := got.UnmarshalText(text); err != nil || got != s {
			t.Errorf("round trip %v = %v, %v", s, got, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("paused")); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestViewJSONRoundTrip(t *testing.T) {
	f := newFixture(t, oneEach, 0)
	f.m.Start()
	b, err := json.Marshal(f.m.Snapshot(f.clock.Now()))
	if err != nil {
		t.Fatal(err)
	}
	var v View
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	if v.State != Running || v.Phase != timeline.Settle {
		t.Errorf("decoded %+v", v)
	}
}
