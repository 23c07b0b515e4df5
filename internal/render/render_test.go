package render

import (
	"bytes"
	"context"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Mavwarf/stillness/internal/session"
	"github.com/Mavwarf/stillness/internal/settings"
)

type memStore struct{ d settings.Durations }

func (s *memStore) Load() settings.Durations        { return s.d }
func (s *memStore) Save(d settings.Durations) error { s.d = d; return nil }

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) AfterFunc(d time.Duration, f func()) session.Timer {
	return time.AfterFunc(d, f)
}

func newMachine(clock *fixedClock) *session.Machine {
	return session.New(session.Options{
		Settings: &memStore{d: settings.Durations{Settle: 1, Meditate: 1, Emerge: 1}},
		Clock:    clock,
	})
}

func TestFrameTicksMachine(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := &fixedClock{now: start}
	m := newMachine(clock)
	var got []session.View
	l := NewLoop(m, RendererFunc(func(v session.View) { got = append(got, v) }), 30)

	m.Start()
	v := l.Frame(start.Add(125 * time.Second))
	if v.Phase != "emerge" || v.RemainingText != "0:55" {
		t.Errorf("view = %+v", v)
	}
	if len(got) != 1 {
		t.Errorf("rendered %d frames, want 1", len(got))
	}
	l.Frame(start.Add(4 * time.Minute))
	if m.State() != session.Complete {
		t.Errorf("state = %v, want complete", m.State())
	}
}

func TestRunRendersOnNudge(t *testing.T) {
	clock := &fixedClock{now: time.Unix(1000, 0)}
	m := newMachine(clock)
	frames := make(chan session.View, 16)
	l := NewLoop(m, RendererFunc(func(v session.View) {
		select {
		case frames <- v:
		default:
		}
	}), 30)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	first := <-frames
	if first.State != session.Idle {
		t.Errorf("first frame state = %v", first.State)
	}
	m.Start()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v := <-frames:
			if v.State == session.Running {
				cancel()
				if err := <-done; err != context.Canceled {
					t.Errorf("Run returned %v", err)
				}
				return
			}
		case <-deadline:
			t.Fatal("no running frame after Start")
		}
	}
}

func TestNudgeNeverBlocks(t *testing.T) {
	m := newMachine(&fixedClock{now: time.Unix(0, 0)})
	l := NewLoop(m, nil, 10)
	for i := 0; i < 100; i++ {
		l.Nudge()
	}
}

func TestRingFor(t *testing.T) {
	r := RingFor(0, WebRingRadius)
	if math.Abs(r.Circumference-2*math.Pi*90) > 1e-9 || r.DashOffset != r.Circumference {
		t.Errorf("empty ring = %+v", r)
	}
	if r := RingFor(1, 90); r.DashOffset != 0 {
		t.Errorf("full ring offset = %f", r.DashOffset)
	}
	if r := RingFor(2, 90); r.DashOffset != 0 {
		t.Errorf("clamped ring offset = %f", r.DashOffset)
	}
	if r := RingFor(math.NaN(), 90); r.DashOffset != r.Circumference {
		t.Errorf("NaN ring = %+v", r)
	}
}

func TestGlyphAndBar(t *testing.T) {
	if Glyph(0) != "○" || Glyph(1) != "●" {
		t.Errorf("glyphs %q %q", Glyph(0), Glyph(1))
	}
	if b := Bar(0.5, 10); b != "█████░░░░░" {
		t.Errorf("Bar = %q", b)
	}
	if Bar(1, 0) != "" {
		t.Error("zero-width bar not empty")
	}
}

func TestLineRendererDeduplicates(t *testing.T) {
	var buf bytes.Buffer
	r := &LineRenderer{W: &buf}
	v := session.View{State: session.Running, Phase: "settle", RemainingText: "0:59", Progress: 0.1}
	r.Render(v)
	r.Render(v)
	v.RemainingText = "0:58"
	r.Render(v)
	if n := strings.Count(buf.String(), "\n"); n != 2 {
		t.Errorf("printed %d lines, want 2:\n%s", n, buf.String())
	}
	if !strings.Contains(buf.String(), "settle") {
		t.Errorf("missing phase: %q", buf.String())
	}
}

func TestLabels(t *testing.T) {
	tests := []struct {
		v      session.View
		status string
		phase  string
	}{
		{session.View{State: session.Idle}, "Ready to begin", ""},
		{session.View{State: session.Running, Phase: "settle"}, "Settling in…", "Settling"},
		{session.View{State: session.Running, Phase: "meditate"}, "Meditating…", "Meditation"},
		{session.View{State: session.Running, Phase: "emerge"}, "Emerging…", "Emerging"},
		{session.View{State: session.Complete}, "Session complete", "Namaste"},
	}
	for _, tt := range tests {
		if got := Status(tt.v); got != tt.status {
			t.Errorf("Status(%v/%s) = %q, want %q", tt.v.State, tt.v.Phase, got, tt.status)
		}
		if got := PhaseLabel(tt.v); got != tt.phase {
			t.Errorf("PhaseLabel(%v/%s) = %q, want %q", tt.v.State, tt.v.Phase, got, tt.phase)
		}
	}
	if got := TotalLabel(settings.Default()); got != "Total: 24 minutes" {
		t.Errorf("TotalLabel = %q", got)
	}
}
