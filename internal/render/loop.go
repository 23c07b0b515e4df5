// Package render drives the display of a session. It is observational:
// a frame advances the machine's bookkeeping and draws, but never plays
// audio, so a throttled or stalled loop only costs smoothness.
package render

import (
	"context"
	"time"

	"github.com/Mavwarf/stillness/internal/session"
)

// DefaultFrameRate is used when Loop.Interval is unset.
const DefaultFrameRate = 30

// Renderer draws one frame.
type Renderer interface {
	Render(v session.View)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(session.View)

func (f RendererFunc) Render(v session.View) { f(v) }

// Loop ticks the machine and renders at a fixed cadence while a session
// runs, and once after every other change.
type Loop struct {
	Machine  *session.Machine
	View     Renderer
	Interval time.Duration

	nudge chan struct{}
}

// NewLoop returns a Loop rendering at frameRate frames per second.
func NewLoop(m *session.Machine, view Renderer, frameRate int) *Loop {
	if frameRate <= 0 {
		frameRate = DefaultFrameRate
	}
	l := &Loop{
		Machine:  m,
		View:     view,
		Interval: time.Second / time.Duration(frameRate),
		nudge:    make(chan struct{}, 1),
	}
	m.Subscribe(func(session.Event) { l.Nudge() })
	return l
}

// Nudge requests an immediate frame, e.g. when the display becomes
// visible again. It never blocks.
func (l *Loop) Nudge() {
	select {
	case l.nudge <- struct{}{}:
	default:
	}
}

// Frame runs one tick+render at now and returns what was drawn.
func (l *Loop) Frame(now time.Time) session.View {
	l.Machine.Tick(now)
	v := l.Machine.Snapshot(now)
	if l.View != nil {
		l.View.Render(v)
	}
	return v
}

// Run renders until ctx is done. While idle or complete the ticker is
// parked and only nudges produce frames.
func (l *Loop) Run(ctx context.Context) error {
	if l.nudge == nil {
		l.nudge = make(chan struct{}, 1)
	}
	interval := l.Interval
	if interval <= 0 {
		interval = time.Second / DefaultFrameRate
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.Frame(l.Machine.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Machine.State() == session.Running {
				l.Frame(l.Machine.Now())
			}
		case <-l.nudge:
			l.Frame(l.Machine.Now())
		}
	}
}
