package session

import (
	"time"

	"github.com/Mavwarf/stillness/internal/settings"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// View is the read-only state a front-end renders.
type View struct {
	State         State              `json:"state"`
	Phase         timeline.PhaseName `json:"phase"`
	Remaining     time.Duration      `json:"remaining"`
	RemainingText string             `json:"remaining_text"`
	Progress      float64            `json:"progress"`
	Durations     settings.Durations `json:"durations"`
	Degraded      bool               `json:"degraded"`
	Generation    uint64             `json:"generation"`
	// Bells is how many bells have been acknowledged this session.
	Bells int `json:"bells"`
}

// Snapshot computes the observables at now. It does not advance the
// machine; call Tick for that.
func (m *Machine) Snapshot(now time.Time) View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		State:      m.state,
		Durations:  m.durations,
		Degraded:   m.sched.Degraded(),
		Generation: m.gen,
	}
	switch m.state {
	case Idle:
		v.Phase = timeline.Settle
		v.Remaining = time.Duration(m.durations.Settle) * time.Minute
	case Running:
		p, ok := m.tl.PhaseAt(now)
		if !ok {
			p = m.tl.Phases[0]
		}
		v.Phase = p.Name
		v.Remaining = timeline.Remaining(p, now)
		v.Progress = timeline.Progress(p, now)
	case Complete:
		v.Phase = timeline.Emerge
		v.Progress = 1
		v.Bells = len(timeline.Timeline{}.Bells)
	}
	if m.tl != nil {
		for _, b := range m.tl.Bells {
			if b.Fired {
				v.Bells++
			}
		}
	}
	v.RemainingText = timeline.FormatRemaining(v.Remaining)
	return v
}
