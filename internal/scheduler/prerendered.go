package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/timeline"
)

// PrerenderedBackend mixes the whole session into one track (silence with the
// bell at every offset) and plays it as a single continuous stream. The
// silent bed keeps the output device busy for the whole session.
type PrerenderedBackend struct {
	Sink       audio.Sink
	Bell       []int16
	SampleRate int

	mu      sync.Mutex
	session audio.Stream
	preview audio.Stream
}

// NewPrerenderedBackend returns a backend playing bell through sink.
func NewPrerenderedBackend(sink audio.Sink, bell []int16, sampleRate int) *PrerenderedBackend {
	return &PrerenderedBackend{Sink: sink, Bell: bell, SampleRate: sampleRate}
}

// Track builds the session track for tl without playing it.
func (p *PrerenderedBackend) Track(tl *timeline.Timeline) *audio.Session {
	return audio.NewSession(p.Bell, tl.Offsets(), tl.Total(), p.SampleRate)
}

func (p *PrerenderedBackend) Arm(tl *timeline.Timeline) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSession()

	st, err := p.Sink.Start(p.Track(tl).PCMReader())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	p.session = st
	return nil
}

func (p *PrerenderedBackend) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopSession()
}

func (p *PrerenderedBackend) stopSession() {
	if p.session != nil {
		p.session.Stop()
		p.session = nil
	}
}

func (p *PrerenderedBackend) PreviewOne() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.preview != nil {
		p.preview.Stop()
		p.preview = nil
	}
	one := audio.NewSession(p.Bell, []time.Duration{0}, 0, p.SampleRate)
	st, err := p.Sink.Start(one.PCMReader())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	p.preview = st
	return nil
}
