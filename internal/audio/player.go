package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// The oto context is process-wide: created lazily on first use and reused
// across sessions, never torn down.
var (
	otoCtx     *oto.Context
	otoOnce    sync.Once
	otoInitErr error
	otoRate    int
)

func getContext(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		}
		var readyChan chan struct{}
		otoCtx, readyChan, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-readyChan
			otoRate = sampleRate
		}
	})
	return otoCtx, otoInitErr
}

// Stream is one sound in flight.
type Stream interface {
	// Stop halts playback immediately and releases the player.
	Stop() error
	// Playing reports whether the stream still has audio to deliver.
	Playing() bool
}

// Sink starts streams of mono 16-bit little-endian PCM.
type Sink interface {
	Start(r io.Reader) (Stream, error)
}

// OtoSink plays mono 16-bit streams on the default output device.
type OtoSink struct {
	SampleRate int
	Volume     float64 // 0.0 to 1.0
}

// NewOtoSink returns a sink at sampleRate and volume (0.0–1.0).
func NewOtoSink(sampleRate int, volume float64) *OtoSink {
	return &OtoSink{SampleRate: sampleRate, Volume: volume}
}

// Start begins playing r and returns without waiting for it to finish.
// The first call opens the audio device.
func (s *OtoSink) Start(r io.Reader) (Stream, error) {
	ctx, err := getContext(s.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("audio: initialize output: %w", err)
	}
	if otoRate != s.SampleRate {
		return nil, fmt.Errorf("audio: output already open at %d Hz, cannot play %d Hz", otoRate, s.SampleRate)
	}
	player := ctx.NewPlayer(r)
	player.SetVolume(s.Volume)
	player.Play()
	return &otoStream{player: player}, nil
}

type otoStream struct {
	mu     sync.Mutex
	player *oto.Player
	closed bool
}

func (o *otoStream) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.player.Pause()
	return o.player.Close()
}

func (o *otoStream) Playing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.closed && o.player.IsPlaying()
}
