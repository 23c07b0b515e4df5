package scheduler

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mavwarf/stillness/internal/audio"
	"github.com/Mavwarf/stillness/internal/timeline"
)

const (
	// keepAliveFreq is below most speakers' response; with an amplitude of
	// 16 (about -66 dBFS) it is inaudible but keeps the device awake.
	keepAliveFreq = 20.0
	keepAliveAmp  = 16.0
)

// BellClock is an endless PCM stream whose sample counter is the session
// clock. Bells are committed at absolute sample positions up front, so
// they land on the audio hardware's timeline rather than a software timer.
type BellClock struct {
	bell       []int16
	starts     []int64
	sampleRate int
	keepAlive  bool

	pos     atomic.Int64
	stopped atomic.Bool
}

// NewBellClock commits bell at every offset of the stream.
func NewBellClock(bell []int16, offsets []time.Duration, sampleRate int, keepAlive bool) *BellClock {
	starts := make([]int64, len(offsets))
	for i, off := range offsets {
		starts[i] = int64(math.Round(off.Seconds() * float64(sampleRate)))
	}
	return &BellClock{bell: bell, starts: starts, sampleRate: sampleRate, keepAlive: keepAlive}
}

// Position returns how much audio has been handed to the device.
func (c *BellClock) Position() time.Duration {
	return time.Duration(c.pos.Load()) * time.Second / time.Duration(c.sampleRate)
}

// Stop ends the stream at the next Read.
func (c *BellClock) Stop() { c.stopped.Store(true) }

// Sample returns the value at absolute sample i.
func (c *BellClock) Sample(i int64) int16 {
	var v float64
	if c.keepAlive {
		v = keepAliveAmp * math.Sin(2*math.Pi*keepAliveFreq*float64(i)/float64(c.sampleRate))
	}
	for _, s := range c.starts {
		if d := i - s; d >= 0 && d < int64(len(c.bell)) {
			v += float64(c.bell[d])
		}
	}
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

func (c *BellClock) Read(p []byte) (int, error) {
	if c.stopped.Load() {
		return 0, io.EOF
	}
	n := len(p) / 2
	pos := c.pos.Load()
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(p[i*2:], uint16(c.Sample(pos+int64(i))))
	}
	c.pos.Add(int64(n))
	return n * 2, nil
}

// ClockBackend keeps one endless stream open for the session and commits the
// bells into it, trading a longer warm device for exact timing.
type ClockBackend struct {
	Sink       audio.Sink
	Bell       []int16
	SampleRate int

	mu      sync.Mutex
	clock   *BellClock
	stream  audio.Stream
	preview audio.Stream
}

// NewClockBackend returns a backend playing bell through sink.
func NewClockBackend(sink audio.Sink, bell []int16, sampleRate int) *ClockBackend {
	return &ClockBackend{Sink: sink, Bell: bell, SampleRate: sampleRate}
}

func (c *ClockBackend) Arm(tl *timeline.Timeline) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()

	bc := NewBellClock(c.Bell, tl.Offsets(), c.SampleRate, true)
	st, err := c.Sink.Start(bc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	c.clock, c.stream = bc, st
	return nil
}

// Position reports the running session's audio clock, or zero.
func (c *ClockBackend) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clock == nil {
		return 0
	}
	return c.clock.Position()
}

func (c *ClockBackend) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stop()
}

func (c *ClockBackend) stop() {
	if c.clock != nil {
		c.clock.Stop()
		c.clock = nil
	}
	if c.stream != nil {
		c.stream.Stop()
		c.stream = nil
	}
}

func (c *ClockBackend) PreviewOne() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preview != nil {
		c.preview.Stop()
		c.preview = nil
	}
	one := audio.NewSession(c.Bell, []time.Duration{0}, 0, c.SampleRate)
	st, err := c.Sink.Start(one.PCMReader())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAudioUnavailable, err)
	}
	c.preview = st
	return nil
}
