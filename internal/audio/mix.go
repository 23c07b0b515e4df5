package audio

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"time"
)

// Session is a whole meditation session mixed down to one mono track:
// a bed of silence with the bell mixed in at each offset, plus room for
// the last strike to ring out. Samples are computed on demand so even a
// three-hour session costs no more memory than one bell.
type Session struct {
	bell       []int16
	starts     []int64
	length     int64
	sampleRate int
	volume     float64
}

// NewSession lays bell out at offsets within a track of length total,
// padded by min(len(bell), BellLength) so the final strike can decay.
func NewSession(bell []int16, offsets []time.Duration, total time.Duration, sampleRate int) *Session {
	s := &Session{bell: bell, sampleRate: sampleRate, volume: 1}
	for _, off := range offsets {
		s.starts = append(s.starts, int64(math.Round(off.Seconds()*float64(sampleRate))))
	}
	pad := int64(len(bell))
	if max := int64(BellLength.Seconds() * float64(sampleRate)); pad > max {
		pad = max
	}
	s.length = int64(math.Round(total.Seconds()*float64(sampleRate))) + pad
	return s
}

// SetVolume scales every sample by v (0.0 silent, 1.0 unchanged).
func (s *Session) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	s.volume = v
}

// Len returns the number of samples in the track.
func (s *Session) Len() int64 { return s.length }

// SampleRate returns the track's sample rate.
func (s *Session) SampleRate() int { return s.sampleRate }

// Duration returns the playing time of the track.
func (s *Session) Duration() time.Duration {
	return time.Duration(float64(s.length) / float64(s.sampleRate) * float64(time.Second))
}

// Sample returns sample i, the clamped sum of every strike sounding there.
func (s *Session) Sample(i int64) int16 {
	if i < 0 || i >= s.length {
		return 0
	}
	var sum int32
	for _, st := range s.starts {
		if k := i - st; k >= 0 && k < int64(len(s.bell)) {
			sum += int32(s.bell[k])
		}
	}
	if s.volume != 1 {
		sum = int32(float64(sum) * s.volume)
	}
	if sum > math.MaxInt16 {
		return math.MaxInt16
	}
	if sum < math.MinInt16 {
		return math.MinInt16
	}
	return int16(sum)
}

// Samples materializes the whole track.
func (s *Session) Samples() []int16 {
	out := make([]int16, s.length)
	for i := range out {
		out[i] = s.Sample(int64(i))
	}
	return out
}

// PCMReader streams the track as raw 16-bit little-endian samples.
func (s *Session) PCMReader() io.Reader {
	return &sessionReader{s: s, base: 0, size: s.length * 2}
}

// WAVReader exposes the track as a seekable WAV file, suitable for
// http.ServeContent range requests.
func (s *Session) WAVReader() io.ReadSeeker {
	return &sessionReader{s: s, header: wavHeader(s.length, s.sampleRate), base: wavHeaderSize, size: wavHeaderSize + s.length*2}
}

// WAVSize returns the byte size of the file WAVReader produces.
func (s *Session) WAVSize() int64 {
	return wavHeaderSize + s.length*2
}

// MixSession is the materialized form of NewSession.
func MixSession(bell []int16, offsets []time.Duration, total time.Duration, sampleRate int) []int16 {
	return NewSession(bell, offsets, total, sampleRate).Samples()
}

type sessionReader struct {
	s      *Session
	header []byte
	base   int64 // byte offset where PCM begins
	size   int64
	pos    int64
}

func (r *sessionReader) Read(p []byte) (int, error) {
	if r.pos >= r.size {
		return 0, io.EOF
	}
	n := 0
	for n < len(p) && r.pos < r.size {
		if r.pos < r.base {
			c := copy(p[n:], r.header[r.pos:])
			n += c
			r.pos += int64(c)
			continue
		}
		rel := r.pos - r.base
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(r.s.Sample(rel/2)))
		p[n] = b[rel%2]
		n++
		r.pos++
	}
	return n, nil
}

func (r *sessionReader) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = r.pos + offset
	case io.SeekEnd:
		abs = r.size + offset
	default:
		return 0, errors.New("audio: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("audio: negative position")
	}
	r.pos = abs
	return abs, nil
}
