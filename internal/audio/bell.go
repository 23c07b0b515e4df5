package audio

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mavwarf/stillness/internal/ffmpeg"
)

// DefaultSampleRate is used when no rate is configured.
const DefaultSampleRate = 44100

// BellLength is the rendered length of one strike.
const BellLength = 6 * time.Second

// partial is one harmonic of the bowl.
type partial struct {
	Frequency float64
	Gain      float64
	Decay     float64 // exponential time constant, seconds
}

// bowl partials: lower partials ring longest.
var bowl = []partial{
	{Frequency: 220, Gain: 1.00, Decay: 5.0},
	{Frequency: 440, Gain: 0.60, Decay: 4.4},
	{Frequency: 528, Gain: 0.45, Decay: 3.8},
	{Frequency: 660, Gain: 0.35, Decay: 3.2},
	{Frequency: 880, Gain: 0.25, Decay: 2.6},
	{Frequency: 1100, Gain: 0.15, Decay: 2.0},
}

const (
	attack      = 20 * time.Millisecond
	release     = 50 * time.Millisecond
	strikeLen   = 80 * time.Millisecond
	strikeDecay = 0.020 // seconds
	strikeGain  = 0.30
	strikeCut   = 3000.0 // Hz, one-pole low-pass on the mallet noise
	pitchDrift  = 0.003  // fraction the pitch sags over the decay
	driftTime   = 2.0    // seconds
	masterGain  = 0.6
)

// RenderBell synthesizes one singing-bowl strike at sampleRate. Samples are
// in [-1, 1]. Output is deterministic apart from the mallet noise.
func RenderBell(sampleRate int) []float64 {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	sr := float64(sampleRate)
	n := int(sr * BellLength.Seconds())
	out := make([]float64, n)

	var norm float64
	for _, p := range bowl {
		norm += p.Gain
	}

	attackN := sr * attack.Seconds()
	releaseN := sr * release.Seconds()

	for _, p := range bowl {
		phase := 0.0
		for i := 0; i < n; i++ {
			t := float64(i) / sr
			f := p.Frequency * (1 - pitchDrift*(1-math.Exp(-t/driftTime)))
			env := math.Exp(-t / p.Decay)
			if fi := float64(i); fi < attackN {
				env *= fi / attackN
			}
			out[i] += math.Sin(phase) * env * p.Gain / norm
			phase += 2 * math.Pi * f / sr
			if phase > 2*math.Pi {
				phase -= 2 * math.Pi
			}
		}
	}

	// Mallet strike: low-passed noise, fast decay.
	strikeN := int(sr * strikeLen.Seconds())
	if strikeN > n {
		strikeN = n
	}
	alpha := 1 - math.Exp(-2*math.Pi*strikeCut/sr)
	var lp float64
	for i := 0; i < strikeN; i++ {
		t := float64(i) / sr
		lp += alpha * (rand.Float64()*2 - 1 - lp)
		out[i] += lp * strikeGain * math.Exp(-t/strikeDecay)
	}

	for i := range out {
		out[i] *= masterGain
		if rem := float64(n - i); rem < releaseN {
			out[i] *= rem / releaseN
		}
	}
	return out
}

// BellPCM returns RenderBell converted to clamped 16-bit samples.
func BellPCM(sampleRate int) []int16 {
	return ToPCM16(RenderBell(sampleRate))
}

// ToPCM16 converts [-1, 1] floats to int16, clamping instead of wrapping.
func ToPCM16(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = clamp16(s)
	}
	return out
}

// LoadBell returns the bell to use for a session: the file at path when
// one is configured and decodes, otherwise the synthesized bowl. Files
// other than .wav are converted with ffmpeg first.
func LoadBell(path string, sampleRate int) ([]int16, error) {
	if path == "" {
		return BellPCM(sampleRate), nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		tmp, err := os.MkdirTemp("", "stillness-bell")
		if err != nil {
			return BellPCM(sampleRate), err
		}
		defer os.RemoveAll(tmp)
		wav := filepath.Join(tmp, "bell.wav")
		if err := ffmpeg.ToWAV(path, wav, sampleRate); err != nil {
			return BellPCM(sampleRate), err
		}
		path = wav
	}
	clip, err := LoadWAV(path, sampleRate)
	if err != nil {
		return BellPCM(sampleRate), err
	}
	return clip.PCM16(), nil
}

// ScaleVolume returns samples scaled by volume (0.0–1.0), clamped.
func ScaleVolume(samples []int16, volume float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := float64(s) * volume
		switch {
		case v > math.MaxInt16:
			out[i] = math.MaxInt16
		case v < math.MinInt16:
			out[i] = math.MinInt16
		default:
			out[i] = int16(v)
		}
	}
	return out
}
