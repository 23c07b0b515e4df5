package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// maxWAVSize is the maximum WAV file size we'll load (50 MB).
const maxWAVSize = 50 * 1024 * 1024

// wavHeaderSize is the size of the canonical header EncodeWAV writes.
const wavHeaderSize = 44

// ErrNotWAV is returned when data lacks a RIFF/WAVE header.
var ErrNotWAV = errors.New("wav: not a WAV file")

// Clip is decoded mono audio.
type Clip struct {
	SampleRate int
	Samples    []float64 // [-1, 1]
}

// PCM16 returns the clip as clamped 16-bit samples.
func (c Clip) PCM16() []int16 {
	return ToPCM16(c.Samples)
}

// LoadWAV reads a WAV file and returns it as mono audio at sampleRate.
// Supports PCM format (format code 1) with 8-bit, 16-bit, or 24-bit samples,
// mono or stereo (downmixed). Resamples via linear interpolation if needed.
func LoadWAV(path string, sampleRate int) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("wav: %w", err)
	}
	if len(data) > maxWAVSize {
		return Clip{}, fmt.Errorf("wav: file too large (%d bytes, max %d)", len(data), maxWAVSize)
	}
	clip, err := DecodeWAV(data)
	if err != nil {
		return Clip{}, err
	}
	if clip.SampleRate != sampleRate {
		clip.Samples = resampleLinear(clip.Samples, clip.SampleRate, sampleRate)
		clip.SampleRate = sampleRate
	}
	return clip, nil
}

// DecodeWAV parses an in-memory WAV file into mono samples at its native rate.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) < wavHeaderSize {
		return Clip{}, fmt.Errorf("wav: file too short")
	}

	// RIFF header
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return Clip{}, ErrNotWAV
	}

	// Find fmt chunk
	fmtOff, fmtSize, err := findChunk(data, "fmt ")
	if err != nil {
		return Clip{}, err
	}
	if fmtSize < 16 || fmtOff+16 > len(data) {
		return Clip{}, fmt.Errorf("wav: fmt chunk too short")
	}

	format := binary.LittleEndian.Uint16(data[fmtOff : fmtOff+2])
	if format != 1 {
		return Clip{}, fmt.Errorf("wav: unsupported format %d (only PCM supported)", format)
	}
	channels := binary.LittleEndian.Uint16(data[fmtOff+2 : fmtOff+4])
	sampleRate := binary.LittleEndian.Uint32(data[fmtOff+4 : fmtOff+8])
	bitsPerSample := binary.LittleEndian.Uint16(data[fmtOff+14 : fmtOff+16])

	if channels < 1 || channels > 2 {
		return Clip{}, fmt.Errorf("wav: unsupported channel count %d", channels)
	}
	if bitsPerSample != 8 && bitsPerSample != 16 && bitsPerSample != 24 {
		return Clip{}, fmt.Errorf("wav: unsupported bit depth %d", bitsPerSample)
	}
	if sampleRate == 0 {
		return Clip{}, fmt.Errorf("wav: invalid sample rate 0")
	}

	// Find data chunk
	dataOff, dataSize, err := findChunk(data, "data")
	if err != nil {
		return Clip{}, err
	}
	if dataOff+dataSize > len(data) {
		dataSize = len(data) - dataOff
	}
	raw := data[dataOff : dataOff+dataSize]

	bytesPerSample := int(bitsPerSample) / 8
	frameSize := bytesPerSample * int(channels)
	numFrames := len(raw) / frameSize
	if numFrames == 0 {
		return Clip{}, fmt.Errorf("wav: no audio data")
	}

	samples := make([]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		off := i * frameSize
		s := decodeSample(raw, off, bitsPerSample)
		if channels == 2 {
			s = (s + decodeSample(raw, off+bytesPerSample, bitsPerSample)) / 2
		}
		samples[i] = s
	}

	return Clip{SampleRate: int(sampleRate), Samples: samples}, nil
}

// findChunk locates a RIFF chunk by its 4-byte ID and returns (dataOffset, dataSize).
func findChunk(data []byte, id string) (int, int, error) {
	off := 12 // skip RIFF header
	for off+8 <= len(data) {
		chunkID := string(data[off : off+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		if chunkID == id {
			return off + 8, chunkSize, nil
		}
		// Chunks are word-aligned.
		off += 8 + chunkSize
		if off%2 != 0 {
			off++
		}
	}
	return 0, 0, fmt.Errorf("wav: %q chunk not found", id)
}

// decodeSample reads one sample at the given byte offset and returns it as float64 in [-1, 1].
func decodeSample(data []byte, off int, bitsPerSample uint16) float64 {
	switch bitsPerSample {
	case 8:
		// 8-bit WAV is unsigned (0-255, 128 = silence)
		return (float64(data[off]) - 128.0) / 128.0
	case 16:
		s := int16(data[off]) | int16(data[off+1])<<8
		return float64(s) / 32768.0
	case 24:
		val := int(data[off]) | int(data[off+1])<<8 | int(data[off+2])<<16
		if val >= 1<<23 {
			val -= 1 << 24
		}
		return float64(val) / 8388608.0
	}
	return 0
}

// resampleLinear resamples mono samples from srcRate to dstRate.
func resampleLinear(samples []float64, srcRate, dstRate int) []float64 {
	if srcRate == dstRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(srcRate) / float64(dstRate)
	dstLen := int(math.Ceil(float64(len(samples)) / ratio))
	out := make([]float64, dstLen)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := pos - float64(idx)
		switch {
		case idx+1 < len(samples):
			out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
		case idx < len(samples):
			out[i] = samples[idx]
		}
	}
	return out
}

// clamp16 converts a float64 in [-1, 1] to int16, clamping to avoid overflow.
func clamp16(f float64) int16 {
	s := f * 32767.0
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

// wavHeader returns the 44-byte header of a mono 16-bit PCM file holding
// numSamples samples.
func wavHeader(numSamples int64, sampleRate int) []byte {
	dataSize := uint32(numSamples * 2)
	h := make([]byte, wavHeaderSize)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36+dataSize)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], 1) // mono
	binary.LittleEndian.PutUint32(h[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(h[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(h[32:34], 2)
	binary.LittleEndian.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], dataSize)
	return h
}

// EncodeWAV writes samples as a mono 16-bit little-endian RIFF/WAVE file.
func EncodeWAV(w io.Writer, samples []int16, sampleRate int) error {
	if _, err := w.Write(wavHeader(int64(len(samples)), sampleRate)); err != nil {
		return fmt.Errorf("wav: write header: %w", err)
	}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("wav: write data: %w", err)
	}
	return nil
}
