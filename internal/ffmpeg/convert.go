// Package ffmpeg converts audio files the WAV decoder cannot read.
package ffmpeg

import (
	"fmt"
	"os/exec"
	"strconv"
)

// ErrNotFound is returned when ffmpeg is not on PATH.
var ErrNotFound = fmt.Errorf("ffmpeg not found on PATH (required for non-WAV bell files)")

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// Args returns the ffmpeg arguments converting in to a mono 16-bit PCM
// WAV at sampleRate, overwriting out.
func Args(in, out string, sampleRate int) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", in,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-y", out,
	}
}

// ToWAV converts in (MP3, OGG, FLAC, ...) to a mono WAV at out.
func ToWAV(in, out string, sampleRate int) error {
	bin, err := lookPath("ffmpeg")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	cmd := exec.Command(bin, Args(in, out, sampleRate)...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg convert: %w\n%s", err, output)
	}
	return nil
}
