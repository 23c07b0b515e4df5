package audio

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"
	"time"
)

const testRate = 100 // samples per second keeps tracks tiny

func TestMixSessionPlacesBells(t *testing.T) {
	bell := []int16{1000, 500, 250}
	offsets := []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}
	out := MixSession(bell, offsets, 3*time.Second, testRate)

	// 3 s of track plus the bell length as tail.
	if len(out) != 300+len(bell) {
		t.Fatalf("len = %d, want %d", len(out), 300+len(bell))
	}
	for _, start := range []int{0, 100, 200, 300} {
		for k, v := range bell {
			if out[start+k] != v {
				t.Errorf("sample %d = %d, want %d", start+k, out[start+k], v)
			}
		}
	}
	if out[50] != 0 || out[150] != 0 {
		t.Error("expected silence between bells")
	}
}

func TestMixSessionClampsOverlap(t *testing.T) {
	bell := []int16{30000, -30000, 30000}
	out := MixSession(bell, []time.Duration{0, 0}, time.Second, testRate)
	if out[0] != 32767 || out[1] != -32768 {
		t.Errorf("overlap not clamped: %d %d", out[0], out[1])
	}
}

func TestSessionTailCappedAtBellLength(t *testing.T) {
	rate := 10
	long := make([]int16, 20*rate) // 20 s bell
	s := NewSession(long, []time.Duration{0}, time.Minute, rate)
	want := int64(60*rate) + int64(BellLength.Seconds()*float64(rate))
	if s.Len() != want {
		t.Errorf("Len = %d, want %d", s.Len(), want)
	}
}

func TestSessionVolume(t *testing.T) {
	s := NewSession([]int16{16384}, []time.Duration{0}, time.Second, testRate)
	s.SetVolume(0.5)
	if got := s.Sample(0); got != 8192 {
		t.Errorf("half volume = %d, want 8192", got)
	}
	s.SetVolume(0)
	if got := s.Sample(0); got != 0 {
		t.Errorf("zero volume = %d", got)
	}
}

func TestSessionWAVReaderDecodes(t *testing.T) {
	bell := []int16{1200, -1200, 600}
	s := NewSession(bell, []time.Duration{0, 500 * time.Millisecond}, time.Second, testRate)

	data, err := io.ReadAll(s.WAVReader())
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != s.WAVSize() {
		t.Fatalf("read %d bytes, WAVSize %d", len(data), s.WAVSize())
	}

	var want bytes.Buffer
	if err := EncodeWAV(&want, s.Samples(), testRate); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, want.Bytes()) {
		t.Error("streamed WAV differs from EncodeWAV of the materialized track")
	}
}

func TestSessionWAVReaderSeek(t *testing.T) {
	bell := []int16{0x1234}
	s := NewSession(bell, []time.Duration{time.Second}, 2*time.Second, testRate)
	r := s.WAVReader()

	// Sample 100 lives at byte 44 + 200; start on its high byte.
	if _, err := r.Seek(44+200+1, io.SeekStart); err != nil {
		t.Fatal(err)
	}
	b := make([]byte, 1)
	if _, err := r.Read(b); err != nil {
		t.Fatal(err)
	}
	if b[0] != 0x12 {
		t.Errorf("high byte = %#x, want 0x12", b[0])
	}

	end, _ := r.Seek(0, io.SeekEnd)
	if end != s.WAVSize() {
		t.Errorf("SeekEnd = %d", end)
	}
	if _, err := r.Read(b); err != io.EOF {
		t.Errorf("read at end = %v, want EOF", err)
	}
	if _, err := r.Seek(-1, io.SeekStart); err == nil {
		t.Error("expected error seeking before start")
	}
}

func TestSessionPCMReaderHasNoHeader(t *testing.T) {
	s := NewSession([]int16{-2}, []time.Duration{0}, 0, testRate)
	data, _ := io.ReadAll(s.PCMReader())
	if len(data) != 2 {
		t.Fatalf("len = %d, want 2", len(data))
	}
	if v := int16(binary.LittleEndian.Uint16(data)); v != -2 {
		t.Errorf("sample = %d", v)
	}
}
