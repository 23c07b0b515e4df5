package wakelock

import "testing"

func TestReleaseOnce(t *testing.T) {
	n := 0
	l := newLock(func() { n++ })
	l.Release()
	l.Release()
	if n != 1 {
		t.Errorf("release ran %d times, want 1", n)
	}
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	l.Release()
}

func TestAcquireBestEffort(t *testing.T) {
	// Headless CI usually refuses; either outcome is fine as long as a
	// returned lock releases cleanly.
	l, err := Acquire()
	if err != nil {
		t.Logf("wake lock unavailable: %v", err)
		return
	}
	l.Release()
}
