// Package wakelock keeps the display and system awake during a session.
// It is best effort: every platform can refuse, and callers ignore that.
package wakelock

import (
	"errors"
	"sync"
)

// ErrUnsupported is returned on platforms without a wake-lock mechanism.
var ErrUnsupported = errors.New("wakelock: unsupported platform")

// Lock is a held wake lock.
type Lock struct {
	once    sync.Once
	release func()
}

func newLock(release func()) *Lock {
	return &Lock{release: release}
}

// Release gives the lock back. Safe to call more than once.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	l.once.Do(l.release)
}

// Acquire takes a wake lock using the platform mechanism.
func Acquire() (*Lock, error) {
	return acquire()
}

// Hold is Acquire in the shape session.Options.WakeLock expects.
func Hold() (func(), error) {
	l, err := Acquire()
	if err != nil {
		return nil, err
	}
	return l.Release, nil
}
