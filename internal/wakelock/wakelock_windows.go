package wakelock

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/windows"
)

const (
	esSystemRequired  = 0x00000001
	esDisplayRequired = 0x00000002
	esContinuous      = 0x80000000
)

var (
	kernel32                 = windows.NewLazySystemDLL("kernel32.dll")
	pSetThreadExecutionState = kernel32.NewProc("SetThreadExecutionState")
)

// acquire sets the execution state on a dedicated OS thread, since the
// state belongs to the thread that set it.
func acquire() (*Lock, error) {
	if err := pSetThreadExecutionState.Find(); err != nil {
		return nil, fmt.Errorf("wakelock: %w", err)
	}
	errc := make(chan error, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		defer close(done)

		r, _, err := pSetThreadExecutionState.Call(uintptr(esContinuous | esSystemRequired | esDisplayRequired))
		if r == 0 {
			errc <- fmt.Errorf("wakelock: SetThreadExecutionState: %w", err)
			return
		}
		errc <- nil
		<-stop
		pSetThreadExecutionState.Call(uintptr(esContinuous))
	}()

	if err := <-errc; err != nil {
		return nil, err
	}
	return newLock(func() {
		close(stop)
		<-done
	}), nil
}
