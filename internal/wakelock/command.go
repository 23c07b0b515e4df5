//go:build linux || darwin

package wakelock

import (
	"fmt"
	"os/exec"
)

// startCommand holds the lock for as long as the child process lives.
func startCommand(name string, args ...string) (*Lock, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("wakelock: %s: %w", name, err)
	}
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	return newLock(func() {
		cmd.Process.Kill()
		<-done
	}), nil
}
