//go:build !linux && !darwin && !windows

package wakelock

func acquire() (*Lock, error) {
	return nil, ErrUnsupported
}
