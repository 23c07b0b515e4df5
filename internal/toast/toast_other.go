//go:build !linux && !darwin && !windows

package toast

func show(title, message string) error { return ErrUnsupported }
