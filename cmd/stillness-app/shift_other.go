//go:build !windows

package main

func isShiftHeld() bool { return false }
