//go:build linux

package toast

import (
	"fmt"
	"os/exec"
)

// show displays a desktop notification using notify-send.
func show(title, message string) error {
	cmd := exec.Command("notify-send", "--app-name=stillness", "--icon="+iconPath(), title, message)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast failed: %w\n%s", err, out)
	}
	return nil
}
