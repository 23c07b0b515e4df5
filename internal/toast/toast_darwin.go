//go:build darwin

package toast

import (
	"fmt"
	"os/exec"
)

// show displays a macOS notification using osascript.
func show(title, message string) error {
	cmd := exec.Command("osascript", "-e", appleScript(title, message))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast failed: %w\n%s", err, out)
	}
	return nil
}
