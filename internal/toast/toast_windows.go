//go:build windows

package toast

import (
	"fmt"
	"os/exec"
)

// show displays a Windows 10+ toast through PowerShell.
func show(title, message string) error {
	cmd := exec.Command("powershell", "-NoProfile", "-Command", powerShellScript(title, message, iconPath()))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("toast failed: %w\n%s", err, out)
	}
	return nil
}
