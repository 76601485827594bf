//go:build !windows

package installer

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// CheckElevation verifies the process has root privileges when needed.
// Returns nil if mode is ModeUser or if running as root.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser {
		return nil
	}
	if unix.Geteuid() != 0 {
		return fmt.Errorf("system-wide installation requires root privileges\n\nRun with sudo:\n  sudo %s", os.Args[0])
	}
	return nil
}
