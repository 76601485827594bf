//go:build windows

package installer

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// CheckElevation verifies the process runs elevated when installing a
// system-wide service.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser {
		return nil
	}
	var token windows.Token
	err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token)
	if err != nil {
		return fmt.Errorf("cannot check elevation: %w", err)
	}
	defer token.Close()

	if !token.IsElevated() {
		return fmt.Errorf("system-wide installation requires Administrator privileges\n\nRight-click and 'Run as administrator', or use an elevated prompt:\n  %s", os.Args[0])
	}
	return nil
}
