// Package platform provides an OS abstraction layer for host facts that
// gopsutil does not report, such as the single-board-computer model.
package platform

import "strings"

// Platform provides OS-specific host information.
type Platform interface {
	// BoardModel returns the hardware model string, or "" if it cannot be determined.
	BoardModel() (string, error)

	// Name returns the platform name (linux, stub).
	Name() string
}

// IsRaspberryPi reports whether a board model string names a Raspberry Pi.
func IsRaspberryPi(model string) bool {
	return strings.HasPrefix(strings.TrimSpace(model), "Raspberry Pi")
}
