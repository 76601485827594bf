//go:build linux

package platform

import (
	"fmt"
	"os"
	"strings"
)

// deviceTreeModel is where ARM boards expose their model name.
const deviceTreeModel = "/proc/device-tree/model"

// LinuxPlatform implements Platform for Linux systems.
type LinuxPlatform struct {
	modelPath string
}

// New creates a new Linux platform instance.
func New() Platform {
	return &LinuxPlatform{modelPath: deviceTreeModel}
}

// Name returns the platform identifier.
func (p *LinuxPlatform) Name() string { return "linux" }

// BoardModel reads the device-tree model. x86 hosts have no device tree,
// which is not an error.
func (p *LinuxPlatform) BoardModel() (string, error) {
	data, err := os.ReadFile(p.modelPath)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", p.modelPath, err)
	}
	// The device tree stores NUL-terminated strings.
	return strings.TrimSpace(strings.TrimRight(string(data), "\x00")), nil
}
