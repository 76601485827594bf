package preflight

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/monsterpi/svcinstall/internal/models"
	"github.com/monsterpi/svcinstall/internal/platform"
)

// HostCheck reports the operating system and board the service is being
// installed on, and warns when the board is not a Raspberry Pi.
type HostCheck struct {
	platform platform.Platform
}

// NewHostCheck creates a new host check.
func NewHostCheck(p platform.Platform) *HostCheck {
	return &HostCheck{platform: p}
}

// Name returns the check identifier.
func (c *HostCheck) Name() string { return "host" }

// Run gathers OS, platform and board facts.
func (c *HostCheck) Run(ctx context.Context) ([]models.Finding, error) {
	h, err := host.InfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	findings := []models.Finding{
		info(c.Name(), fmt.Sprintf("%s %s %s (%s, kernel %s)", h.OS, h.Platform, h.PlatformVersion, h.KernelArch, h.KernelVersion)),
	}

	model, err := c.platform.BoardModel()
	if err != nil {
		return findings, err
	}
	switch {
	case model == "":
		findings = append(findings, warn(c.Name(), fmt.Sprintf("board model unknown on the %s platform; this installer targets Raspberry Pi images", c.platform.Name())))
	case !platform.IsRaspberryPi(model):
		findings = append(findings, warn(c.Name(), fmt.Sprintf("board %q is not a Raspberry Pi", model)))
	default:
		findings = append(findings, info(c.Name(), model))
	}
	return findings, nil
}

// IsAvailable reports true on every platform.
func (c *HostCheck) IsAvailable() bool { return true }
