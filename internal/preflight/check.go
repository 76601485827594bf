// Package preflight defines the Check interface and advisory host checks
// run before a service is registered. Findings never fail an install.
package preflight

import (
	"context"

	"github.com/monsterpi/svcinstall/internal/models"
)

// Check is the interface that all preflight checks must implement.
type Check interface {
	// Name returns the unique identifier for this check.
	Name() string

	// Run inspects the host and returns zero or more findings.
	Run(ctx context.Context) ([]models.Finding, error)

	// IsAvailable checks if this check can run on the current platform.
	// Checks that return false will not be registered.
	IsAvailable() bool
}

func info(check, msg string) models.Finding {
	return models.Finding{Check: check, Severity: models.SeverityInfo, Message: msg}
}

func warn(check, msg string) models.Finding {
	return models.Finding{Check: check, Severity: models.SeverityWarn, Message: msg}
}
