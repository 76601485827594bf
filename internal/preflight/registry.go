package preflight

import (
	"context"

	"go.uber.org/zap"

	"github.com/monsterpi/svcinstall/internal/models"
)

// Registry holds the registered checks and runs them in registration order.
type Registry struct {
	checks []Check
	logger *zap.Logger
}

// NewRegistry creates a new check registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		checks: make([]Check, 0),
		logger: logger.Named("preflight"),
	}
}

// Register adds a check if it's available on the current platform.
// Unavailable checks are logged and skipped.
func (r *Registry) Register(c Check) {
	if c.IsAvailable() {
		r.checks = append(r.checks, c)
		r.logger.Debug("Registered check", zap.String("name", c.Name()))
	} else {
		r.logger.Debug("Check not available, skipping", zap.String("name", c.Name()))
	}
}

// RunAll runs every registered check one after another. A failing check is
// logged and skipped; it does not prevent the others from running.
func (r *Registry) RunAll(ctx context.Context) []models.Finding {
	var findings []models.Finding
	for _, c := range r.checks {
		found, err := c.Run(ctx)
		if err != nil {
			r.logger.Warn("Check failed",
				zap.String("check", c.Name()),
				zap.Error(err))
			continue
		}
		for _, f := range found {
			fields := []zap.Field{zap.String("check", f.Check), zap.String("message", f.Message)}
			if f.Severity == models.SeverityWarn {
				r.logger.Warn("Preflight warning", fields...)
			} else {
				r.logger.Info("Preflight", fields...)
			}
		}
		findings = append(findings, found...)
	}
	return findings
}

// Checks returns a copy of all registered checks.
func (r *Registry) Checks() []Check {
	result := make([]Check, len(r.checks))
	copy(result, r.checks)
	return result
}
