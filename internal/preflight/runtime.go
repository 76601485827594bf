package preflight

import (
	"context"
	"fmt"

	"github.com/monsterpi/svcinstall/internal/models"
)

// RuntimeCheck warns when the configured runtime cannot be executed.
type RuntimeCheck struct {
	path string
}

// NewRuntimeCheck creates a runtime check. An empty path means the entry
// point is executed directly and the check is skipped.
func NewRuntimeCheck(path string) *RuntimeCheck {
	return &RuntimeCheck{path: path}
}

// Name returns the check identifier.
func (c *RuntimeCheck) Name() string { return "runtime" }

// Run verifies execute permission on the runtime.
func (c *RuntimeCheck) Run(ctx context.Context) ([]models.Finding, error) {
	if err := executable(c.path); err != nil {
		return []models.Finding{warn(c.Name(), fmt.Sprintf("%s is not executable: %v", c.path, err))}, nil
	}
	return nil, nil
}

// IsAvailable returns true when a runtime is configured.
func (c *RuntimeCheck) IsAvailable() bool { return c.path != "" }
