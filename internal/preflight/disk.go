package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/monsterpi/svcinstall/internal/models"
)

// DiskCheck warns when the filesystem holding the data root is low on space.
type DiskCheck struct {
	path      string
	minFreeMB int
	freeSpace func(ctx context.Context, path string) (uint64, error)
}

// NewDiskCheck creates a disk check for path. The data root may not exist
// yet, so the nearest existing ancestor is measured.
func NewDiskCheck(path string, minFreeMB int) *DiskCheck {
	return &DiskCheck{
		path:      path,
		minFreeMB: minFreeMB,
		freeSpace: func(ctx context.Context, path string) (uint64, error) {
			usage, err := disk.UsageWithContext(ctx, path)
			if err != nil {
				return 0, err
			}
			return usage.Free, nil
		},
	}
}

// Name returns the check identifier.
func (c *DiskCheck) Name() string { return "disk" }

// Run measures free space.
func (c *DiskCheck) Run(ctx context.Context) ([]models.Finding, error) {
	target := existingAncestor(c.path)
	free, err := c.freeSpace(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("measuring %s: %w", target, err)
	}
	minFree := uint64(c.minFreeMB) * 1024 * 1024
	if free < minFree {
		return []models.Finding{warn(c.Name(), fmt.Sprintf(
			"only %s free under %s (want at least %s)", humanize.IBytes(free), target, humanize.IBytes(minFree)))}, nil
	}
	return []models.Finding{info(c.Name(), fmt.Sprintf("%s free under %s", humanize.IBytes(free), target))}, nil
}

// IsAvailable returns true when a minimum is configured.
func (c *DiskCheck) IsAvailable() bool { return c.minFreeMB > 0 }

func existingAncestor(p string) string {
	p = filepath.Clean(p)
	for {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		parent := filepath.Dir(p)
		if parent == p {
			return p
		}
		p = parent
	}
}
