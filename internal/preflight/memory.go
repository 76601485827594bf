package preflight

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/monsterpi/svcinstall/internal/models"
)

// heapFlags are the spellings Node accepts for the old-space heap limit (MiB).
var heapFlags = []string{"--max_old_space_size=", "--max-old-space-size="}

// MemoryCheck warns when the runtime heap limit exceeds physical memory.
type MemoryCheck struct {
	runtimeOptions []string
	totalMemory    func(ctx context.Context) (uint64, error)
}

// NewMemoryCheck creates a memory check for the given runtime options.
func NewMemoryCheck(runtimeOptions []string) *MemoryCheck {
	return &MemoryCheck{
		runtimeOptions: runtimeOptions,
		totalMemory: func(ctx context.Context) (uint64, error) {
			v, err := mem.VirtualMemoryWithContext(ctx)
			if err != nil {
				return 0, err
			}
			return v.Total, nil
		},
	}
}

// Name returns the check identifier.
func (c *MemoryCheck) Name() string { return "memory" }

// Run compares the configured heap limit with total RAM.
func (c *MemoryCheck) Run(ctx context.Context) ([]models.Finding, error) {
	limitMB, ok := heapLimitMB(c.runtimeOptions)
	if !ok {
		return nil, nil
	}
	total, err := c.totalMemory(ctx)
	if err != nil {
		return nil, err
	}
	limit := uint64(limitMB) * 1024 * 1024
	if limit > total {
		return []models.Finding{warn(c.Name(), fmt.Sprintf(
			"heap limit %s exceeds physical memory %s", humanize.IBytes(limit), humanize.IBytes(total)))}, nil
	}
	return []models.Finding{info(c.Name(), fmt.Sprintf(
		"heap limit %s of %s physical memory", humanize.IBytes(limit), humanize.IBytes(total)))}, nil
}

// IsAvailable reports true; gopsutil supports memory totals on every platform.
func (c *MemoryCheck) IsAvailable() bool { return true }

// heapLimitMB extracts the last heap limit flag from the runtime options.
func heapLimitMB(opts []string) (int, bool) {
	limit, found := 0, false
	for _, opt := range opts {
		for _, prefix := range heapFlags {
			if !strings.HasPrefix(opt, prefix) {
				continue
			}
			n, err := strconv.Atoi(strings.TrimPrefix(opt, prefix))
			if err != nil || n <= 0 {
				continue
			}
			limit, found = n, true
		}
	}
	return limit, found
}
