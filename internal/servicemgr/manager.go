// Package servicemgr wraps the host's service manager (systemd, SysV, OpenRC,
// upstart, launchd or the Windows SCM) behind a small interface so the
// installer can be exercised against a fake.
package servicemgr

import "github.com/monsterpi/svcinstall/internal/models"

// Manager provides service record operations keyed by service name.
type Manager interface {
	// Find reports whether a definition named name exists.
	Find(name string) (bool, error)

	// Install registers a new definition built verbatim from spec.
	// It fails if a definition with the same name already exists.
	Install(spec models.ServiceSpec) error

	// Uninstall stops (best effort) and removes the definition.
	Uninstall(name string) error

	// Start starts an installed service.
	Start(name string) error

	// Status returns the current state of the record.
	Status(name string) (models.Status, error)

	// Platform names the underlying service system, e.g. "linux-systemd".
	Platform() string
}
