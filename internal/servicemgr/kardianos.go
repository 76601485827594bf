package servicemgr

import (
	"errors"
	"fmt"

	"github.com/kardianos/service"
	"go.uber.org/zap"

	"github.com/monsterpi/svcinstall/internal/models"
)

// noopProgram satisfies service.Interface. The installer only controls
// services, it never runs one.
type noopProgram struct{}

func (noopProgram) Start(service.Service) error { return nil }
func (noopProgram) Stop(service.Service) error  { return nil }

// kardianosManager implements Manager on top of github.com/kardianos/service.
type kardianosManager struct {
	userService bool
	logger      *zap.Logger
	newService  func(cfg *service.Config) (service.Service, error)
}

// New returns a Manager for the host's service system. userService selects
// per-user services (systemd --user, launchd agents) instead of system-wide ones.
func New(logger *zap.Logger, userService bool) Manager {
	return &kardianosManager{
		userService: userService,
		logger:      logger.Named("servicemgr"),
		newService: func(cfg *service.Config) (service.Service, error) {
			return service.New(noopProgram{}, cfg)
		},
	}
}

// Platform returns the detected service system.
func (m *kardianosManager) Platform() string {
	if sys := service.ChosenSystem(); sys != nil {
		return sys.String()
	}
	return "unknown"
}

func (m *kardianosManager) lookup(name string) (service.Service, error) {
	return m.newService(&service.Config{
		Name:   name,
		Option: service.KeyValue{"UserService": m.userService},
	})
}

// errFailedState is the message systemd-backed services return for a unit
// in the "failed" state. kardianos does not export it.
const errFailedState = "service in failed state"

// isFailedState reports whether err describes a record that exists but
// whose process has failed.
func isFailedState(err error) bool {
	return err != nil && err.Error() == errFailedState
}

// Find checks whether the named definition is registered. A unit in the
// failed state still exists and counts as found.
func (m *kardianosManager) Find(name string) (bool, error) {
	svc, err := m.lookup(name)
	if err != nil {
		return false, fmt.Errorf("creating service %q: %w", name, err)
	}
	_, err = svc.Status()
	switch {
	case errors.Is(err, service.ErrNotInstalled):
		return false, nil
	case isFailedState(err):
		m.logger.Debug("Service is in the failed state", zap.String("service", name))
		return true, nil
	case err != nil:
		return false, fmt.Errorf("querying service %q: %w", name, err)
	}
	return true, nil
}

// Install writes the definition for spec.
func (m *kardianosManager) Install(spec models.ServiceSpec) error {
	svc, err := m.newService(serviceConfig(spec))
	if err != nil {
		return fmt.Errorf("creating service %q: %w", spec.Name, err)
	}
	if err := svc.Install(); err != nil {
		return fmt.Errorf("installing service %q: %w", spec.Name, err)
	}
	return nil
}

// Uninstall stops the service, ignoring errors if it is already inactive,
// then removes its definition.
func (m *kardianosManager) Uninstall(name string) error {
	svc, err := m.lookup(name)
	if err != nil {
		return fmt.Errorf("creating service %q: %w", name, err)
	}
	if err := svc.Stop(); err != nil {
		m.logger.Debug("stop before uninstall failed", zap.String("service", name), zap.Error(err))
	}
	if err := svc.Uninstall(); err != nil {
		return fmt.Errorf("uninstalling service %q: %w", name, err)
	}
	return nil
}

// Start starts the named service.
func (m *kardianosManager) Start(name string) error {
	svc, err := m.lookup(name)
	if err != nil {
		return fmt.Errorf("creating service %q: %w", name, err)
	}
	if err := svc.Start(); err != nil {
		return fmt.Errorf("starting service %q: %w", name, err)
	}
	return nil
}

// Status maps the service system's view of the record onto models.Status.
func (m *kardianosManager) Status(name string) (models.Status, error) {
	svc, err := m.lookup(name)
	if err != nil {
		return models.StatusAbsent, fmt.Errorf("creating service %q: %w", name, err)
	}
	st, err := svc.Status()
	if errors.Is(err, service.ErrNotInstalled) {
		return models.StatusAbsent, nil
	}
	if isFailedState(err) {
		return models.StatusInstalled, nil
	}
	if err != nil {
		return models.StatusAbsent, fmt.Errorf("querying service %q: %w", name, err)
	}
	switch st {
	case service.StatusRunning:
		return models.StatusRunning, nil
	default:
		// Stopped, or a record whose state the system cannot report.
		return models.StatusInstalled, nil
	}
}

// serviceConfig translates a spec into the kardianos definition.
func serviceConfig(spec models.ServiceSpec) *service.Config {
	program, args := spec.Command()

	env := make(map[string]string, len(spec.Environment))
	for k, v := range spec.Environment {
		env[k] = v
	}

	opts := service.KeyValue{"UserService": spec.UserService}
	if spec.Restart != "" {
		opts["Restart"] = spec.Restart
	}

	displayName := spec.DisplayName
	if displayName == "" {
		displayName = spec.Name
	}

	return &service.Config{
		Name:             spec.Name,
		DisplayName:      displayName,
		Description:      spec.Description,
		UserName:         spec.UserName,
		Executable:       program,
		Arguments:        args,
		WorkingDirectory: spec.WorkingDirectory,
		EnvVars:          env,
		Option:           opts,
	}
}
