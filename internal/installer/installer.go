// Package installer registers a background process as an OS service.
//
// Every run rebuilds the desired definition from configuration and applies
// it with uninstall-then-install semantics, so running it again with the
// same configuration converges on the same single, running service.
//
// Runs are synchronous and take no locks. Two installers racing on the same
// service name rely solely on the service manager's own atomicity and have no
// defined outcome.
package installer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/monsterpi/svcinstall/internal/config"
	"github.com/monsterpi/svcinstall/internal/models"
	"github.com/monsterpi/svcinstall/internal/preflight"
	"github.com/monsterpi/svcinstall/internal/servicemgr"
)

// Installer applies service definitions through a servicemgr.Manager.
type Installer struct {
	manager        servicemgr.Manager
	logger         *zap.Logger
	checks         *preflight.Registry
	checkElevation func(InstallMode) error
}

// Option configures an Installer.
type Option func(*Installer)

// WithPreflight runs the registry's advisory checks before reconciling.
func WithPreflight(r *preflight.Registry) Option {
	return func(i *Installer) { i.checks = r }
}

// WithElevationCheck replaces the privilege check, mainly for tests.
func WithElevationCheck(fn func(InstallMode) error) Option {
	return func(i *Installer) { i.checkElevation = fn }
}

// New creates an Installer.
func New(manager servicemgr.Manager, logger *zap.Logger, opts ...Option) *Installer {
	i := &Installer{
		manager:        manager,
		logger:         logger.Named("installer"),
		checkElevation: CheckElevation,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Plan validates cfg and returns the service definition it describes,
// without touching the host.
func Plan(cfg *config.Config) (models.ServiceSpec, error) {
	if err := cfg.Validate(); err != nil {
		return models.ServiceSpec{}, configError("validate config", err)
	}
	spec := BuildSpec(cfg)
	if err := ValidateSpec(spec); err != nil {
		return models.ServiceSpec{}, err
	}
	return spec, nil
}

// Run performs a full installation: validate, prepare the filesystem,
// check privileges, run preflight checks, then reconcile and start the
// service. The returned Outcome is meaningful even when err is non-nil.
func (i *Installer) Run(ctx context.Context, cfg *config.Config) (models.Outcome, error) {
	outcome := models.Outcome{Name: cfg.Service.Name, Platform: i.manager.Platform()}

	spec, err := Plan(cfg)
	if err != nil {
		return outcome, err
	}
	outcome.ExecutablePath = spec.ExecutablePath

	mode, err := ParseMode(cfg.Service.Mode)
	if err != nil {
		return outcome, configError("parse install mode", err)
	}
	if err := i.checkElevation(mode); err != nil {
		return outcome, managerError("check privileges", spec.Name, err)
	}

	if err := checkExecutable(spec.ExecutablePath); err != nil {
		return outcome, err
	}

	created, err := EnsureDirectories(RequiredDirectories(cfg, spec))
	outcome.CreatedDirectories = created
	for _, dir := range created {
		i.logger.Info("Created directory", zap.String("path", dir))
	}
	if err != nil {
		return outcome, err
	}

	if cfg.Data.CreateEnvFile {
		envFile := filepath.Join(filepath.Clean(cfg.Data.Root), cfg.Data.EnvFile)
		made, err := ensureFile(envFile)
		if err != nil {
			return outcome, err
		}
		if made {
			i.logger.Info("Created empty environment file", zap.String("path", envFile))
		}
	}

	if i.checks != nil {
		outcome.Findings = i.checks.RunAll(ctx)
	}

	result, err := i.Reconcile(spec)
	result.Platform = outcome.Platform
	result.ExecutablePath = outcome.ExecutablePath
	result.CreatedDirectories = outcome.CreatedDirectories
	result.Findings = outcome.Findings
	return result, err
}

// Reconcile makes the service record match spec and leaves it running.
//
// An existing definition is always removed and re-registered rather than
// modified in place. If removal reports an error but the definition is
// gone, installation still proceeds and the removal error is returned with
// the result. If the definition is still present, nothing else is attempted.
func (i *Installer) Reconcile(spec models.ServiceSpec) (models.Outcome, error) {
	name := spec.Name
	log := i.logger.With(zap.String("service", name))

	found, err := i.manager.Find(name)
	if err != nil {
		return i.currentOutcome(name), managerError("find service", name, err)
	}

	var removeErr error
	if found {
		log.Info("Removing existing service definition")
		if err := i.manager.Uninstall(name); err != nil {
			removeErr = managerError("uninstall service", name, err)
			stillThere, findErr := i.manager.Find(name)
			if findErr != nil || stillThere {
				return i.currentOutcome(name), multierr.Append(removeErr, findErr)
			}
			log.Warn("Uninstall reported an error but the definition is gone, continuing", zap.Error(err))
		}
	}

	log.Info("Registering service definition",
		zap.String("executable", spec.ExecutablePath),
		zap.String("working_directory", spec.WorkingDirectory),
		zap.Strings("runtime_options", spec.RuntimeOptions),
		zap.Strings("environment", spec.EnvironmentKeys()))
	if err := i.manager.Install(spec); err != nil {
		return i.currentOutcome(name), multierr.Append(removeErr, managerError("install service", name, err))
	}

	log.Info("Starting service")
	if err := i.manager.Start(name); err != nil {
		return i.currentOutcome(name), multierr.Append(removeErr, managerError("start service", name, err))
	}

	st, err := i.manager.Status(name)
	if err != nil {
		return models.OutcomeFromStatus(name, models.StatusInstalled), multierr.Append(removeErr, managerError("query status", name, err))
	}
	outcome := models.OutcomeFromStatus(name, st)
	if !outcome.Running {
		return outcome, multierr.Append(removeErr, managerError("verify running", name, fmt.Errorf("%w (status %s)", ErrNotRunning, st)))
	}

	log.Info("Service running")
	return outcome, removeErr
}

// Status reports the current state of the named service.
func (i *Installer) Status(name string) (models.Outcome, error) {
	if name == "" {
		return models.Outcome{}, configError("query status", errors.New("service name is required"))
	}
	st, err := i.manager.Status(name)
	if err != nil {
		return models.Outcome{Name: name, Platform: i.manager.Platform()}, managerError("query status", name, err)
	}
	outcome := models.OutcomeFromStatus(name, st)
	outcome.Platform = i.manager.Platform()
	return outcome, nil
}

// Uninstall removes the named service if it exists.
func (i *Installer) Uninstall(name string) (models.Outcome, error) {
	if name == "" {
		return models.Outcome{}, configError("uninstall service", errors.New("service name is required"))
	}
	found, err := i.manager.Find(name)
	if err != nil {
		return models.Outcome{Name: name}, managerError("find service", name, err)
	}
	if !found {
		i.logger.Info("Service not installed, nothing to remove", zap.String("service", name))
		return i.Status(name)
	}
	i.logger.Info("Removing service definition", zap.String("service", name))
	if err := i.manager.Uninstall(name); err != nil {
		return i.currentOutcome(name), managerError("uninstall service", name, err)
	}
	return i.Status(name)
}

// currentOutcome reports whatever the manager currently says about name,
// falling back to an all-false outcome when the manager cannot be queried.
func (i *Installer) currentOutcome(name string) models.Outcome {
	st, err := i.manager.Status(name)
	if err != nil {
		i.logger.Debug("Status query failed", zap.String("service", name), zap.Error(err))
		return models.Outcome{Name: name}
	}
	return models.OutcomeFromStatus(name, st)
}
