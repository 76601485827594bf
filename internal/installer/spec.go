package installer

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/monsterpi/svcinstall/internal/config"
	"github.com/monsterpi/svcinstall/internal/models"
)

// Environment variables derived from the data root. They take precedence
// over user-supplied environment entries with the same name.
const (
	EnvFileVar      = "ENV_FILE"
	MediaPathVar    = "MEDIA_PATH"
	DatabasePathVar = "DATABASE_PATH"
)

// BuildSpec derives the service definition from configuration. It has no
// side effects and depends on nothing but cfg.
func BuildSpec(cfg *config.Config) models.ServiceSpec {
	root := filepath.Clean(cfg.Install.Root)

	env := make(map[string]string, len(cfg.Environment)+3)
	for k, v := range cfg.Environment {
		env[k] = v
	}
	for k, v := range DataBindings(cfg) {
		env[k] = v
	}

	var opts []string
	if len(cfg.Install.RuntimeOptions) > 0 {
		opts = append(make([]string, 0, len(cfg.Install.RuntimeOptions)), cfg.Install.RuntimeOptions...)
	}

	return models.ServiceSpec{
		Name:             cfg.Service.Name,
		DisplayName:      cfg.Service.DisplayName,
		Description:      cfg.Service.Description,
		ExecutablePath:   filepath.Join(root, cfg.Install.EntryPoint),
		Runtime:          cfg.Install.Runtime,
		WorkingDirectory: filepath.Join(root, cfg.Install.WorkingDirectory),
		RuntimeOptions:   opts,
		Environment:      env,
		UserName:         cfg.Service.User,
		UserService:      cfg.Service.Mode == ModeUser.String(),
		Restart:          cfg.Service.Restart,
	}
}

// DataBindings returns the environment variables pointing the service at its data.
func DataBindings(cfg *config.Config) map[string]string {
	root := filepath.Clean(cfg.Data.Root)
	return map[string]string{
		EnvFileVar:      filepath.Join(root, cfg.Data.EnvFile),
		MediaPathVar:    filepath.Join(root, cfg.Data.MediaDir),
		DatabasePathVar: filepath.Join(root, cfg.Data.DatabaseDir),
	}
}

// RequiredDirectories lists the directories that must exist before the
// service is registered: the data root, its media and database directories,
// the directory holding the environment file, and the working directory.
func RequiredDirectories(cfg *config.Config, spec models.ServiceSpec) []string {
	root := filepath.Clean(cfg.Data.Root)
	return []string{
		root,
		filepath.Join(root, cfg.Data.MediaDir),
		filepath.Join(root, cfg.Data.DatabaseDir),
		filepath.Dir(filepath.Join(root, cfg.Data.EnvFile)),
		spec.WorkingDirectory,
	}
}

// ValidateSpec rejects partially-specified definitions.
func ValidateSpec(spec models.ServiceSpec) error {
	var err error
	if strings.TrimSpace(spec.Name) == "" {
		err = multierr.Append(err, fmt.Errorf("name is empty"))
	} else if !models.ValidServiceName(spec.Name) {
		err = multierr.Append(err, fmt.Errorf("name %q contains characters the service system rejects", spec.Name))
	}
	if strings.TrimSpace(spec.Description) == "" {
		err = multierr.Append(err, fmt.Errorf("description is empty"))
	}
	if !filepath.IsAbs(spec.ExecutablePath) {
		err = multierr.Append(err, fmt.Errorf("executable path %q is not absolute", spec.ExecutablePath))
	}
	if !filepath.IsAbs(spec.WorkingDirectory) {
		err = multierr.Append(err, fmt.Errorf("working directory %q is not absolute", spec.WorkingDirectory))
	}
	if spec.Runtime != "" && !filepath.IsAbs(spec.Runtime) {
		err = multierr.Append(err, fmt.Errorf("runtime %q is not absolute", spec.Runtime))
	}
	if spec.Environment == nil {
		err = multierr.Append(err, fmt.Errorf("environment is not set"))
	}
	if err != nil {
		return configError("validate service spec", err)
	}
	return nil
}
