// Package config handles configuration loading from YAML or TOML files and environment variables.
// Configuration precedence: CLI flags > environment variables > config file > embedded > defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/monsterpi/svcinstall/internal/models"
)

// Config holds all installer configuration.
type Config struct {
	Service     ServiceConfig     `yaml:"service" toml:"service"`
	Install     InstallConfig     `yaml:"install" toml:"install"`
	Data        DataConfig        `yaml:"data" toml:"data"`
	Environment map[string]string `yaml:"environment,omitempty" toml:"environment,omitempty"`
	Preflight   PreflightConfig   `yaml:"preflight" toml:"preflight"`
	Logging     LoggingConfig     `yaml:"logging" toml:"logging"`
}

// ServiceConfig describes the OS service record.
type ServiceConfig struct {
	Name        string `yaml:"name" toml:"name"`
	DisplayName string `yaml:"display_name,omitempty" toml:"display_name,omitempty"`
	Description string `yaml:"description" toml:"description"`
	User        string `yaml:"user,omitempty" toml:"user,omitempty"`
	Mode        string `yaml:"mode" toml:"mode"`
	Restart     string `yaml:"restart" toml:"restart"`
}

// InstallConfig locates the release being registered.
// EntryPoint and WorkingDirectory are relative to Root so that a new
// release layout is a configuration change, not a code change.
type InstallConfig struct {
	Root             string   `yaml:"root" toml:"root"`
	EntryPoint       string   `yaml:"entry_point" toml:"entry_point"`
	WorkingDirectory string   `yaml:"working_directory" toml:"working_directory"`
	Runtime          string   `yaml:"runtime" toml:"runtime"`
	RuntimeOptions   []string `yaml:"runtime_options" toml:"runtime_options"`
}

// DataConfig locates runtime data, independently of the install root.
type DataConfig struct {
	Root          string `yaml:"root" toml:"root"`
	EnvFile       string `yaml:"env_file" toml:"env_file"`
	MediaDir      string `yaml:"media_dir" toml:"media_dir"`
	DatabaseDir   string `yaml:"database_dir" toml:"database_dir"`
	CreateEnvFile bool   `yaml:"create_env_file" toml:"create_env_file"`
}

// PreflightConfig holds advisory host check settings.
type PreflightConfig struct {
	Enabled   bool `yaml:"enabled" toml:"enabled"`
	MinFreeMB int  `yaml:"min_free_mb" toml:"min_free_mb"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level" toml:"level"`
	File       string `yaml:"file" toml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days" toml:"max_age_days"`
}

// DefaultConfig returns the default configuration for the Raspberry Pi image.
func DefaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:        "fdm-monster",
			DisplayName: "FDM Monster",
			Description: "The 3D Printer Farm server for managing your 100+ OctoPrints printers.",
			Mode:        "system",
			Restart:     "always",
		},
		Install: InstallConfig{
			Root:             "/home/pi/fdm-monster",
			EntryPoint:       "dist/index.js",
			WorkingDirectory: ".",
			Runtime:          "/usr/bin/node",
			RuntimeOptions:   []string{"--harmony", "--max_old_space_size=4096"},
		},
		Data: DataConfig{
			Root:          "/home/pi/fdm-monster-data",
			EnvFile:       ".env",
			MediaDir:      "media",
			DatabaseDir:   "database",
			CreateEnvFile: true,
		},
		Preflight: PreflightConfig{
			Enabled:   true,
			MinFreeMB: 512,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// CLIOverrides holds values from command-line flags.
// Empty strings and nil collections are treated as "not set" and skipped.
type CLIOverrides struct {
	InstallRoot        string
	EntryPoint         string
	WorkingDirectory   string
	Runtime            string
	RuntimeOptions     []string
	DataRoot           string
	ServiceName        string
	ServiceDescription string
	User               string
	Mode               string
	Environment        map[string]string
	LogLevel           string
	SkipPreflight      bool
}

// Locate searches standard config file paths and returns the first one found.
// Returns empty string if no config file exists.
func Locate() string {
	for _, p := range configSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// LoadLayered loads configuration with the full precedence chain:
// CLI flags > env vars > external file > embedded bytes > defaults.
//
// An optional configPath argument controls external-file discovery:
//   - omitted        → auto-discover via Locate()
//   - explicit value  → use that path ("" means no external file)
func LoadLayered(cli CLIOverrides, embedded []byte, configPath ...string) (*Config, error) {
	cfg := DefaultConfig()

	if len(embedded) > 0 {
		if err := yaml.Unmarshal(embedded, cfg); err != nil {
			return nil, fmt.Errorf("parsing embedded config: %w", err)
		}
	}

	var filePath string
	if len(configPath) > 0 {
		filePath = configPath[0]
	} else {
		filePath = Locate()
	}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(filePath, data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", filePath, err)
		}
	}

	applyEnvOverrides(cfg)
	applyCLIOverrides(cfg, cli)

	return cfg, nil
}

// decode picks the format from the file extension; anything that is not
// .toml is read as YAML.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		return yaml.Unmarshal(data, cfg)
	}
}

// Encode serializes the config as YAML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteConfig serializes the config to a file at the given path.
// A .toml extension selects TOML, anything else YAML.
// Creates parent directories if needed.
func WriteConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var data []byte
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("marshaling config: %w", err)
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = Encode(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0640)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SVCINSTALL_INSTALL_ROOT"); v != "" {
		cfg.Install.Root = v
	}
	if v := os.Getenv("SVCINSTALL_DATA_ROOT"); v != "" {
		cfg.Data.Root = v
	}
	if v := os.Getenv("SVCINSTALL_SERVICE_NAME"); v != "" {
		cfg.Service.Name = v
	}
	if v := os.Getenv("SVCINSTALL_SERVICE_DESCRIPTION"); v != "" {
		cfg.Service.Description = v
	}
	if v := os.Getenv("SVCINSTALL_RUNTIME_OPTIONS"); v != "" {
		cfg.Install.RuntimeOptions = splitList(v)
	}
	if v := os.Getenv("SVCINSTALL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyCLIOverrides(cfg *Config, cli CLIOverrides) {
	if cli.InstallRoot != "" {
		cfg.Install.Root = cli.InstallRoot
	}
	if cli.EntryPoint != "" {
		cfg.Install.EntryPoint = cli.EntryPoint
	}
	if cli.WorkingDirectory != "" {
		cfg.Install.WorkingDirectory = cli.WorkingDirectory
	}
	if cli.Runtime != "" {
		cfg.Install.Runtime = cli.Runtime
	}
	if cli.RuntimeOptions != nil {
		cfg.Install.RuntimeOptions = append([]string(nil), cli.RuntimeOptions...)
	}
	if cli.DataRoot != "" {
		cfg.Data.Root = cli.DataRoot
	}
	if cli.ServiceName != "" {
		cfg.Service.Name = cli.ServiceName
	}
	if cli.ServiceDescription != "" {
		cfg.Service.Description = cli.ServiceDescription
	}
	if cli.User != "" {
		cfg.Service.User = cli.User
	}
	if cli.Mode != "" {
		cfg.Service.Mode = cli.Mode
	}
	if len(cli.Environment) > 0 {
		if cfg.Environment == nil {
			cfg.Environment = make(map[string]string, len(cli.Environment))
		}
		for k, v := range cli.Environment {
			cfg.Environment[k] = v
		}
	}
	if cli.LogLevel != "" {
		cfg.Logging.Level = cli.LogLevel
	}
	if cli.SkipPreflight {
		cfg.Preflight.Enabled = false
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that every field needed to build a service definition is
// present and well-formed. All problems are reported together.
func (c *Config) Validate() error {
	var err error
	if strings.TrimSpace(c.Service.Name) == "" {
		err = multierr.Append(err, fmt.Errorf("service.name is required"))
	} else if !models.ValidServiceName(c.Service.Name) {
		err = multierr.Append(err, fmt.Errorf("service.name %q may only contain letters, digits and \":_.@-\"; put the human-readable name in service.display_name", c.Service.Name))
	}
	if strings.TrimSpace(c.Service.Description) == "" {
		err = multierr.Append(err, fmt.Errorf("service.description is required"))
	}
	if c.Service.Mode != "system" && c.Service.Mode != "user" {
		err = multierr.Append(err, fmt.Errorf("service.mode must be \"system\" or \"user\" (got %q)", c.Service.Mode))
	}
	err = multierr.Append(err, requireAbs("install.root", c.Install.Root))
	err = multierr.Append(err, requireRel("install.entry_point", c.Install.EntryPoint))
	if c.Install.WorkingDirectory != "" {
		err = multierr.Append(err, requireRel("install.working_directory", c.Install.WorkingDirectory))
	}
	if c.Install.Runtime != "" && !filepath.IsAbs(c.Install.Runtime) {
		err = multierr.Append(err, fmt.Errorf("install.runtime must be an absolute path (got %q)", c.Install.Runtime))
	}
	for i, opt := range c.Install.RuntimeOptions {
		if strings.TrimSpace(opt) == "" {
			err = multierr.Append(err, fmt.Errorf("install.runtime_options[%d] is empty", i))
		}
	}
	err = multierr.Append(err, requireAbs("data.root", c.Data.Root))
	err = multierr.Append(err, requireRel("data.env_file", c.Data.EnvFile))
	err = multierr.Append(err, requireRel("data.media_dir", c.Data.MediaDir))
	err = multierr.Append(err, requireRel("data.database_dir", c.Data.DatabaseDir))
	for k := range c.Environment {
		if k == "" || strings.ContainsAny(k, "= \t\n") {
			err = multierr.Append(err, fmt.Errorf("environment key %q is not a valid variable name", k))
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.level must be one of debug, info, warn, error (got %q)", c.Logging.Level))
	}
	return err
}

func requireAbs(field, p string) error {
	if p == "" {
		return fmt.Errorf("%s is required", field)
	}
	if !filepath.IsAbs(p) {
		return fmt.Errorf("%s must be an absolute path (got %q)", field, p)
	}
	return nil
}

// requireRel rejects empty, absolute and root-escaping relative paths.
func requireRel(field, p string) error {
	if p == "" {
		return fmt.Errorf("%s is required", field)
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%s must be relative (got %q)", field, p)
	}
	if clean := filepath.Clean(p); clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must stay inside its root (got %q)", field, p)
	}
	return nil
}
