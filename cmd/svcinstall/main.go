// Package main is the entry point for svcinstall.
// It loads layered configuration, registers the configured executable as an
// OS service (replacing any previous definition), starts it and reports the
// resulting status.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/monsterpi/svcinstall/internal/config"
	"github.com/monsterpi/svcinstall/internal/installer"
	"github.com/monsterpi/svcinstall/internal/platform"
	"github.com/monsterpi/svcinstall/internal/preflight"
	"github.com/monsterpi/svcinstall/internal/servicemgr"
)

// version is set at build time via -ldflags.
var version = "dev"

// cliFlags holds raw flag values before they become config.CLIOverrides.
type cliFlags struct {
	configPath string
	output     string
	dryRun     bool
	env        []string
	overrides  config.CLIOverrides
}

// app is the state shared by every command once configuration is loaded.
type app struct {
	flags  cliFlags
	cfg    *config.Config
	logger *zap.Logger

	newManager     func(logger *zap.Logger, userService bool) servicemgr.Manager
	checkElevation func(installer.InstallMode) error
}

func newApp() *app {
	return &app{
		newManager:     servicemgr.New,
		checkElevation: installer.CheckElevation,
	}
}

func main() {
	a := newApp()
	err := newRootCmd(a).Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(installer.ExitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "svcinstall",
		Short: "Install the configured process as an OS service and start it",
		Long: `svcinstall registers a release as an operating-system service.

Every run removes any existing definition with the same name, registers a
fresh one built from configuration, starts it and confirms it is running,
so it is safe to run again after every upgrade.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.install(cmd)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return installer.NewError(installer.KindConfig, "parse flags", "", err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Path to a YAML or TOML config file (default: auto-discover)")
	pf.StringVar(&a.flags.overrides.ServiceName, "service-name", "", "Service name")
	pf.StringVar(&a.flags.overrides.Mode, "mode", "", "Install mode: system or user")
	pf.StringVar(&a.flags.overrides.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVarP(&a.flags.output, "output", "o", outputText, "Report format: text or json")

	bindInstallFlags(root.Flags(), &a.flags)

	root.AddCommand(newStatusCmd(a), newUninstallCmd(a), newConfigCmd(a))
	return root
}

func bindInstallFlags(fs *pflag.FlagSet, f *cliFlags) {
	fs.StringVar(&f.overrides.InstallRoot, "install-root", "", "Directory containing the release")
	fs.StringVar(&f.overrides.EntryPoint, "entry-point", "", "Entry point, relative to the install root")
	fs.StringVar(&f.overrides.WorkingDirectory, "working-dir", "", "Working directory, relative to the install root")
	fs.StringVar(&f.overrides.Runtime, "runtime", "", "Absolute path of the runtime that executes the entry point")
	fs.StringArrayVar(&f.overrides.RuntimeOptions, "runtime-option", nil, "Flag passed to the runtime (repeatable, order kept)")
	fs.StringVar(&f.overrides.DataRoot, "data-root", "", "Directory for runtime data (env file, media, database)")
	fs.StringVar(&f.overrides.ServiceDescription, "service-description", "", "Human-readable service description")
	fs.StringVar(&f.overrides.User, "user", "", "Account the service runs as")
	fs.StringArrayVar(&f.env, "env", nil, "Extra environment variable KEY=VALUE (repeatable)")
	fs.BoolVar(&f.overrides.SkipPreflight, "skip-preflight", false, "Skip advisory host checks")
	fs.BoolVar(&f.dryRun, "dry-run", false, "Print the service definition without touching the host")
}

// load resolves configuration and initializes the logger.
func (a *app) load(fs *pflag.FlagSet) error {
	switch a.flags.output {
	case outputText, outputJSON:
	default:
		return installer.NewError(installer.KindConfig, "parse flags", "",
			fmt.Errorf("--output must be %q or %q (got %q)", outputText, outputJSON, a.flags.output))
	}

	if !fs.Changed("runtime-option") {
		a.flags.overrides.RuntimeOptions = nil
	}
	env, err := parseEnv(a.flags.env)
	if err != nil {
		return installer.NewError(installer.KindConfig, "parse flags", "", err)
	}
	a.flags.overrides.Environment = env

	var paths []string
	if fs.Changed("config") {
		paths = append(paths, a.flags.configPath)
	}
	cfg, err := config.LoadLayered(a.flags.overrides, embeddedConfig, paths...)
	if err != nil {
		return installer.NewError(installer.KindConfig, "load config", a.flags.configPath, err)
	}
	a.cfg = cfg
	a.logger = initLogger(cfg.Logging)
	return nil
}

// parseEnv turns KEY=VALUE pairs into a map. Values may contain '=' or ','.
func parseEnv(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("--env %q: expected KEY=VALUE", p)
		}
		env[k] = v
	}
	return env, nil
}

func (a *app) manager() servicemgr.Manager {
	return a.newManager(a.logger, a.cfg.Service.Mode == installer.ModeUser.String())
}

func (a *app) preflightChecks() *preflight.Registry {
	registry := preflight.NewRegistry(a.logger)
	registry.Register(preflight.NewHostCheck(platform.New()))
	registry.Register(preflight.NewMemoryCheck(a.cfg.Install.RuntimeOptions))
	registry.Register(preflight.NewDiskCheck(a.cfg.Data.Root, a.cfg.Preflight.MinFreeMB))
	registry.Register(preflight.NewRuntimeCheck(a.cfg.Install.Runtime))
	return registry
}

func (a *app) install(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if a.flags.dryRun {
		spec, err := installer.Plan(a.cfg)
		if err != nil {
			return err
		}
		return writeSpec(out, a.flags.output, spec)
	}

	opts := []installer.Option{installer.WithElevationCheck(a.checkElevation)}
	if a.cfg.Preflight.Enabled {
		opts = append(opts, installer.WithPreflight(a.preflightChecks()))
	}
	inst := installer.New(a.manager(), a.logger, opts...)

	a.logger.Info("Installing service",
		zap.String("version", version),
		zap.String("service", a.cfg.Service.Name),
		zap.String("install_root", a.cfg.Install.Root),
		zap.String("data_root", a.cfg.Data.Root))

	outcome, err := inst.Run(context.Background(), a.cfg)
	if err != nil {
		a.logger.Error("Install failed",
			zap.String("kind", installer.KindOf(err).String()),
			zap.Error(err))
	}
	if werr := writeOutcome(out, a.flags.output, outcome, err); werr != nil && err == nil {
		err = werr
	}
	return err
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the service is installed and running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			outcome, err := installer.New(a.manager(), a.logger).Status(a.cfg.Service.Name)
			if werr := writeOutcome(cmd.OutOrStdout(), a.flags.output, outcome, err); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
}

func newUninstallCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the service definition",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := installer.ParseMode(a.cfg.Service.Mode)
			if err != nil {
				return installer.NewError(installer.KindConfig, "parse install mode", "", err)
			}
			if err := a.checkElevation(mode); err != nil {
				return installer.NewError(installer.KindServiceManager, "check privileges", a.cfg.Service.Name, err)
			}
			outcome, err := installer.New(a.manager(), a.logger).Uninstall(a.cfg.Service.Name)
			if werr := writeOutcome(cmd.OutOrStdout(), a.flags.output, outcome, err); werr != nil && err == nil {
				err = werr
			}
			return err
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	var writePath string
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration, or write it to a file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if writePath != "" {
				if err := config.WriteConfig(a.cfg, writePath); err != nil {
					return installer.NewError(installer.KindIO, "write config", writePath, err)
				}
				a.logger.Info("Wrote configuration", zap.String("path", writePath))
				return nil
			}
			data, err := config.Encode(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVar(&writePath, "write", "", "Write the configuration to this path (.yaml or .toml)")
	return cmd
}
