//go:build !windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".config", "svcinstall", "config.yaml"),
		filepath.Join(home, ".config", "svcinstall", "config.toml"),
		"/etc/svcinstall/config.yaml",
		"/etc/svcinstall/config.toml",
	}
}
