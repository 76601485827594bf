//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		filepath.Join(local, "svcinstall", "config.yaml"),
		filepath.Join(local, "svcinstall", "config.toml"),
		filepath.Join(programData, "svcinstall", "config.yaml"),
		filepath.Join(programData, "svcinstall", "config.toml"),
	}
}
