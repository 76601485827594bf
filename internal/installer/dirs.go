package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// EnsureDirectories creates every path that does not exist yet, including
// parents. It returns the paths it created, in creation order. A file
// occupying one of the paths, or any creation error, aborts the whole call.
func EnsureDirectories(paths []string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	unique := make([]string, 0, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if !seen[p] {
			seen[p] = true
			unique = append(unique, p)
		}
	}
	// Parents sort before their children.
	sort.Strings(unique)

	var created []string
	for _, p := range unique {
		info, err := os.Stat(p)
		switch {
		case err == nil && info.IsDir():
			continue
		case err == nil:
			return created, ioError("ensure directory", p, ErrPathCollision)
		case !os.IsNotExist(err):
			return created, ioError("ensure directory", p, err)
		}
		if err := os.MkdirAll(p, 0755); err != nil {
			return created, ioError("create directory", p, err)
		}
		created = append(created, p)
	}
	return created, nil
}

// ensureFile creates an empty file at path if nothing is there yet.
func ensureFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, ioError("ensure file", path, fmt.Errorf("path is a directory"))
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, ioError("ensure file", path, err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0640)
	if err != nil {
		return false, ioError("create file", path, err)
	}
	if err := f.Close(); err != nil {
		return false, ioError("create file", path, err)
	}
	return true, nil
}

// checkExecutable verifies the entry point exists and is a regular file.
func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ioError("check executable", path, err)
	}
	if info.IsDir() {
		return ioError("check executable", path, fmt.Errorf("path is a directory"))
	}
	return nil
}
