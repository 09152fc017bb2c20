// Package filex resolves and creates the directories gophauth keeps its
// local data in.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "gophauth"

// DefaultDataDir returns $XDG_DATA_HOME/gophauth, falling back to
// ~/.local/share/gophauth.
func DefaultDataDir() string {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".local", "share")
	}
	return filepath.Join(base, appName)
}

// EnsureDir creates dir (and parents) with 0700 permissions and returns its
// absolute path. Relative paths are resolved against the working directory.
func EnsureDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}
