// Package filex resolves and creates the directories the client writes to.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir makes dir (relative paths resolve against the working
// directory) and returns its absolute path. An empty dir means
// "<user config dir>/zenote".
func EnsureDir(dir string) (string, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("user config dir: %w", err)
		}
		dir = filepath.Join(base, "zenote")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}
