package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// resolveOnPath walks $PATH explicitly and tests for an executable file
// named name. Go's exec.LookPath already does this, but it has been
// observed to miss entries when PATH was inherited through certain
// spawn-library configurations upstream of this process; walking it by
// hand here removes that dependency on the inherited environment being
// trustworthy.
func resolveOnPath(name string) (string, error) {
	pathEnv := os.Getenv("PATH")
	for _, dir := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil {
			continue
		}
		if info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("store: %q not found on PATH", name)
}
