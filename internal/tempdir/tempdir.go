// Package tempdir provides the TempDir guard: a directory created under
// the system temporary root with a caller-chosen prefix, recursively
// removed on release.
package tempdir

import (
	"fmt"
	"os"

	"github.com/surma/containix/internal/guard"
)

// TempDir owns a directory on disk and its release guard.
type TempDir struct {
	Path  string
	Guard *guard.Guard
}

// New creates a fresh directory under os.TempDir() named "<prefix>-*" and
// returns it wrapped in a TempDir whose guard recursively removes it.
func New(prefix string) (*TempDir, error) {
	path, err := os.MkdirTemp("", prefix+"-")
	if err != nil {
		return nil, fmt.Errorf("tempdir: create: %w", err)
	}
	td := &TempDir{Path: path}
	td.Guard = guard.New(fmt.Sprintf("tempdir:%s", path), func() error {
		return os.RemoveAll(path)
	})
	return td, nil
}
