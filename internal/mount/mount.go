// Package mount implements the bind-mount primitive and its release guard.
package mount

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/surma/containix/internal/guard"
)

// BindMount performs a kernel bind mount of src onto dest, read-only if
// requested. No filesystem type, mount options string, or data is passed;
// this is a pure MS_BIND(|MS_RDONLY) mount. If cleanup is false the
// returned guard is pre-disarmed: the caller wanted the mount to outlive
// the guard's scope.
func BindMount(ctx context.Context, src, dest string, readOnly, cleanup bool) (*guard.Guard, error) {
	var flags uintptr = unix.MS_BIND
	if readOnly {
		flags |= unix.MS_RDONLY
	}
	if err := unix.Mount(src, dest, "", flags, ""); err != nil {
		return nil, fmt.Errorf("mount: bind %s -> %s: %w", src, dest, err)
	}
	g := guard.New(fmt.Sprintf("mount:%s", dest), func() error {
		return Unmount(dest)
	})
	if !cleanup {
		g.Disarm()
	}
	return g, nil
}

// Unmount is a thin wrapper around the kernel unmount call.
func Unmount(path string) error {
	if err := unix.Unmount(path, 0); err != nil {
		return fmt.Errorf("mount: unmount %s: %w", path, err)
	}
	return nil
}
