// Package fsassembler builds a ContainerFs: a populated rootfs directory
// plus the mount guards that back it, from a closure of store paths and a
// list of user volumes.
package fsassembler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/surma/containix/internal/guard"
	"github.com/surma/containix/internal/mount"
	"github.com/surma/containix/internal/tempdir"
	"github.com/surma/containix/internal/values"
)

// ContainerFs owns the assembled rootfs tree and its mount guards. Release
// order is load-bearing: volume guards first, then closure guards, then
// the temp directory holding the tree — in both the success-path teardown
// and the mid-assembly failure path.
type ContainerFs struct {
	RootPath string

	volumeGuards  []*guard.Guard
	closureGuards []*guard.Guard
	tempDir       *tempdir.TempDir
}

// Assemble creates a fresh temp directory, bind-mounts closure paths
// read-only at their canonical absolute location under root/, then bind-
// mounts every volume at its target. On any failure partway through, every
// guard created so far is released, in reverse creation order, before the
// error is returned.
//
// When fullNixStore is true, the per-path closure mounts are replaced by a
// single read-only bind mount of the whole store root (values.StoreRoot):
// the caller trades the isolation of an exact closure for not having to
// enumerate (and re-mount on every invocation) every path a deep closure
// might contain. closure is still accepted in this mode — it continues to
// describe what the container is entitled to use — but is not walked for
// mounting purposes.
func Assemble(ctx context.Context, closure []values.StorePath, volumes []values.VolumeMount, fullNixStore bool) (*ContainerFs, error) {
	td, err := tempdir.New("containix-rootfs")
	if err != nil {
		return nil, err
	}
	root := filepath.Join(td.Path, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		td.Guard.Release(ctx)
		return nil, fmt.Errorf("fsassembler: create root: %w", err)
	}

	cfs := &ContainerFs{RootPath: root, tempDir: td}

	if fullNixStore {
		target := filepath.Join(root, values.StripLeadingSlash(values.StoreRoot))
		if err := os.MkdirAll(target, 0o755); err != nil {
			cfs.Release(ctx)
			return nil, fmt.Errorf("fsassembler: mkdir %s: %w", target, err)
		}
		g, err := mount.BindMount(ctx, values.StoreRoot, target, true, true)
		if err != nil {
			cfs.Release(ctx)
			return nil, fmt.Errorf("fsassembler: mount full store %s: %w", values.StoreRoot, err)
		}
		cfs.closureGuards = append(cfs.closureGuards, g)
	} else {
		for _, p := range closure {
			target := filepath.Join(root, values.StripLeadingSlash(p.AbsPath()))
			if err := os.MkdirAll(target, 0o755); err != nil {
				cfs.Release(ctx)
				return nil, fmt.Errorf("fsassembler: mkdir %s: %w", target, err)
			}
			g, err := mount.BindMount(ctx, p.AbsPath(), target, true, true)
			if err != nil {
				cfs.Release(ctx)
				return nil, fmt.Errorf("fsassembler: mount closure path %s: %w", p.AbsPath(), err)
			}
			cfs.closureGuards = append(cfs.closureGuards, g)
		}
	}

	for _, v := range volumes {
		target := filepath.Join(root, values.StripLeadingSlash(v.ContainerPath))
		if err := os.MkdirAll(target, 0o755); err != nil {
			cfs.Release(ctx)
			return nil, fmt.Errorf("fsassembler: mkdir %s: %w", target, err)
		}
		g, err := mount.BindMount(ctx, v.HostPath, target, v.ReadOnly, true)
		if err != nil {
			cfs.Release(ctx)
			return nil, fmt.Errorf("fsassembler: mount volume %s: %w", v.HostPath, err)
		}
		cfs.volumeGuards = append(cfs.volumeGuards, g)
	}

	return cfs, nil
}

// GuardCount reports the number of still-armed (not yet released) mount
// guards this ContainerFs owns, used by tests to verify the zero-survivors
// invariant after teardown or a mid-assembly failure.
func (c *ContainerFs) GuardCount() int {
	n := 0
	for _, g := range c.volumeGuards {
		if !g.Disarmed() && !g.Released() {
			n++
		}
	}
	for _, g := range c.closureGuards {
		if !g.Disarmed() && !g.Released() {
			n++
		}
	}
	return n
}

// Release unmounts volume guards, then closure guards, then removes the
// temp directory. Safe to call multiple times; each guard releases at
// most once.
func (c *ContainerFs) Release(ctx context.Context) {
	for i := len(c.volumeGuards) - 1; i >= 0; i-- {
		c.volumeGuards[i].Release(ctx)
	}
	for i := len(c.closureGuards) - 1; i >= 0; i-- {
		c.closureGuards[i].Release(ctx)
	}
	if c.tempDir != nil {
		c.tempDir.Guard.Release(ctx)
	}
}

// Keep disarms every guard this ContainerFs owns, intentionally leaking
// the rootfs tree: used when the caller passed -k/--keep.
func (c *ContainerFs) Keep() {
	for _, g := range c.volumeGuards {
		g.Disarm()
	}
	for _, g := range c.closureGuards {
		g.Disarm()
	}
	if c.tempDir != nil {
		c.tempDir.Guard.Disarm()
	}
}
