package mount

import (
	"context"
	"os"
	"strings"
	"testing"
)

// TestBindMountWrapsFailure exercises the unprivileged path: without
// CAP_SYS_ADMIN (or a user namespace granting it) the kernel mount call
// fails, and we assert the error is wrapped with enough context to debug,
// rather than asserting on a successful mount (which needs root/namespace
// privilege not available to a plain test binary).
func TestBindMountWrapsFailure(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root: mount may succeed, skipping unprivileged-failure assertion")
	}
	src := t.TempDir()
	dest := t.TempDir()
	_, err := BindMount(context.Background(), src, dest, true, true)
	if err == nil {
		t.Fatalf("want error for unprivileged bind mount")
	}
	if !strings.Contains(err.Error(), "mount: bind") {
		t.Fatalf("error missing context: %v", err)
	}
}

func TestUnmountWrapsFailure(t *testing.T) {
	err := Unmount(t.TempDir())
	if err == nil {
		t.Fatalf("want error unmounting a non-mountpoint")
	}
	if !strings.Contains(err.Error(), "mount: unmount") {
		t.Fatalf("error missing context: %v", err)
	}
}
