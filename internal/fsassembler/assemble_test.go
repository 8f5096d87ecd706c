package fsassembler

import (
	"context"
	"os"
	"testing"

	"github.com/surma/containix/internal/values"
)

// TestAssembleFailureLeavesNoGuards exercises the mid-assembly failure
// invariant: an unprivileged process cannot perform a real bind mount, so
// every attempt here fails at the first closure path, and the returned
// error must come paired with zero live guards. Assemble returns no
// ContainerFs on error, so the unwind is observed through the temp
// directory, whose guard is the last one released.
func TestAssembleFailureLeavesNoGuards(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root: bind mount may succeed, skipping unprivileged-failure assertion")
	}
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	closure := []values.StorePath{
		values.NewStorePath("aaa-one"),
		values.NewStorePath("bbb-two"),
	}
	_, err := Assemble(context.Background(), closure, nil, false)
	if err == nil {
		t.Fatalf("want error: unprivileged bind mount should fail")
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Fatalf("want rootfs temp directory removed after failure, found %d entries", len(entries))
	}
}

// TestAssembleFullNixStoreFailureLeavesNoGuards exercises the same
// unprivileged-failure invariant for the --full-nix-store path: it takes a
// different branch of Assemble (a single whole-store mount instead of a
// per-closure-path loop) and must unwind just as cleanly.
func TestAssembleFullNixStoreFailureLeavesNoGuards(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root: bind mount may succeed, skipping unprivileged-failure assertion")
	}
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	_, err := Assemble(context.Background(), nil, nil, true)
	if err == nil {
		t.Fatalf("want error: unprivileged bind mount of the full store should fail")
	}
	if entries, _ := os.ReadDir(tmp); len(entries) != 0 {
		t.Fatalf("want rootfs temp directory removed after failure, found %d entries", len(entries))
	}
}

func TestAssembleEmptyInputsProducesEmptyRoot(t *testing.T) {
	cfs, err := Assemble(context.Background(), nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error assembling empty fs: %v", err)
	}
	defer cfs.Release(context.Background())

	if cfs.GuardCount() != 0 {
		t.Fatalf("want 0 guards for empty closure/volumes, got %d", cfs.GuardCount())
	}
	info, err := os.Stat(cfs.RootPath)
	if err != nil {
		t.Fatalf("stat root: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("want root to be a directory")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	cfs, err := Assemble(context.Background(), nil, nil, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfs.Release(context.Background())
	cfs.Release(context.Background())

	if _, err := os.Stat(cfs.RootPath); !os.IsNotExist(err) {
		t.Fatalf("want root removed after release, stat err = %v", err)
	}
}
