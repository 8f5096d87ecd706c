package nsentry

import (
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func TestCloneFlagsMapping(t *testing.T) {
	b := New().Namespace(Mount).Namespace(Pid).Namespace(Network)
	flags, err := b.cloneFlags()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := uintptr(unix.CLONE_NEWNS | unix.CLONE_NEWPID | unix.CLONE_NEWNET)
	if flags != want {
		t.Fatalf("got %x, want %x", flags, want)
	}
}

func TestCloneFlagsRejectsTime(t *testing.T) {
	b := New().Namespace(Time)
	if _, err := b.cloneFlags(); err == nil {
		t.Fatalf("want error for Time namespace")
	}
}

func TestMapCurrentUserToRoot(t *testing.T) {
	b := New().MapCurrentUserToRoot()
	if len(b.uidMap) != 1 || b.uidMap[0].Inner != 0 || b.uidMap[0].Outer != uint32(os.Getuid()) || b.uidMap[0].Count != 1 {
		t.Fatalf("unexpected uid map: %+v", b.uidMap)
	}
	if len(b.gidMap) != 1 || b.gidMap[0].Inner != 0 || b.gidMap[0].Outer != uint32(os.Getgid()) || b.gidMap[0].Count != 1 {
		t.Fatalf("unexpected gid map: %+v", b.gidMap)
	}
	if !b.namespaces[User] {
		t.Fatalf("want User namespace added")
	}
}
