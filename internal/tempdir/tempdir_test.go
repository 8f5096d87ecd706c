package tempdir

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestNewCreatesDirWithPrefix(t *testing.T) {
	td, err := New("containix-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer td.Guard.Release(context.Background())

	info, err := os.Stat(td.Path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("want directory")
	}
	if !strings.Contains(td.Path, "containix-test-") {
		t.Fatalf("path %q missing prefix", td.Path)
	}
}

func TestGuardRemovesDirectory(t *testing.T) {
	td, err := New("containix-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	td.Guard.Release(context.Background())

	if _, err := os.Stat(td.Path); !os.IsNotExist(err) {
		t.Fatalf("want directory removed, stat err = %v", err)
	}
}
