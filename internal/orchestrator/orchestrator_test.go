package orchestrator

import (
	"reflect"
	"testing"

	"github.com/surma/containix/internal/store"
	"github.com/surma/containix/internal/values"
)

func testArtifact(t *testing.T) store.StoreArtifact {
	t.Helper()
	p, err := values.ParseStorePath("abc123-hello")
	if err != nil {
		t.Fatalf("ParseStorePath: %v", err)
	}
	return store.StoreArtifact{Name: "hello", Path: p}
}

func TestBuildCommandAndEnvDefaultEntrypoint(t *testing.T) {
	artifact := testArtifact(t)
	cmd, env := buildCommandAndEnv(Request{}, artifact)

	wantCmd := []string{"/nix/store/abc123-hello/bin/containix-entry-point"}
	if !reflect.DeepEqual(cmd, wantCmd) {
		t.Fatalf("got %v, want %v", cmd, wantCmd)
	}
	if env[0] != "PATH=/nix/store/abc123-hello/bin" {
		t.Fatalf("unexpected env[0]: %q", env[0])
	}
}

func TestBuildCommandAndEnvTrailingArgs(t *testing.T) {
	artifact := testArtifact(t)
	req := Request{Command: []string{"echo", "hi"}}
	cmd, _ := buildCommandAndEnv(req, artifact)

	if !reflect.DeepEqual(cmd, []string{"echo", "hi"}) {
		t.Fatalf("want trailing args verbatim, got %v", cmd)
	}
}

func TestBuildCommandAndEnvOverrides(t *testing.T) {
	artifact := testArtifact(t)
	req := Request{EnvOverrides: []values.EnvVariable{{Key: "FOO", Value: "bar"}}}
	_, env := buildCommandAndEnv(req, artifact)

	if len(env) != 2 || env[1] != "FOO=bar" {
		t.Fatalf("unexpected env: %v", env)
	}
}
