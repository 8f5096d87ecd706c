// Package store wraps the package-store builder ("nix") as a subprocess
// collaborator: building installables, querying flake outputs, computing
// runtime closures, and evaluating the current system tuple.
package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/surma/containix/internal/procargs"
	"github.com/surma/containix/internal/values"
)

// BuildOpts are the flags accepted by Build, rendered to CLI args via
// procargs.ToArgs. The other subprocess wrappers in this module use fixed,
// literal argument lists.
type BuildOpts struct {
	// NoLink suppresses the "result" symlink nix build creates by default.
	NoLink bool `flag:"--no-link"`
	// ReferenceLockFile pins a specific flake.lock to evaluate against.
	ReferenceLockFile string `flag:"--reference-lock-file"`
	// Refresh bypasses the evaluation cache.
	Refresh bool `flag:"--refresh"`
}

// Client resolves the nix/nix-store binaries once and shells out to them.
type Client struct {
	nixPath      string
	nixStorePath string
}

// NewClient resolves "nix" and "nix-store" on PATH. Resolution is
// performed explicitly (see pathresolve.go) rather than left to the
// standard library's own PATH handling.
func NewClient() (*Client, error) {
	nixPath, err := resolveOnPath("nix")
	if err != nil {
		return nil, err
	}
	nixStorePath, err := resolveOnPath("nix-store")
	if err != nil {
		return nil, err
	}
	return &Client{nixPath: nixPath, nixStorePath: nixStorePath}, nil
}

// NixPath reports the absolute path this Client resolved "nix" to, for
// callers that want to surface which toolchain a build actually ran
// against (e.g. `containix version`).
func (c *Client) NixPath() string {
	return c.nixPath
}

// Info invokes `nix flake show --json` for ref.Source and decodes the
// packages/legacyPackages subtrees.
func (c *Client) Info(ctx context.Context, source string) (FlakeShowOutput, error) {
	out, stderr, err := c.run(ctx, c.nixPath, "flake", "show", "--json", source)
	if err != nil {
		return FlakeShowOutput{}, &ErrBuildFailed{FlakeRef: source, Stderr: stderr}
	}
	var show FlakeShowOutput
	if err := json.Unmarshal(out, &show); err != nil {
		return FlakeShowOutput{}, &ErrParseFailed{Tool: "nix flake show", Err: err}
	}
	return show, nil
}

// CurrentSystem evaluates builtins.currentSystem.
func (c *Client) CurrentSystem(ctx context.Context) (string, error) {
	out, stderr, err := c.run(ctx, c.nixPath, "eval", "--raw", "--expr", "builtins.currentSystem")
	if err != nil {
		return "", &ErrBuildFailed{FlakeRef: "builtins.currentSystem", Stderr: stderr}
	}
	return strings.TrimSpace(string(out)), nil
}

// resolveOutput picks the first name in values.DefaultOutputPreference
// present under packages.<system>.* (falling back to legacyPackages) when
// the caller's FlakeRef did not already name an output.
func resolveOutput(show FlakeShowOutput, system string) (string, error) {
	if outs, ok := show.Packages[system]; ok {
		for _, name := range values.DefaultOutputPreference {
			if _, ok := outs[name]; ok {
				return name, nil
			}
		}
	}
	if outs, ok := show.LegacyPackages[system]; ok {
		for _, name := range values.DefaultOutputPreference {
			if _, ok := outs[name]; ok {
				return name, nil
			}
		}
	}
	return "", &ErrNoSuitableOutput{System: system, Tried: values.DefaultOutputPreference}
}

// Build resolves ref's output (calling Info+resolveOutput when ref.Output
// is empty), invokes `nix build --json`, and returns the built artifact's
// outputs.
func (c *Client) Build(ctx context.Context, ref values.FlakeRef, opts BuildOpts) (StoreArtifact, error) {
	output := ref.Output
	if output == "" {
		system, err := c.CurrentSystem(ctx)
		if err != nil {
			return StoreArtifact{}, err
		}
		show, err := c.Info(ctx, ref.Source)
		if err != nil {
			return StoreArtifact{}, err
		}
		output, err = resolveOutput(show, system)
		if err != nil {
			return StoreArtifact{}, err
		}
	}
	installable := fmt.Sprintf("%s#%s", ref.Source, output)

	args := append([]string{"build", "--json", installable}, procargs.ToArgs(&opts)...)
	out, stderr, err := c.run(ctx, c.nixPath, args...)
	if err != nil {
		return StoreArtifact{}, &ErrBuildFailed{FlakeRef: installable, Stderr: stderr}
	}

	var results []struct {
		DrvPath string            `json:"drvPath"`
		Outputs map[string]string `json:"outputs"`
	}
	if err := json.Unmarshal(out, &results); err != nil {
		return StoreArtifact{}, &ErrParseFailed{Tool: "nix build", Err: err}
	}
	if len(results) == 0 {
		return StoreArtifact{}, &ErrParseFailed{Tool: "nix build", Err: fmt.Errorf("empty result set")}
	}
	outputs := results[0].Outputs

	chosen := "out"
	if _, ok := outputs["bin"]; ok {
		chosen = "bin"
	} else if _, ok := outputs["out"]; !ok {
		return StoreArtifact{}, &ErrNoSuitableOutput{System: "build result", Tried: []string{"bin", "out"}}
	}

	parsed := make(map[string]values.StorePath, len(outputs))
	for name, p := range outputs {
		sp, err := values.ParseStorePath(p)
		if err != nil {
			return StoreArtifact{}, &ErrParseFailed{Tool: "nix build", Err: err}
		}
		parsed[name] = sp
	}

	return StoreArtifact{
		Name:    installable,
		Path:    parsed[chosen],
		Outputs: parsed,
	}, nil
}

// Closure invokes `nix-store --query --requisites` and parses one
// absolute path per stdout line.
func (c *Client) Closure(ctx context.Context, p values.StorePath) (Closure, error) {
	out, stderr, err := c.run(ctx, c.nixStorePath, "--query", "--requisites", p.AbsPath())
	if err != nil {
		return nil, &ErrBuildFailed{FlakeRef: p.AbsPath(), Stderr: stderr}
	}
	closure := Closure{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		sp, err := values.ParseStorePath(line)
		if err != nil {
			return nil, &ErrParseFailed{Tool: "nix-store --query --requisites", Err: err}
		}
		closure[sp.ID()] = sp
	}
	if err := scanner.Err(); err != nil {
		return nil, &ErrParseFailed{Tool: "nix-store --query --requisites", Err: err}
	}
	return closure, nil
}

func (c *Client) run(ctx context.Context, path string, args ...string) ([]byte, string, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	slog.DebugContext(ctx, "store: running subprocess", "path", path, "args", args)
	if err := cmd.Run(); err != nil {
		return nil, stderr.String(), fmt.Errorf("store: %s %v: %w", path, args, err)
	}
	return stdout.Bytes(), stderr.String(), nil
}
