package store

import (
	"fmt"

	"github.com/surma/containix/internal/values"
)

// StoreArtifact is the result of building an installable: the built
// output's name and path, plus every named output the derivation exposes.
type StoreArtifact struct {
	Name    string
	Path    values.StorePath
	Outputs map[string]values.StorePath
}

// Closure is the unordered set of store paths transitively required at
// runtime by a root store path.
type Closure map[string]values.StorePath

// Paths returns the closure's members as a slice. Order is unspecified.
func (c Closure) Paths() []values.StorePath {
	out := make([]values.StorePath, 0, len(c))
	for _, p := range c {
		out = append(out, p)
	}
	return out
}

// FlakeShowOutput is the subset of `nix flake show --json` this module
// cares about: the packages and legacyPackages subtrees, each keyed by
// system tuple then output name.
type FlakeShowOutput struct {
	Packages       map[string]map[string]FlakeOutputInfo `json:"packages"`
	LegacyPackages map[string]map[string]FlakeOutputInfo `json:"legacyPackages"`
}

// FlakeOutputInfo is the leaf value under packages.<system>.<name>.
type FlakeOutputInfo struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// ErrNoSuitableOutput is returned when none of the preferred output names
// are present under packages.<system>.* or legacyPackages.<system>.*.
type ErrNoSuitableOutput struct {
	System string
	Tried  []string
}

func (e *ErrNoSuitableOutput) Error() string {
	return fmt.Sprintf("store: no suitable output for system %q (tried %v)", e.System, e.Tried)
}

// ErrBuildFailed carries the builder subprocess's stderr verbatim.
type ErrBuildFailed struct {
	FlakeRef string
	Stderr   string
}

func (e *ErrBuildFailed) Error() string {
	return fmt.Sprintf("store: build %q failed: %s", e.FlakeRef, e.Stderr)
}

// ErrParseFailed wraps a failure to decode a subprocess's stdout.
type ErrParseFailed struct {
	Tool string
	Err  error
}

func (e *ErrParseFailed) Error() string {
	return fmt.Sprintf("store: failed to parse %s output: %v", e.Tool, e.Err)
}

func (e *ErrParseFailed) Unwrap() error {
	return e.Err
}
