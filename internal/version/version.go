// Package version exposes build-time version metadata, assembled from
// linker-set variables plus whatever the Go toolchain itself recorded in
// the binary via runtime/debug.ReadBuildInfo.
package version

import (
	"runtime/debug"

	"github.com/google/go-cmp/cmp"
)

var (
	// GitRepo, GitBranch, GitCommit and BuildTime are set via -ldflags at
	// build time; all are empty in a plain "go build".
	GitRepo   string
	GitBranch string
	GitCommit string
	BuildTime string
)

// Info is the full set of version metadata this binary can report. Beyond
// the linker-set build identity, it carries the one piece of this
// launcher's own runtime state worth reporting alongside a version: which
// store-builder toolchain a build actually resolved and ran against,
// since `containix build`/`run` behavior depends on that resolution
// (internal/store.Client.NixPath) at least as much as on the binary's own
// git revision.
type Info struct {
	GitRepo   string           `json:"gitRepo,omitempty"`
	GitBranch string           `json:"gitBranch,omitempty"`
	GitCommit string           `json:"gitCommit,omitempty"`
	BuildTime string           `json:"buildTime,omitempty"`
	NixPath   string           `json:"nixPath,omitempty"`
	BuildInfo *debug.BuildInfo `json:"buildInfo,omitempty"`
}

// Get assembles the current binary's version information. nixPath is the
// resolved "nix" binary path, if the caller already has a store.Client
// handy (empty when the caller has none, e.g. before the first PATH
// resolution of this process).
func Get(nixPath string) Info {
	info := Info{
		GitRepo:   GitRepo,
		GitBranch: GitBranch,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		NixPath:   nixPath,
	}
	if buildInfo, ok := debug.ReadBuildInfo(); ok {
		info.BuildInfo = buildInfo
	}
	return info
}

// Equal reports whether two Infos describe the same build: same module
// path, dependency set and Go version (if both recorded build info), and
// the same git identity. BuildTime and NixPath are deliberately excluded:
// two invocations of the same commit rebuilt a minute apart, or run
// against a different host's resolved "nix" binary, are still the same
// version.
func (v Info) Equal(other Info) bool {
	sameBuildInfo := v.BuildInfo == nil && other.BuildInfo == nil
	if v.BuildInfo != nil && other.BuildInfo != nil {
		sameBuildInfo = v.BuildInfo.Main.Path == other.BuildInfo.Main.Path &&
			cmp.Equal(v.BuildInfo.Deps, other.BuildInfo.Deps) &&
			v.BuildInfo.GoVersion == other.BuildInfo.GoVersion
	}
	sameIdentity := v.GitBranch == other.GitBranch &&
		v.GitCommit == other.GitCommit &&
		v.GitRepo == other.GitRepo
	return sameBuildInfo && sameIdentity
}
