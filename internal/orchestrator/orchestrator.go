// Package orchestrator drives the end-to-end container lifecycle: build
// the container's store artifact, assemble its rootfs, enter namespaces,
// launch the entrypoint, attach the network helper, wait, and tear down.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goombaio/namegenerator"

	"github.com/surma/containix/internal/fsassembler"
	"github.com/surma/containix/internal/netdriver"
	"github.com/surma/containix/internal/nsentry"
	"github.com/surma/containix/internal/store"
	"github.com/surma/containix/internal/tempdir"
	"github.com/surma/containix/internal/values"
)

// defaultEntryPoint is the command run when the caller passed no trailing
// args.
const defaultEntryPoint = "containix-entry-point"

// defaultDevice is the tap device name handed to the network helper.
const defaultDevice = "tap0"

// Request is everything one `run` invocation needs; it is built once from
// parsed CLI flags and never mutated afterward.
type Request struct {
	Flake             values.FlakeRef
	Volumes           []values.VolumeMount
	Ports             []values.PortMapping
	EnvOverrides      []values.EnvVariable
	Keep              bool
	HostToolsPath     string
	Refresh           bool
	FullNixStore      bool
	Command           []string
	NetworkHelperPath string
}

// Orchestrator holds the collaborators needed to run one container.
type Orchestrator struct {
	Store *store.Client
}

// New constructs an Orchestrator from an already-resolved store client.
func New(storeClient *store.Client) *Orchestrator {
	return &Orchestrator{Store: storeClient}
}

// Run executes the full lifecycle described by req and returns the
// container's exit code on a clean exit.
func (o *Orchestrator) Run(ctx context.Context, req Request) (int, error) {
	if req.HostToolsPath != "" {
		if err := os.Setenv("PATH", filepath.Join(req.HostToolsPath, "bin")+string(os.PathListSeparator)+os.Getenv("PATH")); err != nil {
			return 1, fmt.Errorf("orchestrator: extend PATH with host tools: %w", err)
		}
	}

	artifact, err := o.Store.Build(ctx, req.Flake, store.BuildOpts{Refresh: req.Refresh})
	if err != nil {
		return 1, fmt.Errorf("orchestrator: build %s: %w", req.Flake, err)
	}
	slog.InfoContext(ctx, "built container artifact", "flake", req.Flake.String(), "path", artifact.Path.AbsPath())

	closure, err := o.Store.Closure(ctx, artifact.Path)
	if err != nil {
		return 1, fmt.Errorf("orchestrator: closure of %s: %w", artifact.Path.AbsPath(), err)
	}

	nsBuilder := nsentry.New().Namespace(nsentry.User).Namespace(nsentry.Mount).MapCurrentUserToRoot()
	if err := nsBuilder.Enter(ctx); err != nil {
		return 1, fmt.Errorf("orchestrator: enter user+mount namespace: %w", err)
	}

	cfs, err := fsassembler.Assemble(ctx, closure.Paths(), req.Volumes, req.FullNixStore)
	if err != nil {
		return 1, fmt.Errorf("orchestrator: assemble rootfs: %w", err)
	}
	if req.Keep {
		defer func() {
			slog.InfoContext(ctx, "not cleaning up", "path", cfs.RootPath)
			cfs.Keep()
		}()
	} else {
		defer cfs.Release(ctx)
	}

	socketDir, err := tempdir.New("containix-netns")
	if err != nil {
		return 1, fmt.Errorf("orchestrator: create socket dir: %w", err)
	}
	defer socketDir.Guard.Release(ctx)
	socketPath := filepath.Join(socketDir.Path, "slirp4netns.sock")

	command, env := buildCommandAndEnv(req, artifact)

	if err := writeInContainerConfig(cfs.RootPath, artifact.Path.ID(), command); err != nil {
		slog.ErrorContext(ctx, "failed to write in-container config", "error", err)
	}

	hostname := namegenerator.NewNameGenerator(time.Now().UnixNano()).Generate()
	slog.InfoContext(ctx, "assigned container hostname", "hostname", hostname)

	childBuilder := nsentry.New().
		Namespace(nsentry.Mount).
		Namespace(nsentry.Pid).
		Namespace(nsentry.Ipc).
		Namespace(nsentry.User).
		Namespace(nsentry.Uts).
		Namespace(nsentry.Network).
		Root(cfs.RootPath).
		Hostname(hostname)
	child, err := childBuilder.Execute(ctx, command[0], command, env)
	if err != nil {
		return 1, fmt.Errorf("orchestrator: launch container: %w", err)
	}

	var netSession *netdriver.Session
	if req.NetworkHelperPath != "" {
		s, err := netdriver.Activate(ctx, req.NetworkHelperPath, child.Pid(), socketPath, defaultDevice, req.Ports)
		if err != nil {
			slog.ErrorContext(ctx, "network helper failed to start; continuing without port forwarding", "error", err)
		} else {
			netSession = s
			defer func() {
				if err := netSession.Handle.Kill(); err != nil {
					slog.ErrorContext(ctx, "failed to kill network helper", "error", err)
				}
				netSession.Wait()
			}()
		}
	}

	code, clean, err := child.Wait()
	if err != nil {
		return 1, fmt.Errorf("orchestrator: wait for container: %w", err)
	}
	if !clean {
		return 1, fmt.Errorf("orchestrator: container did not exit cleanly")
	}
	return code, nil
}

// buildCommandAndEnv implements the spec's environment and command
// selection rules: env_clear() then PATH=<artifact>/bin plus overrides;
// trailing args verbatim if given, else the default entrypoint.
func buildCommandAndEnv(req Request, artifact store.StoreArtifact) ([]string, []string) {
	binDir := filepath.Join(artifact.Path.AbsPath(), "bin")
	env := []string{"PATH=" + binDir}
	for _, kv := range req.EnvOverrides {
		env = append(env, kv.String())
	}

	if len(req.Command) > 0 {
		return req.Command, env
	}
	return []string{filepath.Join(binDir, defaultEntryPoint)}, env
}

// writeInContainerConfig writes <rootfs>/containix.config.json, consumed
// by the in-container init companion when present.
func writeInContainerConfig(rootfs string, flakeID string, args []string) error {
	type iface struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Netmask string `json:"netmask"`
	}
	cfg := struct {
		Flake     string   `json:"flake"`
		Args      []string `json:"args"`
		Interface *iface   `json:"interface"`
	}{
		Flake:     flakeID,
		Args:      args,
		Interface: nil,
	}
	path := filepath.Join(rootfs, "containix.config.json")
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("orchestrator: encode in-container config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("orchestrator: write %s: %w", path, err)
	}
	return nil
}
