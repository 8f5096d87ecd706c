package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/surma/containix/internal/orchestrator"
	"github.com/surma/containix/internal/store"
	"github.com/surma/containix/internal/values"
)

// RunCmd builds a flake reference and runs it as a fresh rootless
// container: a new mount/pid/ipc/uts/user/network namespace set, a rootfs
// assembled from the artifact's closure plus any volumes, and (if a network
// helper binary is given) port forwarding into the container's netns.
type RunCmd struct {
	Flake             string   `short:"f" required:"" help:"flake reference to run, e.g. \"github:surma/containix#hello\""`
	Command           []string `arg:"" optional:"" help:"command (and args) to exec inside the container; defaults to the artifact's entry point"`
	Volume            []string `short:"v" placeholder:"<host>:<container>[:ro]" help:"bind-mount host path into the container, repeatable"`
	Port              []string `short:"p" placeholder:"<host>[:<container>]" help:"forward a host port into the container, repeatable"`
	Env               []string `short:"e" placeholder:"<KEY>=<VALUE>" help:"set an environment variable inside the container, repeatable"`
	Keep              bool     `short:"k" help:"keep the assembled rootfs on disk instead of cleaning it up"`
	HostTools         string   `name:"host-tools" placeholder:"<store-path>" help:"store path whose bin/ is prepended to PATH while resolving nix and nix-store"`
	NetworkHelperPath string   `name:"network-helper" placeholder:"<path>" help:"path to a slirp4netns-compatible binary; omit to run without networking"`
	FullNixStore      bool     `name:"full-nix-store" help:"bind-mount the entire /nix/store read-only instead of mounting each closure path individually"`
	Refresh           bool     `help:"bypass nix's evaluation cache"`

	exitCode int
	ran      bool
}

func (c *RunCmd) Run(cctx *Context) error {
	ctx := context.Background()

	volumes := make([]values.VolumeMount, 0, len(c.Volume))
	for _, v := range c.Volume {
		vm, err := values.ParseVolumeMount(v)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		volumes = append(volumes, vm)
	}

	ports := make([]values.PortMapping, 0, len(c.Port))
	for _, p := range c.Port {
		pm, err := values.ParsePortMapping(p)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		ports = append(ports, pm)
	}

	envOverrides := make([]values.EnvVariable, 0, len(c.Env))
	for _, e := range c.Env {
		ev, err := values.ParseEnvVariable(e)
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		envOverrides = append(envOverrides, ev)
	}

	if c.HostTools != "" {
		if err := os.Setenv("PATH", filepath.Join(c.HostTools, "bin")+string(os.PathListSeparator)+os.Getenv("PATH")); err != nil {
			return fmt.Errorf("run: extend PATH with host tools: %w", err)
		}
	}

	client, err := store.NewClient()
	if err != nil {
		return fmt.Errorf("run: resolve nix tools: %w", err)
	}

	orch := orchestrator.New(client)
	code, err := orch.Run(ctx, orchestrator.Request{
		Flake:             values.ParseFlakeRef(c.Flake),
		Volumes:           volumes,
		Ports:             ports,
		EnvOverrides:      envOverrides,
		Keep:              c.Keep,
		HostToolsPath:     c.HostTools,
		Refresh:           c.Refresh,
		FullNixStore:      c.FullNixStore,
		Command:           c.Command,
		NetworkHelperPath: c.NetworkHelperPath,
	})
	if err != nil {
		slog.ErrorContext(ctx, "run failed", "error", err)
		return err
	}
	c.exitCode = code
	c.ran = true
	return nil
}

// exit terminates the process with the container's own exit code, the same
// way a shell propagates the status of whatever it ran. Only called from
// main after kong's own error handling has had a chance to run, and only
// when Run actually reached the point of launching a container.
func (c *RunCmd) exit() {
	if c.ran {
		os.Exit(c.exitCode)
	}
}
