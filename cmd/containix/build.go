package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/surma/containix/internal/store"
	"github.com/surma/containix/internal/values"
)

// BuildCmd resolves and builds a flake reference without running anything,
// printing the resulting store path to stdout.
type BuildCmd struct {
	Flake   string `short:"f" required:"" help:"flake reference to build, e.g. \"github:surma/containix#hello\""`
	Refresh bool   `help:"bypass nix's evaluation cache"`
}

func (c *BuildCmd) Run(cctx *Context) error {
	ctx := context.Background()

	client, err := store.NewClient()
	if err != nil {
		return fmt.Errorf("build: resolve nix tools: %w", err)
	}

	ref := values.ParseFlakeRef(c.Flake)
	artifact, err := client.Build(ctx, ref, store.BuildOpts{Refresh: c.Refresh})
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	slog.InfoContext(ctx, "build succeeded", "flake", ref.String(), "path", artifact.Path.AbsPath())
	fmt.Println(artifact.Path.AbsPath())
	return nil
}
