package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/surma/containix/internal/store"
	"github.com/surma/containix/internal/version"
)

// VersionCmd prints the build's version metadata as JSON, including which
// nix binary a build/run invocation would currently resolve to.
type VersionCmd struct{}

func (c *VersionCmd) Run(cctx *Context) error {
	var nixPath string
	if client, err := store.NewClient(); err == nil {
		nixPath = client.NixPath()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(version.Get(nixPath)); err != nil {
		return fmt.Errorf("version: %w", err)
	}
	return nil
}
