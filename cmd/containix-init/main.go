// Command containix-init is the optional in-container init companion: when
// present at the front of a container's command line it reads
// /containix.config.json, waits for the interface the orchestrator expects
// the network helper to have attached, and then execs the real command in
// its own place.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/surma/containix/internal/initwait"
)

const configPath = "/containix.config.json"

// ifaceConfig names the network interface the init should wait for before
// handing off, if any.
type ifaceConfig struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Netmask string `json:"netmask"`
}

type config struct {
	Flake     string       `json:"flake"`
	Args      []string     `json:"args"`
	Interface *ifaceConfig `json:"interface"`
}

const (
	pollBudget   = 10 * time.Second
	pollInterval = 100 * time.Millisecond
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	ctx := context.Background()

	cfg, err := readConfig(configPath)
	if err != nil {
		slog.ErrorContext(ctx, "containix-init: no usable config, exec'ing passed args as-is", "error", err)
		execOrDie(os.Args[1:])
		return
	}

	if cfg.Interface != nil && cfg.Interface.Name != "" {
		slog.InfoContext(ctx, "waiting for interface", "name", cfg.Interface.Name, "budget", pollBudget)
		if err := initwait.Poll(ctx, pollBudget, pollInterval, func(context.Context) (bool, error) {
			return interfaceExists(cfg.Interface.Name)
		}); err != nil {
			slog.ErrorContext(ctx, "containix-init: interface never appeared, exec'ing anyway", "error", err)
		}
	}

	args := cfg.Args
	if len(args) == 0 {
		args = os.Args[1:]
	}
	execOrDie(args)
}

func readConfig(path string) (config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config{}, fmt.Errorf("containix-init: read %s: %w", path, err)
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return config{}, fmt.Errorf("containix-init: decode %s: %w", path, err)
	}
	return cfg, nil
}

func interfaceExists(name string) (bool, error) {
	_, err := net.InterfaceByName(name)
	if err != nil {
		if _, ok := err.(*net.OpError); ok {
			return false, nil
		}
		return false, nil
	}
	return true, nil
}

func execOrDie(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "containix-init: no command to exec")
		os.Exit(1)
	}
	path := args[0]
	if err := syscall.Exec(path, args, os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "containix-init: exec:", err)
		os.Exit(127)
	}
}
