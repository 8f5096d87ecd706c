// Command containix is a rootless container launcher: it resolves a
// flake-style package reference to a store artifact, assembles a root
// filesystem from that artifact's closure plus any user volumes, enters a
// fresh set of Linux namespaces as pseudo-root, and runs the requested
// command inside it.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	kongyaml "github.com/alecthomas/kong-yaml"
	"gopkg.in/natefinch/lumberjack.v2"

	_ "github.com/surma/containix/internal/nsentry"
	"github.com/surma/containix/internal/reexec"
)

// Context carries shared state into every subcommand's Run method, the
// same shape cmd/sand's Context takes.
type Context struct {
	LogLevel string
}

// CLI is the root kong command set.
type CLI struct {
	LogLevel string `default:"info" placeholder:"<debug|info|warn|error>" help:"the logging level (debug, info, warn, error); overridden by CONTAINIX_LOG"`
	LogFile  string `placeholder:"PATH" help:"append JSON logs to PATH (rotated at 100MB, 5 backups kept) instead of stderr"`

	Build   BuildCmd   `cmd:"" help:"resolve and build a flake reference, printing the resulting store path"`
	Run     RunCmd     `cmd:"" help:"build a flake reference and run it in a fresh container"`
	Version VersionCmd `cmd:"" help:"print version information about this binary"`
}

func (c *CLI) initSlog() {
	level := parseLogLevel(envOr("CONTAINIX_LOG", c.LogLevel))
	var w io.Writer = os.Stderr
	if c.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
		}
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// Every clone-spawned child reexecs this same binary; Init() dispatches
	// straight into the registered namespace-entry entry point and never
	// returns when it matches, so this must run before kong touches
	// os.Args.
	if reexec.Init() {
		return
	}

	if os.Getenv("CONTAINIX_CONTAINER") == "1" {
		fmt.Fprintln(os.Stderr, "containix: CONTAINIX_CONTAINER=1 must be handled by containix-init, not this binary")
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Configuration(kongyaml.Loader, ".containix.yaml", "~/.containix.yaml"),
		kong.Description("Build and run rootless Linux containers from flake-style package references."),
	)
	cli.initSlog()

	err := kctx.Run(&Context{LogLevel: cli.LogLevel})
	if err != nil {
		slog.ErrorContext(context.Background(), "command failed", "error", err)
	}
	kctx.FatalIfErrorf(err)
	cli.Run.exit()
}
