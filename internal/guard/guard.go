// Package guard provides a small disarmable scoped-resource wrapper.
//
// A Guard owns a release function acquired alongside some OS resource
// (a mount, a temp directory, a child process) and runs it exactly once,
// either on an explicit Release call or never, if Disarm was called first.
// It deliberately does not rely on finalizers: callers must defer Release.
package guard

import (
	"context"
	"log/slog"
)

// Guard owns a release function for some acquired resource. It is not safe
// for concurrent use and must not be copied after construction.
type Guard struct {
	name     string
	release  func() error
	disarmed bool
	released bool
}

// New wraps release so it runs at most once. name is used only for logging
// when release fails.
func New(name string, release func() error) *Guard {
	return &Guard{name: name, release: release}
}

// Disarm prevents any future Release call from invoking the release
// function. Used to intentionally hand off or leak ownership (e.g. -k/--keep).
func (g *Guard) Disarm() {
	g.disarmed = true
}

// Disarmed reports whether Disarm has been called.
func (g *Guard) Disarmed() bool {
	return g.disarmed
}

// Released reports whether Release has already run the release function.
// A Release call on a disarmed guard does not set it. Used by callers that
// need to count still-live resources.
func (g *Guard) Released() bool {
	return g.released
}

// Release runs the release function exactly once, unless disarmed. Errors
// are logged at Error level and discarded: release failures are never fatal
// to the caller's teardown sequence.
func (g *Guard) Release(ctx context.Context) {
	if g == nil || g.released || g.disarmed {
		return
	}
	g.released = true
	if g.release == nil {
		return
	}
	if err := g.release(); err != nil {
		slog.ErrorContext(ctx, "guard release failed", "guard", g.name, "error", err)
	}
}
