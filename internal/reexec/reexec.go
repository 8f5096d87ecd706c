// Package reexec lets a process re-invoke its own binary image as a fresh
// child carrying namespace-clone flags, standing in for a raw clone(2)
// with an in-process callback, which the Go runtime cannot safely perform.
package reexec

import (
	"fmt"
	"os"
	"os/exec"
)

var (
	registeredInitializers = make(map[string]func())
	initWasCalled          bool
)

// Register adds an initialization func under name. main() dispatches to it
// via Init when os.Args[0] equals name.
func Register(name string, initializer func()) {
	if _, exists := registeredInitializers[name]; exists {
		panic(fmt.Sprintf("reexec: func already registered under name %q", name))
	}
	registeredInitializers[name] = initializer
}

// Init must be called at the very top of main(). It returns true, having
// already run the matching initializer and therefore having potentially
// never returned to the caller for long-running initializers, if
// os.Args[0] names a registered reexec entry point.
func Init() bool {
	initWasCalled = true
	initializer, exists := registeredInitializers[os.Args[0]]
	if !exists {
		return false
	}
	initializer()
	return true
}

func panicIfNotInitialized() {
	if !initWasCalled {
		panic("reexec: Init() was not called at the top of main()")
	}
}

// Self returns the path to the current process's in-memory binary image.
// It is safe to reexec via this path even if the on-disk binary is later
// replaced or removed.
func Self() string {
	return "/proc/self/exe"
}

// Command returns an *exec.Cmd whose Path is Self() and whose Args is the
// given slice verbatim (args[0] selects which registered initializer the
// child's Init() call will dispatch to).
func Command(args ...string) *exec.Cmd {
	panicIfNotInitialized()
	cmd := exec.Command(Self())
	cmd.Args = args
	return cmd
}
