package nsentry

import (
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/surma/containix/internal/reexec"
)

const (
	reexecEntryName = "containix-nsentry-exec"
	envSpec         = "_CONTAINIX_NSENTRY_SPEC"
)

// execSpec is the wire format handed to the reexec'd child via an
// environment variable: what to chroot into (if anything) and what to
// finally exec in its place.
type execSpec struct {
	Path     string   `json:"path"`
	Args     []string `json:"args"`
	Env      []string `json:"env"`
	Root     string   `json:"root,omitempty"`
	Hostname string   `json:"hostname,omitempty"`
}

func init() {
	reexec.Register(reexecEntryName, childMain)
}

// childMain runs inside the cloned child, already inside its new
// namespaces with id maps already applied by the runtime's clone(2) call
// (Go's exec package performs the uid/gid map writes before the child
// execs when SysProcAttr.UidMappings/GidMappings are set). All that
// remains here is the hostname, the chroot and the final exec.
func childMain() {
	raw := os.Getenv(envSpec)
	var spec execSpec
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		fmt.Fprintln(os.Stderr, "containix: nsentry child: decode spec:", err)
		os.Exit(1)
	}

	if spec.Hostname != "" {
		if err := unix.Sethostname([]byte(spec.Hostname)); err != nil {
			fmt.Fprintln(os.Stderr, "containix: nsentry child: sethostname:", err)
			os.Exit(1)
		}
	}

	if spec.Root != "" {
		if err := unix.Chroot(spec.Root); err != nil {
			fmt.Fprintln(os.Stderr, "containix: nsentry child: chroot:", err)
			os.Exit(1)
		}
		if err := unix.Chdir("/"); err != nil {
			fmt.Fprintln(os.Stderr, "containix: nsentry child: chdir:", err)
			os.Exit(1)
		}
	}

	if err := syscall.Exec(spec.Path, spec.Args, spec.Env); err != nil {
		fmt.Fprintln(os.Stderr, "containix: nsentry child: exec:", err)
		os.Exit(127)
	}
}
