// Package netdriver spawns a slirp4netns-compatible user-space networking
// helper attached to an existing pid's network namespace, and programs its
// host-port-forward table over its control socket.
package netdriver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/surma/containix/internal/childhandle"
	"github.com/surma/containix/internal/values"
)

// guestAddr is the fixed address convention of the slirp-style helper.
const guestAddr = "10.0.2.100"

// Session is the handle returned by Activate: the helper's child handle
// plus a way to block until the background ready-then-program sequence
// has finished, one way or another. The orchestrator's teardown sequence
// kills the helper (which unblocks a still-pending ready read) and then
// calls Wait before moving on, so the background goroutine never outlives
// the drop it is a part of.
type Session struct {
	Handle childhandle.Handle
	group  *errgroup.Group
}

// Wait blocks until the background ready-then-program goroutine has
// returned. It never itself returns an error: programming failures are
// logged, not propagated, per the non-fatal helper-failure policy.
func (s *Session) Wait() {
	_ = s.group.Wait()
}

// Activate spawns binPath attached to pid's network namespace, waits in a
// background goroutine for its readiness signal on an O_CLOEXEC pipe, and
// then programs every port mapping over the control socket. It returns
// immediately; see Session.Wait for how the caller synchronizes teardown
// against the background goroutine.
func Activate(ctx context.Context, binPath string, pid int, socketPath, deviceName string, ports []values.PortMapping) (*Session, error) {
	readyR, readyW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("netdriver: create ready pipe: %w", err)
	}

	// ExtraFiles[0] lands at fd 3 in the child; --ready-fd must name that.
	cmd := exec.CommandContext(ctx, binPath,
		"-c", strconv.Itoa(pid), deviceName,
		"--api-socket", socketPath,
		"--ready-fd", "3",
	)
	cmd.Stdin = nil
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.ExtraFiles = []*os.File{readyW}

	if err := cmd.Start(); err != nil {
		readyR.Close()
		readyW.Close()
		return nil, fmt.Errorf("netdriver: start helper: %w", err)
	}
	// The child now holds its own copy of the write end; the parent's copy
	// must be closed or the read below never observes EOF/data reliably
	// once the child exits without signaling.
	readyW.Close()

	var g errgroup.Group
	g.Go(func() error {
		return waitReadyThenProgram(ctx, readyR, socketPath, ports, stdout.String, stderr.String)
	})

	return &Session{Handle: childhandle.FromExecCmd(cmd), group: &g}, nil
}

func waitReadyThenProgram(ctx context.Context, readyR *os.File, socketPath string, ports []values.PortMapping, stdout, stderr func() string) error {
	defer readyR.Close()
	buf := make([]byte, 1)
	if _, err := readyR.Read(buf); err != nil {
		slog.ErrorContext(ctx, "netdriver: helper never signaled ready", "error", err, "stdout", stdout(), "stderr", stderr())
		return nil
	}
	for _, p := range ports {
		if err := sendAddHostFwd(socketPath, p); err != nil {
			slog.ErrorContext(ctx, "netdriver: add_hostfwd failed", "mapping", p.String(), "error", err)
		}
	}
	return nil
}

// addHostFwdCommand is the JSON shape written, in a single write, to the
// helper's control socket.
type addHostFwdCommand struct {
	Execute   string             `json:"execute"`
	Arguments addHostFwdArgument `json:"arguments"`
}

type addHostFwdArgument struct {
	Proto     string `json:"proto"`
	HostAddr  string `json:"host_addr"`
	GuestAddr string `json:"guest_addr"`
	HostPort  uint16 `json:"host_port"`
	GuestPort uint16 `json:"guest_port"`
}

func newAddHostFwdCommand(p values.PortMapping) addHostFwdCommand {
	return addHostFwdCommand{
		Execute: "add_hostfwd",
		Arguments: addHostFwdArgument{
			Proto:     "tcp",
			HostAddr:  "0.0.0.0",
			GuestAddr: guestAddr,
			HostPort:  p.HostPort,
			GuestPort: p.ContainerPort,
		},
	}
}

func sendAddHostFwd(socketPath string, p values.PortMapping) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial control socket: %w", err)
	}
	defer conn.Close()
	return writeAddHostFwd(conn, p)
}

// writeAddHostFwd marshals the command and performs exactly one Write: the
// helper's protocol parses one object per write, so splitting this across
// multiple writes (as a buffered encoder might) would break it.
func writeAddHostFwd(w net.Conn, p values.PortMapping) error {
	b, err := json.Marshal(newAddHostFwdCommand(p))
	if err != nil {
		return fmt.Errorf("marshal add_hostfwd: %w", err)
	}
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("write add_hostfwd: %w", err)
	}
	if n != len(b) {
		return fmt.Errorf("short write: wrote %d of %d bytes", n, len(b))
	}
	return nil
}
