package netdriver

import (
	"encoding/json"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/surma/containix/internal/values"
)

func TestWriteAddHostFwdIsSingleWriteNoTrailingNewline(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	defer clientConn.Close()

	received := make(chan []byte, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := serverConn.Read(buf)
		if err != nil {
			close(received)
			return
		}
		received <- buf[:n]
	}()

	p := values.PortMapping{HostPort: 8080, ContainerPort: 80}
	if err := writeAddHostFwd(clientConn, p); err != nil {
		t.Fatalf("writeAddHostFwd: %v", err)
	}

	select {
	case data := <-received:
		if strings.HasSuffix(string(data), "\n") {
			t.Fatalf("wire message must not end in a newline: %q", data)
		}
		var decoded addHostFwdCommand
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.Execute != "add_hostfwd" {
			t.Fatalf("unexpected execute field: %q", decoded.Execute)
		}
		if decoded.Arguments.GuestAddr != "10.0.2.100" {
			t.Fatalf("unexpected guest addr: %q", decoded.Arguments.GuestAddr)
		}
		if decoded.Arguments.HostPort != 8080 || decoded.Arguments.GuestPort != 80 {
			t.Fatalf("unexpected ports: %+v", decoded.Arguments)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for write")
	}
}
