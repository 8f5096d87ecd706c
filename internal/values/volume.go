package values

import (
	"fmt"
	"strings"
)

// VolumeMount is a (host_path, container_path, read_only) triple.
type VolumeMount struct {
	HostPath      string
	ContainerPath string
	ReadOnly      bool
}

// ParseVolumeMount splits on the first ':' for host/container, then an
// optional second ':' introducing a comma-separated options list. The only
// recognized option is "ro".
func ParseVolumeMount(s string) (VolumeMount, error) {
	hostRest := strings.SplitN(s, ":", 2)
	if len(hostRest) != 2 {
		return VolumeMount{}, fmt.Errorf("volume mount %q: missing ':'", s)
	}
	host := hostRest[0]
	containerOpts := strings.SplitN(hostRest[1], ":", 2)
	container := containerOpts[0]
	if host == "" || container == "" {
		return VolumeMount{}, fmt.Errorf("volume mount %q: host and container path must be non-empty", s)
	}
	readOnly := false
	if len(containerOpts) == 2 {
		for _, opt := range strings.Split(containerOpts[1], ",") {
			if opt == "ro" {
				readOnly = true
			}
		}
	}
	return VolumeMount{HostPath: host, ContainerPath: container, ReadOnly: readOnly}, nil
}

// StripLeadingSlash removes a single leading '/' from p, used whenever a
// target-inside-root path is composed from an absolute source path.
func StripLeadingSlash(p string) string {
	return strings.TrimPrefix(p, "/")
}
