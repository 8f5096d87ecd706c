package values

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"
)

// StoreRoot is the fixed prefix under which store artifacts live.
const StoreRoot = "/nix/store"

// StorePath identifies an immutable package-store artifact by its short,
// opaque "<hash>-<name>" identifier. Equality is by identifier.
type StorePath struct {
	id string
}

// NewStorePath wraps an already-validated id. Used by code that obtained
// the id from a trusted source (e.g. nix's own JSON output).
func NewStorePath(id string) StorePath {
	return StorePath{id: id}
}

// ParseStorePath accepts either a bare id or an absolute "/nix/store/<id>"
// path. A path with any extra path component, or containing invalid UTF-8,
// is rejected.
func ParseStorePath(s string) (StorePath, error) {
	if !utf8.ValidString(s) {
		return StorePath{}, fmt.Errorf("store path %q: invalid UTF-8", s)
	}
	if !strings.HasPrefix(s, "/") {
		if s == "" || strings.Contains(s, "/") {
			return StorePath{}, fmt.Errorf("store path %q: not a valid id", s)
		}
		return StorePath{id: s}, nil
	}
	rest := strings.TrimPrefix(s, StoreRoot+"/")
	if rest == s {
		return StorePath{}, fmt.Errorf("store path %q: not under %s", s, StoreRoot)
	}
	if rest == "" || strings.Contains(rest, "/") {
		return StorePath{}, fmt.Errorf("store path %q: extra path component", s)
	}
	return StorePath{id: rest}, nil
}

// ID returns the opaque identifier, e.g. "abc123-hello".
func (p StorePath) ID() string {
	return p.id
}

// AbsPath returns the absolute filesystem path of the artifact.
func (p StorePath) AbsPath() string {
	return path.Join(StoreRoot, p.id)
}

// String satisfies fmt.Stringer and is the inverse ParseStorePath expects
// for the round-trip law (parsing String() yields an equal value).
func (p StorePath) String() string {
	return p.AbsPath()
}

// Equal reports identifier equality.
func (p StorePath) Equal(other StorePath) bool {
	return p.id == other.id
}
