package idmap

import (
	"regexp"
	"strings"
	"testing"
)

var idMapLineRE = regexp.MustCompile(`^\d+ \d+ \d+$`)

func TestSerializeLineShape(t *testing.T) {
	m := Map{
		{Inner: 0, Outer: 1000, Count: 1},
		{Inner: 1, Outer: 100000, Count: 65536},
	}
	out := m.Serialize()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != len(m) {
		t.Fatalf("want %d lines, got %d", len(m), len(lines))
	}
	for _, l := range lines {
		if !idMapLineRE.MatchString(l) {
			t.Errorf("line %q does not match expected shape", l)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	m := Map{{Inner: 0, Outer: 1000, Count: 1}}
	out := m.Serialize()
	back, err := Parse(out)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(back) != 1 || back[0] != m[0] {
		t.Fatalf("round trip mismatch: got %+v", back)
	}
}

func TestCurrentUserToRoot(t *testing.T) {
	m := CurrentUserToRoot(1000)
	if len(m) != 1 {
		t.Fatalf("want 1 range, got %d", len(m))
	}
	if m[0] != (Range{Inner: 0, Outer: 1000, Count: 1}) {
		t.Fatalf("unexpected range: %+v", m[0])
	}
}
