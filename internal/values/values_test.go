package values

import "testing"

func TestParsePortMappingBare(t *testing.T) {
	p, err := ParsePortMapping("8080")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HostPort != 8080 || p.ContainerPort != 8080 {
		t.Fatalf("want 8080:8080, got %+v", p)
	}
}

func TestParsePortMappingHostContainer(t *testing.T) {
	p, err := ParsePortMapping("65535:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.HostPort != 65535 || p.ContainerPort != 1 {
		t.Fatalf("unexpected mapping: %+v", p)
	}
}

func TestParsePortMappingBoundary(t *testing.T) {
	cases := []struct {
		in      string
		wantErr bool
	}{
		{"65536", true},
		{"0:foo", true},
		{"0", false},
		{"65535:1", false},
	}
	for _, c := range cases {
		_, err := ParsePortMapping(c.in)
		if (err != nil) != c.wantErr {
			t.Errorf("ParsePortMapping(%q): err=%v, wantErr=%v", c.in, err, c.wantErr)
		}
	}
}

func TestParseVolumeMountReadOnly(t *testing.T) {
	v, err := ParseVolumeMount("/host:/data")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.ReadOnly {
		t.Fatalf("want read_only false for bare H:C")
	}

	v, err = ParseVolumeMount("/host:/data:ro")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.ReadOnly {
		t.Fatalf("want read_only true for H:C:ro")
	}

	v, err = ParseVolumeMount("/host:/data:a,ro,b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.ReadOnly {
		t.Fatalf("want read_only true for H:C:a,ro,b")
	}
}

func TestParseVolumeMountRejectsMissingColon(t *testing.T) {
	if _, err := ParseVolumeMount("abc"); err == nil {
		t.Fatalf("want error for input with no ':'")
	}
}

func TestParseEnvVariable(t *testing.T) {
	e, err := ParseEnvVariable("K=V")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.String() != "K=V" {
		t.Fatalf("round trip failed: got %q", e.String())
	}
}

func TestParseEnvVariableRejectsNoEquals(t *testing.T) {
	if _, err := ParseEnvVariable("NOEQUALS"); err == nil {
		t.Fatalf("want error for input without '='")
	}
}

func TestParseStorePathBareID(t *testing.T) {
	p, err := ParseStorePath("abc123-hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "abc123-hello" {
		t.Fatalf("unexpected id: %q", p.ID())
	}
}

func TestParseStorePathAbsolute(t *testing.T) {
	p, err := ParseStorePath("/nix/store/abc123-hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID() != "abc123-hello" {
		t.Fatalf("unexpected id: %q", p.ID())
	}
}

func TestParseStorePathRejectsExtraComponent(t *testing.T) {
	if _, err := ParseStorePath("/nix/store/abc/def"); err == nil {
		t.Fatalf("want error for path with extra component")
	}
}

func TestStorePathRoundTrip(t *testing.T) {
	p, err := ParseStorePath("abc123-hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	back, err := ParseStorePath(p.String())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !back.Equal(p) {
		t.Fatalf("round trip mismatch: %q != %q", back.ID(), p.ID())
	}
}

func TestStripLeadingSlash(t *testing.T) {
	if got := StripLeadingSlash("/nix/store/abc"); got != "nix/store/abc" {
		t.Fatalf("unexpected result: %q", got)
	}
	if got := StripLeadingSlash("relative"); got != "relative" {
		t.Fatalf("unexpected result for relative path: %q", got)
	}
}
