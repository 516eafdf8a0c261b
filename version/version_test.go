package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version == "" {
		t.Error("expected a version")
	}
	if info.CommitHash == "" {
		t.Error("expected a commit hash or the unknown fallback")
	}
	if info.GoVersion == "" || info.Platform == "" {
		t.Errorf("expected toolchain metadata, got %+v", info)
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("expected os/arch platform, got %q", info.Platform)
	}
}

func TestInfo_Short(t *testing.T) {
	i := Info{CommitHash: "0123456789abcdef0123"}
	if got := i.Short(); got != "0123456789ab" {
		t.Errorf("expected 12-char abbreviation, got %q", got)
	}

	i = Info{CommitHash: "dev"}
	if got := i.Short(); got != "dev" {
		t.Errorf("short hashes pass through, got %q", got)
	}
}

func TestInfo_String(t *testing.T) {
	i := Info{Version: "1.2.0", CommitHash: "abc1234", BuildTime: "2026-01-01T00:00:00Z"}
	s := i.String()
	if !strings.HasPrefix(s, "ape 1.2.0") || !strings.Contains(s, "abc1234") {
		t.Errorf("unexpected version string: %q", s)
	}
}
