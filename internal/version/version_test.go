package version

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	info := Get()

	if info.Version != Version {
		t.Errorf("expected version %q, got %q", Version, info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("expected go version %q, got %q", runtime.Version(), info.GoVersion)
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("expected %s/%s, got %s/%s", runtime.GOOS, runtime.GOARCH, info.OS, info.Arch)
	}
}

func TestInfoString(t *testing.T) {
	tests := []struct {
		name     string
		info     Info
		expected string
	}{
		{"unknown commit", Info{Version: "1.0.0", Commit: "unknown"}, "1.0.0"},
		{"short commit", Info{Version: "1.0.0", Commit: "abc"}, "1.0.0"},
		{"long commit", Info{Version: "1.0.0", Commit: "abcdef0123456"}, "1.0.0 (abcdef0)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.String(); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestInfoFull(t *testing.T) {
	info := Info{
		Version:   "1.2.3",
		Commit:    "deadbeef",
		Modified:  true,
		BuildTime: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		GoVersion: "go1.24",
		OS:        "linux",
		Arch:      "amd64",
	}

	full := info.Full()
	for _, want := range []string{
		"Version: 1.2.3",
		"Commit: deadbeef (modified)",
		"Build Time: 2024-01-02T03:04:05Z",
		"OS/Arch: linux/amd64",
	} {
		if !strings.Contains(full, want) {
			t.Errorf("expected %q in %q", want, full)
		}
	}

	if !strings.Contains(Info{}.Full(), "Build Time: unknown") {
		t.Error("expected unknown build time for zero Info")
	}
}
