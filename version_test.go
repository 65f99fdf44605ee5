package livecache

import (
	"strings"
	"testing"
)

func TestGetVersionInfo(t *testing.T) {
	versionInfo := GetVersionInfo()

	if versionInfo.Version != Version {
		t.Errorf("Expected version %s, got %s", Version, versionInfo.Version)
	}
	if !strings.HasPrefix(versionInfo.GoVersion, "go") {
		t.Errorf("Expected a Go version, got %q", versionInfo.GoVersion)
	}
}

func TestVersionConstant(t *testing.T) {
	if !strings.HasPrefix(Version, "v") || strings.Count(Version, ".") != 2 {
		t.Errorf("Version %s should look like 'v1.2.3'", Version)
	}
}
