package testutil

import (
	"os"
	"runtime"
	"testing"
)

// Platform describes the environment the tests run in.
type Platform struct {
	IsUnix    bool
	IsWindows bool
	IsRoot    bool
	UID       int
}

// DetectPlatform inspects the current runtime environment.
func DetectPlatform(t *testing.T) Platform {
	t.Helper()
	uid := os.Geteuid()
	p := Platform{
		IsUnix:    runtime.GOOS != "windows",
		IsWindows: runtime.GOOS == "windows",
		IsRoot:    uid == 0,
		UID:       uid,
	}
	t.Logf("Platform detection: OS=%s, UID=%d, IsRoot=%v", runtime.GOOS, uid, p.IsRoot)
	return p
}

// SkipIfRoot skips tests that rely on permission bits root ignores.
func SkipIfRoot(t *testing.T, p Platform, reason string) {
	t.Helper()
	if p.IsRoot {
		t.Skipf("Skipping test - %s (requires non-root user, running as UID 0)", reason)
	}
}

// SkipIfWindows skips tests that need Unix file semantics.
func SkipIfWindows(t *testing.T, p Platform, reason string) {
	t.Helper()
	if p.IsWindows {
		t.Skipf("Skipping test - %s (Windows platform detected)", reason)
	}
}
