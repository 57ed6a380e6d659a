package main

import (
	"path/filepath"
	"testing"
)

func TestRunRequiresStateFlag(t *testing.T) {
	if code := run(nil); code == 0 {
		t.Fatal("missing -state flag must exit non-zero")
	}
	if code := run([]string{"-log-level", "debug"}); code == 0 {
		t.Fatal("missing -state flag must exit non-zero even with other flags")
	}
}

func TestRunRejectsUnknownFlags(t *testing.T) {
	if code := run([]string{"-bogus"}); code != 2 {
		t.Fatalf("unknown flag should exit 2, got %d", code)
	}
}

func TestDefaultLockDirBesideStateFile(t *testing.T) {
	got := defaultLockDir("/var/lib/streamvault/desired-state.json")
	want := filepath.Join("/var/lib/streamvault", "locks")
	if got != want {
		t.Fatalf("defaultLockDir = %q, want %q", got, want)
	}
}
