package capture_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"streamvault/internal/capture"
)

func TestArgsContract(t *testing.T) {
	args := capture.Args("https://twitch.tv/somechannel", "best", "/tmp/out.mp4")
	want := []string{
		"https://twitch.tv/somechannel",
		"best",
		"--twitch-disable-ads",
		"--twitch-low-latency",
		"--output", "/tmp/out.mp4",
	}
	if len(args) != len(want) {
		t.Fatalf("unexpected arg count: got %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d: got %q want %q", i, args[i], want[i])
		}
	}
}

func TestNormalizeLogin(t *testing.T) {
	cases := map[string]string{
		"  SomeChannel  ":                     "somechannel",
		"https://twitch.tv/SomeChannel":       "somechannel",
		"https://twitch.tv/SomeChannel/":      "somechannel",
		"https://twitch.tv/SomeChannel?ref=x": "somechannel",
		"":                                    "",
	}
	for input, want := range cases {
		if got := capture.NormalizeLogin(input); got != want {
			t.Fatalf("NormalizeLogin(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTargetForLogin(t *testing.T) {
	if got := capture.TargetForLogin("somechannel"); got != "twitch.tv/somechannel" {
		t.Fatalf("TargetForLogin = %q", got)
	}
	if got := capture.TargetForLogin("twitch.tv/somechannel"); got != "twitch.tv/somechannel" {
		t.Fatalf("existing target should pass through, got %q", got)
	}
}

func TestOutputFilename(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	got := capture.OutputFilename("Some Channel", ts)
	if got != "Some_Channel_2026-03-14_09-26-53.mp4" {
		t.Fatalf("unexpected filename %q", got)
	}
	if !strings.HasSuffix(capture.OutputFilename("", ts), "_2026-03-14_09-26-53.mp4") {
		t.Fatal("empty display name should still produce a stamped filename")
	}
}

func TestResolveToolOverride(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fakecapture")
	if err := os.WriteFile(tool, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}

	resolved, err := capture.ResolveTool(tool)
	if err != nil {
		t.Fatalf("ResolveTool: %v", err)
	}
	if resolved != tool {
		t.Fatalf("expected override %q, got %q", tool, resolved)
	}

	if _, err := capture.ResolveTool(filepath.Join(dir, "missing")); err == nil {
		t.Fatal("expected error for missing override")
	}
}

func TestLaunchAndStopSession(t *testing.T) {
	dir := t.TempDir()
	tool := filepath.Join(dir, "fakecapture")
	script := "#!/bin/sh\necho boot >&2\nsleep 30\n"
	if err := os.WriteFile(tool, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub tool: %v", err)
	}

	session, err := capture.Launch(tool, capture.LaunchSpec{
		Target:     "https://twitch.tv/somechannel",
		Login:      "somechannel",
		Quality:    "best",
		OutputPath: filepath.Join(dir, "out.mp4"),
	})
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if session.PID() <= 0 {
		t.Fatal("expected a live pid")
	}
	if session.Exited() {
		t.Fatal("session should still be running")
	}

	// Wait for the stub to emit its stderr line before stopping, otherwise
	// SIGTERM can reach the shell before it runs the echo.
	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(session.StderrTail(), "boot") {
		if time.Now().After(deadline) {
			t.Fatalf("stub never produced stderr output, got %q", session.StderrTail())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := session.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not exit after stop")
	}
	if !session.Exited() {
		t.Fatal("Exited should report true after Done closes")
	}
	if !strings.Contains(session.StderrTail(), "boot") {
		t.Fatalf("expected stderr tail to be captured, got %q", session.StderrTail())
	}
}

func TestLaunchFailureDoesNotLeaveSession(t *testing.T) {
	if _, err := capture.Launch("/nonexistent/capture", capture.LaunchSpec{
		Target:     "https://twitch.tv/somechannel",
		OutputPath: "/tmp/never.mp4",
	}); err == nil {
		t.Fatal("expected launch failure for missing binary")
	}
}
