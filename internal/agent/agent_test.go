package agent

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamvault/internal/policy"
	"streamvault/internal/testsupport"
)

func newTestAgent(t *testing.T, statePath, lockDir string) *Agent {
	t.Helper()
	a, err := New(Options{StatePath: statePath, LockDir: lockDir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func writeState(t *testing.T, path string, state policy.DesiredState, mtime time.Time) {
	t.Helper()
	if err := policy.WriteState(path, state); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	// Force a distinct modification time so coarse filesystem timestamps
	// cannot hide the update from the poller.
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}
}

func TestClearLockDirRemovesStaleLocks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "locks")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "alpha.json"), []byte("{}"), 0o644); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}

	if err := clearLockDir(dir); err != nil {
		t.Fatalf("clearLockDir: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read lock dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("lock dir should be empty, has %d entries", len(entries))
	}
}

func TestLockRoundTrip(t *testing.T) {
	dir := t.TempDir()
	lock := SessionLock{Login: "alpha", PID: 4321, OutputPath: "/tmp/alpha.mp4", StartedAt: time.Now().UTC()}
	if err := writeLock(dir, lock); err != nil {
		t.Fatalf("writeLock: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "alpha.json"))
	if err != nil {
		t.Fatalf("read lock: %v", err)
	}
	var got SessionLock
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode lock: %v", err)
	}
	if got.Login != "alpha" || got.PID != 4321 || got.OutputPath != lock.OutputPath {
		t.Fatalf("unexpected lock %+v", got)
	}

	if err := removeLock(dir, "alpha"); err != nil {
		t.Fatalf("removeLock: %v", err)
	}
	if err := removeLock(dir, "alpha"); err != nil {
		t.Fatalf("removeLock on missing file: %v", err)
	}
}

func TestTickReconcilesDesiredChannels(t *testing.T) {
	base := t.TempDir()
	statePath := filepath.Join(base, "desired-state.json")
	lockDir := filepath.Join(base, "locks")
	recordings := filepath.Join(base, "recordings")
	stub := testsupport.CaptureStub(t, base)

	a := newTestAgent(t, statePath, lockDir)
	if err := clearLockDir(lockDir); err != nil {
		t.Fatalf("clearLockDir: %v", err)
	}

	mtime := time.Now().Add(-2 * time.Second)
	writeState(t, statePath, policy.DesiredState{
		Enabled:             true,
		CaptureToolPath:     stub,
		RecordingsDirectory: recordings,
		Quality:             "best",
		Channels:            []policy.DesiredChannel{{Login: "alpha", DisplayName: "Alpha TV"}},
	}, mtime)

	a.tick()
	session, live := a.sessions["alpha"]
	if !live {
		t.Fatal("tick should have launched a session for alpha")
	}
	if _, err := os.Stat(filepath.Join(lockDir, "alpha.json")); err != nil {
		t.Fatalf("lock file missing after launch: %v", err)
	}

	// A second tick must not spawn a duplicate for the same login.
	a.tick()
	if len(a.sessions) != 1 {
		t.Fatalf("expected exactly 1 session, got %d", len(a.sessions))
	}

	// Remove the channel; the next tick signals the process.
	writeState(t, statePath, policy.DesiredState{
		Enabled:             true,
		CaptureToolPath:     stub,
		RecordingsDirectory: recordings,
		Quality:             "best",
		Channels:            nil,
	}, mtime.Add(time.Second))
	a.tick()

	select {
	case <-session.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("capture process did not exit after stop")
	}

	// The reap on the following tick drops bookkeeping and the lock file.
	a.tick()
	if len(a.sessions) != 0 {
		t.Fatalf("session not reaped, %d remain", len(a.sessions))
	}
	if _, err := os.Stat(filepath.Join(lockDir, "alpha.json")); !os.IsNotExist(err) {
		t.Fatal("lock file should be removed after reap")
	}
}

func TestDisabledStateStopsEverything(t *testing.T) {
	base := t.TempDir()
	statePath := filepath.Join(base, "desired-state.json")
	lockDir := filepath.Join(base, "locks")
	stub := testsupport.CaptureStub(t, base)

	a := newTestAgent(t, statePath, lockDir)
	if err := clearLockDir(lockDir); err != nil {
		t.Fatalf("clearLockDir: %v", err)
	}

	mtime := time.Now().Add(-2 * time.Second)
	writeState(t, statePath, policy.DesiredState{
		Enabled:             true,
		CaptureToolPath:     stub,
		RecordingsDirectory: filepath.Join(base, "recordings"),
		Channels:            []policy.DesiredChannel{{Login: "alpha"}, {Login: "beta"}},
	}, mtime)
	a.tick()
	if len(a.sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(a.sessions))
	}
	sessions := make([]<-chan struct{}, 0, 2)
	for _, s := range a.sessions {
		sessions = append(sessions, s.Done())
	}

	writeState(t, statePath, policy.DesiredState{
		Enabled:             false,
		CaptureToolPath:     stub,
		RecordingsDirectory: filepath.Join(base, "recordings"),
		Channels:            []policy.DesiredChannel{{Login: "alpha"}, {Login: "beta"}},
	}, mtime.Add(time.Second))
	a.tick()

	for _, done := range sessions {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("session did not stop after disable")
		}
	}
}

func TestLaunchFailureSchedulesBackoff(t *testing.T) {
	base := t.TempDir()
	statePath := filepath.Join(base, "desired-state.json")
	lockDir := filepath.Join(base, "locks")

	// Executable that exists but cannot be spawned as a program.
	broken := filepath.Join(base, "broken-tool")
	if err := os.WriteFile(broken, []byte{0x00, 0x01}, 0o755); err != nil {
		t.Fatalf("write broken tool: %v", err)
	}

	a := newTestAgent(t, statePath, lockDir)
	if err := clearLockDir(lockDir); err != nil {
		t.Fatalf("clearLockDir: %v", err)
	}

	writeState(t, statePath, policy.DesiredState{
		Enabled:             true,
		CaptureToolPath:     broken,
		RecordingsDirectory: filepath.Join(base, "recordings"),
		Channels:            []policy.DesiredChannel{{Login: "alpha"}},
	}, time.Now().Add(-2*time.Second))
	a.tick()

	if len(a.sessions) != 0 {
		t.Fatal("broken tool must not register a session")
	}
	retry, tracked := a.retries["alpha"]
	if !tracked || retry.Attempts != 1 {
		t.Fatalf("expected one failed attempt, got %+v", retry)
	}
	if retry.Due(a.now()) {
		t.Fatal("failed launch should back off, not retry immediately")
	}

	// While the backoff holds, the channel is not re-attempted.
	a.tick()
	if got := a.retries["alpha"].Attempts; got != 1 {
		t.Fatalf("backoff window should suppress retries, attempts %d", got)
	}
}
