package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"streamvault/internal/policy"
)

func writeAgentTestConfig(t *testing.T) (string, string) {
	t.Helper()
	base := t.TempDir()
	cfgPath := filepath.Join(base, "config.toml")
	stateDir := filepath.Join(base, "state")
	content := fmt.Sprintf(`[paths]
recordings_dir = %q
state_dir = %q
log_dir = %q

[policy]
auto_record = ["Alpha", "beta"]
`, filepath.Join(base, "recordings"), stateDir, filepath.Join(base, "logs"))
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath, filepath.Join(stateDir, "desired-state.json")
}

func runCLI(t *testing.T, args ...string) {
	t.Helper()
	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("streamvault %v: %v", args, err)
	}
}

func TestAgentEnableWritesDesiredState(t *testing.T) {
	cfgPath, statePath := writeAgentTestConfig(t)

	runCLI(t, "--config", cfgPath, "agent", "enable")

	state, err := policy.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Version != policy.StateVersion || !state.Enabled {
		t.Fatalf("unexpected state %+v", state)
	}
	if len(state.Channels) != 2 || state.Channels[0].Login != "alpha" || state.Channels[1].Login != "beta" {
		t.Fatalf("unexpected channels %+v", state.Channels)
	}
	if state.Quality != "best" {
		t.Fatalf("quality should come from the configuration, got %q", state.Quality)
	}
}

func TestAgentEnableFiltersThroughAutoRecordList(t *testing.T) {
	cfgPath, statePath := writeAgentTestConfig(t)

	runCLI(t, "--config", cfgPath, "agent", "enable", "ALPHA", "stranger")

	state, err := policy.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if len(state.Channels) != 1 || state.Channels[0].Login != "alpha" {
		t.Fatalf("only listed auto-record channels should be desired, got %+v", state.Channels)
	}
}

func TestAgentDisablePreservesChannels(t *testing.T) {
	cfgPath, statePath := writeAgentTestConfig(t)

	runCLI(t, "--config", cfgPath, "agent", "enable")
	runCLI(t, "--config", cfgPath, "agent", "disable")

	state, err := policy.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Enabled {
		t.Fatal("disable should clear the enabled flag")
	}
	if len(state.Channels) != 2 {
		t.Fatalf("disable must not clear the channel set, got %+v", state.Channels)
	}
}

func TestAgentSyncPreservesEnabledFlag(t *testing.T) {
	cfgPath, statePath := writeAgentTestConfig(t)

	// No document yet: sync writes a disabled one.
	runCLI(t, "--config", cfgPath, "agent", "sync")
	state, err := policy.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if state.Enabled {
		t.Fatal("sync must not enable recording on its own")
	}

	runCLI(t, "--config", cfgPath, "agent", "enable")
	runCLI(t, "--config", cfgPath, "agent", "sync", "beta")
	state, err = policy.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if !state.Enabled {
		t.Fatal("sync should keep the existing enabled flag")
	}
	if len(state.Channels) != 1 || state.Channels[0].Login != "beta" {
		t.Fatalf("unexpected channels %+v", state.Channels)
	}
}
