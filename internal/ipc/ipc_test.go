package ipc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"streamvault/internal/ipc"
	"streamvault/internal/recorder"
	"streamvault/internal/testsupport"
)

func startHost(t *testing.T) (*ipc.Client, *recorder.Manager) {
	t.Helper()
	base := t.TempDir()
	manager, err := recorder.NewManager(recorder.Options{
		RecordingsDir: filepath.Join(base, "recordings"),
		ToolOverride:  testsupport.CaptureStub(t, base),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	socket := filepath.Join(base, "host.sock")
	server, err := ipc.NewServer(context.Background(), socket, manager, nil)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	server.Serve()
	t.Cleanup(func() {
		manager.StopRecording("")
		waitFor(t, func() bool { return manager.ActiveCount() == 0 })
		server.Close()
	})

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, manager
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestStartStatusStopOverSocket(t *testing.T) {
	client, manager := startHost(t)

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ActiveCount != 0 {
		t.Fatalf("fresh host should be idle, got %d", status.ActiveCount)
	}

	start, err := client.StartRecording(ipc.StartRequest{Target: "twitch.tv/alpha", ChannelName: "Alpha TV"})
	if err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !start.Started {
		t.Fatalf("start refused: %s", start.Message)
	}

	again, err := client.StartRecording(ipc.StartRequest{Target: "alpha"})
	if err != nil {
		t.Fatalf("StartRecording repeat: %v", err)
	}
	if again.Started {
		t.Fatal("duplicate start must be refused")
	}

	status, err = client.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.ActiveCount != 1 || len(status.Sessions) != 1 || status.Sessions[0].Login != "alpha" {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.Sessions[0].PID == 0 {
		t.Fatal("session status should carry the capture pid")
	}

	stop, err := client.StopRecording("alpha")
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if stop.Stopped != 1 {
		t.Fatalf("expected 1 stop signal, got %d", stop.Stopped)
	}
	waitFor(t, func() bool { return manager.ActiveCount() == 0 })
}

func TestToggleOverSocket(t *testing.T) {
	client, manager := startHost(t)

	toggled, err := client.ToggleRecording(ipc.ToggleRequest{Target: "alpha"})
	if err != nil {
		t.Fatalf("ToggleRecording: %v", err)
	}
	if !toggled.Started {
		t.Fatal("first toggle should start the capture")
	}

	toggled, err = client.ToggleRecording(ipc.ToggleRequest{Target: "alpha"})
	if err != nil {
		t.Fatalf("ToggleRecording repeat: %v", err)
	}
	if toggled.Started {
		t.Fatal("second toggle should stop the capture")
	}
	waitFor(t, func() bool { return manager.ActiveCount() == 0 })
}

func TestDeleteRefusesLiveOutput(t *testing.T) {
	client, manager := startHost(t)

	start, err := client.StartRecording(ipc.StartRequest{Target: "alpha"})
	if err != nil || !start.Started {
		t.Fatalf("StartRecording: %v %+v", err, start)
	}

	var active string
	for path := range manager.ActiveOutputs() {
		active = path
	}
	if err := os.WriteFile(active, []byte("partial"), 0o644); err != nil {
		t.Fatalf("write active output: %v", err)
	}

	del, err := client.DeleteRecording(active)
	if err != nil {
		t.Fatalf("DeleteRecording: %v", err)
	}
	if del.Deleted {
		t.Fatal("live output must not be deletable")
	}
	if del.Message == "" {
		t.Fatal("refusal should explain itself")
	}
}
