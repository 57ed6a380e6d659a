package logging_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"streamvault/internal/logging"
)

func TestNewConsoleLoggerWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "agent.log")

	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger = logging.NewComponentLogger(logger, "agent")
	logger.Info("session started", logging.String(logging.FieldChannel, "somechannel"), logging.Int(logging.FieldPID, 42))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "agent: session started") {
		t.Fatalf("expected component prefix in %q", line)
	}
	if !strings.Contains(line, "channel=somechannel") || !strings.Contains(line, "pid=42") {
		t.Fatalf("expected attrs in %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNopLoggerDropsOutput(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("never rendered")
	if logger.Enabled(t.Context(), 0) {
		t.Fatal("noop logger should report disabled")
	}
}
